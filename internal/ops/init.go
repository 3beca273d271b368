package ops

import (
	"context"
	stderrors "errors"

	"github.com/charmbracelet/huh"

	"github.com/hpungsan/spec/internal/config"
)

// Prompter asks the questions of `spec init`.
type Prompter interface {
	ConfirmOverwrite(ctx context.Context, path string) (bool, error)
	Configure(ctx context.Context, defaults *config.Config, scaffoldCandidates []string) (*config.Config, error)
}

// InitInput contains parameters for the Init operation.
type InitInput struct {
	RepoRoot string

	// Force overwrites an existing configuration without asking.
	Force bool

	Prompter Prompter
}

// InitOutput contains the result of the Init operation.
type InitOutput struct {
	Path      string         `json:"path,omitempty"`
	Config    *config.Config `json:"config,omitempty"`
	Cancelled bool           `json:"cancelled"`
}

// Init runs the configuration wizard and writes spec.config.json.
// Declining the overwrite prompt or aborting the wizard cancels without error.
func Init(ctx context.Context, input InitInput) (*InitOutput, error) {
	if existing := config.Find(input.RepoRoot); existing != "" && !input.Force {
		ok, err := input.Prompter.ConfirmOverwrite(ctx, existing)
		if err != nil {
			return cancelledOr(err)
		}
		if !ok {
			return &InitOutput{Cancelled: true}, nil
		}
	}

	candidates := DetectTestFrameworks(input.RepoRoot)
	cfg, err := input.Prompter.Configure(ctx, config.DefaultConfig(), candidates)
	if err != nil {
		return cancelledOr(err)
	}
	if len(cfg.DocTemplates) == 0 {
		cfg.DocTemplates = append([]string{}, config.DefaultDocTemplates...)
	}
	if cfg.SchemaVersion == 0 {
		cfg.SchemaVersion = config.CurrentSchemaVersion
	}

	path, err := config.Save(input.RepoRoot, cfg)
	if err != nil {
		return nil, err
	}
	return &InitOutput{Path: path, Config: cfg}, nil
}

func cancelledOr(err error) (*InitOutput, error) {
	if stderrors.Is(err, huh.ErrUserAborted) || stderrors.Is(err, context.Canceled) {
		return &InitOutput{Cancelled: true}, nil
	}
	return nil, err
}
