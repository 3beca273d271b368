package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/db"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/generator"
	"github.com/hpungsan/spec/internal/resolver"
)

// CommitMessage returns the commit message for a freshly scaffolded feature.
func CommitMessage(featureSlug string) string {
	return fmt.Sprintf("feat(%s): scaffold feature structure", featureSlug)
}

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	RepoRoot    string
	Config      *config.Config
	Repo        Repository
	Generator   generator.Generator
	Description string

	// MaxAttempts is the per-candidate generation budget.
	MaxAttempts int

	// Backoff and Sleep override the controller defaults (tests).
	Backoff generator.BackoffFunc
	Sleep   generator.SleepFunc

	// DB is the optional journal. Journal failures are logged, never returned.
	DB *sql.DB

	// Progress receives a short message before each step.
	Progress func(string)

	Logger *slog.Logger
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	Slug          string               `json:"slug"`
	Branch        string               `json:"branch"`
	Base          string               `json:"base,omitempty"`
	CommitHash    string               `json:"commit_hash"`
	DocFiles      []string             `json:"doc_files"`
	ScaffoldPaths []string             `json:"scaffold_paths"`
	Attempts      int                  `json:"attempts"`
	Rejected      []resolver.Rejection `json:"rejected,omitempty"`
}

// NewResolver wires the uniqueness resolver for one repository.
// repo may be nil, which skips the branch check.
func NewResolver(repoRoot string, cfg *config.Config, repo RepoState, candidates resolver.CandidateSource) *resolver.Resolver {
	r := &resolver.Resolver{
		Candidates:    candidates,
		Docs:          NewDocStore(repoRoot, cfg),
		Scaffold:      Scaffolder{RepoRoot: repoRoot},
		BranchFormat:  cfg.BranchFormat,
		ScaffoldPaths: cfg.ScaffoldPaths,
	}
	if repo != nil {
		r.Branches = repo
	}
	return r
}

// Create generates a unique slug for the description, creates the feature
// branch, scaffolds documentation and scaffold paths, and commits them.
func Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, errors.NewInvalidRequest("feature description is required")
	}
	if input.Config == nil {
		return nil, errors.NewInternal(fmt.Errorf("create: config is required"))
	}
	log := input.Logger
	if log == nil {
		log = slog.Default()
	}
	progress := input.Progress
	if progress == nil {
		progress = func(string) {}
	}
	cfg := input.Config

	progress("Checking working tree...")
	if err := PreflightCreate(ctx, input.Repo); err != nil {
		return nil, err
	}

	progress("Generating feature slug...")
	ctrl := generator.NewController(input.Generator, input.MaxAttempts)
	if input.Backoff != nil {
		ctrl.Backoff = input.Backoff
	}
	if input.Sleep != nil {
		ctrl.Sleep = input.Sleep
	}
	ctrl.Logger = log

	res, err := NewResolver(input.RepoRoot, cfg, input.Repo, ctrl).ResolveDetailed(ctx, description)
	if err != nil {
		return nil, err
	}
	log.Debug("slug resolved", "slug", res.Slug, "attempts", res.Attempts, "rejected", len(res.Rejected))

	plan := PlanScaffold(input.RepoRoot, cfg.ScaffoldPaths, res.Slug)
	if !plan.Valid {
		return nil, errors.NewPrecondition(fmt.Sprintf("scaffold paths conflict: %s", plan.Conflicts[0]))
	}

	base, err := input.Repo.CurrentBranch(ctx)
	if err != nil {
		log.Debug("could not read current branch", "error", err)
	}

	progress("Creating feature branch...")
	if err := input.Repo.Switch(ctx, res.Branch, true); err != nil {
		return nil, err
	}

	progress("Creating documentation structure...")
	docFiles, err := NewDocStore(input.RepoRoot, cfg).Write(res.Slug, description)
	if err != nil {
		return nil, leftOnBranch(err, res.Branch, base)
	}

	progress("Creating scaffold paths...")
	scaffoldFiles, err := CreateScaffold(plan, docFiles...)
	if err != nil {
		return nil, leftOnBranch(err, res.Branch, base)
	}

	progress("Committing initial structure...")
	staged := append(append([]string{}, docFiles...), scaffoldFiles...)
	if err := input.Repo.Add(ctx, staged...); err != nil {
		return nil, leftOnBranch(err, res.Branch, base)
	}
	hash, err := input.Repo.Commit(ctx, CommitMessage(res.Slug))
	if err != nil {
		return nil, leftOnBranch(err, res.Branch, base)
	}

	out := &CreateOutput{
		Slug:          res.Slug,
		Branch:        res.Branch,
		Base:          base,
		CommitHash:    hash,
		DocFiles:      docFiles,
		ScaffoldPaths: scaffoldFiles,
		Attempts:      res.Attempts,
		Rejected:      res.Rejected,
	}

	if input.DB != nil {
		rec := &db.Feature{
			RepoRoot:    input.RepoRoot,
			Slug:        out.Slug,
			Branch:      out.Branch,
			Description: description,
			CommitHash:  hash,
			Attempts:    res.Attempts,
		}
		if err := db.InsertFeature(ctx, input.DB, rec); err != nil {
			log.Warn("failed to record feature in journal", "slug", out.Slug, "error", err)
		}
	}

	return out, nil
}

// leftOnBranch adds a recovery hint to a failure that happened after the
// feature branch was checked out.
func leftOnBranch(err error, branch, base string) error {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}
	hint := fmt.Sprintf("Branch '%s' is checked out with uncommitted files.", branch)
	if base != "" {
		hint += fmt.Sprintf(" Run 'git switch %s' after cleaning up.", base)
	}
	if sErr.Hint != "" {
		hint = sErr.Hint + "\n" + hint
	}
	sErr.Hint = hint
	return sErr
}
