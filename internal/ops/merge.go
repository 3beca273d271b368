package ops

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/db"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

// MergeInput contains parameters for the Merge operation.
type MergeInput struct {
	RepoRoot string
	Config   *config.Config
	Repo     Repository
	Slug     string

	// Target overrides Config.DefaultMergeTarget when set.
	Target string

	// NoPush skips the push even when the target has an upstream.
	NoPush bool

	// Verbose, if set, receives each git command line before it runs.
	Verbose func(cmd string)

	Progress func(string)
	DB       *sql.DB
	Logger   *slog.Logger
}

// MergeOutput contains the result of the Merge operation.
type MergeOutput struct {
	Slug      string `json:"slug"`
	Branch    string `json:"branch"`
	Target    string `json:"target"`
	MergeHash string `json:"merge_hash"`
	Upstream  string `json:"upstream,omitempty"`
	Pulled    bool   `json:"pulled"`
	Pushed    bool   `json:"pushed"`
}

// ValidateSlugArg checks a user-supplied slug before any git work.
func ValidateSlugArg(s string) error {
	if !slug.MatchesGrammar(s) {
		sErr := errors.NewInvalidRequest(fmt.Sprintf("Invalid feature slug format: '%s'", s))
		sErr.Hint = "Slug must be kebab-case (lowercase letters, numbers, and hyphens)"
		return sErr
	}
	return nil
}

// Merge switches to the target branch, pulls it when it tracks an upstream,
// merges the feature branch with a merge commit, and pushes.
func Merge(ctx context.Context, input MergeInput) (*MergeOutput, error) {
	if err := ValidateSlugArg(input.Slug); err != nil {
		return nil, err
	}
	if input.Config == nil {
		return nil, errors.NewInternal(fmt.Errorf("merge: config is required"))
	}
	log := input.Logger
	if log == nil {
		log = slog.Default()
	}
	progress := input.Progress
	if progress == nil {
		progress = func(string) {}
	}
	verbose := input.Verbose
	if verbose == nil {
		verbose = func(string) {}
	}

	target := input.Target
	if target == "" {
		target = input.Config.DefaultMergeTarget
	}
	out := &MergeOutput{
		Slug:   input.Slug,
		Branch: input.Config.BranchName(input.Slug),
		Target: target,
	}

	progress("Preparing to merge feature...")
	if err := PreflightMerge(ctx, input.Repo, out.Branch, target); err != nil {
		return nil, err
	}

	progress(fmt.Sprintf("Switching to target branch '%s'...", target))
	verbose("git switch " + target)
	if err := input.Repo.Switch(ctx, target, false); err != nil {
		return nil, err
	}

	out.Upstream = input.Repo.Upstream(ctx, target)
	if out.Upstream != "" {
		progress("Pulling latest changes...")
		verbose("git pull")
		if err := input.Repo.Pull(ctx); err != nil {
			return nil, err
		}
		out.Pulled = true
	} else {
		log.Debug("target has no upstream, skipping pull", "target", target)
	}

	progress(fmt.Sprintf("Merging feature branch '%s'...", out.Branch))
	verbose("git merge --no-ff " + out.Branch)
	hash, err := input.Repo.Merge(ctx, out.Branch)
	if err != nil {
		return nil, err
	}
	out.MergeHash = hash

	if out.Upstream != "" && !input.NoPush {
		progress("Pushing changes...")
		verbose("git push")
		if err := input.Repo.Push(ctx); err != nil {
			return out, err
		}
		out.Pushed = true
	}

	if input.DB != nil {
		rec := &db.Merge{RepoRoot: input.RepoRoot, Slug: out.Slug, Target: target, MergeHash: hash}
		if err := db.InsertMerge(ctx, input.DB, rec); err != nil {
			log.Warn("failed to record merge in journal", "slug", out.Slug, "error", err)
		}
	}

	return out, nil
}
