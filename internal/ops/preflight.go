package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/spec/internal/errors"
)

// RepoState is the read-only git surface used by preflight checks.
type RepoState interface {
	IsClean(ctx context.Context) (bool, error)
	BranchExists(ctx context.Context, name string) (bool, error)
}

// Repository is the git surface used by Create and Merge. *git.Repo satisfies it.
type Repository interface {
	RepoState
	CurrentBranch(ctx context.Context) (string, error)
	Switch(ctx context.Context, branch string, create bool) error
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string) (string, error)
	Pull(ctx context.Context) error
	Merge(ctx context.Context, branch string) (string, error)
	Push(ctx context.Context) error
	Upstream(ctx context.Context, branch string) string
}

const dirtyTreeMessage = "Working tree is not clean. Please commit or stash your changes first."

// PreflightCreate requires a clean working tree.
func PreflightCreate(ctx context.Context, repo RepoState) error {
	return requireClean(ctx, repo)
}

// PreflightMerge requires a clean working tree, the feature branch, and the
// target branch to exist locally.
func PreflightMerge(ctx context.Context, repo RepoState, featureBranch, targetBranch string) error {
	if err := requireClean(ctx, repo); err != nil {
		return err
	}

	ok, err := repo.BranchExists(ctx, featureBranch)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewPrecondition(fmt.Sprintf("Feature branch '%s' does not exist.", featureBranch))
	}

	ok, err = repo.BranchExists(ctx, targetBranch)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewPrecondition(fmt.Sprintf(
			"Target branch '%s' does not exist locally. Please create it or set upstream first.", targetBranch))
	}
	return nil
}

func requireClean(ctx context.Context, repo RepoState) error {
	clean, err := repo.IsClean(ctx)
	if err != nil || !clean {
		sErr := errors.NewPrecondition(dirtyTreeMessage)
		sErr.Cause = err
		return sErr
	}
	return nil
}
