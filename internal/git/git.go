// Package git drives the git command line for feature branches.
//
// Every operation shells out to git through a CommandExecutor, so tests can
// substitute a scripted executor. Failures of mutating commands are returned as
// GIT_FAILED errors whose Details["operation"] names the step (SWITCH_FAILED,
// MERGE_FAILED, ...) and whose Hint tells the user how to recover.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/spec/internal/errors"
)

// Operation identifiers recorded on GIT_FAILED errors.
const (
	OpSwitch = "SWITCH_FAILED"
	OpAdd    = "ADD_FAILED"
	OpCommit = "COMMIT_FAILED"
	OpPull   = "PULL_FAILED"
	OpMerge  = "MERGE_FAILED"
	OpPush   = "PUSH_FAILED"
)

// MergeConflictSteps are printed after a failed merge.
var MergeConflictSteps = []string{
	"1. Fix conflicts in the affected files",
	"2. Run: git add <resolved-files>",
	"3. Run: git commit",
	"4. Run: git push",
}

// Repo is a git working tree.
type Repo struct {
	Root string
	exec CommandExecutor
}

// Open returns a Repo rooted at root using the default executor.
func Open(root string) *Repo {
	return OpenWithExecutor(root, NewExecExecutor())
}

// OpenWithExecutor returns a Repo that runs git through ex.
func OpenWithExecutor(root string, ex CommandExecutor) *Repo {
	return &Repo{Root: root, exec: ex}
}

// FindRoot returns the top-level directory of the repository containing dir.
func FindRoot(ctx context.Context, dir string) (string, error) {
	return findRoot(ctx, NewExecExecutor(), dir)
}

func findRoot(ctx context.Context, ex CommandExecutor, dir string) (string, error) {
	out, err := ex.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		sErr := errors.NewPrecondition("Not in a Git repository. Please run this command in a Git repository.")
		sErr.Cause = err
		return "", sErr
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	return r.exec.Run(ctx, r.Root, args...)
}

// IsClean reports whether the working tree has no staged, unstaged or untracked changes.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// BranchExists reports whether refs/heads/name exists.
func (r *Repo) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := r.run(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err == nil {
		return true, nil
	}
	// show-ref exits 1 for a missing ref; 128 for a malformed ref name.
	if code := exitCode(err); code == 1 || code == 128 {
		return false, nil
	}
	return false, err
}

// CurrentBranch returns the checked-out branch, or "" when HEAD is detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Switch checks out branch, creating it from HEAD when create is set.
func (r *Repo) Switch(ctx context.Context, branch string, create bool) error {
	args := []string{"switch", branch}
	hint := fmt.Sprintf("Failed to switch to branch '%s'", branch)
	if create {
		args = []string{"switch", "-c", branch}
		hint = fmt.Sprintf("Failed to create and switch to branch '%s'", branch)
	}
	if _, err := r.run(ctx, args...); err != nil {
		return errors.NewGitFailed(OpSwitch, err, hint)
	}
	return nil
}

// Add stages paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.run(ctx, args...); err != nil {
		return errors.NewGitFailed(OpAdd, err, "")
	}
	return nil
}

// Commit records the staged changes and returns the short hash of the new commit.
func (r *Repo) Commit(ctx context.Context, message string) (string, error) {
	if _, err := r.run(ctx, "commit", "-m", message); err != nil {
		return "", errors.NewGitFailed(OpCommit, err, "")
	}
	hash, err := r.ShortHead(ctx)
	if err != nil {
		return "", errors.NewGitFailed(OpCommit, err, "")
	}
	return hash, nil
}

// ShortHead returns the abbreviated hash of HEAD.
func (r *Repo) ShortHead(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Pull fetches and integrates the upstream of the current branch.
func (r *Repo) Pull(ctx context.Context) error {
	if _, err := r.run(ctx, "pull"); err != nil {
		return errors.NewGitFailed(OpPull, err,
			"Check if upstream is set: git branch --set-upstream-to <remote>/<branch> <branch>")
	}
	return nil
}

// Merge merges branch into the current branch with a merge commit and returns
// the short hash of the result.
func (r *Repo) Merge(ctx context.Context, branch string) (string, error) {
	if _, err := r.run(ctx, "merge", "--no-ff", "--no-edit", branch); err != nil {
		return "", errors.NewGitFailed(OpMerge, err,
			"Merge conflicts detected. Please resolve conflicts manually and commit.")
	}
	hash, err := r.ShortHead(ctx)
	if err != nil {
		return "", errors.NewGitFailed(OpMerge, err, "")
	}
	return hash, nil
}

// Push pushes the current branch to its upstream.
func (r *Repo) Push(ctx context.Context) error {
	if _, err := r.run(ctx, "push"); err != nil {
		return errors.NewGitFailed(OpPush, err, "Set upstream: git push -u origin <branch>")
	}
	return nil
}

// Upstream returns the upstream of branch (e.g. "origin/main"), or "" when none is set.
func (r *Repo) Upstream(ctx context.Context, branch string) string {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", branch+"@{u}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
