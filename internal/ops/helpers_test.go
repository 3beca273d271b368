package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRepo is an in-memory Repository that records the git calls it receives.
type fakeRepo struct {
	dirty    bool
	cleanErr error
	branches map[string]bool
	upstream string
	hash     string
	current  string

	switchErr error
	addErr    error
	commitErr error
	pullErr   error
	mergeErr  error
	pushErr   error

	// onSwitch runs after a successful Switch.
	onSwitch func()

	calls  []string
	staged []string
	commit string
}

func newFakeRepo(branches ...string) *fakeRepo {
	r := &fakeRepo{branches: map[string]bool{}, hash: "abc1234", current: "main"}
	for _, b := range branches {
		r.branches[b] = true
	}
	return r
}

func (r *fakeRepo) IsClean(context.Context) (bool, error) {
	return !r.dirty, r.cleanErr
}

func (r *fakeRepo) BranchExists(_ context.Context, name string) (bool, error) {
	return r.branches[name], nil
}

func (r *fakeRepo) CurrentBranch(context.Context) (string, error) {
	return r.current, nil
}

func (r *fakeRepo) Switch(_ context.Context, branch string, create bool) error {
	if create {
		r.calls = append(r.calls, "switch -c "+branch)
	} else {
		r.calls = append(r.calls, "switch "+branch)
	}
	if r.switchErr != nil {
		return r.switchErr
	}
	r.branches[branch] = true
	r.current = branch
	if r.onSwitch != nil {
		r.onSwitch()
	}
	return nil
}

func (r *fakeRepo) Add(_ context.Context, paths ...string) error {
	r.calls = append(r.calls, "add")
	r.staged = append(r.staged, paths...)
	return r.addErr
}

func (r *fakeRepo) Commit(_ context.Context, message string) (string, error) {
	r.calls = append(r.calls, "commit")
	r.commit = message
	if r.commitErr != nil {
		return "", r.commitErr
	}
	return r.hash, nil
}

func (r *fakeRepo) Pull(context.Context) error {
	r.calls = append(r.calls, "pull")
	return r.pullErr
}

func (r *fakeRepo) Merge(_ context.Context, branch string) (string, error) {
	r.calls = append(r.calls, "merge "+branch)
	if r.mergeErr != nil {
		return "", r.mergeErr
	}
	return r.hash, nil
}

func (r *fakeRepo) Push(context.Context) error {
	r.calls = append(r.calls, "push")
	return r.pushErr
}

func (r *fakeRepo) Upstream(context.Context, string) string {
	return r.upstream
}

func (r *fakeRepo) callLog() string {
	return strings.Join(r.calls, "; ")
}

// writeFile creates root/rel with content, creating parent directories.
func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// mkdir creates root/rel.
func mkdir(t *testing.T, root, rel string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
}
