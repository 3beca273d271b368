package resolver

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/generator"
)

type fakeDocs struct {
	entries map[string]bool
	err     error
}

func newFakeDocs(entries ...string) *fakeDocs {
	d := &fakeDocs{entries: map[string]bool{}}
	for _, e := range entries {
		d.entries[e] = true
	}
	return d
}

func (d *fakeDocs) ListIdentifiers() ([]string, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]string, 0, len(d.entries))
	for e := range d.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out, nil
}

func (d *fakeDocs) Exists(s string) bool { return d.entries[s] }

type fakeBranches struct {
	names   map[string]bool
	queried []string
}

func (b *fakeBranches) BranchExists(_ context.Context, name string) (bool, error) {
	b.queried = append(b.queried, name)
	return b.names[name], nil
}

// dirScaffold rejects a slug when any expanded template already exists under root.
type dirScaffold struct {
	root string
}

func (s dirScaffold) CheckScaffold(templates []string, slug string) (bool, []string) {
	var problems []string
	for _, tmpl := range templates {
		p := filepath.Join(s.root, strings.ReplaceAll(tmpl, "{slug}", slug))
		if _, err := os.Stat(p); err == nil {
			problems = append(problems, "Path already exists: "+p)
		}
	}
	return len(problems) == 0, problems
}

// sequence returns its candidates in order, repeating the last.
type sequence struct {
	items    []string
	calls    int
	excluded [][]string
}

func (s *sequence) Generate(_ context.Context, _ string, excluded []string) (string, error) {
	s.excluded = append(s.excluded, excluded)
	idx := s.calls
	if idx >= len(s.items) {
		idx = len(s.items) - 1
	}
	s.calls++
	return s.items[idx], nil
}

func TestExcludedSet(t *testing.T) {
	s := NewExcludedSet("b", "a", "b")
	assert.Equal(t, []string{"b", "a"}, s.List())
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Contains("c"))
	assert.False(t, s.Contains("z"))

	list := s.List()
	list[0] = "mutated"
	assert.Equal(t, "b", s.List()[0])

	var zero ExcludedSet
	assert.False(t, zero.Contains("x"))
	assert.True(t, zero.Add("x"))
	assert.Equal(t, []string{"x"}, zero.List())
}

func TestResolve_FirstCandidateAccepted(t *testing.T) {
	src := &sequence{items: []string{"user-auth"}}
	branches := &fakeBranches{}
	r := &Resolver{
		Candidates:   src,
		Docs:         newFakeDocs(),
		Branches:     branches,
		BranchFormat: "feature-{slug}",
	}

	res, err := r.ResolveDetailed(context.Background(), "Add user authentication")
	require.NoError(t, err)
	assert.Equal(t, "user-auth", res.Slug)
	assert.Equal(t, "feature-user-auth", res.Branch)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []string{"feature-user-auth"}, branches.queried)
}

func TestResolve_SeedsExcludedFromDocs(t *testing.T) {
	src := &sequence{items: []string{"dup-slug", "unique-slug"}}
	r := &Resolver{Candidates: src, Docs: newFakeDocs("dup-slug", "older")}

	got, err := r.Resolve(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, "unique-slug", got)
	assert.Equal(t, []string{"dup-slug", "older"}, src.excluded[0])
	assert.Equal(t, 2, src.calls)
}

func TestResolve_DuplicateThroughController(t *testing.T) {
	// The controller itself rejects the excluded candidate, so the resolver
	// sees only the unique one.
	calls := 0
	g := generator.GeneratorFunc(func(_ context.Context, req generator.Request) (string, error) {
		calls++
		if calls == 1 {
			return "dup-slug", nil
		}
		return "unique-slug", nil
	})
	ctrl := &generator.Controller{Generator: g, MaxAttempts: 3, Backoff: generator.NoBackoff}
	r := &Resolver{Candidates: ctrl, Docs: newFakeDocs("dup-slug")}

	got, err := r.Resolve(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, "unique-slug", got)
	assert.Equal(t, 2, calls)
}

func TestResolve_BranchCollision(t *testing.T) {
	src := &sequence{items: []string{"taken", "free"}}
	var seen []Rejection
	r := &Resolver{
		Candidates:   src,
		Docs:         newFakeDocs(),
		Branches:     &fakeBranches{names: map[string]bool{"feat/taken": true}},
		BranchFormat: "feat/{slug}",
		OnReject:     func(rej Rejection) { seen = append(seen, rej) },
	}

	res, err := r.ResolveDetailed(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, "free", res.Slug)
	assert.Equal(t, 2, res.Attempts)
	require.Len(t, seen, 1)
	assert.Equal(t, Rejection{Attempt: 1, Candidate: "taken", Source: SourceBranch,
		Detail: "branch 'feat/taken' already exists"}, seen[0])
	assert.Equal(t, []string{"taken"}, src.excluded[1])
}

func TestResolve_ScaffoldCollisionNeverReturned(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tests", "old-feature"), 0o755))

	src := &sequence{items: []string{"old-feature", "new-feature"}}
	r := &Resolver{
		Candidates:    src,
		Docs:          newFakeDocs(),
		Branches:      &fakeBranches{},
		Scaffold:      dirScaffold{root: root},
		BranchFormat:  "feature-{slug}",
		ScaffoldPaths: []string{"tests/{slug}/"},
	}

	res, err := r.ResolveDetailed(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, "new-feature", res.Slug)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, SourceScaffold, res.Rejected[0].Source)
	assert.Contains(t, res.Rejected[0].Detail, "Path already exists")
}

func TestResolve_ChecksShortCircuitInOrder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "x"), 0o755))

	branches := &fakeBranches{names: map[string]bool{"feature-x": true}}
	src := &sequence{items: []string{"x", "y"}}
	r := &Resolver{
		Candidates:    src,
		Docs:          newFakeDocs(),
		Branches:      branches,
		Scaffold:      dirScaffold{root: root},
		BranchFormat:  "feature-{slug}",
		ScaffoldPaths: []string{"{slug}"},
	}

	res, err := r.ResolveDetailed(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, "y", res.Slug)
	// "x" collides on both branch and scaffold; the branch check wins.
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, SourceBranch, res.Rejected[0].Source)

	// A docs hit skips the branch query entirely.
	branches.queried = nil
	src = &sequence{items: []string{"documented", "fresh"}}
	r.Candidates = src
	r.Docs = newFakeDocs("documented")
	_, err = r.Resolve(context.Background(), "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-fresh"}, branches.queried)
}

func TestResolve_UniquenessExhausted(t *testing.T) {
	for _, budget := range []int{1, 3, 5} {
		src := &sequence{items: []string{"always-taken"}}
		r := &Resolver{
			Candidates:   src,
			Docs:         newFakeDocs(),
			Branches:     &fakeBranches{names: map[string]bool{"feature-always-taken": true}},
			BranchFormat: "feature-{slug}",
			MaxAttempts:  budget,
		}

		_, err := r.Resolve(context.Background(), "desc")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrUniquenessExhausted))
		assert.Equal(t, budget, src.calls)
		sErr, _ := errors.As(err)
		assert.Contains(t, sErr.Message, "failed to generate unique slug after")
	}
}

func TestResolve_DefaultBudget(t *testing.T) {
	src := &sequence{items: []string{"x"}}
	r := &Resolver{Candidates: src, Docs: newFakeDocs(), Branches: &fakeBranches{names: map[string]bool{"x": true}}, BranchFormat: "{slug}"}

	_, err := r.Resolve(context.Background(), "desc")
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, src.calls)
	assert.Equal(t, "UNIQUENESS_EXHAUSTED: failed to generate unique slug after 5 attempts", err.Error())
}

func TestResolve_BudgetClamped(t *testing.T) {
	src := &sequence{items: []string{"x"}}
	r := &Resolver{
		Candidates:   src,
		Docs:         newFakeDocs(),
		Branches:     &fakeBranches{names: map[string]bool{"x": true}},
		BranchFormat: "{slug}",
		MaxAttempts:  1_000_000,
	}

	_, err := r.Resolve(context.Background(), "desc")
	require.Error(t, err)
	assert.Equal(t, MaxAttemptsLimit, src.calls)
	sErr, _ := errors.As(err)
	assert.Equal(t, MaxAttemptsLimit, sErr.Details["attempts"])
}

func TestResolve_InnerErrorsPropagateUnchanged(t *testing.T) {
	inner := errors.NewGenerationExhausted(3, "Invalid format: slug must match pattern [a-z0-9]+(-[a-z0-9]+)*")
	calls := 0
	src := candidateFunc(func(context.Context, string, []string) (string, error) {
		calls++
		return "", inner
	})
	r := &Resolver{Candidates: src, Docs: newFakeDocs()}

	_, err := r.Resolve(context.Background(), "desc")
	assert.Same(t, inner, err)
	assert.Equal(t, 1, calls)
}

func TestResolve_CollaboratorErrors(t *testing.T) {
	boom := stderrors.New("disk on fire")
	r := &Resolver{Candidates: &sequence{items: []string{"a"}}, Docs: &fakeDocs{err: boom}}
	_, err := r.Resolve(context.Background(), "desc")
	assert.ErrorIs(t, err, boom)

	r = &Resolver{
		Candidates:   &sequence{items: []string{"a"}},
		Docs:         newFakeDocs(),
		Branches:     errBranches{err: boom},
		BranchFormat: "{slug}",
	}
	_, err = r.Resolve(context.Background(), "desc")
	assert.ErrorIs(t, err, boom)
}

type candidateFunc func(ctx context.Context, description string, excluded []string) (string, error)

func (f candidateFunc) Generate(ctx context.Context, description string, excluded []string) (string, error) {
	return f(ctx, description, excluded)
}

type errBranches struct{ err error }

func (b errBranches) BranchExists(context.Context, string) (bool, error) { return false, b.err }
