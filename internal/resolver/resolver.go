// Package resolver turns a feature description into a slug that collides with
// nothing already in the repository.
//
// Three sources are consulted for every candidate, in order: the documentation
// store, the git branches (through the configured branch format), and the
// scaffold paths the slug would create. Any collision excludes the candidate and
// asks the candidate source again, until the attempt budget runs out.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

// DefaultMaxAttempts is the outer attempt budget used when MaxAttempts is not positive.
const DefaultMaxAttempts = 5

// MaxAttemptsLimit caps MaxAttempts.
const MaxAttemptsLimit = 20

// CandidateSource proposes a valid slug that is not in excluded.
// *generator.Controller satisfies it.
type CandidateSource interface {
	Generate(ctx context.Context, description string, excluded []string) (string, error)
}

// DocIndex lists existing documentation entries.
type DocIndex interface {
	ListIdentifiers() ([]string, error)
	Exists(slug string) bool
}

// BranchChecker reports whether a local branch exists.
type BranchChecker interface {
	BranchExists(ctx context.Context, name string) (bool, error)
}

// ScaffoldChecker reports whether the scaffold templates, expanded for slug,
// can all be created. problems is non-empty when they cannot.
type ScaffoldChecker interface {
	CheckScaffold(templates []string, slug string) (ok bool, problems []string)
}

// Source names the collision source that rejected a candidate.
type Source string

const (
	SourceDocs     Source = "docs"
	SourceBranch   Source = "branch"
	SourceScaffold Source = "scaffold"
)

// Rejection records a candidate refused by a collision source.
type Rejection struct {
	Attempt   int    `json:"attempt"`
	Candidate string `json:"candidate"`
	Source    Source `json:"source"`
	Detail    string `json:"detail"`
}

// Resolver finds a slug that is unique across docs, branches and scaffold paths.
type Resolver struct {
	Candidates CandidateSource
	Docs       DocIndex

	// Branches may be nil, in which case the branch check is skipped.
	Branches BranchChecker

	// Scaffold may be nil, in which case the scaffold check is skipped.
	Scaffold ScaffoldChecker

	// BranchFormat is the branch name template, e.g. "feature-{slug}".
	BranchFormat string

	ScaffoldPaths []string

	// MaxAttempts is the outer budget. Non-positive means DefaultMaxAttempts;
	// values above MaxAttemptsLimit are clamped.
	MaxAttempts int

	// OnReject, if set, is called for every collision.
	OnReject func(Rejection)

	Logger *slog.Logger
}

// Result is the outcome of a successful Resolve.
type Result struct {
	Slug     string
	Branch   string
	Attempts int
	Rejected []Rejection
}

// Resolve returns a slug unique across all collision sources.
// Errors from the candidate source or any collaborator propagate unchanged.
// When every outer attempt collides it returns UNIQUENESS_EXHAUSTED.
func (r *Resolver) Resolve(ctx context.Context, description string) (string, error) {
	res, err := r.ResolveDetailed(ctx, description)
	if err != nil {
		return "", err
	}
	return res.Slug, nil
}

// ResolveDetailed is Resolve with the branch name, attempt count and rejections.
func (r *Resolver) ResolveDetailed(ctx context.Context, description string) (*Result, error) {
	existing, err := r.Docs.ListIdentifiers()
	if err != nil {
		return nil, err
	}
	excluded := NewExcludedSet(existing...)

	budget := clampAttempts(r.MaxAttempts)

	var rejected []Rejection
	for attempt := 1; attempt <= budget; attempt++ {
		candidate, err := r.Candidates.Generate(ctx, description, excluded.List())
		if err != nil {
			return nil, err
		}

		rej, err := r.check(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if rej == nil {
			return &Result{
				Slug:     candidate,
				Branch:   slug.Expand(r.BranchFormat, candidate),
				Attempts: attempt,
				Rejected: rejected,
			}, nil
		}

		rej.Attempt = attempt
		rejected = append(rejected, *rej)
		excluded.Add(candidate)
		r.logger().Debug("slug collision", "attempt", attempt, "candidate", candidate,
			"source", string(rej.Source), "detail", rej.Detail)
		if r.OnReject != nil {
			r.OnReject(*rej)
		}
	}

	names := make([]string, 0, len(rejected))
	for _, rej := range rejected {
		names = append(names, rej.Candidate)
	}
	return nil, errors.NewUniquenessExhausted(budget, names)
}

// check runs the collision sources in order and returns the first rejection, or nil.
func (r *Resolver) check(ctx context.Context, candidate string) (*Rejection, error) {
	if r.Docs.Exists(candidate) {
		return &Rejection{Candidate: candidate, Source: SourceDocs,
			Detail: fmt.Sprintf("documentation for '%s' already exists", candidate)}, nil
	}

	if r.Branches != nil {
		branch := slug.Expand(r.BranchFormat, candidate)
		exists, err := r.Branches.BranchExists(ctx, branch)
		if err != nil {
			return nil, err
		}
		if exists {
			return &Rejection{Candidate: candidate, Source: SourceBranch,
				Detail: fmt.Sprintf("branch '%s' already exists", branch)}, nil
		}
	}

	if r.Scaffold != nil && len(r.ScaffoldPaths) > 0 {
		if ok, problems := r.Scaffold.CheckScaffold(r.ScaffoldPaths, candidate); !ok {
			detail := "scaffold paths conflict"
			if len(problems) > 0 {
				detail = problems[0]
			}
			return &Rejection{Candidate: candidate, Source: SourceScaffold, Detail: detail}, nil
		}
	}

	return nil, nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func clampAttempts(n int) int {
	if n <= 0 {
		return DefaultMaxAttempts
	}
	if n > MaxAttemptsLimit {
		return MaxAttemptsLimit
	}
	return n
}
