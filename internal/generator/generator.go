// Package generator proposes feature slugs from free-text descriptions.
//
// A Generator is any text-generation backend (hosted model, offline heuristic,
// test stub). Its output is untrusted: the Controller validates every candidate,
// feeds the rejection reason back into the next request, and retries with
// exponential backoff until its attempt budget is spent.
package generator

import (
	"context"
	"fmt"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/errors"
)

// Request is the input to a single generation call.
type Request struct {
	// Description is the user's free-text feature description.
	Description string

	// Excluded lists slugs known to be taken. Advisory only.
	Excluded []string

	// PreviousFailure explains why the previous candidate was rejected.
	// Empty on the first attempt.
	PreviousFailure string
}

// Generator proposes a raw slug candidate for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Attempt records the outcome of one controller attempt.
// Reason is empty when the candidate was accepted.
type Attempt struct {
	Number    int
	Candidate string
	Reason    string
}

// New builds the backend selected by settings.
// The openai provider requires an API key; its absence is reported before any attempt.
func New(settings config.GeneratorSettings) (Generator, error) {
	switch settings.Provider {
	case config.ProviderHeuristic:
		return NewHeuristic(), nil
	case config.ProviderOpenAI, "":
		g, err := NewOpenAI(settings)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, errors.NewConfig(fmt.Sprintf("unknown %s %q (expected %q or %q)",
			config.EnvProvider, settings.Provider, config.ProviderOpenAI, config.ProviderHeuristic))
	}
}
