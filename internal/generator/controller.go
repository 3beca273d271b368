package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

// State is a Controller state.
type State int

const (
	StateAttempting State = iota
	StateRetrying
	StateSucceeded
	StateExhausted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller wraps a Generator with validation, duplicate rejection, and
// exponential backoff between attempts.
type Controller struct {
	// Generator proposes raw candidates.
	Generator Generator

	// MaxAttempts is the attempt budget. Non-positive budgets fail without calling Generator.
	MaxAttempts int

	// Backoff computes the delay after a failed attempt. Nil means ExponentialBackoff(DefaultBackoffBase).
	Backoff BackoffFunc

	// Sleep waits between attempts. Nil means SleepContext.
	Sleep SleepFunc

	// Observe, if set, is called after every attempt that produced a candidate or an error.
	Observe func(Attempt)

	// Logger receives per-attempt diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// NewController returns a Controller with production backoff.
func NewController(g Generator, maxAttempts int) *Controller {
	return &Controller{
		Generator:   g,
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(DefaultBackoffBase),
		Sleep:       SleepContext,
	}
}

// run holds the mutable state of one Generate call.
type run struct {
	state      State
	attempt    int
	lastReason string
}

// Generate returns a candidate that is a valid slug and not in excluded.
//
// Errors:
//   - GENERATION_EXHAUSTED when every attempt produced an invalid or excluded candidate
//     (or the budget is non-positive, in which case no reason is attached);
//   - TRANSPORT_FAILURE when the backend call fails on the final attempt;
//   - ctx.Err() if ctx is cancelled while backing off.
func (c *Controller) Generate(ctx context.Context, description string, excluded []string) (string, error) {
	taken := make(map[string]struct{}, len(excluded))
	for _, s := range excluded {
		taken[s] = struct{}{}
	}

	r := &run{state: StateAttempting}
	if c.MaxAttempts <= 0 {
		r.state = StateExhausted
		return "", errors.NewGenerationExhausted(0, "")
	}

	for {
		switch r.state {
		case StateAttempting:
			r.attempt++
			candidate, err := c.Generator.Generate(ctx, Request{
				Description:     description,
				Excluded:        excluded,
				PreviousFailure: r.lastReason,
			})
			if err != nil {
				c.observe(Attempt{Number: r.attempt, Reason: err.Error()})
				if r.attempt >= c.MaxAttempts {
					r.state = StateExhausted
					return "", errors.NewTransportFailure(c.MaxAttempts, err)
				}
				r.lastReason = err.Error()
				r.state = StateRetrying
				continue
			}

			candidate = strings.TrimSpace(candidate)
			reason := c.reject(candidate, taken)
			c.observe(Attempt{Number: r.attempt, Candidate: candidate, Reason: reason})
			if reason == "" {
				r.state = StateSucceeded
				return candidate, nil
			}

			r.lastReason = reason
			if r.attempt >= c.MaxAttempts {
				r.state = StateExhausted
				continue
			}
			r.state = StateRetrying

		case StateRetrying:
			if err := c.sleep(ctx, c.backoff(r.attempt)); err != nil {
				return "", err
			}
			r.state = StateAttempting

		case StateExhausted:
			return "", errors.NewGenerationExhausted(c.MaxAttempts, r.lastReason)

		default:
			return "", errors.NewInternal(fmt.Errorf("unexpected controller state %s", r.state))
		}
	}
}

// reject returns why candidate is unusable, or "" if it is acceptable.
func (c *Controller) reject(candidate string, taken map[string]struct{}) string {
	if res := slug.Validate(candidate); res != slug.Valid {
		return slug.Reason(candidate, res)
	}
	if _, ok := taken[candidate]; ok {
		return fmt.Sprintf("Slug '%s' already exists", candidate)
	}
	return ""
}

func (c *Controller) observe(a Attempt) {
	if a.Reason != "" {
		c.logger().Debug("slug attempt rejected", "attempt", a.Number, "candidate", a.Candidate, "reason", a.Reason)
	}
	if c.Observe != nil {
		c.Observe(a)
	}
}

func (c *Controller) backoff(attempt int) time.Duration {
	if c.Backoff == nil {
		return ExponentialBackoff(DefaultBackoffBase)(attempt)
	}
	return c.Backoff(attempt)
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep == nil {
		return SleepContext(ctx, d)
	}
	return c.Sleep(ctx, d)
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
