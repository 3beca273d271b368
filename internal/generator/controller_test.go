package generator

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spec/internal/errors"
)

// scripted returns responses in order, repeating the last one once exhausted.
type scripted struct {
	mu        sync.Mutex
	responses []response
	requests  []Request
}

type response struct {
	text string
	err  error
}

func newScripted(responses ...response) *scripted {
	return &scripted{responses: responses}
}

func text(s string) response { return response{text: s} }

func fail(msg string) response { return response{err: stderrors.New(msg)} }

func (s *scripted) Generate(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	r := s.responses[idx]
	return r.text, r.err
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestController(g Generator, maxAttempts int) (*Controller, *sleepRecorder) {
	rec := &sleepRecorder{}
	return &Controller{
		Generator:   g,
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(DefaultBackoffBase),
		Sleep:       rec.Sleep,
	}, rec
}

func TestController_FirstAttemptSucceeds(t *testing.T) {
	gen := newScripted(text("user-auth"))
	c, rec := newTestController(gen, 3)

	got, err := c.Generate(context.Background(), "Add user authentication", nil)
	require.NoError(t, err)
	assert.Equal(t, "user-auth", got)
	assert.Equal(t, 1, gen.calls())
	assert.Empty(t, rec.delays)
	assert.Empty(t, gen.requests[0].PreviousFailure)
}

func TestController_TrimsWhitespace(t *testing.T) {
	gen := newScripted(text("  user-auth\n"))
	c, _ := newTestController(gen, 1)

	got, err := c.Generate(context.Background(), "desc", nil)
	require.NoError(t, err)
	assert.Equal(t, "user-auth", got)
}

func TestController_InvalidFormatRetriesWithBackoff(t *testing.T) {
	tests := []struct {
		name    string
		invalid string
	}{
		{"uppercase", "User-Auth"},
		{"leading hyphen", "-user-auth"},
		{"underscore", "user_auth"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := newScripted(text(tc.invalid), text("user-auth"))
			c, rec := newTestController(gen, 3)

			got, err := c.Generate(context.Background(), "desc", nil)
			require.NoError(t, err)
			assert.Equal(t, "user-auth", got)
			assert.Equal(t, 2, gen.calls())
			assert.Equal(t, []time.Duration{200 * time.Millisecond}, rec.delays)
			assert.Equal(t,
				"Invalid format: slug must match pattern [a-z0-9]+(-[a-z0-9]+)*",
				gen.requests[1].PreviousFailure)
		})
	}
}

func TestController_DuplicateRetries(t *testing.T) {
	gen := newScripted(text("dup-slug"), text("unique-slug"))
	c, rec := newTestController(gen, 2)

	got, err := c.Generate(context.Background(), "desc", []string{"dup-slug"})
	require.NoError(t, err)
	assert.Equal(t, "unique-slug", got)
	assert.Len(t, rec.delays, 1)
	assert.Equal(t, "Slug 'dup-slug' already exists", gen.requests[1].PreviousFailure)
	assert.Equal(t, []string{"dup-slug"}, gen.requests[0].Excluded)
}

func TestController_ExhaustedByInvalidOutput(t *testing.T) {
	gen := newScripted(text("Invalid Slug"))
	c, rec := newTestController(gen, 3)

	_, err := c.Generate(context.Background(), "desc", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGenerationExhausted), "got %v", err)
	assert.Equal(t, 3, gen.calls())
	assert.Contains(t, err.Error(), "failed to generate valid slug after 3 attempts: Invalid format")

	// Backoff grows between attempts; no sleep after the final attempt.
	require.Len(t, rec.delays, 2)
	assert.Equal(t, 200*time.Millisecond, rec.delays[0])
	assert.Equal(t, 400*time.Millisecond, rec.delays[1])
	assert.Greater(t, rec.delays[1], rec.delays[0])
}

func TestController_ExhaustedTooLong(t *testing.T) {
	gen := newScripted(text(strings.Repeat("a", 51)))
	c, _ := newTestController(gen, 1)

	_, err := c.Generate(context.Background(), "desc", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGenerationExhausted))
	assert.Contains(t, err.Error(), "Too long: slug must be 50 characters or less (got 51)")
}

func TestController_FiftyCharsAccepted(t *testing.T) {
	fifty := strings.Repeat("a", 50)
	gen := newScripted(text(fifty))
	c, _ := newTestController(gen, 1)

	got, err := c.Generate(context.Background(), "desc", nil)
	require.NoError(t, err)
	assert.Equal(t, fifty, got)
}

func TestController_ExhaustionTakesRealTime(t *testing.T) {
	gen := newScripted(text("NOPE"))
	c := &Controller{
		Generator:   gen,
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Millisecond),
	}

	start := time.Now()
	_, err := c.Generate(context.Background(), "desc", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 3, gen.calls())
	// 2ms + 4ms of backoff; must exceed the first step.
	assert.Greater(t, elapsed, 2*time.Millisecond)
}

func TestController_NonPositiveBudget(t *testing.T) {
	for _, budget := range []int{0, -1} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			gen := newScripted(text("user-auth"))
			c, rec := newTestController(gen, budget)

			_, err := c.Generate(context.Background(), "desc", nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrGenerationExhausted))
			assert.Equal(t, 0, gen.calls())
			assert.Empty(t, rec.delays)

			sErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, "failed to generate valid slug after 0 attempts", sErr.Message)
		})
	}
}

func TestController_TransportFailureOnFinalAttempt(t *testing.T) {
	gen := newScripted(fail("connection refused"))
	c, rec := newTestController(gen, 2)

	_, err := c.Generate(context.Background(), "desc", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTransportFailure), "got %v", err)
	assert.False(t, errors.Is(err, errors.ErrGenerationExhausted))
	assert.Equal(t, 2, gen.calls())
	assert.Contains(t, err.Error(), "failed to generate slug after 2 attempts: connection refused")
	// One backoff after the first failure, none after the last.
	assert.Len(t, rec.delays, 1)
}

func TestController_TransportErrorThenSuccess(t *testing.T) {
	gen := newScripted(fail("timeout"), text("user-auth"))
	c, _ := newTestController(gen, 3)

	got, err := c.Generate(context.Background(), "desc", nil)
	require.NoError(t, err)
	assert.Equal(t, "user-auth", got)
	assert.Equal(t, "timeout", gen.requests[1].PreviousFailure)
}

func TestController_SingleAttemptTransportFailure(t *testing.T) {
	gen := newScripted(fail("boom"))
	c, rec := newTestController(gen, 1)

	_, err := c.Generate(context.Background(), "desc", nil)
	assert.True(t, errors.Is(err, errors.ErrTransportFailure))
	assert.Empty(t, rec.delays)
}

func TestController_CancelledDuringBackoff(t *testing.T) {
	gen := newScripted(text("BAD"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Controller{
		Generator:   gen,
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Hour),
	}

	_, err := c.Generate(ctx, "desc", nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls())
}

func TestController_ObserveSeesEveryAttempt(t *testing.T) {
	gen := newScripted(text("BAD"), fail("timeout"), text("good-slug"))
	c, _ := newTestController(gen, 3)

	var seen []Attempt
	c.Observe = func(a Attempt) { seen = append(seen, a) }

	_, err := c.Generate(context.Background(), "desc", nil)
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, 1, seen[0].Number)
	assert.Equal(t, "BAD", seen[0].Candidate)
	assert.NotEmpty(t, seen[0].Reason)
	assert.Equal(t, "timeout", seen[1].Reason)
	assert.Equal(t, Attempt{Number: 3, Candidate: "good-slug"}, seen[2])
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, b(0))
	assert.Equal(t, 200*time.Millisecond, b(1))
	assert.Equal(t, 400*time.Millisecond, b(2))
	assert.Equal(t, 800*time.Millisecond, b(3))
	assert.Equal(t, b(maxBackoffShift), b(maxBackoffShift+10))
	assert.Equal(t, time.Duration(0), NoBackoff(5))
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "attempting", StateAttempting.String())
	assert.Equal(t, "retrying", StateRetrying.String())
	assert.Equal(t, "succeeded", StateSucceeded.String())
	assert.Equal(t, "exhausted", StateExhausted.String())
}
