package generator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(config.GeneratorSettings{Provider: config.ProviderOpenAI})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCredentialMissing))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNew_Providers(t *testing.T) {
	g, err := New(config.GeneratorSettings{Provider: config.ProviderHeuristic})
	require.NoError(t, err)
	assert.IsType(t, &Heuristic{}, g)

	g, err = New(config.GeneratorSettings{Provider: config.ProviderOpenAI, APIKey: "test"})
	require.NoError(t, err)
	o, ok := g.(*OpenAI)
	require.True(t, ok)
	assert.Equal(t, config.DefaultModel, o.Model)
	assert.Equal(t, config.DefaultTimeout, o.Timeout)

	_, err = New(config.GeneratorSettings{Provider: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{Description: "Add user authentication"})
	assert.Contains(t, p, "Description: Add user authentication")
	assert.Contains(t, p, "Maximum 50 characters")
	assert.NotContains(t, p, "already taken")
	assert.NotContains(t, p, "Previous attempt failed")

	p = BuildPrompt(Request{
		Description:     "x",
		Excluded:        []string{"auth", "login"},
		PreviousFailure: "Slug 'auth' already exists",
	})
	assert.Contains(t, p, "The following slugs are already taken: auth, login.")
	assert.True(t, strings.HasSuffix(p,
		"Previous attempt failed: Slug 'auth' already exists. Please correct the slug according to the requirements."))
}

func TestHeuristic(t *testing.T) {
	h := NewHeuristic()
	ctx := context.Background()

	got, err := h.Generate(ctx, Request{Description: "Add user authentication with OAuth2 and SSO providers"})
	require.NoError(t, err)
	assert.Equal(t, "add-user-authentication-with-oauth2-and", got)

	got, err = h.Generate(ctx, Request{Description: "Login page", Excluded: []string{"login-page", "login-page-2"}})
	require.NoError(t, err)
	assert.Equal(t, "login-page-3", got)

	got, err = h.Generate(ctx, Request{Description: "!!!"})
	require.NoError(t, err)
	assert.Equal(t, "feature", got)
}

func TestHeuristic_SuffixFitsMaxLength(t *testing.T) {
	base := strings.Repeat("abcdefghij", 5)
	got := withSuffix(base, 12)
	assert.LessOrEqual(t, len(got), slug.MaxLength)
	assert.True(t, strings.HasSuffix(got, "-12"))
	assert.Equal(t, slug.Valid, slug.Validate(got))
}

func TestHeuristic_ThroughController(t *testing.T) {
	c := &Controller{Generator: NewHeuristic(), MaxAttempts: 3, Backoff: NoBackoff}
	got, err := c.Generate(context.Background(), "Dark mode", []string{"dark-mode"})
	require.NoError(t, err)
	assert.Equal(t, "dark-mode-2", got)
}

func TestSupportsTemperature(t *testing.T) {
	assert.False(t, supportsTemperature("gpt-5-mini"))
	assert.False(t, supportsTemperature("o3-mini"))
	assert.True(t, supportsTemperature("gpt-4o-mini"))
}

// chatServer fakes the chat completions endpoint.
func chatServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"backend unavailable","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Generate(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, "  simple-slug\n", &seen)

	o, err := NewOpenAI(config.GeneratorSettings{
		APIKey:  "test",
		Model:   "gpt-4o-mini",
		BaseURL: srv.URL + "/",
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	got, err := o.Generate(context.Background(), Request{Description: "desc", Excluded: []string{"taken"}})
	require.NoError(t, err)
	assert.Equal(t, "simple-slug", got)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	assert.Equal(t, float64(0), seen["temperature"])
	raw, _ := json.Marshal(seen["messages"])
	assert.Contains(t, string(raw), "already taken: taken")
}

func TestOpenAI_GenerateError(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "", nil)

	o, err := NewOpenAI(config.GeneratorSettings{APIKey: "test", BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
	require.NoError(t, err)

	_, err = o.Generate(context.Background(), Request{Description: "desc"})
	require.Error(t, err)

	// Through the controller, a failing backend becomes a transport failure.
	c := &Controller{Generator: o, MaxAttempts: 1}
	_, err = c.Generate(context.Background(), "desc", nil)
	assert.True(t, errors.Is(err, errors.ErrTransportFailure))
}
