package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hpungsan/spec/internal/config"
	specerrors "github.com/hpungsan/spec/internal/errors"
)

// OpenAI proposes slugs with a hosted chat-completion model.
type OpenAI struct {
	Model   string
	Timeout time.Duration
	Opts    []option.RequestOption
}

// NewOpenAI builds the backend from settings. A missing API key is a precondition failure.
func NewOpenAI(settings config.GeneratorSettings) (*OpenAI, error) {
	if settings.APIKey == "" {
		return nil, specerrors.NewCredentialMissing(config.EnvAPIKey)
	}

	model := settings.Model
	if model == "" {
		model = config.DefaultModel
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	// The Controller owns retries; the SDK must not retry underneath it.
	opts := []option.RequestOption{
		option.WithAPIKey(settings.APIKey),
		option.WithMaxRetries(0),
	}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}

	slog.Debug("initializing OpenAI slug generator", "model", model, "timeout", timeout)
	return &OpenAI{Model: model, Timeout: timeout, Opts: opts}, nil
}

// Generate sends one prompt and returns the trimmed model reply.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	client := openai.NewClient(o.Opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(req)),
		},
	}
	if supportsTemperature(o.Model) {
		params.Temperature = openai.Float(0)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// supportsTemperature reports whether the model accepts a temperature override.
// Reasoning models only accept the default.
func supportsTemperature(model string) bool {
	m := strings.ToLower(model)
	for _, prefix := range []string{"gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(m, prefix) {
			return false
		}
	}
	return true
}
