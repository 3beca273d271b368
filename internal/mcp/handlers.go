package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/generator"
	"github.com/hpungsan/spec/internal/ops"
	"github.com/hpungsan/spec/internal/resolver"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	repoRoot string
	cfg      *config.Config
	db       *sql.DB // nil disables feature_history
	repo     ops.RepoState

	generator   generator.Generator
	maxAttempts int

	// backoff overrides the controller's production backoff (tests).
	backoff generator.BackoffFunc

	logger *slog.Logger
}

// Deps are the collaborators of the MCP handlers.
type Deps struct {
	RepoRoot  string
	Config    *config.Config
	DB        *sql.DB
	Repo      ops.RepoState
	Generator generator.Generator

	// MaxAttempts is the per-candidate generation budget.
	MaxAttempts int
	Logger      *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(d Deps) *Handlers {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		repoRoot:    d.RepoRoot,
		cfg:         d.Config,
		db:          d.DB,
		repo:        d.Repo,
		generator:   d.Generator,
		maxAttempts: d.MaxAttempts,
		logger:      log,
	}
}

// ListRequest represents the arguments for feature_list.
type ListRequest struct {
	Long bool `json:"long,omitempty"`
}

// SuggestSlugRequest represents the arguments for feature_suggest_slug.
type SuggestSlugRequest struct {
	Description string `json:"description"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
}

// SuggestSlugOutput is the result of feature_suggest_slug.
type SuggestSlugOutput struct {
	Slug     string               `json:"slug"`
	Branch   string               `json:"branch"`
	Attempts int                  `json:"attempts"`
	Rejected []resolver.Rejection `json:"rejected,omitempty"`
}

// HistoryRequest represents the arguments for feature_history.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// DocumentRequest represents the arguments for feature_document.
type DocumentRequest struct {
	Slug     string `json:"slug"`
	Template string `json:"template"`
}

// DocumentOutput is the result of feature_document.
type DocumentOutput struct {
	Slug     string `json:"slug"`
	Template string `json:"template"`
	Markdown string `json:"markdown"`
}

// HandleList handles the feature_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.List(ops.ListInput{RepoRoot: h.repoRoot, Config: h.cfg, Long: input.Long})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSuggestSlug handles the feature_suggest_slug tool call.
func (h *Handlers) HandleSuggestSlug(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestSlugRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return errorResult(errors.NewInvalidRequest("description is required")), nil
	}
	if h.generator == nil {
		return errorResult(errors.NewPrecondition("no slug generator is configured")), nil
	}

	ctrl := generator.NewController(h.generator, h.maxAttempts)
	if h.backoff != nil {
		ctrl.Backoff = h.backoff
	}
	ctrl.Logger = h.logger

	r := ops.NewResolver(h.repoRoot, h.cfg, h.repo, ctrl)
	r.MaxAttempts = input.MaxAttempts
	r.Logger = h.logger

	res, err := r.ResolveDetailed(ctx, description)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(SuggestSlugOutput{
		Slug:     res.Slug,
		Branch:   res.Branch,
		Attempts: res.Attempts,
		Rejected: res.Rejected,
	})
}

// HandleHistory handles the feature_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	if h.db == nil {
		return errorResult(errors.NewPrecondition("feature journal is not available")), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{RepoRoot: h.repoRoot, Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDocument handles the feature_document tool call.
func (h *Handlers) HandleDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DocumentRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	data, err := ops.NewDocStore(h.repoRoot, h.cfg).Document(input.Slug, input.Template)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(DocumentOutput{Slug: input.Slug, Template: input.Template, Markdown: string(data)})
}

// errorResult creates an MCP error result from any error.
// INTERNAL errors carry a generic message and no details.
func errorResult(err error) *mcp.CallToolResult {
	var errorObj map[string]any

	if sErr, ok := errors.As(err); ok && sErr.Code != errors.ErrInternal {
		errorObj = map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.HTTPStatus(),
		}
		if sErr.Hint != "" {
			errorObj["hint"] = sErr.Hint
		}
		if sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
	} else {
		errorObj = map[string]any{
			"code":    errors.ErrInternal,
			"message": "an internal error occurred",
			"status":  500,
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
