package ops

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/db"
	"github.com/hpungsan/spec/internal/docs"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	RepoRoot string
	Config   *config.Config

	// Long adds the summary of each feature's first non-empty document.
	Long bool
}

// FeatureItem is one listed feature.
type FeatureItem struct {
	Slug    string        `json:"slug"`
	Branch  string        `json:"branch"`
	Summary *docs.Summary `json:"summary,omitempty"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items []FeatureItem `json:"items"`
}

// summaryWorkers bounds concurrent document reads for List with Long set.
const summaryWorkers = 8

// List returns the features that have a documentation directory, sorted by slug.
// A missing documentation directory yields an empty list.
func List(input ListInput) (*ListOutput, error) {
	store := NewDocStore(input.RepoRoot, input.Config)
	ids, err := store.ListIdentifiers()
	if err != nil {
		return nil, err
	}

	items := make([]FeatureItem, len(ids))
	for i, id := range ids {
		items[i] = FeatureItem{Slug: id, Branch: input.Config.BranchName(id)}
	}
	if !input.Long {
		return &ListOutput{Items: items}, nil
	}

	// Each goroutine writes only its own slot.
	var g errgroup.Group
	g.SetLimit(summaryWorkers)
	for i := range items {
		g.Go(func() error {
			sum, err := store.Summary(items[i].Slug)
			if err != nil {
				return err
			}
			if !sum.Empty() {
				items[i].Summary = &sum
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ListOutput{Items: items}, nil
}

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	RepoRoot string
	Limit    int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items []db.Entry `json:"items"`
}

// History returns journal entries for the repository, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	entries, err := db.History(ctx, database, input.RepoRoot, input.Limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Items: entries}, nil
}
