package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hpungsan/spec/internal/config"
	"github.com/hpungsan/spec/internal/docs"
	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

// DocStore is the per-feature documentation tree under <repo>/<docsDir>.
// Each feature owns one directory named after its slug.
type DocStore struct {
	RepoRoot  string
	DocsDir   string
	Templates []string
}

// NewDocStore returns the documentation store described by cfg.
func NewDocStore(repoRoot string, cfg *config.Config) *DocStore {
	return &DocStore{
		RepoRoot:  repoRoot,
		DocsDir:   cfg.DocsDir,
		Templates: cfg.DocTemplates,
	}
}

// Dir returns the absolute documentation directory.
func (s *DocStore) Dir() string {
	return filepath.Join(s.RepoRoot, s.DocsDir)
}

// FeatureDir returns the absolute directory of one feature's documents.
func (s *DocStore) FeatureDir(featureSlug string) string {
	return filepath.Join(s.Dir(), featureSlug)
}

// ListIdentifiers returns the sorted names of feature directories that match
// the slug grammar. A missing documentation directory yields an empty list.
func (s *DocStore) ListIdentifiers() ([]string, error) {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to read docs directory: %w", err))
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && slug.MatchesGrammar(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Exists reports whether anything already occupies the feature directory for featureSlug.
func (s *DocStore) Exists(featureSlug string) bool {
	return exists(s.FeatureDir(featureSlug))
}

// Write creates the feature directory and one seeded document per template.
// It returns the created paths relative to the repository root.
func (s *DocStore) Write(featureSlug, description string) ([]string, error) {
	rel := filepath.Join(s.DocsDir, featureSlug)
	dir, err := ResolveInRepo(s.RepoRoot, rel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create docs directory: %w", err))
	}

	created := make([]string, 0, len(s.Templates))
	for _, tmpl := range s.Templates {
		p := filepath.Join(dir, tmpl)
		f, err := createFileNoFollow(p, 0o644)
		if err != nil {
			return created, err
		}
		_, werr := f.Write(docs.Seed(tmpl, featureSlug, description))
		cerr := f.Close()
		if werr != nil {
			return created, errors.NewInternal(fmt.Errorf("failed to write %s: %w", p, werr))
		}
		if cerr != nil {
			return created, errors.NewInternal(fmt.Errorf("failed to close %s: %w", p, cerr))
		}
		created = append(created, filepath.Join(rel, tmpl))
	}
	return created, nil
}

// Summary returns the summary of the first non-empty document of a feature,
// in template order. The zero Summary is returned when none has content.
func (s *DocStore) Summary(featureSlug string) (docs.Summary, error) {
	for _, tmpl := range s.Templates {
		data, err := os.ReadFile(filepath.Join(s.FeatureDir(featureSlug), tmpl))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return docs.Summary{}, errors.NewInternal(fmt.Errorf("failed to read %s: %w", tmpl, err))
		}
		if sum := docs.Summarize(data); !sum.Empty() {
			return sum, nil
		}
	}
	return docs.Summary{}, nil
}

// Document returns the raw markdown of one feature document.
func (s *DocStore) Document(featureSlug, template string) ([]byte, error) {
	if !slug.IsValid(featureSlug) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("Invalid feature slug format: '%s'", featureSlug))
	}
	known := false
	for _, t := range s.Templates {
		if t == template {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown document template: %s", template))
	}

	data, err := os.ReadFile(filepath.Join(s.FeatureDir(featureSlug), template))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(fmt.Sprintf("document %s/%s not found", featureSlug, template))
		}
		return nil, errors.NewInternal(err)
	}
	return data, nil
}
