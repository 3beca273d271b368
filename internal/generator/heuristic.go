package generator

import (
	"context"
	"strconv"
	"strings"

	"github.com/hpungsan/spec/internal/slug"
)

// heuristicMaxWords bounds how many description words make it into the slug.
const heuristicMaxWords = 6

// Heuristic derives slugs from the description without a model.
// Output is deterministic: the slugified description, or the first numbered
// variant ("-2", "-3", ...) that is not excluded.
type Heuristic struct{}

// NewHeuristic returns the offline backend.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Generate implements Generator.
func (h *Heuristic) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	base := baseSlug(req.Description)
	taken := make(map[string]bool, len(req.Excluded))
	for _, s := range req.Excluded {
		taken[s] = true
	}
	if !taken[base] {
		return base, nil
	}

	for n := 2; ; n++ {
		candidate := withSuffix(base, n)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// baseSlug slugifies the leading words of description.
func baseSlug(description string) string {
	words := strings.Split(slug.Slugify(description), "-")
	if len(words) > heuristicMaxWords {
		words = words[:heuristicMaxWords]
	}
	s := strings.Join(words, "-")
	if s == "" {
		return "feature"
	}
	return s
}

// withSuffix appends -n to base, trimming base so the result fits MaxLength.
func withSuffix(base string, n int) string {
	suffix := "-" + strconv.Itoa(n)
	if len(base)+len(suffix) > slug.MaxLength {
		base = strings.TrimRight(base[:slug.MaxLength-len(suffix)], "-")
	}
	return base + suffix
}
