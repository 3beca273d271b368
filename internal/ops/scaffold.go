package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

// keepFile is written into directory scaffolds so git can track them.
const keepFile = ".gitkeep"

// ScaffoldPath is one expanded scaffold template.
type ScaffoldPath struct {
	Template string
	Rel      string // expanded, relative to the repository root
	Abs      string
	Dir      bool // template ended in "/"
}

// ScaffoldConflict explains why an expanded template cannot be created.
type ScaffoldConflict struct {
	Path   string
	Reason string
}

func (c ScaffoldConflict) String() string {
	return fmt.Sprintf("%s: %s", c.Path, c.Reason)
}

// ScaffoldPlan is the result of expanding the scaffold templates for a slug.
type ScaffoldPlan struct {
	Valid     bool
	Paths     []ScaffoldPath
	Conflicts []ScaffoldConflict
}

// PlanScaffold expands every template with featureSlug and checks that each
// result is inside the repository, is not empty, does not already exist, and
// is not produced twice.
func PlanScaffold(repoRoot string, templates []string, featureSlug string) ScaffoldPlan {
	plan := ScaffoldPlan{}
	seen := make(map[string]bool, len(templates))

	for _, tmpl := range templates {
		expanded := slug.Expand(tmpl, featureSlug)
		isDir := strings.HasSuffix(tmpl, "/")
		rel := strings.TrimSuffix(expanded, "/")

		abs, err := ResolveInRepo(repoRoot, rel)
		if err != nil {
			reason := err.Error()
			if sErr, ok := errors.As(err); ok {
				reason = sErr.Message
			}
			plan.Conflicts = append(plan.Conflicts, ScaffoldConflict{Path: expanded, Reason: reason})
			continue
		}
		if seen[abs] {
			plan.Conflicts = append(plan.Conflicts, ScaffoldConflict{Path: expanded, Reason: "duplicate scaffold path"})
			continue
		}
		seen[abs] = true

		if exists(abs) {
			plan.Conflicts = append(plan.Conflicts, ScaffoldConflict{Path: expanded, Reason: "already exists"})
			continue
		}

		plan.Paths = append(plan.Paths, ScaffoldPath{
			Template: tmpl,
			Rel:      filepath.FromSlash(rel),
			Abs:      abs,
			Dir:      isDir,
		})
	}

	plan.Valid = len(plan.Conflicts) == 0
	return plan
}

// Scaffolder checks scaffold templates against one repository.
type Scaffolder struct {
	RepoRoot string
}

// CheckScaffold reports whether every template, expanded for featureSlug, can be created.
func (s Scaffolder) CheckScaffold(templates []string, featureSlug string) (bool, []string) {
	plan := PlanScaffold(s.RepoRoot, templates, featureSlug)
	if plan.Valid {
		return true, nil
	}
	problems := make([]string, len(plan.Conflicts))
	for i, c := range plan.Conflicts {
		problems[i] = c.String()
	}
	return false, problems
}

// CreateScaffold materializes a valid plan. Directory templates become
// directories holding an empty .gitkeep; file templates become empty files with
// their parent directories. Paths in written were produced earlier in the same
// run, and directories that already hold entries are left alone; both count as
// satisfied. It returns the created paths relative to the repository.
func CreateScaffold(plan ScaffoldPlan, written ...string) ([]string, error) {
	if !plan.Valid {
		return nil, errors.NewPrecondition(fmt.Sprintf("scaffold paths conflict: %s", plan.Conflicts[0]))
	}

	done := make(map[string]bool, len(written))
	for _, rel := range written {
		done[filepath.Clean(rel)] = true
	}

	created := make([]string, 0, len(plan.Paths))
	for _, p := range plan.Paths {
		if done[filepath.Clean(p.Rel)] {
			continue
		}
		target := p.Abs
		if p.Dir {
			if err := os.MkdirAll(p.Abs, 0o755); err != nil {
				return created, errors.NewInternal(fmt.Errorf("failed to create %s: %w", p.Rel, err))
			}
			if entries, err := os.ReadDir(p.Abs); err == nil && len(entries) > 0 {
				continue
			}
			target = filepath.Join(p.Abs, keepFile)
		} else if err := os.MkdirAll(filepath.Dir(p.Abs), 0o755); err != nil {
			return created, errors.NewInternal(fmt.Errorf("failed to create parent of %s: %w", p.Rel, err))
		}

		f, err := createFileNoFollow(target, 0o644)
		if err != nil {
			return created, err
		}
		if err := f.Close(); err != nil {
			return created, errors.NewInternal(err)
		}
		created = append(created, p.Rel)
	}
	return created, nil
}
