package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hpungsan/spec/internal/config"
)

// WizardAnswers holds the raw values collected by the init wizard.
type WizardAnswers struct {
	DocsDir        string
	Scaffold       []string
	ExtraScaffold  string // comma-separated templates
	BranchFormat   string
	MergeTarget    string
	DocTemplates   []string
	ExtraTemplates string // comma-separated file names
}

// NewWizardAnswers pre-fills answers from defaults.
func NewWizardAnswers(defaults *config.Config) *WizardAnswers {
	return &WizardAnswers{
		DocsDir:      defaults.DocsDir,
		BranchFormat: defaults.BranchFormat,
		MergeTarget:  defaults.DefaultMergeTarget,
		DocTemplates: append([]string{}, defaults.DocTemplates...),
	}
}

// Config builds the configuration the answers describe. Empty answers fall
// back to the defaults; duplicate paths and templates are dropped.
func (a *WizardAnswers) Config() *config.Config {
	d := config.DefaultConfig()
	cfg := &config.Config{
		SchemaVersion:      config.CurrentSchemaVersion,
		DocsDir:            orDefault(a.DocsDir, d.DocsDir),
		ScaffoldPaths:      dedupe(append(append([]string{}, a.Scaffold...), splitList(a.ExtraScaffold)...)),
		BranchFormat:       orDefault(a.BranchFormat, d.BranchFormat),
		DefaultMergeTarget: orDefault(a.MergeTarget, d.DefaultMergeTarget),
		DocTemplates:       dedupe(append(append([]string{}, a.DocTemplates...), splitList(a.ExtraTemplates)...)),
	}
	if len(cfg.DocTemplates) == 0 {
		cfg.DocTemplates = d.DocTemplates
	}
	return cfg
}

// HuhPrompter asks the init questions on the terminal.
type HuhPrompter struct {
	// Accessible switches huh to plain line-based prompts.
	Accessible bool
}

// ConfirmOverwrite implements Prompter.
func (p *HuhPrompter) ConfirmOverwrite(ctx context.Context, path string) (bool, error) {
	overwrite := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite?", path)).
			Affirmative("Yes").
			Negative("No").
			Value(&overwrite),
	)).WithAccessible(p.Accessible)

	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return overwrite, nil
}

// Configure implements Prompter.
func (p *HuhPrompter) Configure(ctx context.Context, defaults *config.Config, candidates []string) (*config.Config, error) {
	a := NewWizardAnswers(defaults)

	layout := []huh.Field{
		huh.NewInput().
			Title("Documentation directory").
			Placeholder(defaults.DocsDir).
			Value(&a.DocsDir).
			Validate(validateDocsDir),
	}
	if len(candidates) > 0 {
		layout = append(layout, huh.NewMultiSelect[string]().
			Title("Select scaffold paths (test files)").
			Options(huh.NewOptions(candidates...)...).
			Value(&a.Scaffold))
	}
	layout = append(layout, huh.NewInput().
		Title("Additional scaffold paths").
		Description("Comma-separated; each must include {slug}, e.g. src/features/{slug}/index.ts").
		Value(&a.ExtraScaffold).
		Validate(validateScaffoldList))

	branching := []huh.Field{
		huh.NewInput().
			Title("Branch naming format").
			Placeholder(defaults.BranchFormat).
			Value(&a.BranchFormat).
			Validate(validateBranchFormat),
		huh.NewInput().
			Title("Default merge target branch").
			Placeholder(defaults.DefaultMergeTarget).
			Value(&a.MergeTarget).
			Validate(requireValue("merge target")),
	}

	templateOpts := make([]huh.Option[string], len(defaults.DocTemplates))
	for i, t := range defaults.DocTemplates {
		templateOpts[i] = huh.NewOption(t, t).Selected(true)
	}
	documents := []huh.Field{
		huh.NewMultiSelect[string]().
			Title("Select document templates").
			Options(templateOpts...).
			Value(&a.DocTemplates),
		huh.NewInput().
			Title("Additional document templates").
			Description("Comma-separated markdown file names, e.g. overview.md").
			Value(&a.ExtraTemplates).
			Validate(validateTemplateList),
	}

	form := huh.NewForm(
		huh.NewGroup(layout...),
		huh.NewGroup(branching...),
		huh.NewGroup(documents...),
	).WithAccessible(p.Accessible)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, err
	}
	return a.Config(), nil
}

func validateDocsDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil // default applies
	}
	if strings.HasPrefix(s, "/") || containsTraversal(s) {
		return fmt.Errorf("documentation directory must be relative to the repository")
	}
	return nil
}

func validateBranchFormat(s string) error {
	if strings.TrimSpace(s) != "" && !strings.Contains(s, "{slug}") {
		return fmt.Errorf("branch format must include {slug}")
	}
	return nil
}

func validateScaffoldList(s string) error {
	for _, p := range splitList(s) {
		if !config.ValidScaffoldTemplate(p) {
			return fmt.Errorf("%q must be a relative path that includes {slug}", p)
		}
	}
	return nil
}

func validateTemplateList(s string) error {
	for _, t := range splitList(s) {
		if !strings.HasSuffix(t, ".md") {
			return fmt.Errorf("template %q should be a markdown file (.md)", t)
		}
		if strings.ContainsAny(t, `/\`) {
			return fmt.Errorf("template %q must be a plain file name", t)
		}
	}
	return nil
}

func requireValue(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// splitList splits a comma-separated answer, trimming entries and dropping empties.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
