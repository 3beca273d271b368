package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/spec/internal/errors"
	"github.com/hpungsan/spec/internal/slug"
)

// FileName is the primary configuration file, stored at the repository root.
const FileName = "spec.config.json"

// candidateFiles lists config files in lookup order.
var candidateFiles = []string{FileName, "spec.config.yaml", "spec.config.yml"}

// CurrentSchemaVersion is the schema version written by Save.
const CurrentSchemaVersion = 1

// Config holds repository configuration for the feature workflow.
type Config struct {
	// SchemaVersion is the configuration schema version (>= 1).
	SchemaVersion int `json:"schemaVersion" yaml:"schemaVersion" validate:"gte=1"`

	// DocsDir is the documentation root, relative to the repository root.
	// Each feature gets DocsDir/<slug>/.
	DocsDir string `json:"docsDir" yaml:"docsDir" validate:"required,reldir"`

	// DocTemplates are the file names created inside each feature's docs directory.
	DocTemplates []string `json:"docTemplates" yaml:"docTemplates" validate:"dive,required,docname"`

	// ScaffoldPaths are path templates containing {slug}, relative to the repository root.
	// A template ending in "/" scaffolds a directory, anything else an empty file.
	ScaffoldPaths []string `json:"scaffoldPaths" yaml:"scaffoldPaths" validate:"dive,scaffoldpath"`

	// BranchFormat is the feature branch name template, e.g. "feature-{slug}".
	BranchFormat string `json:"branchFormat" yaml:"branchFormat" validate:"required,slugtemplate"`

	// DefaultMergeTarget is the branch features are merged into.
	DefaultMergeTarget string `json:"defaultMergeTarget" yaml:"defaultMergeTarget" validate:"required"`
}

// DefaultDocTemplates are the documentation files created for a new feature.
var DefaultDocTemplates = []string{"requirements.md", "tech-spec.md", "user-stories.md"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SchemaVersion:      CurrentSchemaVersion,
		DocsDir:            "docs",
		DocTemplates:       append([]string(nil), DefaultDocTemplates...),
		ScaffoldPaths:      []string{},
		BranchFormat:       "feature-{slug}",
		DefaultMergeTarget: "main",
	}
}

// BranchName returns the feature branch name for s.
func (c *Config) BranchName(s string) string {
	return slug.Expand(c.BranchFormat, s)
}

// Path returns the path of the primary config file under repoRoot.
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, FileName)
}

// Find returns the first existing config file under repoRoot, or "" if none exists.
func Find(repoRoot string) string {
	for _, name := range candidateFiles {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads, defaults, and validates the configuration under repoRoot.
// JSON and YAML files are both accepted; JSON wins if both exist.
func Load(repoRoot string) (*Config, error) {
	path := Find(repoRoot)
	if path == "" {
		return nil, errors.NewConfig(fmt.Sprintf("Configuration file not found: %s. Run 'spec init' first.", FileName))
	}

	raw, err := loadFileRaw(path)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	cfg := Merge(DefaultConfig(), raw)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFileRaw decodes a config file without applying defaults.
func loadFileRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay scalars win if non-zero; overlay slices win if present (non-nil), even when empty.
func Merge(base, overlay *Config) *Config {
	result := *base

	if overlay.SchemaVersion != 0 {
		result.SchemaVersion = overlay.SchemaVersion
	}
	if overlay.DocsDir != "" {
		result.DocsDir = overlay.DocsDir
	}
	if overlay.BranchFormat != "" {
		result.BranchFormat = overlay.BranchFormat
	}
	if overlay.DefaultMergeTarget != "" {
		result.DefaultMergeTarget = overlay.DefaultMergeTarget
	}
	if overlay.DocTemplates != nil {
		result.DocTemplates = trimAll(overlay.DocTemplates)
	}
	if overlay.ScaffoldPaths != nil {
		result.ScaffoldPaths = trimAll(overlay.ScaffoldPaths)
	}

	return &result
}

// Save validates cfg and writes it as indented JSON to repoRoot/spec.config.json.
func Save(repoRoot string, cfg *Config) (string, error) {
	if err := Validate(cfg); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", errors.NewInternal(err)
	}

	path := Path(repoRoot)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", errors.NewConfig(fmt.Sprintf("Failed to write configuration: %v", err))
	}
	return path, nil
}

// Exists reports whether any config file exists under repoRoot.
func Exists(repoRoot string) bool {
	return Find(repoRoot) != ""
}

// IsNotFound reports whether err is a missing-config error.
func IsNotFound(err error) bool {
	var sErr *errors.SpecError
	if !stderrors.As(err, &sErr) {
		return false
	}
	return sErr.Code == errors.ErrConfig && strings.HasPrefix(sErr.Message, "Configuration file not found")
}

// trimAll trims whitespace from each entry and drops empty ones.
func trimAll(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
