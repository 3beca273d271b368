package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxDetectedFrameworks caps DetectTestFrameworks results.
const MaxDetectedFrameworks = 5

var pytestFile = regexp.MustCompile(`^test_.*\.py$`)

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (p *packageJSON) has(name string) bool {
	if p == nil {
		return false
	}
	_, a := p.Dependencies[name]
	_, b := p.DevDependencies[name]
	return a || b
}

// DetectTestFrameworks suggests scaffold path templates for the test frameworks
// found in repoRoot: Jest/Vitest, Playwright, Cypress and Pytest. End-to-end
// suites come first, then unit suites, then Pytest. File extensions follow the
// presence of tsconfig.json.
func DetectTestFrameworks(repoRoot string) []string {
	at := func(parts ...string) bool {
		return exists(filepath.Join(append([]string{repoRoot}, parts...)...))
	}
	anyOf := func(names ...string) bool {
		for _, n := range names {
			if at(n) {
				return true
			}
		}
		return false
	}

	var pkg *packageJSON
	if data, err := os.ReadFile(filepath.Join(repoRoot, "package.json")); err == nil {
		var p packageJSON
		if json.Unmarshal(data, &p) == nil {
			pkg = &p
		}
	}

	ext := "js"
	if at("tsconfig.json") {
		ext = "ts"
	}

	var candidates []string

	// Jest / Vitest
	if anyOf("jest.config.js", "jest.config.ts", "jest.config.json",
		"vitest.config.js", "vitest.config.ts", "vitest.config.json") ||
		pkg.has("jest") || pkg.has("vitest") {
		if at("__tests__") {
			candidates = append(candidates, "__tests__/{slug}.test."+ext)
		} else {
			candidates = append(candidates, "tests/{slug}.test."+ext)
		}
	}

	// Playwright
	if anyOf("playwright.config.js", "playwright.config.ts") || pkg.has("@playwright/test") {
		switch {
		case at("tests", "e2e"):
			candidates = append(candidates, "tests/e2e/{slug}.spec."+ext)
		case at("tests"):
			candidates = append(candidates, "tests/{slug}.spec."+ext)
		default:
			candidates = append(candidates, "e2e/{slug}.spec."+ext)
		}
	}

	// Cypress
	if anyOf("cypress.config.js", "cypress.config.ts", "cypress") || pkg.has("cypress") {
		if !at("cypress", "e2e") && at("cypress", "integration") {
			candidates = append(candidates, "cypress/integration/{slug}.spec."+ext)
		} else {
			candidates = append(candidates, "cypress/e2e/{slug}.cy."+ext)
		}
	}

	// Pytest
	if anyOf("pytest.ini", "tox.ini", "pyproject.toml") || hasPytestFiles(filepath.Join(repoRoot, "tests")) {
		candidates = append(candidates, "tests/test_{slug}.py")
	}

	return prioritize(candidates)
}

func hasPytestFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Type().IsRegular() && pytestFile.MatchString(e.Name()) {
			return true
		}
	}
	return false
}

// prioritize orders candidates e2e, then unit, then pytest, and caps the result.
func prioritize(candidates []string) []string {
	var e2e, unit, py []string
	for _, c := range candidates {
		switch {
		case strings.Contains(c, "e2e") || strings.Contains(c, "cypress"):
			e2e = append(e2e, c)
		case strings.HasSuffix(c, ".py"):
			py = append(py, c)
		default:
			unit = append(unit, c)
		}
	}
	out := append(append(e2e, unit...), py...)
	if len(out) > MaxDetectedFrameworks {
		out = out[:MaxDetectedFrameworks]
	}
	return out
}
