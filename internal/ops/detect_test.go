package ops

import (
	"reflect"
	"testing"
)

func TestDetectTestFrameworks(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		dirs  []string
		pkg   string
		want  []string
	}{
		{
			name: "nothing detected",
		},
		{
			name:  "jest config with typescript",
			files: []string{"jest.config.ts", "tsconfig.json"},
			want:  []string{"tests/{slug}.test.ts"},
		},
		{
			name: "vitest dependency with __tests__",
			dirs: []string{"__tests__"},
			pkg:  `{"devDependencies": {"vitest": "^1.0.0"}}`,
			want: []string{"__tests__/{slug}.test.js"},
		},
		{
			name:  "playwright with tests/e2e",
			files: []string{"playwright.config.ts"},
			dirs:  []string{"tests/e2e"},
			want:  []string{"tests/e2e/{slug}.spec.js"},
		},
		{
			name: "playwright dependency without tests dir",
			pkg:  `{"devDependencies": {"@playwright/test": "1.40.0"}}`,
			want: []string{"e2e/{slug}.spec.js"},
		},
		{
			name: "legacy cypress layout",
			dirs: []string{"cypress/integration"},
			want: []string{"cypress/integration/{slug}.spec.js"},
		},
		{
			name:  "cypress config",
			files: []string{"cypress.config.js"},
			want:  []string{"cypress/e2e/{slug}.cy.js"},
		},
		{
			name:  "pytest by test files",
			files: []string{"tests/test_api.py"},
			want:  []string{"tests/test_{slug}.py"},
		},
		{
			name:  "e2e before unit before pytest",
			files: []string{"pytest.ini", "jest.config.js", "playwright.config.js"},
			want:  []string{"e2e/{slug}.spec.js", "tests/{slug}.test.js", "tests/test_{slug}.py"},
		},
		{
			name:  "malformed package.json is ignored",
			files: []string{"jest.config.json"},
			pkg:   `{not json`,
			want:  []string{"tests/{slug}.test.js"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			for _, d := range tc.dirs {
				mkdir(t, root, d)
			}
			for _, f := range tc.files {
				writeFile(t, root, f, "")
			}
			if tc.pkg != "" {
				writeFile(t, root, "package.json", tc.pkg)
			}

			got := DetectTestFrameworks(root)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("DetectTestFrameworks = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPrioritize_Caps(t *testing.T) {
	in := []string{
		"a/{slug}.test.js", "b/{slug}.test.js", "c/{slug}.test.js", "d/{slug}.test.js",
		"tests/test_{slug}.py", "e2e/{slug}.spec.js", "cypress/e2e/{slug}.cy.js",
	}

	got := prioritize(in)
	want := []string{
		"e2e/{slug}.spec.js", "cypress/e2e/{slug}.cy.js",
		"a/{slug}.test.js", "b/{slug}.test.js", "c/{slug}.test.js",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("prioritize = %v, want %v", got, want)
	}
}
