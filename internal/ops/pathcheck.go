package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/spec/internal/errors"
)

// ResolveInRepo joins rel onto repoRoot and checks that the result stays inside
// the repository. It rejects:
// 1. Empty and absolute paths
// 2. Path traversal (.. segments)
// 3. Paths that resolve to the repository root itself
// 4. Paths whose existing parent directories include a symlink
func ResolveInRepo(repoRoot, rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must be relative to the repository: %s", rel))
	}
	if containsTraversal(rel) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must not contain directory traversal (..): %s", rel))
	}

	root, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("invalid repository root: %w", err))
	}
	full := filepath.Join(root, filepath.FromSlash(rel))

	relPath, err := filepath.Rel(root, full)
	if err != nil || relPath == "." || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path escapes the repository: %s", rel))
	}

	if link := firstSymlink(root, relPath); link != "" {
		return "", errors.NewInvalidRequest(fmt.Sprintf("path must not pass through a symlink: %s", link))
	}

	return full, nil
}

// firstSymlink returns the first existing component of relPath (below root)
// that is a symlink, or "".
func firstSymlink(root, relPath string) string {
	cur := root
	for _, part := range strings.Split(relPath, string(filepath.Separator)) {
		if part == "" {
			continue
		}
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if err != nil {
			return ""
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return cur
		}
	}
	return ""
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	// Also check for forward slashes on all platforms (e.g., config input)
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// exists reports whether p exists without following a final symlink.
func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
