//go:build windows

package ops

import (
	"fmt"
	"os"

	"github.com/hpungsan/spec/internal/errors"
)

// createFileNoFollow creates a new file for writing, failing if it exists.
// O_NOFOLLOW is not available on Windows; ResolveInRepo still rejects symlinked parents.
func createFileNoFollow(path string, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.NewPrecondition(fmt.Sprintf("Path already exists: %s", path))
		}
		return nil, err
	}
	return f, nil
}
