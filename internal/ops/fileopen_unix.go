//go:build !windows

package ops

import (
	stderrors "errors"
	"fmt"
	"os"
	"syscall"

	"github.com/hpungsan/spec/internal/errors"
)

// createFileNoFollow creates a new file for writing. It fails if the path
// already exists, and O_NOFOLLOW rejects a symlink planted on the final component.
// Parent components are checked by ResolveInRepo.
func createFileNoFollow(path string, perm os.FileMode) (*os.File, error) {
	flag := syscall.O_WRONLY | syscall.O_CREAT | syscall.O_EXCL | syscall.O_NOFOLLOW | syscall.O_CLOEXEC
	fd, err := syscall.Open(path, flag, uint32(perm))
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		case stderrors.Is(err, syscall.EEXIST):
			return nil, errors.NewPrecondition(fmt.Sprintf("Path already exists: %s", path))
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
