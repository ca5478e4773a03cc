package diskfs

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	ErrNotFound       = errors.New("no such file or directory")
	ErrExist          = errors.New("file exists")
	ErrNameTooLong    = errors.New("file name too long")
	ErrPermission     = errors.New("operation not permitted")
	ErrIsDir          = errors.New("is a directory")
	ErrNotEmpty       = errors.New("directory not empty")
	ErrOffsetTooLarge = errors.New("offset beyond end of file")
	ErrInvalidOffset  = errors.New("invalid offset")
	ErrNoSpace        = errors.New("no space left on device")
	ErrReadOnly       = errors.New("read-only file system")
	ErrIO             = errors.New("input/output error")
)

func ioErr(err error) error {
	return fmt.Errorf("%w: %w", ErrIO, err)
}

// Errno maps an error returned by FS to the errno a file system call
// should report.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, ErrExist):
		return syscall.EEXIST
	case errors.Is(err, ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, ErrPermission):
		return syscall.EPERM
	case errors.Is(err, ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, ErrOffsetTooLarge):
		return syscall.EFBIG
	case errors.Is(err, ErrInvalidOffset):
		return syscall.EINVAL
	case errors.Is(err, ErrNoSpace):
		return syscall.ENOSPC
	case errors.Is(err, ErrReadOnly):
		return syscall.EROFS
	default:
		return syscall.EIO
	}
}
