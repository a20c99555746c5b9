//go:build windows

package phrasebook

import (
	"errors"
	"syscall"
)

const (
	errorSharingViolation syscall.Errno = 32
	errorLockViolation    syscall.Errno = 33
)

// isPlatformTransient reports sharing and lock violations, raised while
// another process holds the file open for writing.
func isPlatformTransient(err error) bool {
	return errors.Is(err, errorSharingViolation) || errors.Is(err, errorLockViolation)
}
