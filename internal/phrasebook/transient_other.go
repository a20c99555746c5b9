//go:build !windows

package phrasebook

import (
	"errors"
	"syscall"
)

func isPlatformTransient(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ETXTBSY)
}
