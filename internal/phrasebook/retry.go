package phrasebook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrFileLocked marks an error as a transient lock on a file. Openers passed
// with WithOpener may wrap it to request a retry.
var ErrFileLocked = errors.New("file locked")

// LockTimeoutError is returned when a file stays locked past the retry deadline.
type LockTimeoutError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("file %s still locked after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *LockTimeoutError) Unwrap() error { return e.Err }

// RetryPolicy bounds how long a refresh waits for a locked file.
// Delays double from InitialDelay up to MaxDelay; no attempt starts after
// Deadline has elapsed since the first one.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Deadline     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Deadline:     30 * time.Second,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Deadline <= 0 {
		p.Deadline = def.Deadline
	}
	return p
}

// do runs attempt until it succeeds, fails with a non-transient error, the
// deadline passes or ctx is done.
func (p RetryPolicy) do(ctx context.Context, path string, attempt func() error) error {
	p = p.normalize()
	deadline := time.Now().Add(p.Deadline)
	delay := p.InitialDelay

	for n := 1; ; n++ {
		err := attempt()
		if err == nil || !isTransient(err) {
			return err
		}
		if time.Now().Add(delay).After(deadline) {
			return &LockTimeoutError{Path: path, Attempts: n, Err: err}
		}

		log.Debug().Err(err).Str("file", path).Int("attempt", n).Dur("delay", delay).Msg("File locked, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("wait for %s: %w", path, ctx.Err())
		case <-timer.C:
		}

		delay = min(delay*2, p.MaxDelay)
	}
}

func isTransient(err error) bool {
	return errors.Is(err, ErrFileLocked) || isPlatformTransient(err)
}
