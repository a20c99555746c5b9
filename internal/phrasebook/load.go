package phrasebook

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"l10n-phrasebook/internal/worker"

	"github.com/rs/zerolog/log"
)

// ErrNotReady is returned by Wait when ctx ends before initial loading does.
var ErrNotReady = errors.New("phrasebook not ready")

// Enumerator lists candidate files. Paths without the cfg extension are skipped.
type Enumerator func(ctx context.Context) ([]string, error)

// Load starts indexing the enumerated files in the background and returns
// immediately. Only the first call has any effect. Per-file failures are
// recorded in LoadErrors and do not stop the load.
func (idx *Index) Load(ctx context.Context, enumerate Enumerator) {
	idx.loadOnce.Do(func() {
		go idx.load(ctx, enumerate)
	})
}

// Ready is closed once initial loading has finished.
func (idx *Index) Ready() <-chan struct{} {
	return idx.ready
}

// Wait blocks until initial loading has finished or ctx is done.
func (idx *Index) Wait(ctx context.Context) error {
	select {
	case <-idx.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// LoadErrors returns the errors recorded during initial loading.
func (idx *Index) LoadErrors() []error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return append([]error(nil), idx.loadErrs...)
}

func (idx *Index) load(ctx context.Context, enumerate Enumerator) {
	defer close(idx.ready)

	candidates, err := enumerate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to enumerate files")
		idx.recordLoadError(fmt.Errorf("enumerate files: %w", err))
		return
	}

	idx.ingestMu.Lock()
	defer idx.ingestMu.Unlock()

	var files []string
	seen := make(map[string]bool)
	for _, c := range candidates {
		if !isCfg(c) {
			continue
		}
		abs, err := filepath.Abs(c)
		if err != nil {
			idx.recordLoadError(fmt.Errorf("resolve path: %w", err))
			continue
		}
		if seen[abs] || idx.IsTracked(abs) {
			continue
		}
		seen[abs] = true
		files = append(files, abs)
	}
	idx.track(files)

	log.Info().Int("files", len(files)).Msg("Loading phrasebook")

	pool := worker.NewPool[string, []Entry](idx.opts.workers, func(_ context.Context, path string) ([]Entry, error) {
		return idx.read(path)
	})
	tasks := pool.Execute(ctx, files)

	idx.mu.Lock()
	for _, task := range tasks {
		if task.Err != nil {
			log.Warn().Err(task.Err).Str("file", task.Input).Msg("Failed to index file")
			idx.loadErrs = append(idx.loadErrs, fmt.Errorf("%s: %w", task.Input, task.Err))
			continue
		}
		idx.appendLocked(task.Result)
	}
	phrases := len(idx.phrases)
	failed := len(idx.loadErrs)
	idx.mu.Unlock()

	for _, task := range tasks {
		if task.Err == nil {
			idx.sync(ctx, task.Input, task.Result)
		}
	}

	log.Info().Int("files", len(files)).Int("phrases", phrases).Int("errors", failed).Msg("Phrasebook loaded")
}

func (idx *Index) recordLoadError(err error) {
	idx.mu.Lock()
	idx.loadErrs = append(idx.loadErrs, err)
	idx.mu.Unlock()
}
