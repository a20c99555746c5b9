// Package watcher feeds file system changes under the index's watch root
// back into the index.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"l10n-phrasebook/internal/phrasebook"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Index is what the watcher needs from a phrasebook index.
type Index interface {
	HandleEvent(ctx context.Context, ev phrasebook.Event) error
	OnWatchRootChange(fn func(root string))
}

// Watcher watches the watch root recursively. fsnotify watches single
// directories, so every directory below the root is added individually.
type Watcher struct {
	fsw   *fsnotify.Watcher
	index Index

	mu   sync.Mutex
	dirs map[string]bool

	handlers sync.WaitGroup
}

// New creates a watcher following the watch root of index.
func New(index Index) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fsw:   fsw,
		index: index,
		dirs:  make(map[string]bool),
	}
	index.OnWatchRootChange(w.setRoot)
	return w, nil
}

// Run delivers events to the index until ctx is done or the watcher is
// closed. Each event is handled on its own goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.handlers.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Dirs returns the number of directories being watched.
func (w *Watcher) Dirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) dispatch(ctx context.Context, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addTree(ev.Name)
			return
		}
	}

	event, ok := translate(ev)
	if !ok {
		log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Ignoring file event")
		return
	}

	w.handlers.Add(1)
	go func() {
		defer w.handlers.Done()
		if err := w.index.HandleEvent(ctx, event); err != nil {
			log.Error().Err(err).Str("file", event.Path).Stringer("event", event.Kind).Msg("Failed to apply file event")
		}
	}()
}

// translate maps fsnotify operations to index events. The old name of a
// rename is dropped: the new name is reported as a Create.
func translate(ev fsnotify.Event) (phrasebook.Event, bool) {
	if !strings.HasSuffix(ev.Name, phrasebook.Extension) {
		return phrasebook.Event{}, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return phrasebook.Event{Kind: phrasebook.Created, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return phrasebook.Event{Kind: phrasebook.Changed, Path: ev.Name}, true
	default:
		return phrasebook.Event{}, false
	}
}

func (w *Watcher) setRoot(root string) {
	log.Info().Str("root", root).Msg("Watching directory tree")
	w.addTree(root)
}

// addTree watches dir and every directory below it that is not watched yet.
func (w *Watcher) addTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.dirs[path] {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
			return nil
		}
		w.dirs[path] = true
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("root", dir).Msg("Failed to watch directory tree")
	}
}
