package phrasebook

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// EventKind is the kind of file system change reported by a watcher.
type EventKind int

const (
	Created EventKind = iota
	Changed
	Renamed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Renamed:
		return "renamed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a change to Path, the new name for renames.
type Event struct {
	Kind EventKind
	Path string
}

// HandleEvent applies a watcher event. Events for tracked cfg files refresh
// them. Events for other cfg files are ignored, unless the index adopts
// untracked files, in which case files under the watch root are added.
func (idx *Index) HandleEvent(ctx context.Context, ev Event) error {
	if !isCfg(ev.Path) {
		return nil
	}
	abs, err := filepath.Abs(ev.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if idx.IsTracked(abs) {
		return idx.Refresh(ctx, abs)
	}

	root := idx.WatchRoot()
	if idx.opts.adoptUntracked && root != "" && isWithin(root, abs) {
		log.Info().Str("file", abs).Stringer("event", ev.Kind).Msg("Adopting untracked file")
		return idx.AddFile(ctx, abs)
	}

	log.Debug().Str("file", abs).Stringer("event", ev.Kind).Msg("Ignoring event for untracked file")
	return nil
}
