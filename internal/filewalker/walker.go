package filewalker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultExtension is the extension of localization files.
const DefaultExtension = ".cfg"

// Walker lists the files with a given extension under a set of roots.
type Walker struct {
	roots     []string
	extension string
}

// NewWalker creates a Walker for cfg files under roots.
func NewWalker(roots ...string) *Walker {
	return &Walker{roots: roots, extension: DefaultExtension}
}

// Enumerate walks every root and returns the matching files, sorted per root.
// It has the shape of phrasebook.Enumerator.
func (w *Walker) Enumerate(ctx context.Context) ([]string, error) {
	var files []string
	for _, root := range w.roots {
		found, err := w.Walk(ctx, root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// Walk discovers all matching files under root. Unreadable entries are
// logged and skipped.
func (w *Walker) Walk(ctx context.Context, root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, w.extension) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(files)).Str("root", root).Msg("Discovered files")
	return files, nil
}
