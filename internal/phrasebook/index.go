// Package phrasebook maintains a live index of localized phrases found in
// Localization blocks of cfg files.
package phrasebook

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"l10n-phrasebook/internal/parser"

	"github.com/rs/zerolog/log"
)

// Extension is the suffix of the files the index reads.
const Extension = ".cfg"

// UnderflowPolicy decides what a refresh does when a file has an unmatched '}'.
type UnderflowPolicy int

const (
	// UnderflowDiscard drops every version of the file.
	UnderflowDiscard UnderflowPolicy = iota
	// UnderflowKeepLastGood keeps the versions indexed before the edit.
	UnderflowKeepLastGood
)

// Sink receives the versions of a file each time the file is ingested.
// An empty entries slice means the file currently defines nothing.
type Sink interface {
	SyncFile(ctx context.Context, file string, entries []Entry) error
}

// Opener opens a file for reading.
type Opener func(path string) (io.ReadCloser, error)

type options struct {
	retry          RetryPolicy
	underflow      UnderflowPolicy
	adoptUntracked bool
	keepLabel      bool
	sinks          []Sink
	workers        int
	open           Opener
	now            func() time.Time
}

// Option configures an Index.
type Option func(*options)

// WithRetryPolicy sets how refreshes wait for locked files.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithUnderflowPolicy sets what a refresh keeps when a file is unbalanced.
func WithUnderflowPolicy(p UnderflowPolicy) Option {
	return func(o *options) { o.underflow = p }
}

// WithAdoptUntracked makes events for untracked cfg files under the watch
// root add those files instead of being ignored.
func WithAdoptUntracked(adopt bool) Option {
	return func(o *options) { o.adoptUntracked = adopt }
}

// WithBlankLabelKeepsName lets a '{' on its own line open the block named
// on the line before. Without it such a block is unnamed and its contents
// are not indexed.
func WithBlankLabelKeepsName(keep bool) Option {
	return func(o *options) { o.keepLabel = keep }
}

// WithSink adds a sink notified after every ingestion.
func WithSink(s Sink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s) }
}

// WithWorkers sets how many files initial loading parses concurrently.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithOpener replaces os.Open for reading files.
func WithOpener(open Opener) Option {
	return func(o *options) { o.open = open }
}

// WithClock sets the clock stamping SourceLocation.LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Index maps phrase names to their versions. Create one with New and share
// it between every session of the hosting application.
type Index struct {
	// mu guards everything below up to ingestMu.
	mu        sync.Mutex
	phrases   map[string]*Phrase
	keys      []string // phrase names in lookup order
	tracked   map[string]struct{}
	watchRoot string
	onRoot    func(root string)
	loadErrs  []error

	// ingestMu serializes writers so that read-then-swap is ordered per file.
	ingestMu sync.Mutex

	loadOnce sync.Once
	ready    chan struct{}
	sessions atomic.Int64

	opts options
}

// New creates an empty index.
func New(opts ...Option) *Index {
	o := options{
		retry:   DefaultRetryPolicy(),
		workers: 8,
		open:    func(path string) (io.ReadCloser, error) { return os.Open(path) },
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Index{
		phrases: make(map[string]*Phrase),
		tracked: make(map[string]struct{}),
		ready:   make(chan struct{}),
		opts:    o,
	}
}

// AddFile starts tracking path and indexes its content. Adding a tracked
// file again does nothing. The file stays tracked even if it cannot be read,
// so a later change event can index it.
func (idx *Index) AddFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	idx.ingestMu.Lock()
	defer idx.ingestMu.Unlock()

	if !idx.track([]string{abs}) {
		return nil
	}

	entries, err := idx.read(abs)
	if err != nil {
		log.Warn().Err(err).Str("file", abs).Msg("Failed to index file")
		return err
	}

	idx.mu.Lock()
	idx.appendLocked(entries)
	idx.mu.Unlock()

	idx.sync(ctx, abs, entries)
	log.Debug().Str("file", abs).Int("versions", len(entries)).Msg("File indexed")
	return nil
}

// Refresh re-reads a tracked file and atomically replaces its versions.
// Untracked paths are ignored. Locked files are retried according to the
// retry policy; until the refresh succeeds the previous versions stay visible.
func (idx *Index) Refresh(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	idx.ingestMu.Lock()
	defer idx.ingestMu.Unlock()

	if !idx.IsTracked(abs) {
		log.Debug().Str("file", abs).Msg("Ignoring refresh of untracked file")
		return nil
	}

	var entries []Entry
	err = idx.opts.retry.do(ctx, abs, func() error {
		var readErr error
		entries, readErr = idx.read(abs)
		return readErr
	})

	var underflow *parser.UnderflowError
	switch {
	case errors.As(err, &underflow):
		if idx.opts.underflow == UnderflowKeepLastGood {
			log.Warn().Err(err).Str("file", abs).Msg("Unbalanced file, keeping previous versions")
			return err
		}
		log.Warn().Err(err).Str("file", abs).Msg("Unbalanced file, dropping its versions")
		entries = nil
	case err != nil:
		log.Error().Err(err).Str("file", abs).Msg("Refresh failed")
		return fmt.Errorf("refresh %s: %w", abs, err)
	}

	idx.mu.Lock()
	idx.removeLocked(abs)
	idx.appendLocked(entries)
	idx.mu.Unlock()

	idx.sync(ctx, abs, entries)
	log.Debug().Str("file", abs).Int("versions", len(entries)).Msg("File refreshed")
	return err
}

// WatchRoot returns the directory covering every tracked file, or "" before
// the first file is added.
func (idx *Index) WatchRoot() string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.watchRoot
}

// OnWatchRootChange registers fn to be called with the new root each time it
// widens. If a root is already set, fn is called with it right away.
func (idx *Index) OnWatchRootChange(fn func(root string)) {
	idx.mu.Lock()
	idx.onRoot = fn
	root := idx.watchRoot
	idx.mu.Unlock()

	if root != "" && fn != nil {
		fn(root)
	}
}

// IsTracked reports whether path has been added.
func (idx *Index) IsTracked(path string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.tracked[path]
	return ok
}

// TrackedFiles returns the tracked paths, sorted.
func (idx *Index) TrackedFiles() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	files := make([]string, 0, len(idx.tracked))
	for f := range idx.tracked {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// Phrase returns a copy of the named phrase.
func (idx *Index) Phrase(name string) (Phrase, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	p, ok := idx.phrases[name]
	if !ok {
		return Phrase{}, false
	}
	return p.clone(), true
}

// Phrases returns a copy of every phrase that has at least one version,
// sorted by name.
func (idx *Index) Phrases() []Phrase {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	phrases := make([]Phrase, 0, len(idx.phrases))
	for _, p := range idx.phrases {
		if len(p.Versions) > 0 {
			phrases = append(phrases, p.clone())
		}
	}
	slices.SortFunc(phrases, func(a, b Phrase) int { return cmp.Compare(a.Name, b.Name) })
	return phrases
}

// Len returns the number of phrase names ever seen.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.phrases)
}

// track adds the given absolute paths and widens the watch root to cover
// them. It reports whether any path was new.
func (idx *Index) track(paths []string) bool {
	idx.mu.Lock()
	added := false
	previous := idx.watchRoot
	for _, p := range paths {
		if _, ok := idx.tracked[p]; ok {
			continue
		}
		idx.tracked[p] = struct{}{}
		idx.watchRoot = widenRoot(idx.watchRoot, filepath.Dir(p))
		added = true
	}
	root, listener := idx.watchRoot, idx.onRoot
	idx.mu.Unlock()

	if root != previous {
		log.Info().Str("root", root).Msg("Watch root changed")
		if listener != nil {
			listener(root)
		}
	}
	return added
}

// read parses one file into entries. An *parser.UnderflowError aborts the
// file: no entries are returned with it.
func (idx *Index) read(path string) ([]Entry, error) {
	rc, err := idx.opts.open(path)
	if err != nil {
		return nil, fmt.Errorf("open cfg file: %w", err)
	}
	defer rc.Close()

	var reducerOpts []parser.ReducerOption
	if idx.opts.keepLabel {
		reducerOpts = append(reducerOpts, parser.KeepLabelAcrossBlankRuns())
	}
	found, err := parser.Parse(path, rc, idx.opts.now, reducerOpts...)
	if err != nil {
		return nil, err
	}
	return newEntries(found), nil
}

func (idx *Index) appendLocked(entries []Entry) {
	for _, e := range entries {
		p, ok := idx.phrases[e.Name]
		if !ok {
			p = &Phrase{Name: e.Name}
			idx.phrases[e.Name] = p
			idx.insertKeyLocked(e.Name)
		}
		p.Versions = append(p.Versions, e.Version)
	}
}

func (idx *Index) removeLocked(file string) {
	for _, p := range idx.phrases {
		p.Versions = slices.DeleteFunc(p.Versions, func(v Version) bool {
			return v.Location.File == file
		})
	}
}

// insertKeyLocked keeps keys ordered longest first, then by name.
func (idx *Index) insertKeyLocked(name string) {
	i, _ := slices.BinarySearchFunc(idx.keys, name, compareKeys)
	idx.keys = slices.Insert(idx.keys, i, name)
}

func compareKeys(a, b string) int {
	if c := cmp.Compare(len(b), len(a)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func (idx *Index) sync(ctx context.Context, file string, entries []Entry) {
	for _, s := range idx.opts.sinks {
		if err := s.SyncFile(ctx, file, entries); err != nil {
			log.Warn().Err(err).Str("file", file).Msg("Failed to sync file to sink")
		}
	}
}

// widenRoot returns the closest ancestor of root (root included) that
// contains dir. An empty root becomes dir.
func widenRoot(root, dir string) string {
	if root == "" {
		return dir
	}
	for !isWithin(root, dir) {
		parent := filepath.Dir(root)
		if parent == root {
			break
		}
		root = parent
	}
	return root
}

// isWithin reports whether path is root or lies below it.
func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isCfg(path string) bool {
	return strings.HasSuffix(path, Extension)
}
