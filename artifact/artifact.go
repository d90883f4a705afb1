// Package artifact manages the files passed between pipeline stages.
//
// An artifact that exists is a completed step: writers go to a temporary
// file in the same directory and are renamed into place only on Commit, so a
// failed step never leaves a truncated or empty file behind.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// File extensions per stage output.
const (
	ExtNDJSON = ".ndjson"
	ExtSPARQL = ".sparql"
	ExtJSONLD = ".jsonld"
	ExtNQuads = ".nq"
)

// ErrExists is returned when creating an artifact that is already complete.
var ErrExists = errors.New("artifact already exists")

// Store resolves and creates artifacts under a root directory.
type Store struct {
	root   string
	force  bool
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithForce overwrites existing artifacts instead of treating them as done.
func WithForce(force bool) Option {
	return func(s *Store) {
		s.force = force
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore returns a Store rooted at root.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{root: root, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the root directory.
func (s *Store) Root() string { return s.root }

// Path returns the artifact path for name and extension. Absolute names are
// returned unchanged.
func (s *Store) Path(name, ext string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if filepath.Ext(name) == "" {
		name += ext
	}
	return filepath.Join(s.root, name)
}

// Done reports whether path is a completed artifact that should not be
// rebuilt.
func (s *Store) Done(path string) bool {
	if s.force {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Create opens a writer for path. It returns ErrExists when path is done.
func (s *Store) Create(path string) (*Writer, error) {
	if s.Done(path) {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp artifact: %w", err)
	}

	return &Writer{
		path:   path,
		file:   tmp,
		buf:    bufio.NewWriterSize(tmp, 64*1024),
		logger: s.logger,
	}, nil
}

// Write runs fn against a new artifact and commits it when fn succeeds.
// Any error removes the partial output.
func (s *Store) Write(path string, fn func(w io.Writer) error) (err error) {
	w, err := s.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			w.Abort()
		}
	}()

	if err = fn(w); err != nil {
		return err
	}
	return w.Commit()
}

// Open opens a completed artifact for reading.
func (s *Store) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Writer buffers an artifact in a temporary file.
type Writer struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	done   bool
	logger *slog.Logger
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

// Path returns the final artifact path.
func (w *Writer) Path() string { return w.path }

// Commit flushes the temporary file and renames it into place.
func (w *Writer) Commit() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true

	tmp := w.file.Name()
	if err := w.buf.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("flush artifact: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit artifact: %w", err)
	}
	return nil
}

// Abort discards the partial output. It is a no-op after Commit.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
	w.logger.Debug("Discarded partial artifact", "path", w.path)
}

func (w *Writer) discard() {
	tmp := w.file.Name()
	_ = w.file.Close()
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("Failed to remove partial artifact", "path", tmp, "error", err)
	}
}
