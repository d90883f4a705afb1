package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/c360studio/semharvest/extract"
)

// File extracts records from a local file holding NDJSON, a JSON array of
// objects, or a single JSON document whose records are selected by a path.
type File struct {
	path   string
	items  *extract.Path
	logger *slog.Logger
}

// FileOption configures a File extractor.
type FileOption func(*File)

// WithItems selects records inside a single JSON document, e.g. "$.data[*]".
func WithItems(p *extract.Path) FileOption {
	return func(f *File) {
		f.items = p
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		f.logger = logger
	}
}

// NewFile returns an extractor reading path.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Extract implements Extractor.
func (f *File) Extract(ctx context.Context, emit EmitFunc) error {
	fh, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer fh.Close()

	br := bufio.NewReader(fh)
	first, err := firstByte(br)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}

	switch {
	case f.items != nil:
		return f.extractDocument(ctx, br, emit)
	case first == '[':
		return f.extractArray(ctx, br, emit)
	default:
		return ReadNDJSON(ctx, br, f.logger.With("file", f.path), func(_ int, rec Record) error {
			return emit(rec)
		})
	}
}

func (f *File) extractDocument(ctx context.Context, r io.Reader, emit EmitFunc) error {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("decode source document: %w", err)
	}
	for i, v := range f.items.Values(doc) {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, ok := v.(map[string]any)
		if !ok {
			f.logger.Warn("Skipping non-object item", "file", f.path, "index", i, "path", f.items.String())
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) extractArray(ctx context.Context, r io.Reader, emit EmitFunc) error {
	dec := json.NewDecoder(r)
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode source array: %w", err)
	}
	for i := 0; dec.More(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode source array item %d: %w", i, err)
		}
		rec, ok := v.(map[string]any)
		if !ok {
			f.logger.Warn("Skipping non-object item", "file", f.path, "index", i)
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// firstByte peeks the first non-space byte.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
