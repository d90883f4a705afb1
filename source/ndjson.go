package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxLineSize bounds a single NDJSON line.
const maxLineSize = 16 * 1024 * 1024

// ReadNDJSON decodes one record per line and passes it to emit with its
// 1-based line number. Blank lines are ignored. Lines that are not JSON
// objects are logged with their line number and skipped.
func ReadNDJSON(ctx context.Context, r io.Reader, logger *slog.Logger, emit func(line int, rec Record) error) error {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		rec, err := decodeObject([]byte(text))
		if err != nil {
			logger.Warn("Skipping malformed record", "line", line, "error", err)
			continue
		}
		if err := emit(line, rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ndjson line %d: %w", line+1, err)
	}
	return nil
}

func decodeObject(data []byte) (Record, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	rec, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotObject, v)
	}
	return rec, nil
}

// NDJSONWriter writes one record per line.
type NDJSONWriter struct {
	enc   *json.Encoder
	count int
}

// NewNDJSONWriter returns a writer encoding to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONWriter{enc: enc}
}

// Write encodes rec followed by a newline.
func (w *NDJSONWriter) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *NDJSONWriter) Count() int { return w.count }
