package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// File writes every group to w, one after another. It is used for dry runs.
type File struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFile returns a sink writing to w.
func NewFile(w io.Writer) *File {
	return &File{w: w}
}

// Send implements Sink.
func (f *File) Send(_ context.Context, batch []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range batch {
		if !strings.HasSuffix(g, "\n") {
			g += "\n"
		}
		if _, err := io.WriteString(f.w, g); err != nil {
			return fmt.Errorf("write update group: %w", err)
		}
	}
	return nil
}
