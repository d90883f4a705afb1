// Package source provides the input side of the pipeline: extractors that
// produce source records, and the NDJSON codec used to persist them between
// the extract and transform stages.
package source

import (
	"context"
	"errors"
)

// Record is one parsed source JSON object.
type Record = map[string]any

// EmitFunc receives each extracted record. Returning an error stops extraction.
type EmitFunc func(rec Record) error

// Extractor produces source records.
type Extractor interface {
	Extract(ctx context.Context, emit EmitFunc) error
}

// Func adapts a function to an Extractor.
type Func func(ctx context.Context, emit EmitFunc) error

// Extract implements Extractor.
func (f Func) Extract(ctx context.Context, emit EmitFunc) error { return f(ctx, emit) }

// Static emits a fixed set of records.
func Static(recs ...Record) Extractor {
	return Func(func(ctx context.Context, emit EmitFunc) error {
		for _, rec := range recs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := emit(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// ErrNotObject is returned for JSON values that are not objects.
var ErrNotObject = errors.New("record is not a JSON object")
