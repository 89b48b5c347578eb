package repo

import (
	"context"

	"srcfingerprint/internal/adapters/export"
	"srcfingerprint/internal/services/collector/domain"
)

// File writes records through the streaming exporter
type File struct {
	w *export.Writer
}

// NewFile wraps an open exporter
func NewFile(w *export.Writer) *File { return &File{w: w} }

// Name reports the output path
func (f *File) Name() string { return "file:" + f.w.Name() }

// Write encodes one record
func (f *File) Write(_ context.Context, r domain.Record) error { return f.w.Write(r) }

// Close flushes and closes the output
func (f *File) Close(context.Context) error { return f.w.Close() }

// Count reports how many records were written
func (f *File) Count() int { return f.w.Count() }
