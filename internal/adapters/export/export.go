// Package export streams JSON records to files or stdout, optionally gzip compressed
package export

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	perr "srcfingerprint/internal/platform/errors"
)

// Format selects the output encoding
type Format string

// Supported formats
const (
	FormatJSONL     Format = "jsonl"
	FormatGzipJSONL Format = "gzip-jsonl"
	FormatJSON      Format = "json"
	FormatGzipJSON  Format = "gzip-json"
)

// DefaultFormat is used when no format is given
const DefaultFormat = FormatGzipJSONL

// Stdout is the output path that means standard output
const Stdout = "-"

// Formats lists the accepted format names
var Formats = []Format{FormatJSONL, FormatGzipJSONL, FormatJSON, FormatGzipJSON}

// ParseFormat validates a format name; empty yields DefaultFormat
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultFormat, nil
	}
	for _, f := range Formats {
		if Format(s) == f {
			return f, nil
		}
	}
	return "", perr.InvalidArgf("unknown export format %q: want jsonl, gzip-jsonl, json or gzip-json", s)
}

// Gzip reports whether the format is compressed
func (f Format) Gzip() bool { return f == FormatGzipJSONL || f == FormatGzipJSON }

// Array reports whether records are wrapped in one JSON array
func (f Format) Array() bool { return f == FormatJSON || f == FormatGzipJSON }

// DefaultPath is the output file used when none is given
func (f Format) DefaultPath() string {
	p := "fingerprints.jsonl"
	if f.Array() {
		p = "fingerprints.json"
	}
	if f.Gzip() {
		p += ".gz"
	}
	return p
}

// Writer encodes values one by one. JSON arrays are streamed, nothing is buffered
// beyond the bufio and gzip windows. Not safe for concurrent use
type Writer struct {
	name   string
	format Format
	file   io.Closer
	gz     *gzip.Writer
	bw     *bufio.Writer
	n      int
	closed bool
}

// Open creates path (or uses stdout for "-") and returns a Writer for it
func Open(path string, f Format, stdout io.Writer) (*Writer, error) {
	if path == "" {
		path = f.DefaultPath()
	}
	if path == Stdout {
		w := New(stdout, f)
		w.name = "stdout"
		return w, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "create output %s", path)
	}
	w := New(fh, f)
	w.name = path
	w.file = fh
	return w, nil
}

// New wraps dst; Close flushes but never closes dst
func New(dst io.Writer, f Format) *Writer {
	w := &Writer{name: "writer", format: f}
	out := dst
	if f.Gzip() {
		w.gz = gzip.NewWriter(dst)
		out = w.gz
	}
	w.bw = bufio.NewWriterSize(out, 64<<10)
	return w
}

// Name is the output path, or stdout
func (w *Writer) Name() string { return w.name }

// Count is the number of values written so far
func (w *Writer) Count() int { return w.n }

// Write encodes v as one line or one array element
func (w *Writer) Write(v any) error {
	if w.closed {
		return perr.Internalf("export writer %s already closed", w.name)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode record")
	}
	sep := "\n"
	if w.format.Array() {
		sep = ",\n"
		if w.n == 0 {
			sep = "[\n"
		}
	}
	if w.n > 0 || w.format.Array() {
		if _, err := w.bw.WriteString(sep); err != nil {
			return w.ioErr(err)
		}
	}
	if _, err := w.bw.Write(b); err != nil {
		return w.ioErr(err)
	}
	w.n++
	return nil
}

// Close terminates the document, flushes every layer and closes the file it opened
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var tail string
	switch {
	case w.format.Array() && w.n == 0:
		tail = "[]\n"
	case w.format.Array():
		tail = "\n]\n"
	case w.n > 0:
		tail = "\n"
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = w.ioErr(err)
		}
	}
	if tail != "" {
		_, err := w.bw.WriteString(tail)
		keep(err)
	}
	keep(w.bw.Flush())
	if w.gz != nil {
		keep(w.gz.Close())
	}
	if w.file != nil {
		keep(w.file.Close())
	}
	return first
}

func (w *Writer) ioErr(err error) error {
	return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write %s", w.name)
}
