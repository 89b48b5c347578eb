package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"

	perr "srcfingerprint/internal/platform/errors"
)

type rec struct {
	Name string `json:"repository_name"`
	SHA  string `json:"sha"`
}

var recs = []rec{{"a", "1"}, {"b", "2"}, {"c", "3"}}

func decode(t *testing.T, raw []byte, f Format) []rec {
	t.Helper()
	var r io.Reader = bytes.NewReader(raw)
	if f.Gzip() {
		gz, err := gzip.NewReader(r)
		if err != nil {
			t.Fatal(err)
		}
		defer gz.Close()
		r = gz
	}
	var out []rec
	if f.Array() {
		if err := json.NewDecoder(r).Decode(&out); err != nil {
			t.Fatalf("decode array: %v", err)
		}
		return out
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var v rec
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		out = append(out, v)
	}
	return out
}

func TestWriter_RoundTripsEveryFormat(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			w := New(&buf, f)
			for _, r := range recs {
				if err := w.Write(r); err != nil {
					t.Fatal(err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(recs, decode(t, buf.Bytes(), f)); diff != "" {
				t.Fatalf("records (-want +got):\n%s", diff)
			}
			if w.Count() != len(recs) {
				t.Fatalf("Count=%d", w.Count())
			}
		})
	}
}

func TestWriter_EmptyArrayIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatJSON)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("output=%q", buf.String())
	}
}

func TestWriter_JSONLHasOneRecordPerLine(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, FormatJSONL)
	_ = w.Write(recs[0])
	_ = w.Write(recs[1])
	_ = w.Close()
	want := `{"repository_name":"a","sha":"1"}` + "\n" + `{"repository_name":"b","sha":"2"}` + "\n"
	if buf.String() != want {
		t.Fatalf("output=%q want %q", buf.String(), want)
	}
}

func TestWriter_WriteAfterClose(t *testing.T) {
	w := New(io.Discard, FormatJSONL)
	_ = w.Close()
	if err := w.Write(recs[0]); err == nil {
		t.Fatal("expected error after close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close=%v", err)
	}
}

func TestOpen_FileAndStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json.gz")
	w, err := Open(path, FormatGzipJSON, nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = w.Write(recs[0])
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(recs[:1], decode(t, raw, FormatGzipJSON)); diff != "" {
		t.Fatalf("records (-want +got):\n%s", diff)
	}

	var stdout bytes.Buffer
	sw, err := Open(Stdout, FormatJSONL, &stdout)
	if err != nil {
		t.Fatal(err)
	}
	if sw.Name() != "stdout" {
		t.Fatalf("Name=%q", sw.Name())
	}
	_ = sw.Write(recs[2])
	_ = sw.Close()
	if !strings.Contains(stdout.String(), `"c"`) {
		t.Fatalf("stdout=%q", stdout.String())
	}
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "out.jsonl"), FormatJSONL, nil)
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatGzipJSONL {
		t.Fatalf("default=%q,%v", f, err)
	}
	if f, err := ParseFormat(" JSON "); err != nil || f != FormatJSON {
		t.Fatalf("json=%q,%v", f, err)
	}
	if _, err := ParseFormat("csv"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("csv err=%v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	cases := map[Format]string{
		FormatJSONL:     "fingerprints.jsonl",
		FormatGzipJSONL: "fingerprints.jsonl.gz",
		FormatJSON:      "fingerprints.json",
		FormatGzipJSON:  "fingerprints.json.gz",
	}
	for f, want := range cases {
		if got := f.DefaultPath(); got != want {
			t.Fatalf("%s DefaultPath=%q want %q", f, got, want)
		}
	}
}
