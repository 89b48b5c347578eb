package version

import "testing"

func TestInfo(t *testing.T) {
	b := Info()
	if b.Name != "src-fingerprint" || b.Version != Version {
		t.Fatalf("info = %+v", b)
	}
	want := "src-fingerprint " + Version + " (commit " + b.Commit + ", built " + b.Date + ")"
	if got := b.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
