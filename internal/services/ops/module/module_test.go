package module

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"srcfingerprint/internal/modkit"
	"srcfingerprint/internal/platform/config"
	pnet "srcfingerprint/internal/platform/net"
)

func serve(t *testing.T, m *Module, path string, origin string) *httptest.ResponseRecorder {
	t.Helper()
	s := m.Server()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	s.Router().Mux().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	m := New(modkit.Deps{Cfg: config.New()}, Options{Addr: "127.0.0.1:0"})
	if m.Name() != "ops" || !m.Enabled() {
		t.Fatalf("name=%q enabled=%v", m.Name(), m.Enabled())
	}
	rr := serve(t, m, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	var w pnet.Wire
	if err := json.NewDecoder(rr.Body).Decode(&w); err != nil {
		t.Fatal(err)
	}
	data, _ := w.Data.(map[string]any)
	if data["status"] != "ok" {
		t.Fatalf("data = %v", w.Data)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	up := New(modkit.Deps{Cfg: config.New()}, Options{})
	if up.Enabled() {
		t.Fatal("no addr should disable the surface")
	}
	if rr := serve(t, up, "/readyz", ""); rr.Code != http.StatusOK {
		t.Fatalf("ready code = %d", rr.Code)
	}

	down := New(modkit.Deps{
		Cfg:   config.New(),
		Guard: func(context.Context) error { return errors.New("pg: connection refused") },
	}, Options{})
	rr := serve(t, down, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready code = %d", rr.Code)
	}
	var w pnet.Wire
	_ = json.NewDecoder(rr.Body).Decode(&w)
	if w.Code != "unavailable" || w.Error != "backends not ready" {
		t.Fatalf("envelope = %+v", w)
	}
}

func TestMetricsAndCORS(t *testing.T) {
	t.Parallel()

	m := New(modkit.Deps{Cfg: config.New()}, Options{CORSOrigins: []string{"https://dash.example"}})
	rr := serve(t, m, "/metrics", "https://dash.example")
	if rr.Code != http.StatusOK {
		t.Fatalf("code = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "srcfp_") {
		t.Fatal("metrics body has no srcfp_ series")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("SRCFP_OPS_ADDR", ":9100")
	t.Setenv("SRCFP_OPS_CORS_ORIGINS", "https://a.example, https://b.example")

	o := FromConfig(config.New())
	if o.Addr != ":9100" || len(o.CORSOrigins) != 2 || o.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("options = %+v", o)
	}
	m := New(modkit.Deps{Cfg: config.New()}, Options{Addr: ":9200"})
	if m.opts.Addr != ":9200" || len(m.opts.CORSOrigins) != 2 {
		t.Fatalf("override merge = %+v", m.opts)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	t.Parallel()

	m := New(modkit.Deps{Cfg: config.New()}, Options{Addr: "127.0.0.1:0"})
	s := m.Server()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("not ready")
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
