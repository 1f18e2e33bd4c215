package hooks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientEnvOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte(`{"context":"hello"}`))
	}))
	defer srv.Close()
	t.Setenv("ANIMA_URL", srv.URL)

	c := NewClient()
	if !c.Healthy() {
		t.Fatal("Healthy = false against a live server")
	}

	ctx, err := c.BootContext("", "")
	if err != nil {
		t.Fatalf("BootContext: %v", err)
	}
	if ctx != "hello" {
		t.Errorf("context = %q", ctx)
	}
}

func TestClientBootContextQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/boot" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("mode"); got != "lite" {
			t.Errorf("mode = %q, want lite", got)
		}
		if got := r.URL.Query().Get("task"); got != "fix the build" {
			t.Errorf("task = %q", got)
		}
		w.Write([]byte(`{"context":"# Persona\n"}`))
	}))
	defer srv.Close()
	t.Setenv("ANIMA_URL", srv.URL)

	ctx, err := NewClient().BootContext("lite", "fix the build")
	if err != nil {
		t.Fatalf("BootContext: %v", err)
	}
	if ctx != "# Persona\n" {
		t.Errorf("context = %q", ctx)
	}
}

func TestClientTrackTool(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/track/tool" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	t.Setenv("ANIMA_URL", srv.URL)

	if err := NewClient().TrackTool("ripgrep", 1.5); err != nil {
		t.Fatalf("TrackTool: %v", err)
	}
	if got["name"] != "ripgrep" || got["cost"] != 1.5 {
		t.Errorf("tracked payload = %v", got)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	t.Setenv("ANIMA_URL", srv.URL)

	if err := NewClient().TrackTool("grep", 0); err == nil {
		t.Error("4xx response should surface as an error")
	}
}

func TestClientUnreachable(t *testing.T) {
	t.Setenv("ANIMA_URL", "http://127.0.0.1:1")
	c := NewClient()
	if c.Healthy() {
		t.Error("Healthy = true with nothing listening")
	}
}

func TestHandleBootPrintsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		case "/api/boot":
			if got := r.URL.Query().Get("mode"); got != "lite" {
				t.Errorf("mode = %q, want lite", got)
			}
			w.Write([]byte(`{"context":"# Persona\n"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv("ANIMA_URL", srv.URL)

	// Handle writes to stdout; here we only assert the request shape and
	// that a malformed-but-absent stdin body does not abort the boot path.
	Handle("boot", strings.NewReader(`{"mode":"lite"}`))
}

func TestHandleUnreachableIsSilent(t *testing.T) {
	t.Setenv("ANIMA_URL", "http://127.0.0.1:1")
	// Must not panic or block.
	Handle("tool", strings.NewReader(`{"tool_name":"grep"}`))
	Handle("beat", strings.NewReader(`{}`))
}
