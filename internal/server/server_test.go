package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anima/internal/config"
	"anima/internal/engine"
	"anima/internal/evolve"
	"anima/internal/stash"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Memory.Root = t.TempDir()

	eng, err := engine.Open(cfg)
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	evo := evolve.New(eng.Docs, eng.State, cfg.Evolution)
	kv, err := stash.OpenMemory()
	if err != nil {
		t.Fatalf("stash.OpenMemory: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	return New(eng, evo, kv, "test")
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decode(t, w, &resp)
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestBootEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/boot?mode=full", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Context string `json:"context"`
	}
	decode(t, w, &resp)
	if !strings.Contains(resp.Context, "# Persona") {
		t.Errorf("context missing persona:\n%s", resp.Context)
	}
	if !strings.Contains(resp.Context, "context: ~") {
		t.Errorf("context missing footer:\n%s", resp.Context)
	}
}

func TestTrackToolEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/track/tool", map[string]any{"name": "ripgrep", "cost": 2.0})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// Missing name is rejected.
	w = doJSON(t, s, http.MethodPost, "/api/track/tool", map[string]any{"cost": 1.0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEntityLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/entities", map[string]any{
		"name":      "postgres",
		"type":      "tool",
		"relations": []string{"primary datastore"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/entities/postgres", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got struct {
		Name     string `json:"name"`
		Mentions int    `json:"mentions"`
	}
	decode(t, w, &got)
	if got.Name != "postgres" || got.Mentions != 1 {
		t.Errorf("entity = %+v", got)
	}

	w = doJSON(t, s, http.MethodPost, "/api/entities/postgres/link", map[string]any{
		"relation":  "used by the importer",
		"sentiment": "positive",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("link status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/entities?type=tool", nil)
	var list struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}
	decode(t, w, &list)
	if len(list.Entities) != 1 {
		t.Fatalf("list = %+v", list)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/entities/postgres", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/entities/postgres", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", w.Code)
	}
}

func TestGenomeEndpoints(t *testing.T) {
	s := newTestServer(t)

	// First status adopts the baseline, so the genome reads clean.
	w := doJSON(t, s, http.MethodGet, "/api/genome", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status struct {
		Clean      bool `json:"clean"`
		Deviations []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"deviations"`
	}
	decode(t, w, &status)
	if !status.Clean {
		t.Errorf("fresh genome not clean: %+v", status)
	}

	// Mutate a genome document and observe the deviation.
	if err := s.engine.Docs.Write("persona.md", "# Persona\n\ndrifted away from baseline\n"); err != nil {
		t.Fatal(err)
	}
	w = doJSON(t, s, http.MethodGet, "/api/genome", nil)
	decode(t, w, &status)
	if status.Clean || len(status.Deviations) != 1 {
		t.Fatalf("deviation not reported: %+v", status)
	}
	if status.Deviations[0].Name != "persona.md" || status.Deviations[0].Kind != "mutated" {
		t.Errorf("deviation = %+v", status.Deviations[0])
	}

	// Accepting clears it.
	w = doJSON(t, s, http.MethodPost, "/api/genome/accept", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/genome", nil)
	decode(t, w, &status)
	if !status.Clean {
		t.Errorf("genome not clean after accept: %+v", status)
	}
}

func TestEvolutionEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/evolution/analyze", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/evolution/trigger", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trigger status = %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		Evolved bool   `json:"evolved"`
		Reason  string `json:"reason"`
	}
	decode(t, w, &res)
	if res.Evolved {
		t.Error("evolved with no log signal at all")
	}
	if res.Reason == "" {
		t.Error("refusal should carry a reason")
	}
}

func TestStashEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPut, "/api/stash/deploy-cmd", map[string]string{"value": "make release"})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/stash/deploy-cmd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got struct {
		Value string `json:"value"`
	}
	decode(t, w, &got)
	if got.Value != "make release" {
		t.Errorf("value = %q", got.Value)
	}

	w = doJSON(t, s, http.MethodGet, "/api/stash", nil)
	var list struct {
		Keys []string `json:"keys"`
	}
	decode(t, w, &list)
	if len(list.Keys) != 1 || list.Keys[0] != "deploy-cmd" {
		t.Errorf("keys = %v", list.Keys)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/stash/deploy-cmd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/api/stash/deploy-cmd", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", w.Code)
	}
}

func TestHeartbeatEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/heartbeat", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Pulse string `json:"pulse"`
	}
	decode(t, w, &resp)
	if !strings.HasPrefix(resp.Pulse, "pulse:") {
		t.Errorf("pulse = %q", resp.Pulse)
	}
}
