package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenFresh(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	st := s.Get()
	if st.Analytics.Boots != 0 {
		t.Errorf("fresh boots = %d", st.Analytics.Boots)
	}
	// All maps must be usable without nil checks.
	st.Analytics.ToolCalls["x"]++
	st.AttentionWeights["y"] = 0.5
	st.GenomeBaseline["z"] = "h"
	st.PreviousHashes["w"] = "h"
	st.Analytics.Energy["x"] += 1.0
	st.Analytics.FileChanges["f"]++
	st.Analytics.PromptUses["p"]++
}

func TestMutatePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	err = s.Mutate(func(st *State) {
		st.Analytics.Boots = 7
		st.Analytics.ToolCalls["grep"] = 3
		st.Heartbeat.NeedsDistillation = true
		st.AttentionWeights["memory"] = 0.42
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	st := reopened.Get()
	if st.Analytics.Boots != 7 {
		t.Errorf("boots = %d, want 7", st.Analytics.Boots)
	}
	if st.Analytics.ToolCalls["grep"] != 3 {
		t.Errorf("tool calls = %v", st.Analytics.ToolCalls)
	}
	if !st.Heartbeat.NeedsDistillation {
		t.Error("heartbeat flag lost")
	}
	if st.AttentionWeights["memory"] != 0.42 {
		t.Errorf("weights = %v", st.AttentionWeights)
	}
}

func TestOpenMalformedStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{{{"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open should recover from malformed state: %v", err)
	}
	if s.Get().Analytics.Boots != 0 {
		t.Errorf("expected zero-value state, got %+v", s.Get())
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Mutate(func(st *State) { st.Analytics.Boots++ }); err != nil {
			t.Fatalf("Mutate %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".state-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("expected only state.json, got %d entries", len(entries))
	}
}
