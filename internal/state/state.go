package state

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// State is the single persisted structured record per installation.
// All fields default to empty/zero on first load.
type State struct {
	Analytics        Analytics          `json:"analytics"`
	Heartbeat        Heartbeat          `json:"heartbeat"`
	PreviousHashes   map[string]string  `json:"previous_hashes"`
	GenomeBaseline   map[string]string  `json:"genome_baseline"`
	AttentionWeights map[string]float64 `json:"attention_weights"`
}

// Analytics holds usage counters.
type Analytics struct {
	ToolCalls     map[string]int     `json:"tool_calls"`
	PromptUses    map[string]int     `json:"prompt_uses"`
	Boots         int                `json:"boots"`
	InstalledAt   int64              `json:"installed_at"`    // unix ms of first boot
	BootLatencyMs int64              `json:"boot_latency_ms"` // cumulative
	HourHistogram [24]int            `json:"hour_histogram"`
	FileChanges   map[string]int     `json:"file_changes"`
	Energy        map[string]float64 `json:"energy"`
	Evolutions    int                `json:"evolutions"`
}

// Heartbeat holds lifecycle flags driven by the external timer.
type Heartbeat struct {
	LastBeat          int64  `json:"last_beat"`    // unix ms
	LastDistillation  int64  `json:"last_distill"` // unix ms
	NeedsDistillation bool   `json:"needs_distill"`
	DailyLogBytes     int64  `json:"daily_log_bytes"`
	NeedsReflex       bool   `json:"needs_reflex"`
	ReflexTool        string `json:"reflex_tool,omitempty"`
}

// Store owns the state file. It is loaded once per process lifetime and
// every mutation is flushed immediately via an atomic rewrite.
type Store struct {
	path  string
	state *State
}

// Open loads (or initializes) the state record at <root>/state.json.
// Malformed JSON falls back to a zero-value state rather than failing.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &Store{path: filepath.Join(root, "state.json")}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.state = newState()
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		log.Printf("state: malformed state.json, starting fresh: %v", err)
		s.state = newState()
		return s, nil
	}
	normalize(&st)
	s.state = &st
	return s, nil
}

func newState() *State {
	st := &State{}
	normalize(st)
	return st
}

// normalize ensures all maps are non-nil so callers can mutate freely.
func normalize(st *State) {
	if st.Analytics.ToolCalls == nil {
		st.Analytics.ToolCalls = map[string]int{}
	}
	if st.Analytics.PromptUses == nil {
		st.Analytics.PromptUses = map[string]int{}
	}
	if st.Analytics.FileChanges == nil {
		st.Analytics.FileChanges = map[string]int{}
	}
	if st.Analytics.Energy == nil {
		st.Analytics.Energy = map[string]float64{}
	}
	if st.PreviousHashes == nil {
		st.PreviousHashes = map[string]string{}
	}
	if st.GenomeBaseline == nil {
		st.GenomeBaseline = map[string]string{}
	}
	if st.AttentionWeights == nil {
		st.AttentionWeights = map[string]float64{}
	}
}

// Get returns the live state object. Callers mutate it only through
// Mutate so every change hits disk.
func (s *Store) Get() *State {
	return s.state
}

// Mutate applies fn to the state and flushes the whole record.
func (s *Store) Mutate(fn func(*State)) error {
	fn(s.state)
	return s.Save()
}

// Save writes the full record atomically: temp file, then rename.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp state: %w", err)
	}
	return nil
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}
