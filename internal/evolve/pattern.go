package evolve

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Pattern is one confidence-scored observation mined from recent logs.
// Patterns are ephemeral: they live only inside a snapshot file that the
// trigger step consumes once.
type Pattern struct {
	Type          string  `json:"type"` // repetition, preference, temporal, workflow, sentiment, error_pattern
	Confidence    float64 `json:"confidence"`
	Description   string  `json:"description"`
	Action        string  `json:"action"`
	MergeCount    int     `json:"merge_count,omitempty"`
	AvgConfidence float64 `json:"avg_confidence,omitempty"`
}

// Snapshot is the persisted output of one analysis pass.
type Snapshot struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LogDays   int       `json:"log_days"`
	Patterns  []Pattern `json:"patterns"`
}

// writeSnapshot persists a snapshot under <dir>/patterns/.
func writeSnapshot(dir string, snap *Snapshot) (string, error) {
	patternDir := filepath.Join(dir, "patterns")
	if err := os.MkdirAll(patternDir, 0755); err != nil {
		return "", fmt.Errorf("create patterns dir: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", snap.CreatedAt.Format("20060102-150405"), snap.ID[:8])
	path := filepath.Join(patternDir, name)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// latestSnapshot loads the most recent snapshot, nil when none exist.
func latestSnapshot(dir string) (*Snapshot, error) {
	patternDir := filepath.Join(dir, "patterns")
	entries, err := os.ReadDir(patternDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names) // timestamp prefix makes lexical order chronological

	data, err := os.ReadFile(filepath.Join(patternDir, names[len(names)-1]))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

func newSnapshot(days int, patterns []Pattern) *Snapshot {
	return &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		LogDays:   days,
		Patterns:  patterns,
	}
}
