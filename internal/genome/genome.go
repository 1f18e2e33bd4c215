package genome

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"anima/internal/docs"
	"anima/internal/state"
)

// Deviation kinds reported by Diff.
const (
	Missing = "missing"
	Mutated = "mutated"
)

// Deviation is one detected divergence from the accepted baseline.
type Deviation struct {
	Name string
	Kind string // Missing or Mutated
}

// Verifier protects the identity-critical documents from unnoticed
// corruption or external tampering. Hashes are for equality checking,
// not security.
type Verifier struct {
	Docs  *docs.Store
	State *state.Store
}

// New creates a Verifier over the given stores.
func New(d *docs.Store, st *state.Store) *Verifier {
	return &Verifier{Docs: d, State: st}
}

// Hash computes the content hash map for the genome documents. Missing
// documents are simply absent from the map.
func (v *Verifier) Hash() (map[string]string, error) {
	hashes := map[string]string{}
	for _, name := range docs.GenomeDocuments {
		if !v.Docs.Exists(name) {
			continue
		}
		content, err := v.Docs.Read(name)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", name, err)
		}
		hashes[name] = HashContent(content)
	}
	return hashes, nil
}

// HashContent returns the hex sha256 of a document's content.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Verify compares current hashes against the stored baseline. On first
// run with no baseline, the current hashes become the baseline
// (trust-on-first-use) and no deviations are reported. Documents absent
// from the baseline are never flagged, so new documents stay quiet.
func (v *Verifier) Verify() ([]Deviation, error) {
	current, err := v.Hash()
	if err != nil {
		return nil, err
	}

	baseline := v.State.Get().GenomeBaseline
	if len(baseline) == 0 {
		if err := v.State.Mutate(func(st *state.State) {
			st.GenomeBaseline = current
		}); err != nil {
			return nil, fmt.Errorf("adopt baseline: %w", err)
		}
		return nil, nil
	}

	return Diff(current, baseline), nil
}

// Diff reports, for every document in baseline, whether it is missing
// from current or its hash differs.
func Diff(current, baseline map[string]string) []Deviation {
	var devs []Deviation
	for name, want := range baseline {
		got, ok := current[name]
		switch {
		case !ok:
			devs = append(devs, Deviation{Name: name, Kind: Missing})
		case got != want:
			devs = append(devs, Deviation{Name: name, Kind: Mutated})
		}
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].Name < devs[j].Name })
	return devs
}

// AcceptBaseline recomputes hashes, stores them as the new baseline, and
// snapshots each genome document into the flat backup directory. One
// backup per document, no history.
func (v *Verifier) AcceptBaseline() error {
	current, err := v.Hash()
	if err != nil {
		return err
	}

	dir, err := v.Docs.BackupDir()
	if err != nil {
		return err
	}
	for name := range current {
		content, err := v.Docs.Read(name)
		if err != nil {
			return fmt.Errorf("backup read %s: %w", name, err)
		}
		if err := writeBackup(filepath.Join(dir, name), content); err != nil {
			return fmt.Errorf("backup %s: %w", name, err)
		}
	}

	return v.State.Mutate(func(st *state.State) {
		st.GenomeBaseline = current
	})
}

// Restore rewrites every deviating document from its backup copy.
// Documents without a backup are skipped silently. Returns the names
// actually restored.
func (v *Verifier) Restore() ([]string, error) {
	devs, err := v.Verify()
	if err != nil {
		return nil, err
	}

	dir, err := v.Docs.BackupDir()
	if err != nil {
		return nil, err
	}

	var restored []string
	for _, d := range devs {
		backup, err := os.ReadFile(filepath.Join(dir, d.Name))
		if err != nil {
			continue
		}
		if err := v.Docs.Write(d.Name, string(backup)); err != nil {
			return restored, fmt.Errorf("restore %s: %w", d.Name, err)
		}
		restored = append(restored, d.Name)
	}
	return restored, nil
}

func writeBackup(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bak-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
