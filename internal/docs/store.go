package docs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Core document names. These always exist after Bootstrap.
const (
	Persona     = "persona.md"
	Profile     = "profile.md"
	Memory      = "memory.md"
	Tools       = "tools.md"
	Workflows   = "workflows.md"
	Reflections = "reflections.md"
	Milestones  = "milestones.md"
)

// CoreDocuments is the fixed set of documents Bootstrap guarantees.
var CoreDocuments = []string{
	Persona, Profile, Memory, Tools, Workflows, Reflections, Milestones,
}

// GenomeDocuments are the identity-critical documents protected by the
// integrity verifier.
var GenomeDocuments = []string{Persona, Profile, Memory}

// minHealthyBytes guards against truncated core documents: anything
// shorter than this when its template is longer gets re-seeded.
const minHealthyBytes = 16

// Store provides read/write access to the markdown document set under a
// single root directory.
type Store struct {
	Root string
}

// New creates a Store rooted at dir. The directory is created if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create docs dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &Store{Root: dir}, nil
}

// Bootstrap seeds any missing core document from its embedded template.
// Existing documents are left untouched.
func (s *Store) Bootstrap() error {
	for _, name := range CoreDocuments {
		path := s.path(name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writeAtomic(path, Template(name)); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
	}
	return nil
}

// Read returns the content of a document. Missing documents read as
// empty content, not an error. A core document whose content is
// suspiciously short (likely a truncated write) is restored from its
// template first.
func (s *Store) Read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	if isCore(name) && len(data) < minHealthyBytes && len(Template(name)) >= minHealthyBytes {
		log.Printf("docs: %s looks corrupt (%d bytes), restoring template", name, len(data))
		tmpl := Template(name)
		if err := writeAtomic(s.path(name), tmpl); err != nil {
			return string(data), nil // keep what we have
		}
		return tmpl, nil
	}

	return string(data), nil
}

// Exists reports whether a document is present on disk.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Write replaces a document's content. The previous content, if any, is
// kept as a single-generation .bak copy. The write itself goes through a
// temp file + rename so readers never see a partial document. A failed
// backup copy is logged, never fatal.
func (s *Store) Write(name, content string) error {
	path := s.path(name)

	if prev, err := os.ReadFile(path); err == nil {
		if err := writeAtomic(path+".bak", string(prev)); err != nil {
			log.Printf("docs: backup %s: %v", name, err)
		}
	}

	if err := writeAtomic(path, content); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Append adds content to the end of a document, creating it if missing.
func (s *Store) Append(name, content string) error {
	existing, err := s.Read(name)
	if err != nil {
		return err
	}
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}
	return s.Write(name, existing+content)
}

// Delete removes a non-core document. Core documents cannot be deleted.
func (s *Store) Delete(name string) error {
	if isCore(name) {
		return fmt.Errorf("refusing to delete core document %s", name)
	}
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// ExtraDocuments lists non-core *.md documents in the root. These are
// only eligible for boot inclusion when their front-matter carries a
// boot-priority key.
func (s *Store) ExtraDocuments() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		if isCore(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// LogName returns the daily log document name for the given day.
func LogName(day time.Time) string {
	return filepath.Join("logs", day.Format("2006-01-02")+".md")
}

// AppendLog appends a timestamped line to today's daily log.
func (s *Store) AppendLog(line string) error {
	name := LogName(time.Now())
	stamped := fmt.Sprintf("- %s %s\n", time.Now().Format("15:04"), line)
	return s.Append(name, stamped)
}

// LogSize returns the byte size of today's daily log, 0 if absent.
func (s *Store) LogSize() int64 {
	info, err := os.Stat(s.path(LogName(time.Now())))
	if err != nil {
		return 0
	}
	return info.Size()
}

// RecentLogs returns the contents of the most recent daily logs, newest
// last, up to the given number of days back from today. Missing days are
// skipped.
func (s *Store) RecentLogs(days int) ([]string, error) {
	if days <= 0 {
		return nil, nil
	}
	var contents []string
	now := time.Now()
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		data, err := os.ReadFile(s.path(LogName(day)))
		if err != nil {
			continue
		}
		contents = append(contents, string(data))
	}
	return contents, nil
}

// BackupDir returns the flat genome backup directory, creating it.
func (s *Store) BackupDir() (string, error) {
	dir := filepath.Join(s.Root, "genome")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create genome dir: %w", err)
	}
	return dir, nil
}

// Path returns the absolute path of a document.
func (s *Store) Path(name string) string {
	return s.path(name)
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Root, filepath.FromSlash(name))
}

// IsCore reports whether name is one of the fixed core documents.
func IsCore(name string) bool {
	return isCore(name)
}

func isCore(name string) bool {
	for _, c := range CoreDocuments {
		if c == name {
			return true
		}
	}
	return false
}

// writeAtomic writes content to path via a temp file and rename.
func writeAtomic(path, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
