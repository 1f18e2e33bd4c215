package docs

import (
	"os"
	"strings"
	"testing"
	"time"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestBootstrapSeedsCoreDocuments(t *testing.T) {
	s := newStore(t)
	if err := s.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	for _, name := range CoreDocuments {
		if !s.Exists(name) {
			t.Errorf("%s missing after bootstrap", name)
		}
		content, err := s.Read(name)
		if err != nil {
			t.Fatalf("Read %s: %v", name, err)
		}
		if content == "" {
			t.Errorf("%s seeded empty", name)
		}
	}
}

func TestBootstrapPreservesExisting(t *testing.T) {
	s := newStore(t)
	custom := "# Persona\n\nI am not the template.\n"
	if err := s.Write(Persona, custom); err != nil {
		t.Fatal(err)
	}

	if err := s.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	got, err := s.Read(Persona)
	if err != nil {
		t.Fatal(err)
	}
	if got != custom {
		t.Errorf("bootstrap overwrote an existing document")
	}
}

func TestReadMissingIsEmpty(t *testing.T) {
	s := newStore(t)
	got, err := s.Read("never-written.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != "" {
		t.Errorf("missing document read as %q", got)
	}
}

func TestReadRestoresTruncatedCoreDoc(t *testing.T) {
	s := newStore(t)
	if err := s.Bootstrap(); err != nil {
		t.Fatal(err)
	}
	// Simulate a truncated write.
	if err := os.WriteFile(s.Path(Memory), []byte("# M"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read(Memory)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != Template(Memory) {
		t.Errorf("truncated core doc not restored from template: %q", got)
	}
}

func TestWriteKeepsBackup(t *testing.T) {
	s := newStore(t)
	if err := s.Write("notes.md", "first\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("notes.md", "second\n"); err != nil {
		t.Fatal(err)
	}

	bak, err := os.ReadFile(s.Path("notes.md") + ".bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(bak) != "first\n" {
		t.Errorf("backup = %q, want previous generation", bak)
	}
}

func TestAppendCreatesAndExtends(t *testing.T) {
	s := newStore(t)
	if err := s.Append("scratch.md", "line one\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append("scratch.md", "line two\n"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read("scratch.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != "line one\nline two\n" {
		t.Errorf("content = %q", got)
	}
}

func TestDeleteRefusesCore(t *testing.T) {
	s := newStore(t)
	if err := s.Bootstrap(); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(Persona); err == nil {
		t.Error("deleting a core document should error")
	}
	if !s.Exists(Persona) {
		t.Error("core document removed")
	}

	if err := s.Write("extra.md", "x\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("extra.md"); err != nil {
		t.Errorf("Delete extra: %v", err)
	}
	if s.Exists("extra.md") {
		t.Error("extra document still present")
	}
}

func TestExtraDocuments(t *testing.T) {
	s := newStore(t)
	if err := s.Bootstrap(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("zeta.md", "z\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("alpha.md", "a\n"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("ignored.txt", "t\n"); err != nil {
		t.Fatal(err)
	}

	names, err := s.ExtraDocuments()
	if err != nil {
		t.Fatalf("ExtraDocuments: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha.md" || names[1] != "zeta.md" {
		t.Errorf("names = %v, want sorted alpha.md, zeta.md", names)
	}
}

func TestAppendLogAndRecentLogs(t *testing.T) {
	s := newStore(t)
	if err := s.AppendLog("tool:grep"); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	if err := s.AppendLog("prompt:review"); err != nil {
		t.Fatal(err)
	}

	if s.LogSize() == 0 {
		t.Error("LogSize = 0 after appends")
	}

	logs, err := s.RecentLogs(7)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("got %d log days, want 1", len(logs))
	}
	if !strings.Contains(logs[0], "tool:grep") || !strings.Contains(logs[0], "prompt:review") {
		t.Errorf("log content = %q", logs[0])
	}
	for _, line := range strings.Split(strings.TrimSpace(logs[0]), "\n") {
		if !strings.HasPrefix(line, "- ") {
			t.Errorf("log line missing bullet: %q", line)
		}
	}
}

func TestLogName(t *testing.T) {
	day := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	if got := LogName(day); got != "logs/2026-03-09.md" {
		t.Errorf("LogName = %q", got)
	}
}

func TestIsCore(t *testing.T) {
	if !IsCore(Persona) {
		t.Error("persona.md should be core")
	}
	if IsCore("random.md") {
		t.Error("random.md should not be core")
	}
}
