package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"anima/internal/docs"
)

// Skill is one discovered capability descriptor. Execution of skill
// scripts is out of scope here; the registry only surfaces what exists
// so the compiled context can mention it.
type Skill struct {
	Name        string
	Description string
	Priority    int // from boot-priority front-matter, capped like extra docs
	Dir         string
}

// cacheWindow bounds how stale the discovery cache may get.
const cacheWindow = 30 * time.Second

// Registry discovers skills under <root>/skills/*/SKILL.md. Discovery
// results are cached per window rather than rescanned on every boot.
type Registry struct {
	root string

	mu      sync.Mutex
	cached  []Skill
	scanned time.Time
}

// New creates a Registry over the skills directory under root.
func New(root string) *Registry {
	return &Registry{root: filepath.Join(root, "skills")}
}

// List returns the current skill set, rescanning when the cache window
// has passed.
func (r *Registry) List() []Skill {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.scanned) < cacheWindow && r.cached != nil {
		return r.cached
	}

	r.cached = r.scan()
	r.scanned = time.Now()
	return r.cached
}

func (r *Registry) scan() []Skill {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return []Skill{}
	}

	var out []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.root, e.Name(), "SKILL.md"))
		if err != nil {
			continue
		}
		fm, body := docs.Parse(string(data))

		s := Skill{
			Name: e.Name(),
			Dir:  filepath.Join(r.root, e.Name()),
		}
		if n := fm.Scalar("name"); n != "" {
			s.Name = n
		}
		if d := fm.Scalar("description"); d != "" {
			s.Description = d
		} else {
			s.Description = firstLine(body)
		}
		if p, ok := fm.BootPriority(); ok {
			s.Priority = p
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Section renders the skills listing for context injection, "" when no
// skills exist.
func (r *Registry) Section() string {
	skills := r.List()
	if len(skills) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Skills\n")
	for _, s := range skills {
		if s.Description != "" {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", s.Name)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}
