package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entity is a node in the mention/relation graph.
type Entity struct {
	Name      string            `json:"name"`
	Type      Type              `json:"type"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Relations []string          `json:"relations,omitempty"`
	Mentions  int               `json:"mentions"`
	FirstSeen string            `json:"first_seen"` // YYYY-MM-DD
	LastSeen  string            `json:"last_seen"`
	Closeness float64           `json:"closeness"`
	Sentiment string            `json:"sentiment,omitempty"`
}

// Type classifies an entity.
type Type string

const (
	Person  Type = "person"
	Project Type = "project"
	Tool    Type = "tool"
	Concept Type = "concept"
	Other   Type = "other"
)

// maxSurfaced bounds how many related entities get injected into a
// compiled context.
const maxSurfaced = 5

// Store is the entity graph, persisted as one JSON document and
// rewritten wholesale on every mutation. Entity counts are expected to
// stay small, so this never becomes a bottleneck.
type Store struct {
	path     string
	entities map[string]*Entity // keyed by lowercase name
}

// Open loads (or initializes) the graph at <root>/entities.json.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create entity dir: %w", err)
	}
	s := &Store{
		path:     filepath.Join(root, "entities.json"),
		entities: map[string]*Entity{},
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read entities: %w", err)
	}

	var list []*Entity
	if err := json.Unmarshal(data, &list); err != nil {
		// Malformed store: start empty rather than refusing to boot.
		return s, nil
	}
	for _, e := range list {
		s.entities[strings.ToLower(e.Name)] = e
	}
	return s, nil
}

// Add records a mention of an entity. Matching is case-insensitive by
// name. Re-adding merges: new attribute values win, new relations are
// appended without duplicates, the mention count increments, and
// closeness approaches 1 exponentially.
func (s *Store) Add(name string, typ Type, attrs map[string]string, relations []string) (*Entity, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("entity name required")
	}
	today := time.Now().Format("2006-01-02")

	e, ok := s.entities[key]
	if !ok {
		e = &Entity{
			Name:      strings.TrimSpace(name),
			Type:      typ,
			Attrs:     map[string]string{},
			FirstSeen: today,
		}
		s.entities[key] = e
	}

	if typ != "" {
		e.Type = typ
	}
	for k, v := range attrs {
		if e.Attrs == nil {
			e.Attrs = map[string]string{}
		}
		e.Attrs[k] = v
	}
	for _, r := range relations {
		if !contains(e.Relations, r) {
			e.Relations = append(e.Relations, r)
		}
	}

	e.Mentions++
	e.LastSeen = today
	e.Closeness = round2(math.Min(1, e.Closeness*0.95+0.1))

	return e, s.save()
}

// Remove deletes an entity by name.
func (s *Store) Remove(name string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := s.entities[key]; !ok {
		return fmt.Errorf("no entity named %s", name)
	}
	delete(s.entities, key)
	return s.save()
}

// Link adds a relation string to an existing entity.
func (s *Store) Link(name, relation string) error {
	e, ok := s.entities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("no entity named %s", name)
	}
	if !contains(e.Relations, relation) {
		e.Relations = append(e.Relations, relation)
	}
	return s.save()
}

// SetSentiment tags an entity with a sentiment label.
func (s *Store) SetSentiment(name, sentiment string) error {
	e, ok := s.entities[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("no entity named %s", name)
	}
	e.Sentiment = sentiment
	return s.save()
}

// Query returns an entity by name, nil if absent.
func (s *Store) Query(name string) *Entity {
	return s.entities[strings.ToLower(strings.TrimSpace(name))]
}

// List returns all entities, optionally filtered by type, ordered by
// mention count descending then name.
func (s *Store) List(filterType Type) []*Entity {
	var out []*Entity
	for _, e := range s.entities {
		if filterType != "" && e.Type != filterType {
			continue
		}
		out = append(out, e)
	}
	sortEntities(out)
	return out
}

// Count returns the number of entities in the graph.
func (s *Store) Count() int {
	return len(s.entities)
}

// SurfaceRelevant returns entities whose names appear (case-insensitive
// substring) in the given text, at most maxSurfaced, ordered by mention
// count descending.
func (s *Store) SurfaceRelevant(text string) []*Entity {
	lower := strings.ToLower(text)
	var hits []*Entity
	for key, e := range s.entities {
		if strings.Contains(lower, key) {
			hits = append(hits, e)
		}
	}
	sortEntities(hits)
	if len(hits) > maxSurfaced {
		hits = hits[:maxSurfaced]
	}
	return hits
}

func sortEntities(list []*Entity) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Mentions != list[j].Mentions {
			return list[i].Mentions > list[j].Mentions
		}
		return list[i].Name < list[j].Name
	})
}

// save rewrites the whole store atomically.
func (s *Store) save() error {
	list := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entities: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".entities-*")
	if err != nil {
		return fmt.Errorf("create temp entities: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp entities: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp entities: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp entities: %w", err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
