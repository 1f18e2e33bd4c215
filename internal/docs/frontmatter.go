package docs

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the parsed leading `---` block of a document.
//
// Only a deliberately small subset of document markup is supported:
// string scalars and flat lists of string scalars. Nested maps, anchors,
// and multi-line scalars are rejected. Unknown keys are preserved
// opaquely: Raw holds the original block verbatim so a rewrite never
// loses anything the parser didn't understand.
type FrontMatter struct {
	Raw    string              // original block including delimiters, "" when absent
	Values map[string][]string // scalar values are single-element slices
}

// Recognized keys.
const (
	KeyBootPriority = "boot-priority"
	KeyFolded       = "folded"
)

// maxExtraPriority caps boot-priority on non-core documents so they can
// never outrank identity sections.
const maxExtraPriority = 6

// Parse splits a document into its front-matter and body. A document
// without a leading `---` line has empty front-matter and an unchanged
// body.
func Parse(content string) (FrontMatter, string) {
	fm := FrontMatter{Values: map[string][]string{}}

	if !strings.HasPrefix(content, "---\n") && content != "---" {
		return fm, content
	}

	rest := strings.TrimPrefix(content, "---\n")
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, content
	}
	block := rest[:end]
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")

	fm.Raw = "---\n" + block + "\n---\n"

	var node map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(block), &node); err != nil {
		// Malformed block: keep it opaque, treat everything as body.
		return fm, body
	}

	for key, n := range node {
		vals, err := subsetValues(&n)
		if err != nil {
			continue // unsupported shape, preserved only in Raw
		}
		fm.Values[key] = vals
	}

	return fm, body
}

// subsetValues accepts only scalars and flat sequences of scalars.
func subsetValues(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		var out []string
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("nested value in list")
			}
			out = append(out, item.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported node kind %d", n.Kind)
	}
}

// Scalar returns the first value for a key, "" when absent.
func (fm FrontMatter) Scalar(key string) string {
	if vals, ok := fm.Values[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// BootPriority returns the declared boot priority clamped to
// [0, maxExtraPriority], and whether one was declared at all.
func (fm FrontMatter) BootPriority() (int, bool) {
	raw := fm.Scalar(KeyBootPriority)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n < 0 {
		n = 0
	}
	if n > maxExtraPriority {
		n = maxExtraPriority
	}
	return n, true
}

// Folded reports whether the document is marked for head/tail display.
func (fm FrontMatter) Folded() bool {
	return fm.Scalar(KeyFolded) == "true"
}
