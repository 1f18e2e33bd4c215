package compiler

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Section is an ephemeral, derived unit of compilation. Sections are
// recomputed every boot and never persisted.
type Section struct {
	Name     string
	Tag      string // attention tag; usually same as Name
	Priority int    // 0-10 static priority
	Content  string
}

// Result is the output of one compile pass.
type Result struct {
	Text         string
	EstTokens    int
	Skeletonized []string
	Truncated    []string
	Dropped      []string
}

// DefaultSkeletonThreshold is the minimum character slice worth
// skeletonizing into; below it a one-line placeholder is used instead.
const DefaultSkeletonThreshold = 200

// Compile packs sections into one text blob whose estimated token cost
// stays within budget. Effective rank is priority plus the section
// tag's attention weight; weights live in [0,1], so they break ties
// but never overturn a priority gap of a full tier.
//
// The compiler is a pure function of its inputs; it reads the weight
// map and nothing else.
func Compile(budget int, sections []Section, weights map[string]float64, est Estimator, skeletonThreshold int) Result {
	var res Result
	if skeletonThreshold <= 0 {
		skeletonThreshold = DefaultSkeletonThreshold
	}

	if budget <= 0 {
		res.Text = "(no context budget: all sections withheld)\n"
		for _, s := range sections {
			res.Dropped = append(res.Dropped, s.Name)
		}
		return res
	}

	ranked := make([]Section, len(sections))
	copy(ranked, sections)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rank(ranked[i], weights) > rank(ranked[j], weights)
	})

	var b strings.Builder
	used := 0

	for i, s := range ranked {
		if strings.TrimSpace(s.Content) == "" {
			continue
		}

		block := s.Content
		if !strings.HasSuffix(block, "\n") {
			block += "\n"
		}
		if b.Len() > 0 {
			block = "\n" + block
		}

		cost := est.Estimate(block)
		if used+cost <= budget {
			b.WriteString(block)
			used += cost
			continue
		}

		// Overflow. Size the remaining slice: when more sections are
		// still pending, an oversized section only gets half of what is
		// left so it cannot starve everything below it.
		remainChars := est.BudgetChars(budget - used)
		slice := remainChars
		if i < len(ranked)-1 && slice > 1 {
			slice /= 2
		}

		if slice >= skeletonThreshold {
			skel := Skeletonize(s.Content, slice)
			if b.Len() > 0 {
				skel = "\n" + skel
			}
			if !strings.HasSuffix(skel, "\n") {
				skel += "\n"
			}
			skelCost := est.Estimate(skel)
			if used+skelCost <= budget {
				b.WriteString(skel)
				used += skelCost
				res.Skeletonized = append(res.Skeletonized, s.Name)
				continue
			}
		}

		placeholder := fmt.Sprintf("[%s omitted: over budget]\n", s.Name)
		if phCost := est.Estimate(placeholder); used+phCost <= budget {
			b.WriteString(placeholder)
			used += phCost
			res.Truncated = append(res.Truncated, s.Name)
			continue
		}

		res.Dropped = append(res.Dropped, s.Name)
	}

	res.Text = b.String()
	res.EstTokens = used
	return res
}

func rank(s Section, weights map[string]float64) float64 {
	return float64(s.Priority) + weights[s.Tag]
}

// Skeletonize produces a shape-preserving truncation of content within
// max characters: any leading front-matter block verbatim, then heading
// lines (within 40% of what remains), then the tail of the content with
// an explicit omission marker. Preserving shape beats raw
// recency-biased truncation: the agent still sees which sections exist.
func Skeletonize(content string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(content) <= max {
		return content
	}

	fm, body := splitFrontMatter(content)
	if len(fm) > max {
		// Degenerate: even the front-matter overflows.
		return truncateRunes(content, max)
	}

	remain := max - len(fm)

	// Heading lines, bounded to 40% of the remaining slice.
	headingBudget := remain * 40 / 100
	var headings strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		if headings.Len()+len(line)+1 > headingBudget {
			break
		}
		headings.WriteString(line)
		headings.WriteByte('\n')
	}
	remain -= headings.Len()

	// Tail fills what is left, minus room for the marker. The omitted
	// count is sized pessimistically so the marker never overflows.
	marker := fmt.Sprintf("\n(%d chars omitted)\n", len(content))
	tailLen := remain - len(marker)
	if tailLen < 0 {
		tailLen = 0
	}
	tail := body
	omitted := len(content) - len(fm) - headings.Len() - tailLen
	if omitted < 0 {
		omitted = 0
	}
	if len(tail) > tailLen {
		start := len(tail) - tailLen
		for start < len(tail) && !utf8.RuneStart(tail[start]) {
			start++
		}
		tail = tail[start:]
	}
	marker = fmt.Sprintf("\n(%d chars omitted)\n", omitted)

	out := fm + headings.String() + tail + marker
	if len(out) > max {
		out = truncateRunes(out, max)
	}
	return out
}

// truncateRunes cuts s to at most max bytes without splitting a
// multi-byte rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// splitFrontMatter returns the leading `---` block (delimiters included)
// and the rest of the content. No block means fm == "".
func splitFrontMatter(content string) (fm, body string) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content
	}
	cut := len("---\n") + end + len("\n---")
	fm = content[:cut]
	body = content[cut:]
	if strings.HasPrefix(body, "\n") {
		body = body[1:]
		fm += "\n"
	}
	return fm, body
}
