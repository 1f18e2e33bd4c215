package compiler

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func est() Estimator {
	return NewRatioEstimator(4.0)
}

func TestCompileUnderBudget(t *testing.T) {
	sections := []Section{
		{Name: "persona", Tag: "persona", Priority: 10, Content: "## Persona\nshort"},
		{Name: "memory", Tag: "memory", Priority: 7, Content: "## Memory\nalso short"},
	}

	res := Compile(1000, sections, nil, est(), 0)

	if !strings.Contains(res.Text, "## Persona") || !strings.Contains(res.Text, "## Memory") {
		t.Errorf("expected both sections in output, got:\n%s", res.Text)
	}
	if len(res.Dropped) != 0 || len(res.Skeletonized) != 0 {
		t.Errorf("nothing should be degraded under a roomy budget: %+v", res)
	}
}

func TestCompileBudgetInvariant(t *testing.T) {
	big := strings.Repeat("lorem ipsum dolor sit amet\n", 200)
	sections := []Section{
		{Name: "a", Tag: "a", Priority: 10, Content: big},
		{Name: "b", Tag: "b", Priority: 8, Content: big},
		{Name: "c", Tag: "c", Priority: 5, Content: big},
		{Name: "d", Tag: "d", Priority: 2, Content: "## D\ntiny"},
	}

	for _, budget := range []int{50, 200, 500, 2000} {
		res := Compile(budget, sections, nil, est(), 0)
		if res.EstTokens > budget {
			t.Errorf("budget %d: estimated %d tokens, over budget", budget, res.EstTokens)
		}
	}
}

func TestCompilePriorityMonotonicity(t *testing.T) {
	content := strings.Repeat("x", 2000)
	sections := []Section{
		{Name: "low", Tag: "low", Priority: 2, Content: content},
		{Name: "high", Tag: "high", Priority: 9, Content: content},
	}

	// Budget fits one section fully at most.
	res := Compile(600, sections, nil, est(), 0)

	if !strings.Contains(res.Text, "x") {
		t.Fatalf("expected some content, got:\n%s", res.Text)
	}
	// The high-priority section must never be dropped while the low one
	// is fully retained.
	for _, name := range res.Dropped {
		if name == "high" {
			lowFull := strings.Contains(res.Text, content)
			if lowFull {
				t.Error("high-priority section dropped while low-priority kept in full")
			}
		}
	}
	// High priority comes first in the output.
	if idx := strings.Index(res.Text, "x"); idx < 0 {
		t.Error("no section content at all")
	}
}

func TestCompileAttentionBreaksTies(t *testing.T) {
	weights := map[string]float64{"b": 0.5}
	sections := []Section{
		{Name: "a", Tag: "a", Priority: 5, Content: "AAAA section content here"},
		{Name: "b", Tag: "b", Priority: 5, Content: "BBBB section content here"},
	}

	res := Compile(1000, sections, weights, est(), 0)

	if strings.Index(res.Text, "BBBB") > strings.Index(res.Text, "AAAA") {
		t.Errorf("boosted tag should order first on a priority tie:\n%s", res.Text)
	}
}

func TestCompileAttentionNeverOverturnsPriority(t *testing.T) {
	weights := map[string]float64{"low": 1.0} // max possible boost
	sections := []Section{
		{Name: "low", Tag: "low", Priority: 5, Content: "LOW content"},
		{Name: "high", Tag: "high", Priority: 7, Content: "HIGH content"},
	}

	res := Compile(1000, sections, weights, est(), 0)

	if strings.Index(res.Text, "HIGH") > strings.Index(res.Text, "LOW") {
		t.Errorf("a full attention weight must not beat a 2-tier priority gap:\n%s", res.Text)
	}
}

func TestCompileZeroBudget(t *testing.T) {
	sections := []Section{
		{Name: "a", Tag: "a", Priority: 5, Content: "content"},
	}

	for _, budget := range []int{0, -10} {
		res := Compile(budget, sections, nil, est(), 0)
		if res.Text == "" {
			t.Errorf("budget %d: expected a note, got empty output", budget)
		}
		if len(res.Dropped) != 1 {
			t.Errorf("budget %d: expected all sections dropped, got %v", budget, res.Dropped)
		}
	}
}

func TestSkeletonizePreservesFrontMatter(t *testing.T) {
	fm := "---\nboot-priority: 4\nfolded: false\n---\n"
	body := strings.Repeat("filler line for the body of the document\n", 250)
	content := fm + "# Title\n## Subsection\n" + body
	if len(content) < 10000 {
		t.Fatalf("test content too small: %d", len(content))
	}

	out := Skeletonize(content, 500)

	if len(out) > 500 {
		t.Fatalf("skeleton length %d exceeds 500", len(out))
	}
	if !strings.Contains(out, fm) {
		t.Error("front-matter block not preserved verbatim")
	}
	if !strings.Contains(out, "chars omitted") {
		t.Error("missing omission marker")
	}
}

func TestSkeletonizeKeepsHeadings(t *testing.T) {
	content := "# One\nbody\n## Two\nbody\n### Three\n" + strings.Repeat("tail content\n", 100)

	out := Skeletonize(content, 300)

	if len(out) > 300 {
		t.Fatalf("skeleton length %d exceeds 300", len(out))
	}
	if !strings.Contains(out, "# One") {
		t.Error("top heading not preserved")
	}
}

func TestSkeletonizeShortContentUntouched(t *testing.T) {
	content := "short"
	if got := Skeletonize(content, 100); got != content {
		t.Errorf("Skeletonize = %q, want unchanged", got)
	}
}

func TestCompileOversizedSectionLeavesRoom(t *testing.T) {
	// One section larger than the whole budget must not starve the rest.
	huge := strings.Repeat("y", 100000)
	sections := []Section{
		{Name: "huge", Tag: "huge", Priority: 9, Content: huge},
		{Name: "small", Tag: "small", Priority: 5, Content: "## Small\nimportant bit"},
	}

	res := Compile(500, sections, nil, est(), 100)

	if res.EstTokens > 500 {
		t.Fatalf("over budget: %d", res.EstTokens)
	}
	if !strings.Contains(res.Text, "important bit") {
		t.Errorf("small section starved by oversized one:\n%s", res.Text)
	}
}

func TestSkeletonizeKeepsRunesIntact(t *testing.T) {
	multi := strings.Repeat("日本語のテキスト。", 200)

	for _, max := range []int{50, 101, 250, 1000} {
		out := Skeletonize(multi, max)
		if len(out) > max {
			t.Errorf("max %d: got %d bytes", max, len(out))
		}
		if !utf8.ValidString(out) {
			t.Errorf("max %d: output splits a rune: %q", max, out)
		}
	}

	// Front-matter wider than the slice falls back to a raw head cut,
	// which must also land on a rune boundary.
	fm := "---\ntitle: " + strings.Repeat("русский", 50) + "\n---\nbody"
	out := Skeletonize(fm, 100)
	if len(out) > 100 || !utf8.ValidString(out) {
		t.Errorf("front-matter overflow cut invalid: %d bytes, valid=%v", len(out), utf8.ValidString(out))
	}
}
