package engine

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"anima/internal/compiler"
	"anima/internal/docs"
	"anima/internal/genome"
	"anima/internal/state"
)

// Boot modes.
const (
	ModeFull = "full"
	ModeLite = "lite" // half budget
)

// maxFooterErrors bounds the non-fatal issue list in the output footer.
const maxFooterErrors = 3

// Boot assembles the bounded context document: it decays attention,
// verifies the genome, gathers every document and live signal into
// prioritized sections, compiles them under the token budget, persists
// the updated state, and returns the text with a diagnostic footer.
//
// Boot never fails outright: every non-fatal problem is accumulated into
// the footer and some text is always returned.
func (e *Engine) Boot(mode, task string) (string, error) {
	start := time.Now()
	var errs []string
	note := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	st := e.State.Get()
	compiler.Decay(st.AttentionWeights, e.Cfg.Compiler.AttentionDecay)

	devs, err := e.Genome.Verify()
	if err != nil {
		note("integrity check: %v", err)
	}

	sections := e.gatherSections(devs, task, note)

	budget := e.Cfg.Compiler.BudgetTokens
	if mode == ModeLite {
		budget /= 2
	}

	res := compiler.Compile(budget, sections, st.AttentionWeights, e.Est, e.Cfg.Compiler.SkeletonThreshold)

	// Change delta: which sections' content moved since the last boot.
	newHashes := map[string]string{}
	for _, s := range sections {
		newHashes[s.Name] = genome.HashContent(s.Content)
	}
	var changed []string
	for name, h := range newHashes {
		if prev, ok := st.PreviousHashes[name]; ok && prev != h {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)

	footer := buildFooter(res, budget, changed, errs)

	elapsed := time.Since(start).Milliseconds()
	if err := e.State.Mutate(func(s *state.State) {
		s.Analytics.Boots++
		s.Analytics.BootLatencyMs += elapsed
		s.Analytics.HourHistogram[time.Now().Hour()]++
		if s.Analytics.InstalledAt == 0 {
			s.Analytics.InstalledAt = time.Now().UnixMilli()
		}
		s.PreviousHashes = newHashes
	}); err != nil {
		log.Printf("boot: persist state: %v", err)
	}

	return res.Text + footer, nil
}

// gatherSections builds the candidate section list for one boot.
// Priorities are fixed tiers; attention weights only break ties inside
// a tier.
func (e *Engine) gatherSections(devs []genome.Deviation, task string, note func(string, ...any)) []compiler.Section {
	var sections []compiler.Section

	addDoc := func(name, tag string, priority int) {
		content, err := e.Docs.Read(name)
		if err != nil {
			note("read %s: %v", name, err)
			return
		}
		if content == "" {
			// Only the must-exist set earns a diagnostic; an absent
			// daily log is normal early in the day.
			if docs.IsCore(name) {
				note("%s missing", name)
			}
			return
		}
		fm, _ := docs.Parse(content)
		if fm.Folded() {
			content = foldDisplay(content)
		}
		sections = append(sections, compiler.Section{
			Name:     name,
			Tag:      tag,
			Priority: priority,
			Content:  content,
		})
	}

	addDoc(docs.Persona, "persona", 10)

	if len(devs) > 0 {
		var b strings.Builder
		b.WriteString("## Integrity Warning\n")
		for _, d := range devs {
			fmt.Fprintf(&b, "- %s: %s since last accepted baseline\n", d.Name, d.Kind)
		}
		b.WriteString("Inspect before trusting recalled identity; `anima genome restore` reverts to the baseline copies.\n")
		sections = append(sections, compiler.Section{
			Name:     "integrity",
			Tag:      "integrity",
			Priority: 9,
			Content:  b.String(),
		})
	}

	addDoc(docs.Profile, "profile", 8)
	addDoc(docs.Memory, "memory", 7)

	sections = append(sections, compiler.Section{
		Name:     "vitals",
		Tag:      "vitals",
		Priority: 6,
		Content:  e.vitals(),
	})

	if task != "" {
		if related := e.relatedEntities(task); related != "" {
			sections = append(sections, compiler.Section{
				Name:     "entities",
				Tag:      "entities",
				Priority: 5,
				Content:  related,
			})
		}
	}

	addDoc(docs.Tools, "tools", 5)
	addDoc(docs.LogName(time.Now()), "log", 4)

	if skillSection := e.Skills.Section(); skillSection != "" {
		sections = append(sections, compiler.Section{
			Name:     "skills",
			Tag:      "skills",
			Priority: 3,
			Content:  skillSection,
		})
	}

	extras, err := e.Docs.ExtraDocuments()
	if err != nil {
		note("list extra docs: %v", err)
	}
	for _, name := range extras {
		content, err := e.Docs.Read(name)
		if err != nil {
			note("read %s: %v", name, err)
			continue
		}
		fm, _ := docs.Parse(content)
		priority, ok := fm.BootPriority()
		if !ok {
			continue // extra docs need an explicit priority to ride along
		}
		if fm.Folded() {
			content = foldDisplay(content)
		}
		sections = append(sections, compiler.Section{
			Name:     name,
			Tag:      strings.TrimSuffix(name, ".md"),
			Priority: priority,
			Content:  content,
		})
	}

	return sections
}

// vitals renders the live-computed stats section.
func (e *Engine) vitals() string {
	st := e.State.Get()

	var b strings.Builder
	b.WriteString("## Vitals\n")
	fmt.Fprintf(&b, "- boots: %d\n", st.Analytics.Boots)

	if st.Analytics.InstalledAt > 0 {
		age := time.Since(time.UnixMilli(st.Analytics.InstalledAt))
		fmt.Fprintf(&b, "- age: %d days\n", int(age.Hours()/24))
	}
	if st.Analytics.Boots > 0 {
		fmt.Fprintf(&b, "- avg boot: %dms\n", st.Analytics.BootLatencyMs/int64(st.Analytics.Boots))
	}

	peak, peakCount := 0, 0
	for h, n := range st.Analytics.HourHistogram {
		if n > peakCount {
			peak, peakCount = h, n
		}
	}
	if peakCount > 0 {
		fmt.Fprintf(&b, "- peak hour: %02d:00\n", peak)
	}

	energy := 0.0
	for _, v := range st.Analytics.Energy {
		energy += v
	}
	if energy > 0 {
		fmt.Fprintf(&b, "- energy spent: %.1f\n", energy)
	}

	fmt.Fprintf(&b, "- entities: %d\n", e.Entities.Count())

	if st.Heartbeat.NeedsDistillation {
		b.WriteString("- daily log is due for distillation\n")
	}
	if st.Heartbeat.NeedsReflex {
		fmt.Fprintf(&b, "- reflex candidate: %s\n", st.Heartbeat.ReflexTool)
	}

	return b.String()
}

// relatedEntities surfaces entities mentioned in the task text.
func (e *Engine) relatedEntities(task string) string {
	hits := e.Entities.SurfaceRelevant(task)
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Related Entities\n")
	for _, ent := range hits {
		fmt.Fprintf(&b, "- %s (%s, %d mentions, closeness %.2f)", ent.Name, ent.Type, ent.Mentions, ent.Closeness)
		if len(ent.Relations) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(ent.Relations, "; "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// foldDisplay renders a folded document as head plus tail.
func foldDisplay(content string) string {
	lines := strings.Split(content, "\n")
	const head, tail = 5, 10
	if len(lines) <= head+tail {
		return content
	}
	omitted := len(lines) - head - tail
	out := append([]string{}, lines[:head]...)
	out = append(out, fmt.Sprintf("(%d lines folded)", omitted))
	out = append(out, lines[len(lines)-tail:]...)
	return strings.Join(out, "\n")
}

// buildFooter renders the diagnostic footer appended to every boot.
func buildFooter(res compiler.Result, budget int, changed, errs []string) string {
	var b strings.Builder
	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "context: ~%d/%d tokens\n", res.EstTokens, budget)

	if len(changed) > 0 {
		fmt.Fprintf(&b, "changed since last boot: %s\n", strings.Join(changed, ", "))
	}
	if len(res.Skeletonized) > 0 {
		fmt.Fprintf(&b, "skeletonized: %s\n", strings.Join(res.Skeletonized, ", "))
	}
	if len(res.Truncated) > 0 {
		fmt.Fprintf(&b, "truncated: %s\n", strings.Join(res.Truncated, ", "))
	}
	if len(res.Dropped) > 0 {
		fmt.Fprintf(&b, "dropped: %s\n", strings.Join(res.Dropped, ", "))
	}

	if len(errs) > 0 {
		if len(errs) > maxFooterErrors {
			errs = errs[:maxFooterErrors]
		}
		fmt.Fprintf(&b, "notes: %s\n", strings.Join(errs, "; "))
	}
	return b.String()
}
