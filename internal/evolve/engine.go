package evolve

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"anima/internal/config"
	"anima/internal/docs"
	"anima/internal/state"
)

// Lifecycle phases. Tracked for diagnostics only; transitions are driven
// entirely by external calls to Analyze and Trigger.
const (
	PhaseCooldown  = "cooldown"
	PhaseAnalyzing = "analyzing"
	PhaseEvolving  = "evolving"
)

// routes maps each pattern type to the documents it mutates.
var routes = map[string][]string{
	"preference":    {docs.Profile, docs.Reflections},
	"sentiment":     {docs.Profile, docs.Reflections},
	"temporal":      {docs.Profile},
	"workflow":      {docs.Workflows},
	"repetition":    {docs.Tools, docs.Memory},
	"error_pattern": {docs.Reflections},
}

// milestoneThresholds trigger a long-horizon note at these totals.
var milestoneThresholds = []int{1, 5, 10}

// Engine mines recent daily logs for behavioral patterns and, gated by
// confidence and cooldown, folds the strong ones back into the
// persistent documents.
type Engine struct {
	Docs  *docs.Store
	State *state.Store
	Cfg   config.EvolutionConfig

	Phase string
}

// New creates an evolution Engine.
func New(d *docs.Store, st *state.Store, cfg config.EvolutionConfig) *Engine {
	return &Engine{Docs: d, State: st, Cfg: cfg, Phase: PhaseCooldown}
}

// Analyze scans the most recent daily logs (at most 7 days) with the
// fixed detector battery and persists the resulting pattern list as a
// timestamped snapshot. The snapshot is the sole input to Trigger.
func (e *Engine) Analyze() (*Snapshot, error) {
	e.Phase = PhaseAnalyzing
	defer func() { e.Phase = PhaseCooldown }()

	days := e.Cfg.LogWindowDays
	if days <= 0 || days > 7 {
		days = 7
	}
	logs, err := e.Docs.RecentLogs(days)
	if err != nil {
		return nil, fmt.Errorf("read recent logs: %w", err)
	}
	combined := strings.Join(logs, "\n")

	var patterns []Pattern
	for _, detect := range detectors {
		if p := detect(combined); p != nil {
			patterns = append(patterns, *p)
		}
	}

	snap := newSnapshot(days, patterns)
	if _, err := writeSnapshot(e.Docs.Root, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// TriggerResult reports what an evolution attempt did.
type TriggerResult struct {
	Evolved bool     `json:"evolved"`
	Reason  string   `json:"reason,omitempty"`
	Applied []string `json:"applied,omitempty"` // document names touched
	Total   int      `json:"total_evolutions"`
}

// Trigger attempts one evolution pass over the latest snapshot. It
// refuses inside the cooldown window and when too few strong patterns
// exist; each strong-pattern group is merged and upserted into its
// routed documents. A failing write on one document never aborts the
// others.
func (e *Engine) Trigger() (*TriggerResult, error) {
	st := e.State.Get()
	res := &TriggerResult{Total: st.Analytics.Evolutions}

	cooldown := time.Duration(e.Cfg.CooldownHours) * time.Hour
	if last := st.Heartbeat.LastDistillation; last > 0 {
		elapsed := time.Since(time.UnixMilli(last))
		if elapsed < cooldown {
			remaining := cooldown - elapsed
			res.Reason = fmt.Sprintf("cooldown: %.1f hours remaining", remaining.Hours())
			return res, nil
		}
	}

	snap, err := latestSnapshot(e.Docs.Root)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		res.Reason = "no pattern snapshot, run analyze first"
		return res, nil
	}

	var strong []Pattern
	for _, p := range snap.Patterns {
		if p.Confidence >= e.Cfg.MinConfidence {
			strong = append(strong, p)
		}
	}
	if len(strong) < e.Cfg.MinPatterns {
		res.Reason = fmt.Sprintf("only %d strong patterns (need %d)", len(strong), e.Cfg.MinPatterns)
		return res, nil
	}

	e.Phase = PhaseEvolving
	defer func() { e.Phase = PhaseCooldown }()

	byType := map[string][]Pattern{}
	var order []string
	for _, p := range strong {
		if _, seen := byType[p.Type]; !seen {
			order = append(order, p.Type)
		}
		byType[p.Type] = append(byType[p.Type], p)
	}

	touched := map[string]bool{}
	for _, typ := range order {
		merged := merge(byType[typ])
		for _, target := range routes[typ] {
			if err := e.applyToDocument(target, merged); err != nil {
				log.Printf("evolve: apply %s to %s: %v", typ, target, err)
				continue
			}
			touched[target] = true
		}
	}

	if err := e.State.Mutate(func(s *state.State) {
		s.Analytics.Evolutions++
		s.Heartbeat.LastDistillation = time.Now().UnixMilli()
		s.Heartbeat.NeedsDistillation = false
	}); err != nil {
		return nil, fmt.Errorf("record evolution: %w", err)
	}

	res.Evolved = true
	res.Total = e.State.Get().Analytics.Evolutions
	for name := range touched {
		res.Applied = append(res.Applied, name)
	}
	sort.Strings(res.Applied)

	e.checkMilestones(res.Total)
	return res, nil
}

// merge combines same-type patterns. When every description shares
// case-folded terms longer than 3 characters, the combined description
// names them; otherwise the first description is annotated with the
// sibling count. Either way the merge count and average confidence ride
// along, so near-duplicate phrasings collapse into one line.
func merge(patterns []Pattern) Pattern {
	if len(patterns) == 1 {
		return patterns[0]
	}

	avg := 0.0
	for _, p := range patterns {
		avg += p.Confidence
	}
	avg /= float64(len(patterns))

	common := wordSet(patterns[0].Description)
	for _, p := range patterns[1:] {
		next := wordSet(p.Description)
		for w := range common {
			if !next[w] {
				delete(common, w)
			}
		}
	}
	var terms []string
	for w := range common {
		if len(w) > 3 {
			terms = append(terms, w)
		}
	}
	sort.Strings(terms)

	out := patterns[0]
	out.MergeCount = len(patterns)
	out.AvgConfidence = avg
	out.Confidence = avg
	if len(terms) > 0 {
		out.Description = fmt.Sprintf("recurring theme: %s", strings.Join(terms, ", "))
	} else {
		out.Description = fmt.Sprintf("%s (and %d similar patterns)", patterns[0].Description, len(patterns)-1)
	}
	return out
}

var confidenceRe = regexp.MustCompile(`\(confidence: (\d+)%`)

// applyToDocument upserts a pattern line into a document. A previously
// auto-written line whose description is Jaccard-similar above the bar
// is overwritten only when the new confidence is strictly higher;
// without a similar line the pattern is appended. Every written line
// embeds its confidence, detection count, and date, so the document
// history is auditable by inspection.
func (e *Engine) applyToDocument(name string, p Pattern) error {
	count := p.MergeCount
	if count == 0 {
		count = 1
	}
	newLine := fmt.Sprintf("- %s (confidence: %d%%, seen %dx, %s)",
		p.Description, int(p.Confidence*100), count, time.Now().Format("2006-01-02"))

	content, err := e.Docs.Read(name)
	if err != nil {
		return err
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		m := confidenceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := line
		if idx := strings.Index(line, " (confidence:"); idx >= 0 {
			desc = line[:idx]
		}
		desc = strings.TrimPrefix(strings.TrimSpace(desc), "- ")

		if jaccard(desc, p.Description) <= e.Cfg.SimilarityBar {
			continue
		}

		oldConf, _ := strconv.Atoi(m[1])
		if int(p.Confidence*100) > oldConf {
			lines[i] = newLine
			return e.Docs.Write(name, strings.Join(lines, "\n"))
		}
		return nil // same or weaker evidence, leave the existing line
	}

	return e.Docs.Append(name, newLine+"\n")
}

// checkMilestones appends a long-horizon note at fixed totals, deduped
// by substring like every other writer.
func (e *Engine) checkMilestones(total int) {
	hit := false
	for _, t := range milestoneThresholds {
		if total == t {
			hit = true
			break
		}
	}
	if !hit {
		return
	}

	marker := fmt.Sprintf("Evolution milestone: %d", total)
	content, err := e.Docs.Read(docs.Milestones)
	if err != nil {
		log.Printf("evolve: milestone read: %v", err)
		return
	}
	if strings.Contains(content, marker) {
		return
	}
	line := fmt.Sprintf("- %s evolutions completed (%s)\n", marker, time.Now().Format("2006-01-02"))
	if err := e.Docs.Append(docs.Milestones, line); err != nil {
		log.Printf("evolve: milestone write: %v", err)
	}
}

// jaccard computes word-set similarity of two lowercased strings.
func jaccard(a, b string) float64 {
	sa, sb := wordSet(a), wordSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	shared := 0
	for w := range sa {
		if sb[w] {
			shared++
		}
	}
	union := len(sa) + len(sb) - shared
	return float64(shared) / float64(union)
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		set[w] = true
	}
	return set
}
