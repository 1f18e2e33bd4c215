package evolve

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Each detector is an independent pure function over the combined log
// text, returning nil or exactly one Pattern. New detectors slot into
// the detectors list without touching merge/apply logic.
type detector func(text string) *Pattern

var detectors = []detector{
	detectRepetition,
	detectToolSkew,
	detectTemporal,
	detectWorkflow,
	detectSentiment,
	detectErrors,
}

var (
	toolTokenRe = regexp.MustCompile(`tool:([a-zA-Z0-9_.-]+)`)
	timestampRe = regexp.MustCompile(`\b([01]?[0-9]|2[0-3]):[0-5][0-9]\b`)
	errorLineRe = regexp.MustCompile(`(?i)\b(error|failed|failure|exception|crash)`)
	questionRe  = regexp.MustCompile(`(?i)(\?|\bhow do i\b|\bhow can i\b|\bwhat is\b|\bwhy does\b)`)
)

// detectRepetition flags recurring question-like phrasing.
func detectRepetition(text string) *Pattern {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if questionRe.MatchString(line) {
			count++
		}
	}
	if count < 5 {
		return nil
	}
	return &Pattern{
		Type:        "repetition",
		Confidence:  clamp(float64(count)/12.0, 0.9),
		Description: fmt.Sprintf("question-like phrasing recurred %d times in recent logs", count),
		Action:      "capture the recurring topic as a tool note or concept",
	}
}

// detectToolSkew flags heavy reliance on a single tool.
func detectToolSkew(text string) *Pattern {
	counts := map[string]int{}
	for _, m := range toolTokenRe.FindAllStringSubmatch(text, -1) {
		counts[m[1]]++
	}

	top, topCount := "", 0
	for name, n := range counts {
		if n > topCount || (n == topCount && name < top) {
			top, topCount = name, n
		}
	}
	if topCount < 5 {
		return nil
	}
	return &Pattern{
		Type:        "preference",
		Confidence:  clamp(0.4+float64(topCount)*0.05, 0.9),
		Description: fmt.Sprintf("heavy reliance on tool %s (%d calls)", top, topCount),
		Action:      "note preferred tooling in the profile",
	}
}

// detectTemporal flags a dominant activity hour.
func detectTemporal(text string) *Pattern {
	var hist [24]int
	total := 0
	for _, m := range timestampRe.FindAllStringSubmatch(text, -1) {
		h, err := strconv.Atoi(m[1])
		if err != nil || h < 0 || h > 23 {
			continue
		}
		hist[h]++
		total++
	}
	if total < 10 {
		return nil
	}

	peak, peakCount := 0, 0
	for h, n := range hist {
		if n > peakCount {
			peak, peakCount = h, n
		}
	}
	share := float64(peakCount) / float64(total)
	if share < 0.4 {
		return nil
	}
	return &Pattern{
		Type:        "temporal",
		Confidence:  clamp(share, 0.9),
		Description: fmt.Sprintf("activity clusters around %02d:00 (%d%% of timestamps)", peak, int(share*100)),
		Action:      "record the preferred working hours in the profile",
	}
}

// detectWorkflow flags repeated tool-call subsequences of length 2-3.
func detectWorkflow(text string) *Pattern {
	var seq []string
	for _, m := range toolTokenRe.FindAllStringSubmatch(text, -1) {
		seq = append(seq, m[1])
	}
	if len(seq) < 4 {
		return nil
	}

	counts := map[string]int{}
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(seq); i++ {
			counts[strings.Join(seq[i:i+n], " > ")]++
		}
	}

	best, bestCount := "", 0
	for sub, n := range counts {
		// Prefer longer subsequences on equal counts.
		if n > bestCount || (n == bestCount && len(sub) > len(best)) {
			best, bestCount = sub, n
		}
	}
	if bestCount < 2 {
		return nil
	}
	return &Pattern{
		Type:        "workflow",
		Confidence:  clamp(0.3+0.2*float64(bestCount), 0.85),
		Description: fmt.Sprintf("tool sequence %s repeated %d times", best, bestCount),
		Action:      "name this sequence in the workflow notes",
	}
}

var (
	positiveWords = []string{"thanks", "great", "perfect", "awesome", "love", "excellent", "nice"}
	negativeWords = []string{"annoying", "frustrat", "hate", "terrible", "awful", "broken", "ugh"}
)

// detectSentiment flags a strong tone skew in the logs.
func detectSentiment(text string) *Pattern {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}

	total := pos + neg
	if total < 5 {
		return nil
	}

	polarity, count := "positive", pos
	if neg > pos {
		polarity, count = "negative", neg
	}
	ratio := float64(count) / float64(total)
	if ratio < 0.7 {
		return nil
	}
	return &Pattern{
		Type:        "sentiment",
		Confidence:  clamp(ratio, 0.9),
		Description: fmt.Sprintf("predominantly %s tone in recent logs (%d of %d signals)", polarity, count, total),
		Action:      "reflect the prevailing mood in the profile",
	}
}

// detectErrors flags error-keyword frequency. Nine matching lines yields
// confidence 0.70.
func detectErrors(text string) *Pattern {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if errorLineRe.MatchString(line) {
			count++
		}
	}
	if count < 5 {
		return nil
	}
	return &Pattern{
		Type:        "error_pattern",
		Confidence:  clamp(0.25+0.05*float64(count), 0.85),
		Description: fmt.Sprintf("error-related lines appeared %d times in recent logs", count),
		Action:      "write a reflection about the recurring failures",
	}
}

func clamp(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
