package intelligence

import (
	"regexp"
	"strings"
	"time"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/pkg/types"
)

var isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

// Date windows for classifying ISO dates relative to now.
const (
	currentWindow  = 14 * 24 * time.Hour
	upcomingWindow = 90 * 24 * time.Hour
	recentWindow   = 90 * 24 * time.Hour
	deadlineWindow = 7 * 24 * time.Hour
)

// neutralRelevance applies when content carries no temporal markers at all.
const neutralRelevance = 0.5

// TemporalSignal is the outcome of temporal extraction for one chunk.
type TemporalSignal struct {
	Class     types.TemporalClass
	Relevance float64 // decay value, neutral 0.5 without markers
	Urgency   float64 // [0, 1]
}

// ExtractTemporal classifies content freshness from ISO dates and configured
// phase markers, evaluated against now. When several markers disagree the
// freshest class wins. Urgency accumulates from urgency keywords and from
// dates within the deadline window.
func ExtractTemporal(content string, cfg *config.IntelligenceConfig, now time.Time) TemporalSignal {
	best := types.TemporalNeutral

	for _, m := range isoDateRe.FindAllStringSubmatch(content, -1) {
		d, err := time.Parse("2006-01-02", m[0])
		if err != nil {
			continue
		}
		best = fresher(best, classifyDate(d, now))
	}

	lower := strings.ToLower(content)
	for marker, class := range cfg.PhaseMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			best = fresher(best, types.TemporalClass(class))
		}
	}

	sig := TemporalSignal{Class: best, Relevance: neutralRelevance}
	if best != types.TemporalNeutral {
		if v, ok := cfg.TemporalDecay[string(best)]; ok {
			sig.Relevance = v
		}
	}

	sig.Urgency = urgencyScore(content, cfg, now)
	return sig
}

func classifyDate(d, now time.Time) types.TemporalClass {
	switch {
	case !d.Before(now) && d.Sub(now) <= currentWindow:
		return types.TemporalCurrent
	case d.After(now) && d.Sub(now) <= upcomingWindow:
		return types.TemporalUpcoming
	case d.Before(now) && now.Sub(d) <= recentWindow:
		return types.TemporalRecent
	default:
		return types.TemporalHistorical
	}
}

// freshness orders temporal classes from stale to fresh.
var freshness = map[types.TemporalClass]int{
	types.TemporalNeutral:    0,
	types.TemporalHistorical: 1,
	types.TemporalRecent:     2,
	types.TemporalUpcoming:   3,
	types.TemporalCurrent:    4,
}

func fresher(a, b types.TemporalClass) types.TemporalClass {
	if freshness[b] > freshness[a] {
		return b
	}
	return a
}

// urgencyScore sums 0.3 per urgency keyword occurrence and 0.4 per date
// within the deadline window, capped at 1.
func urgencyScore(content string, cfg *config.IntelligenceConfig, now time.Time) float64 {
	score := 0.0
	upper := strings.ToUpper(content)
	for _, kw := range cfg.UrgencyKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			score += 0.3
		}
	}
	for _, m := range isoDateRe.FindAllStringSubmatch(content, -1) {
		d, err := time.Parse("2006-01-02", m[0])
		if err != nil {
			continue
		}
		if !d.Before(now) && d.Sub(now) <= deadlineWindow {
			score += 0.4
		}
	}
	return min(1.0, score)
}
