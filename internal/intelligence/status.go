package intelligence

import (
	"regexp"
	"strings"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/pkg/types"
)

// signalSaturation is the signal count at which status confidence reaches 1.
const signalSaturation = 5.0

// StatusSignal is the outcome of status extraction for one chunk.
type StatusSignal struct {
	Status            types.Status
	Confidence        float64 // min(1, signals/5)
	CompletionPercent float64 // completed boxes / total boxes, 0 when no boxes
}

// statusMatchers is the compiled signal vocabulary: the configured checkbox
// and marker patterns plus whole-word matchers for the status keywords.
type statusMatchers struct {
	completed  []*regexp.Regexp
	inProgress []*regexp.Regexp
	pending    []*regexp.Regexp

	completedKw  []*regexp.Regexp
	inProgressKw []*regexp.Regexp
	pendingKw    []*regexp.Regexp
}

func compileStatusMatchers(cfg *config.IntelligenceConfig) *statusMatchers {
	return &statusMatchers{
		completed:    compilePatterns(cfg.StatusPatterns.Completed),
		inProgress:   compilePatterns(cfg.StatusPatterns.InProgress),
		pending:      compilePatterns(cfg.StatusPatterns.Pending),
		completedKw:  compileKeywords(cfg.StatusKeywords.Completed),
		inProgressKw: compileKeywords(cfg.StatusKeywords.InProgress),
		pendingKw:    compileKeywords(cfg.StatusKeywords.Pending),
	}
}

// compilePatterns drops patterns that fail to compile; configuration
// validation rejects them before this point.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// compileKeywords builds whole-word matchers so a keyword cannot fire inside
// a longer word, e.g. DONE inside ABANDONED.
func compileKeywords(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(strings.ToUpper(kw))+`\b`))
	}
	return out
}

func countMatches(text string, res []*regexp.Regexp) int {
	n := 0
	for _, re := range res {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}

// ExtractStatus classifies chunk content by lifecycle state. Classification
// takes the strict majority of completed, in-progress, and pending signals;
// ties resolve completed > in-progress > pending. Content with no signals is
// StatusUnknown with zero confidence.
func ExtractStatus(content string, cfg *config.IntelligenceConfig) StatusSignal {
	return extractStatus(content, compileStatusMatchers(cfg))
}

func extractStatus(content string, m *statusMatchers) StatusSignal {
	completedBoxes := countMatches(content, m.completed)
	pendingBoxes := countMatches(content, m.pending)
	inProgressBoxes := countMatches(content, m.inProgress)

	upper := strings.ToUpper(content)
	completed := completedBoxes + countMatches(upper, m.completedKw)
	inProgress := inProgressBoxes + countMatches(upper, m.inProgressKw)
	pending := pendingBoxes + countMatches(upper, m.pendingKw)

	total := completed + inProgress + pending
	if total == 0 {
		return StatusSignal{Status: types.StatusUnknown}
	}

	sig := StatusSignal{
		Confidence: min(1.0, float64(total)/signalSaturation),
	}

	switch {
	case completed >= inProgress && completed >= pending:
		sig.Status = types.StatusCompleted
	case inProgress >= pending:
		sig.Status = types.StatusInProgress
	default:
		sig.Status = types.StatusPending
	}

	if boxes := completedBoxes + pendingBoxes + inProgressBoxes; boxes > 0 {
		sig.CompletionPercent = float64(completedBoxes) / float64(boxes)
	}
	return sig
}
