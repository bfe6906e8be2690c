package intelligence

import (
	"sort"
	"time"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/pkg/types"
)

// Boost bounds for the individual factors. The combined product is clamped
// separately to [1, BoostCap].
const (
	factorFloor = 0.5
	factorCeil  = 1.5
)

// Processor derives ranking signals from chunk content at query time. It is
// stateless; nothing it computes is ever persisted, so heuristic changes take
// effect on the next query without reindexing.
type Processor struct {
	cfg      *config.IntelligenceConfig
	domains  map[string]config.DomainRule
	matchers *statusMatchers
}

// NewProcessor creates a Processor over the given intelligence configuration
// and domain rules. Status patterns are compiled once here.
func NewProcessor(cfg *config.IntelligenceConfig, domains map[string]config.DomainRule) *Processor {
	return &Processor{cfg: cfg, domains: domains, matchers: compileStatusMatchers(cfg)}
}

// Analyze extracts the full signal set for one chunk, evaluated at now.
func (p *Processor) Analyze(chunk *types.Chunk, now time.Time) types.IntelligenceMetadata {
	status := extractStatus(chunk.Content, p.matchers)
	temporal := ExtractTemporal(chunk.Content, p.cfg, now)
	priority := ExtractPriority(chunk.Content, chunk.DocumentPath, p.cfg, p.domains)

	return types.IntelligenceMetadata{
		Status:            status.Status,
		StatusConfidence:  status.Confidence,
		CompletionPercent: status.CompletionPercent,
		TemporalClass:     temporal.Class,
		TemporalRelevance: temporal.Relevance,
		Urgency:           temporal.Urgency,
		PriorityBoost:     priority,
	}
}

// Boost combines the extracted signals into a single multiplier.
//
// Two-stage clamping: the status and temporal factors are each clamped to
// [0.5, 1.5] and the priority factor to [1.0, 2.5] before multiplication;
// the product is then clamped to [1.0, cap]. The final multiplier can
// therefore never demote a result below its pre-boost score.
func (p *Processor) Boost(meta types.IntelligenceMetadata) float64 {
	status := clamp(p.statusBoost(meta.Status), factorFloor, factorCeil)
	temporal := clamp(1.0+(meta.TemporalRelevance-neutralRelevance)+0.3*meta.Urgency, factorFloor, factorCeil)
	priority := clamp(meta.PriorityBoost, priorityFloor, priorityCeil)

	return clamp(status*temporal*priority, 1.0, p.cfg.BoostCap)
}

func (p *Processor) statusBoost(status types.Status) float64 {
	if v, ok := p.cfg.StatusBoosts[string(status)]; ok {
		return v
	}
	return 1.0
}

func sortedKeys(m map[string]config.DomainRule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
