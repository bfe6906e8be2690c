package intelligence

import (
	"strings"

	"github.com/dstone/memdex/internal/config"
)

// Bounds for the composed priority boost.
const (
	priorityFloor = 1.0
	priorityCeil  = 2.5
)

// ExtractPriority composes a priority multiplier from three sources:
// configured priority keywords found in the content (multiplicative, each
// counted once), the hierarchy layer inferred from the document path, and a
// single domain keyword multiplier (first matching domain wins). The result
// is clamped to [1.0, 2.5].
func ExtractPriority(content, docPath string, cfg *config.IntelligenceConfig, domains map[string]config.DomainRule) float64 {
	boost := 1.0

	upper := strings.ToUpper(content)
	for kw, mult := range cfg.PriorityKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			boost *= mult
		}
	}

	boost *= hierarchyMultiplier(docPath, &cfg.Hierarchy)

	if mult, ok := domainKeywordMultiplier(upper, domains); ok {
		boost *= mult
	}

	return clamp(boost, priorityFloor, priorityCeil)
}

// hierarchyMultiplier matches path keywords from the most to the least
// privileged layer; the first layer with a match decides.
func hierarchyMultiplier(docPath string, h *config.HierarchyConfig) float64 {
	lower := strings.ToLower(docPath)
	for _, layer := range []config.HierarchyLayer{h.Strategic, h.Tactical, h.Operational} {
		for _, kw := range layer.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				if layer.Multiplier > 0 {
					return layer.Multiplier
				}
				return 1.0
			}
		}
	}
	return 1.0
}

// domainKeywordMultiplier applies at most one domain's multiplier. Domains
// are checked in lexicographic name order so the outcome is deterministic.
func domainKeywordMultiplier(upperContent string, domains map[string]config.DomainRule) (float64, bool) {
	for _, name := range sortedKeys(domains) {
		for _, kw := range domains[name].Keywords {
			if strings.Contains(upperContent, strings.ToUpper(kw)) {
				return domains[name].Multiplier, true
			}
		}
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
