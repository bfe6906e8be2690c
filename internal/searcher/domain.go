package searcher

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/pkg/types"
)

// matchDomain finds the first configured domain rule matching the chunk,
// checking domains in name order so overlapping rules resolve the same way
// on every query. Returns the domain name and its multiplier, or a neutral
// multiplier when nothing matches.
func (s *Searcher) matchDomain(ch *types.Chunk) (string, float64) {
	names := make([]string, 0, len(s.cfg.Domains))
	for name := range s.cfg.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if domainMatches(s.cfg.Domains[name], ch) {
			return name, s.cfg.Domains[name].Multiplier
		}
	}
	return "", 1.0
}

// domainMatches reports whether a chunk belongs to a domain, either by a
// keyword occurring in its content or by its document path matching one of
// the rule's glob patterns.
func domainMatches(rule config.DomainRule, ch *types.Chunk) bool {
	content := strings.ToLower(ch.Content)
	for _, kw := range rule.Keywords {
		if strings.Contains(content, strings.ToLower(kw)) {
			return true
		}
	}
	for _, pat := range rule.Paths {
		if ok, _ := doublestar.Match(pat, ch.DocumentPath); ok {
			return true
		}
	}
	return false
}
