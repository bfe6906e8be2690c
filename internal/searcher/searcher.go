package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/internal/intelligence"
	"github.com/dstone/memdex/internal/lexical"
	"github.com/dstone/memdex/internal/vectorindex"
	"github.com/dstone/memdex/pkg/types"
)

// Embedder is the slice of the embedding layer a query needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Request describes one hybrid query.
type Request struct {
	Query string
	TopK  int

	// Domain restricts results to chunks matching the named domain rule.
	Domain string
	// Status restricts results to chunks classified with this status.
	Status string
	// CurrentOnly keeps only temporally fresh chunks.
	CurrentOnly bool
	// UrgentOnly keeps only chunks with urgency signals.
	UrgentOnly bool

	// BypassCache forces a fresh retrieval even when a cached response
	// exists.
	BypassCache bool
}

// Response is a ranked result set with retrieval metadata.
type Response struct {
	Results []types.SearchResult
	Total   int

	// Degraded names the retrieval side that failed ("semantic" or
	// "lexical") when the query was answered from the other side alone.
	Degraded string

	Duration time.Duration
	CacheHit bool
}

type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher answers hybrid queries over the two retrieval indexes, applying
// domain and intelligence boosting on top of score fusion.
type Searcher struct {
	cfg     *config.Config
	embed   Embedder
	lexical *lexical.Index
	vector  vectorindex.Index
	intel   *intelligence.Processor
	logger  *slog.Logger

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.Mutex

	// now is swappable for deterministic temporal scoring in tests.
	now func() time.Time
}

// New builds a Searcher over already-opened index components.
func New(cfg *config.Config, embed Embedder, lex *lexical.Index, vec vectorindex.Index, logger *slog.Logger) (*Searcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[[32]byte, *cacheEntry](cfg.Search.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &Searcher{
		cfg:     cfg,
		embed:   embed,
		lexical: lex,
		vector:  vec,
		intel:   intelligence.NewProcessor(&cfg.Intelligence, cfg.Domains),
		logger:  logger,
		cache:   cache,
		now:     time.Now,
	}, nil
}

// Search runs one hybrid query end to end.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := s.validate(&req); err != nil {
		return nil, err
	}

	key := requestKey(req)
	if !req.BypassCache {
		if resp := s.cachedResponse(key); resp != nil {
			resp.CacheHit = true
			resp.Duration = time.Since(start)
			return resp, nil
		}
	}

	fetchLimit := req.TopK * s.cfg.Search.OverfetchFactor

	semHits, lexHits, degraded, err := s.retrieve(ctx, req.Query, fetchLimit)
	if err != nil {
		return nil, err
	}

	results := s.fuse(semHits, lexHits)
	results = s.applyBoosts(results)
	results = s.applyFilters(req, results)
	sortResults(results)

	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	resp := &Response{
		Results:  results,
		Total:    len(results),
		Degraded: degraded,
		Duration: time.Since(start),
	}

	if !req.BypassCache {
		s.storeResponse(key, resp)
	}
	return resp, nil
}

// Purge drops all cached responses. Called after every indexing run so
// queries never serve results from a superseded index.
func (s *Searcher) Purge() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

func (s *Searcher) validate(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return &types.QueryError{Reason: "query must not be empty"}
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.Search.DefaultTopK
	}
	if req.TopK > s.cfg.Search.MaxTopK {
		req.TopK = s.cfg.Search.MaxTopK
	}
	if req.Domain != "" {
		if _, ok := s.cfg.Domains[req.Domain]; !ok {
			return &types.QueryError{Reason: fmt.Sprintf("unknown domain %q", req.Domain)}
		}
	}
	if req.Status != "" {
		if _, err := types.ParseStatus(req.Status); err != nil {
			return &types.QueryError{Reason: "invalid status filter", Err: err}
		}
	}
	return nil
}

type sideResult struct {
	semHits []vectorindex.Hit
	lexHits []lexical.Hit
	err     error
}

// retrieve runs both index lookups concurrently. One side may fail; the
// query then degrades to the surviving side. Both failing is fatal.
func (s *Searcher) retrieve(ctx context.Context, query string, limit int) ([]vectorindex.Hit, []lexical.Hit, string, error) {
	semChan := make(chan sideResult, 1)
	lexChan := make(chan sideResult, 1)

	go func() {
		var res sideResult
		vecs, err := s.embed.Embed(ctx, []string{query})
		if err != nil {
			res.err = fmt.Errorf("embedding query: %w", err)
		} else {
			res.semHits, res.err = s.vector.Search(ctx, vecs[0], limit)
		}
		semChan <- res
	}()
	go func() {
		var res sideResult
		res.lexHits, res.err = s.lexical.Search(ctx, query, limit)
		lexChan <- res
	}()

	var sem, lex sideResult
	for done := 0; done < 2; done++ {
		select {
		case sem = <-semChan:
		case lex = <-lexChan:
		case <-ctx.Done():
			return nil, nil, "", ctx.Err()
		}
	}

	switch {
	case sem.err != nil && lex.err != nil:
		return nil, nil, "", &types.QueryError{
			Reason: "both retrieval sides failed",
			Err:    fmt.Errorf("semantic: %v; lexical: %w", sem.err, lex.err),
		}
	case sem.err != nil:
		s.logger.Warn("semantic retrieval failed, serving lexical only", "error", sem.err)
		return nil, lex.lexHits, "semantic", nil
	case lex.err != nil:
		s.logger.Warn("lexical retrieval failed, serving semantic only", "error", lex.err)
		return sem.semHits, nil, "lexical", nil
	}
	return sem.semHits, lex.lexHits, "", nil
}

// fuse merges the two hit lists by chunk ID into weighted combined scores
// and drops everything under the relevance threshold. The threshold applies
// before boosting so boosts amplify relevance rather than manufacture it.
func (s *Searcher) fuse(semHits []vectorindex.Hit, lexHits []lexical.Hit) []types.SearchResult {
	alpha := s.cfg.Search.Alpha
	merged := make(map[string]*types.SearchResult)

	for _, h := range semHits {
		merged[h.Chunk.ID] = &types.SearchResult{
			Chunk:         h.Chunk,
			SemanticScore: h.Similarity,
		}
	}
	for _, h := range lexHits {
		if r, ok := merged[h.Chunk.ID]; ok {
			r.LexicalScore = h.Score
		} else {
			merged[h.Chunk.ID] = &types.SearchResult{
				Chunk:        h.Chunk,
				LexicalScore: h.Score,
			}
		}
	}

	results := make([]types.SearchResult, 0, len(merged))
	for _, r := range merged {
		r.CombinedScore = alpha*r.SemanticScore + (1-alpha)*r.LexicalScore
		if r.CombinedScore < s.cfg.Search.RelevanceThreshold {
			continue
		}
		results = append(results, *r)
	}
	return results
}

func (s *Searcher) applyBoosts(results []types.SearchResult) []types.SearchResult {
	now := s.now()
	for i := range results {
		r := &results[i]
		_, r.DomainBoost = s.matchDomain(&r.Chunk)
		r.Intelligence = s.intel.Analyze(&r.Chunk, now)
		r.IntelligenceBoost = s.intel.Boost(r.Intelligence)
		r.FinalScore = r.CombinedScore * r.DomainBoost * r.IntelligenceBoost
	}
	return results
}

func (s *Searcher) applyFilters(req Request, results []types.SearchResult) []types.SearchResult {
	var status types.Status
	if req.Status != "" {
		status, _ = types.ParseStatus(req.Status)
	}

	kept := results[:0]
	for _, r := range results {
		if req.Domain != "" && !domainMatches(s.cfg.Domains[req.Domain], &r.Chunk) {
			continue
		}
		if req.Status != "" && r.Intelligence.Status != status {
			continue
		}
		if req.CurrentOnly && r.Intelligence.TemporalRelevance < currentRelevanceFloor {
			continue
		}
		if req.UrgentOnly && r.Intelligence.Urgency < urgencyFloor {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Filter floors for the current-only and urgent-only hard filters.
const (
	currentRelevanceFloor = 0.8
	urgencyFloor          = 0.5
)

// sortResults orders by boosted score, then pre-boost score, then chunk ID
// so equal-scoring results rank deterministically.
func sortResults(results []types.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}

func (s *Searcher) cachedResponse(key [32]byte) *Response {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		s.cache.Remove(key)
		return nil
	}
	return copyResponse(entry.response)
}

func (s *Searcher) storeResponse(key [32]byte, resp *Response) {
	s.cacheMu.Lock()
	s.cache.Add(key, &cacheEntry{
		response:  copyResponse(resp),
		expiresAt: time.Now().Add(s.cfg.Search.CacheTTL),
	})
	s.cacheMu.Unlock()
}

// copyResponse deep-copies a response so cached entries are isolated from
// caller mutation.
func copyResponse(src *Response) *Response {
	dst := &Response{
		Total:    src.Total,
		Degraded: src.Degraded,
		Duration: src.Duration,
		Results:  make([]types.SearchResult, len(src.Results)),
	}
	copy(dst.Results, src.Results)
	for i := range dst.Results {
		sp := src.Results[i].Chunk.SectionPath
		dst.Results[i].Chunk.SectionPath = append([]string(nil), sp...)
	}
	return dst
}

// requestKey builds the cache key from every request field that changes the
// result set.
func requestKey(req Request) [32]byte {
	var b strings.Builder
	b.WriteString(req.Query)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.TopK))
	b.WriteByte('|')
	b.WriteString(req.Domain)
	b.WriteByte('|')
	b.WriteString(req.Status)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(req.CurrentOnly))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(req.UrgentOnly))
	return sha256.Sum256([]byte(b.String()))
}
