package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/dstone/memdex/pkg/types"
)

const collectionName = "chunks"

// upsertConcurrency bounds chromem's internal worker count during batch adds.
const upsertConcurrency = 4

// errNoEmbedFunc guards against chromem ever being asked to embed on its
// own; all vectors are computed upstream and passed in explicitly.
var errNoEmbedFunc = errors.New("vector index requires precomputed embeddings")

// ChromemIndex is a persistent Index backed by chromem-go. All writes go
// through the indexer's single-writer lock; reads are safe concurrently.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// Open creates or loads the persistent vector store under indexDir.
func Open(indexDir string) (*ChromemIndex, error) {
	db, err := chromem.NewPersistentDB(filepath.Join(indexDir, "vectors"), false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}

	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errNoEmbedFunc
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("opening vector collection: %w", err)
	}

	return &ChromemIndex{db: db, collection: col}, nil
}

func (s *ChromemIndex) Upsert(ctx context.Context, chunks []*types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:        ch.ID,
			Content:   ch.Content,
			Embedding: vectors[i],
			Metadata:  chunkMetadata(ch),
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, upsertConcurrency); err != nil {
		return fmt.Errorf("vector upsert: %w", err)
	}
	return nil
}

func (s *ChromemIndex) DeleteDocument(ctx context.Context, docPath string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{"document_path": docPath}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("vector delete by document: %w", err)
	}
	return nil
}

func (s *ChromemIndex) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 || s.collection.Count() == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("vector delete by id: %w", err)
	}
	return nil
}

func (s *ChromemIndex) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem rejects nResults above the collection size.
	if limit > count {
		limit = count
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			Chunk:      metadataChunk(r.ID, r.Content, r.Metadata),
			Similarity: clampSimilarity(float64(r.Similarity)),
		}
	}
	return hits, nil
}

func (s *ChromemIndex) Count() int {
	return s.collection.Count()
}

func (s *ChromemIndex) Close() error {
	// Persistence is write-through; nothing to flush.
	return nil
}

// clampSimilarity maps cosine similarity onto [0, 1]. Negative similarity
// carries no ranking value here and flattens to zero.
func clampSimilarity(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// sectionSep joins section path elements inside flat metadata. U+001F keeps
// headings containing slashes unambiguous.
const sectionSep = "\x1f"

func chunkMetadata(ch *types.Chunk) map[string]string {
	return map[string]string{
		"document_path": ch.DocumentPath,
		"section_path":  strings.Join(ch.SectionPath, sectionSep),
		"ordinal":       strconv.Itoa(ch.Ordinal),
		"start_line":    strconv.Itoa(ch.StartLine),
		"end_line":      strconv.Itoa(ch.EndLine),
		"category":      string(ch.Category),
		"summary":       strconv.FormatBool(ch.Summary),
		"token_count":   strconv.Itoa(ch.TokenCount),
	}
}

func metadataChunk(id, content string, md map[string]string) types.Chunk {
	ordinal, _ := strconv.Atoi(md["ordinal"])
	startLine, _ := strconv.Atoi(md["start_line"])
	endLine, _ := strconv.Atoi(md["end_line"])
	tokenCount, _ := strconv.Atoi(md["token_count"])
	summary, _ := strconv.ParseBool(md["summary"])

	var sectionPath []string
	if md["section_path"] != "" {
		sectionPath = strings.Split(md["section_path"], sectionSep)
	}

	return types.Chunk{
		ID:           id,
		DocumentPath: md["document_path"],
		SectionPath:  sectionPath,
		Ordinal:      ordinal,
		Content:      content,
		TokenCount:   tokenCount,
		StartLine:    startLine,
		EndLine:      endLine,
		Category:     types.SizeCategory(md["category"]),
		Summary:      summary,
	}
}
