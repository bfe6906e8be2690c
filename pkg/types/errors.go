package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components.
var (
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrIndexLocked    = errors.New("index is locked by another process")
	ErrNotFound       = errors.New("not found")
)

// ConfigurationError reports an invalid or incomplete configuration. It is
// fatal: nothing starts until the configuration loads cleanly.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// DocumentReadError marks a document that could not be read during indexing.
// The document is skipped and the run continues.
type DocumentReadError struct {
	Path string
	Err  error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("read document %s: %v", e.Path, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed embedding batch. Chunks holds the IDs of
// the chunks whose vectors were not produced so the indexer can leave their
// documents unrecorded and retry them on the next pass.
type EmbeddingError struct {
	Provider string
	Chunks   []string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding via %s failed for %d chunk(s): %v", e.Provider, len(e.Chunks), e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IndexWriteError reports a failed write to the vector or lexical index. The
// affected document's fingerprint is not advanced, so the document is
// reprocessed on the next run.
type IndexWriteError struct {
	Index string // "vector" or "lexical"
	Path  string
	Err   error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("%s index write for %s: %v", e.Index, e.Path, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// QueryError reports an invalid or failed query. Queries never mutate index
// state, so these surface synchronously to the caller.
type QueryError struct {
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("query error: %s", e.Reason)
}

func (e *QueryError) Unwrap() error { return e.Err }
