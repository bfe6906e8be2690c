package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const stateFileName = "fingerprints.json"

const stateVersion = 1

// documentState records what the index currently holds for one document.
// A document's entry is written only after both retrieval indexes have
// accepted its chunks, so a crash mid-update re-indexes the document on
// the next run instead of leaving it half-visible.
type documentState struct {
	Fingerprint string    `json:"fingerprint"`
	ModTime     time.Time `json:"mod_time"`
	ChunkIDs    []string  `json:"chunk_ids"`
	IndexedAt   time.Time `json:"indexed_at"`
}

type stateFile struct {
	Version       int                      `json:"version"`
	LastIndexedAt time.Time                `json:"last_indexed_at"`
	Documents     map[string]documentState `json:"documents"`
}

func newStateFile() *stateFile {
	return &stateFile{
		Version:   stateVersion,
		Documents: make(map[string]documentState),
	}
}

// loadState reads the fingerprint state from indexDir. A missing file is a
// fresh index, not an error.
func loadState(indexDir string) (*stateFile, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, stateFileName))
	if os.IsNotExist(err) {
		return newStateFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index state: %w", err)
	}

	var st stateFile
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing index state: %w", err)
	}
	if st.Version != stateVersion {
		// Unknown layout, rebuild from scratch.
		return newStateFile(), nil
	}
	if st.Documents == nil {
		st.Documents = make(map[string]documentState)
	}
	return &st, nil
}

// saveState writes the state atomically via a temp file rename so a crash
// during save never truncates the previous state.
func saveState(indexDir string, st *stateFile) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index state: %w", err)
	}

	target := filepath.Join(indexDir, stateFileName)
	tmp, err := os.CreateTemp(indexDir, stateFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing index state: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing index state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing index state: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing index state: %w", err)
	}
	return nil
}

// LastIndexedAt reports when the index was last written, or the zero time
// for a fresh index.
func LastIndexedAt(indexDir string) (time.Time, error) {
	st, err := loadState(indexDir)
	if err != nil {
		return time.Time{}, err
	}
	return st.LastIndexedAt, nil
}

// knownPaths returns the indexed document paths in sorted order.
func (st *stateFile) knownPaths() []string {
	paths := make([]string, 0, len(st.Documents))
	for p := range st.Documents {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
