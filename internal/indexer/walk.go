package indexer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// document is one discovered knowledge base file.
type document struct {
	RelPath string // slash-separated, relative to the root
	AbsPath string
	ModTime time.Time
	Size    int64
}

type walker struct {
	root         string
	include      []string
	exclude      []string
	maxFileBytes int64
}

// discover walks the knowledge base root and returns matching documents in
// deterministic (lexicographic) order. Oversized files are returned
// separately so the caller can report them as skipped.
func (w *walker) discover() (docs []document, oversized []document, err error) {
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if w.excludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.excluded(rel) || !w.included(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		doc := document{
			RelPath: rel,
			AbsPath: path,
			ModTime: info.ModTime(),
			Size:    info.Size(),
		}
		if w.maxFileBytes > 0 && info.Size() > w.maxFileBytes {
			oversized = append(oversized, doc)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", w.root, err)
	}
	// WalkDir visits lexically, but be explicit about the contract.
	return docs, oversized, nil
}

func (w *walker) included(rel string) bool {
	for _, pat := range w.include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (w *walker) excluded(rel string) bool {
	for _, pat := range w.exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// excludedDir prunes directory subtrees. A pattern like ".git/**" excludes
// the directory itself so the walk never descends into it.
func (w *walker) excludedDir(rel string) bool {
	for _, pat := range w.exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(strings.TrimSuffix(pat, "/**"), rel); ok {
			return true
		}
	}
	return false
}
