package indexer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dstone/memdex/pkg/types"
)

const lockFileName = "index.lock"

// FileLock is an exclusive advisory lock for index writes, held as a file
// in the index directory so concurrent processes exclude each other too.
type FileLock struct {
	path string
}

// AcquireLock takes the index write lock. It fails immediately with
// types.ErrIndexLocked when another indexing run holds it.
func AcquireLock(indexDir string) (*FileLock, error) {
	path := filepath.Join(indexDir, lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, types.ErrIndexLocked
		}
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	return &FileLock{path: path}, nil
}

// Release removes the lock file. Must only be called by the holder.
func (l *FileLock) Release() error {
	return os.Remove(l.path)
}
