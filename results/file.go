package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/hupe1980/answermesh/core"
)

// FileStore persists each identity's set as answers_<identity>.json in a
// directory of an afero filesystem. Writes go to a temporary file that is
// renamed over the target, so readers never observe a partial set.
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{fs: fs, dir: dir}
}

// Path returns the file that holds the set of identity.
func (s *FileStore) Path(identity string) string {
	return filepath.Join(s.dir, "answers_"+sanitize(identity)+".json")
}

// Save replaces the file of identity.
func (s *FileStore) Save(_ context.Context, identity string, set core.ResultSet) error {
	data, err := Encode(set)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create result dir: %w", err)
	}

	target := s.Path(identity)
	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write result set: %w", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace result set: %w", err)
	}

	return nil
}

// Load reads the file of identity.
func (s *FileStore) Load(_ context.Context, identity string) (core.ResultSet, error) {
	data, err := afero.ReadFile(s.fs, s.Path(identity))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.ResultSet{}, core.ErrResultSetNotFound
		}
		return core.ResultSet{}, fmt.Errorf("read result set: %w", err)
	}
	return Decode(identity, data)
}

// sanitize maps an identity onto a file name component. Bytes outside
// [A-Za-z0-9._-] are percent-encoded, so distinct identities never share a
// file.
func sanitize(identity string) string {
	var b strings.Builder
	for i := 0; i < len(identity); i++ {
		c := identity[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
