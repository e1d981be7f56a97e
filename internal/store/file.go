package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/matchrules/pkg/constants"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/snapshot"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps one snapshot file per session in a directory.
type FileStore struct {
	dir    string
	format snapshot.Format
}

// NewFileStore creates dir when missing. A leading ~ is expanded.
func NewFileStore(dir string, format snapshot.Format) (*FileStore, error) {
	if dir == "" {
		dir = constants.DefaultStateDir
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.WrapIO("resolve", dir, err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	return &FileStore{dir: dir, format: format}, nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+"."+string(s.format))
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, id string, state *snapshot.State) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return snapshot.Save(s.path(id), state)
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, id string) (*snapshot.State, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	path := s.path(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.NewNotFoundError("session", id)
	}
	return snapshot.Load(path)
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("session", id)
		}
		return errors.WrapIO("delete", s.path(id), err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.WrapIO("read", s.dir, err)
	}
	ext := "." + string(s.format)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
