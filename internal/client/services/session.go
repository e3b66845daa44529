package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/playerhub/internal/client/models"
	"github.com/dmitrijs2005/playerhub/internal/filex"
)

var ErrNoSession = errors.New("not logged in")

// SessionStore keeps the session token between playerctl invocations.
type SessionStore interface {
	Load() (*models.Session, error)
	Save(s *models.Session) error
	Clear() error
}

type fileSessionStore struct {
	path string
}

// NewFileSessionStore stores the session as JSON at path. An empty path
// selects <user config dir>/playerhub/session.json.
func NewFileSessionStore(path string) (SessionStore, error) {
	if path == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("user config dir: %w", err)
		}
		dir, err := filex.EnsureDir(base, "playerhub")
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "session.json")
	}
	return &fileSessionStore{path: path}, nil
}

func (f *fileSessionStore) Load() (*models.Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", f.path, err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

func (f *fileSessionStore) Save(s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(f.path, data, 0o600)
}

func (f *fileSessionStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
