// Package file persists suspended walks as JSON documents on the local filesystem.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
)

const ext = ".json"

// Store implements ports.StateStore with one file per walk under BasePath.
type Store struct {
	BasePath string
}

var _ ports.StateStore = (*Store)(nil)

// New creates a Store rooted at basePath. An empty path means ".cognito/walks".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".cognito", "walks")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(walkID string) (string, error) {
	if walkID == "" {
		return "", errors.New("walkID cannot be empty")
	}
	if strings.ContainsAny(walkID, `/\`) || walkID == "." || walkID == ".." {
		return "", fmt.Errorf("invalid walkID %q", walkID)
	}
	return filepath.Join(s.BasePath, walkID+ext), nil
}

// Save writes the walk atomically: temp file in the same directory, fsync, rename.
func (s *Store) Save(_ context.Context, walkID string, state *domain.State) error {
	dest, err := s.path(walkID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure walk directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+walkID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove previous walk file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) Load(_ context.Context, walkID string) (*domain.State, error) {
	p, err := s.path(walkID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrWalkNotFound
		}
		return nil, fmt.Errorf("failed to read walk file: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal walk state: %w", err)
	}
	return &state, nil
}

func (s *Store) Delete(_ context.Context, walkID string) error {
	p, err := s.path(walkID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete walk file: %w", err)
	}
	return nil
}

// List returns the IDs of all stored walks.
func (s *Store) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list walks: %w", err)
	}

	walks := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "tmp-") || filepath.Ext(name) != ext {
			continue
		}
		walks = append(walks, strings.TrimSuffix(name, ext))
	}
	return walks, nil
}
