package proofstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Local хранит изображения в каталоге на диске.
type Local struct {
	basePath string
}

// NewLocal создаёт каталог хранилища, если его нет.
func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("proofstore.NewLocal: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

func (s *Local) path(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: invalid proof key %q", models.ErrValidation, key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *Local) Save(_ context.Context, blob Blob) error {
	const op = "proofstore.Local.Save"
	p, err := s.path(blob.Key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = os.WriteFile(p, blob.Data, 0o600); err != nil {
		_ = os.Remove(p)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Local) Load(_ context.Context, key string) (Blob, error) {
	const op = "proofstore.Local.Load"
	p, err := s.path(key)
	if err != nil {
		return Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Blob{}, fmt.Errorf("%s: proof %s: %w", op, key, models.ErrNotFound)
	}
	if err != nil {
		return Blob{}, fmt.Errorf("%s: %w", op, err)
	}
	return Blob{Key: key, ContentType: contentType(data), Data: data}, nil
}

func (s *Local) Delete(_ context.Context, key string) error {
	const op = "proofstore.Local.Delete"
	p, err := s.path(key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
