// Package proofstore хранит изображения-подтверждения оплаты.
// Реализации: локальная файловая система и S3-совместимое хранилище.
package proofstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/audit-coordinator/internal/config"
	"github.com/magabrotheeeer/audit-coordinator/internal/models"
)

// Blob: изображение вместе с ключом хранения.
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
}

// Store: хранилище подтверждений оплаты.
type Store interface {
	Save(ctx context.Context, blob Blob) error
	// Load возвращает models.ErrNotFound, если ключ неизвестен.
	Load(ctx context.Context, key string) (Blob, error)
	// Delete не считает отсутствие ключа ошибкой.
	Delete(ctx context.Context, key string) error
}

// Prepare проверяет, что данные являются непустым изображением, и присваивает им новый ключ.
func Prepare(data []byte) (Blob, error) {
	const op = "proofstore.Prepare"
	if len(data) == 0 {
		return Blob{}, fmt.Errorf("%s: %w", op, models.ErrProofRequired)
	}
	mt := mimetype.Detect(data)
	if !isImage(mt) {
		return Blob{}, fmt.Errorf("%s: %w: unsupported proof type %s", op, models.ErrValidation, mt.String())
	}
	return Blob{
		Key:         uuid.NewString() + mt.Extension(),
		ContentType: mt.String(),
		Data:        data,
	}, nil
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

// contentType определяет тип уже сохранённых данных.
func contentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// validKey отсекает ключи, выходящие за пределы каталога хранилища.
func validKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\`) && !strings.HasPrefix(key, ".")
}

// New создаёт хранилище по настройкам.
func New(ctx context.Context, cfg config.ProofStorage) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalPath)
	case "s3":
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("proofstore.New: unknown driver %q", cfg.Driver)
}
