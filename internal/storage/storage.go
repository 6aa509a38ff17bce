package storage

import (
	"context"
	"errors"

	"github.com/MikhailRaia/urlshort/internal/model"
)

var (
	ErrNotFound   = errors.New("url not found")
	ErrURLExists  = errors.New("url already shortened")
	ErrCodeExists = errors.New("code already taken")
)

// URLStorage persists short links.
//
// Save and SaveBatch never store the same long URL twice: the existing record
// is returned together with ErrURLExists (Save) or in place (SaveBatch).
type URLStorage interface {
	Save(ctx context.Context, url model.URL) (model.URL, error)
	SaveBatch(ctx context.Context, urls []model.URL) ([]model.URL, error)
	GetByCode(ctx context.Context, code string) (model.URL, error)
	List(ctx context.Context, limit, offset int) ([]model.URL, error)
	Delete(ctx context.Context, code string) error
	AddClicks(ctx context.Context, clicks map[string]int64) error
	Stats(ctx context.Context) (model.Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
