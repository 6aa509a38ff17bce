package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
	"github.com/MikhailRaia/urlshort/internal/storage/storagetest"
)

func newTestStorage(t *testing.T, path string) *Storage {
	t.Helper()

	s, err := NewStorage(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.URLStorage {
		return newTestStorage(t, filepath.Join(t.TempDir(), "urls.db"))
	})
}

func TestStorage_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "urls.db")

	s, err := NewStorage(path)
	require.NoError(t, err)

	_, err = s.Save(ctx, model.URL{
		ID:        "a1",
		Code:      "persist",
		LongURL:   "https://example.com",
		ShortURL:  "http://localhost:5000/persist",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, s.AddClicks(ctx, map[string]int64{"persist": 4}))
	require.NoError(t, s.Close())

	reopened := newTestStorage(t, path)
	got, err := reopened.GetByCode(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Clicks)
	assert.Equal(t, "https://example.com", got.LongURL)
}
