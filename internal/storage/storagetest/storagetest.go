// Package storagetest holds the behaviour every URLStorage backend must share.
package storagetest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

// Factory returns an empty storage. Cleanup is the factory's job.
type Factory func(t *testing.T) storage.URLStorage

func newURL(code, longURL string, created time.Time) model.URL {
	return model.URL{
		ID:        "id-" + code,
		Code:      code,
		LongURL:   longURL,
		ShortURL:  "http://localhost:5000/" + code,
		CreatedAt: created.UTC().Truncate(time.Millisecond),
	}
}

// Run executes the shared storage suite against backends built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, newStorage(t)) })
	t.Run("SaveExistingLongURL", func(t *testing.T) { testSaveExistingLongURL(t, newStorage(t)) })
	t.Run("SaveLongestURL", func(t *testing.T) { testSaveLongestURL(t, newStorage(t)) })
	t.Run("SaveTakenCode", func(t *testing.T) { testSaveTakenCode(t, newStorage(t)) })
	t.Run("SaveBatch", func(t *testing.T) { testSaveBatch(t, newStorage(t)) })
	t.Run("SaveBatchTakenCode", func(t *testing.T) { testSaveBatchTakenCode(t, newStorage(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStorage(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStorage(t)) })
	t.Run("AddClicksAndStats", func(t *testing.T) { testAddClicksAndStats(t, newStorage(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStorage(t).Ping(context.Background())) })
}

func testSaveAndGet(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()
	url := newURL("abc123", "https://example.com", time.Now())

	saved, err := s.Save(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, url.Code, saved.Code)

	got, err := s.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, url.ID, got.ID)
	assert.Equal(t, url.LongURL, got.LongURL)
	assert.Equal(t, url.ShortURL, got.ShortURL)
	assert.True(t, url.CreatedAt.Equal(got.CreatedAt), "CreatedAt = %v, want %v", got.CreatedAt, url.CreatedAt)

	_, err = s.GetByCode(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testSaveExistingLongURL(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()

	_, err := s.Save(ctx, newURL("first1", "https://example.com", time.Now()))
	require.NoError(t, err)

	existing, err := s.Save(ctx, newURL("second", "https://example.com", time.Now()))
	assert.ErrorIs(t, err, storage.ErrURLExists)
	assert.Equal(t, "first1", existing.Code)

	_, err = s.GetByCode(ctx, "second")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// longestURL is an incompressible URL of exactly model.MaxLongURLLength bytes.
func longestURL() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
	prefix := "https://example.com/"
	rnd := rand.New(rand.NewSource(1))

	b := make([]byte, model.MaxLongURLLength-len(prefix))
	for i := range b {
		b[i] = alphabet[rnd.Intn(len(alphabet))]
	}
	return prefix + string(b)
}

func testSaveLongestURL(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()
	longURL := longestURL()
	require.Len(t, longURL, model.MaxLongURLLength)

	_, err := s.Save(ctx, newURL("long01", longURL, time.Now()))
	require.NoError(t, err)

	got, err := s.GetByCode(ctx, "long01")
	require.NoError(t, err)
	assert.Equal(t, longURL, got.LongURL)

	existing, err := s.Save(ctx, newURL("long02", longURL, time.Now()))
	assert.ErrorIs(t, err, storage.ErrURLExists)
	assert.Equal(t, "long01", existing.Code)
}

func testSaveTakenCode(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()

	_, err := s.Save(ctx, newURL("same", "https://a.example.com", time.Now()))
	require.NoError(t, err)

	_, err = s.Save(ctx, newURL("same", "https://b.example.com", time.Now()))
	assert.ErrorIs(t, err, storage.ErrCodeExists)
}

func testSaveBatch(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()
	now := time.Now()

	_, err := s.Save(ctx, newURL("old001", "https://old.example.com", now))
	require.NoError(t, err)

	result, err := s.SaveBatch(ctx, []model.URL{
		newURL("new001", "https://one.example.com", now),
		newURL("new002", "https://old.example.com", now),
		newURL("new003", "https://one.example.com", now),
		newURL("new004", "https://two.example.com", now),
	})
	require.NoError(t, err)
	require.Len(t, result, 4)

	assert.Equal(t, "new001", result[0].Code)
	assert.Equal(t, "old001", result[1].Code)
	assert.Equal(t, "new001", result[2].Code)
	assert.Equal(t, "new004", result[3].Code)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Links)
}

func testSaveBatchTakenCode(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()
	now := time.Now()

	_, err := s.Save(ctx, newURL("taken", "https://old.example.com", now))
	require.NoError(t, err)

	_, err = s.SaveBatch(ctx, []model.URL{
		newURL("fresh", "https://one.example.com", now),
		newURL("taken", "https://two.example.com", now),
	})
	assert.ErrorIs(t, err, storage.ErrCodeExists)

	_, err = s.GetByCode(ctx, "fresh")
	assert.ErrorIs(t, err, storage.ErrNotFound, "batch must be all or nothing")
}

func testList(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, code := range []string{"c1", "c2", "c3"} {
		_, err := s.Save(ctx, newURL(code, "https://example.com/"+code, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	all, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c3", "c2", "c1"}, codes(all))

	page, err := s.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, codes(page))

	empty, err := s.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDelete(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()

	_, err := s.Save(ctx, newURL("gone", "https://example.com", time.Now()))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "gone"))

	_, err = s.GetByCode(ctx, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "gone"), storage.ErrNotFound)

	again, err := s.Save(ctx, newURL("back", "https://example.com", time.Now()))
	require.NoError(t, err, "a deleted long URL can be shortened again")
	assert.Equal(t, "back", again.Code)
}

func testAddClicksAndStats(t *testing.T, s storage.URLStorage) {
	ctx := context.Background()

	for _, code := range []string{"k1", "k2"} {
		_, err := s.Save(ctx, newURL(code, "https://example.com/"+code, time.Now()))
		require.NoError(t, err)
	}

	require.NoError(t, s.AddClicks(ctx, map[string]int64{"k1": 3, "k2": 1, "unknown": 7}))
	require.NoError(t, s.AddClicks(ctx, map[string]int64{"k1": 2}))

	k1, err := s.GetByCode(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), k1.Clicks)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Links: 2, Clicks: 6}, stats)
}

func codes(urls []model.URL) []string {
	result := make([]string, len(urls))
	for i, u := range urls {
		result[i] = u.Code
	}
	return result
}
