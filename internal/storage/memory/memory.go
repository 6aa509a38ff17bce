package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

// Storage implements URLStorage in process memory.
type Storage struct {
	byCode map[string]model.URL
	byLong map[string]string
	order  []string
	mutex  sync.RWMutex
}

// NewStorage creates a new in-memory storage instance.
func NewStorage() *Storage {
	return &Storage{
		byCode: make(map[string]model.URL),
		byLong: make(map[string]string),
	}
}

// Save stores url unless its long URL or code is already known.
func (s *Storage) Save(_ context.Context, url model.URL) (model.URL, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if code, exists := s.byLong[url.LongURL]; exists {
		return s.byCode[code], storage.ErrURLExists
	}
	if _, taken := s.byCode[url.Code]; taken {
		return model.URL{}, storage.ErrCodeExists
	}

	s.put(url)
	return url, nil
}

// SaveBatch stores all new urls or none of them.
func (s *Storage) SaveBatch(_ context.Context, urls []model.URL) ([]model.URL, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result, fresh, err := s.planBatch(urls)
	if err != nil {
		return nil, err
	}

	for _, url := range fresh {
		s.put(url)
	}

	return result, nil
}

// planBatch resolves every item against the store and against earlier items of
// the same batch. It returns the result in input order and the records to insert.
func (s *Storage) planBatch(urls []model.URL) ([]model.URL, []model.URL, error) {
	result := make([]model.URL, len(urls))
	fresh := make([]model.URL, 0, len(urls))
	pendingLong := make(map[string]int)
	pendingCode := make(map[string]struct{})

	for i, url := range urls {
		if code, exists := s.byLong[url.LongURL]; exists {
			result[i] = s.byCode[code]
			continue
		}
		if j, dup := pendingLong[url.LongURL]; dup {
			result[i] = result[j]
			continue
		}

		_, taken := s.byCode[url.Code]
		_, pending := pendingCode[url.Code]
		if taken || pending {
			return nil, nil, fmt.Errorf("batch item %d: %w", i, storage.ErrCodeExists)
		}

		pendingLong[url.LongURL] = i
		pendingCode[url.Code] = struct{}{}
		result[i] = url
		fresh = append(fresh, url)
	}

	return result, fresh, nil
}

// GetByCode retrieves the record for a short code.
func (s *Storage) GetByCode(_ context.Context, code string) (model.URL, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	url, found := s.byCode[code]
	if !found {
		return model.URL{}, storage.ErrNotFound
	}

	return url, nil
}

// List returns records newest first.
func (s *Storage) List(_ context.Context, limit, offset int) ([]model.URL, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]model.URL, 0)
	skipped := 0
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, s.byCode[s.order[i]])
	}

	return result, nil
}

// Delete removes the record for a short code.
func (s *Storage) Delete(_ context.Context, code string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, found := s.byCode[code]; !found {
		return storage.ErrNotFound
	}

	s.remove(code)
	return nil
}

// AddClicks increments click counters. Unknown codes are ignored.
func (s *Storage) AddClicks(_ context.Context, clicks map[string]int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for code, n := range clicks {
		url, found := s.byCode[code]
		if !found {
			continue
		}
		url.Clicks += n
		s.byCode[code] = url
	}

	return nil
}

// Stats returns the number of links and the sum of their clicks.
func (s *Storage) Stats(_ context.Context) (model.Stats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := model.Stats{Links: int64(len(s.byCode))}
	for _, url := range s.byCode {
		stats.Clicks += url.Clicks
	}

	return stats, nil
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}

// Put stores url as is, replacing any record with the same code.
// It is used to replay persisted state.
func (s *Storage) Put(url model.URL) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.put(url)
}

// Remove drops a record if present. It is used to replay persisted state.
func (s *Storage) Remove(code string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, found := s.byCode[code]; found {
		s.remove(code)
	}
}

func (s *Storage) put(url model.URL) {
	if old, exists := s.byCode[url.Code]; exists {
		delete(s.byLong, old.LongURL)
	} else {
		s.order = append(s.order, url.Code)
	}

	s.byCode[url.Code] = url
	s.byLong[url.LongURL] = url.Code
}

func (s *Storage) remove(code string) {
	url := s.byCode[code]
	delete(s.byCode, code)
	delete(s.byLong, url.LongURL)

	for i, c := range s.order {
		if c == code {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
