package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
	"github.com/MikhailRaia/urlshort/internal/storage/memory"
)

// record is one line of the JSONL log. The last record for a code wins.
type record struct {
	UUID      string    `json:"uuid"`
	Code      string    `json:"short_url"`
	LongURL   string    `json:"original_url"`
	ShortURL  string    `json:"full_short_url"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
	IsDeleted bool      `json:"is_deleted"`
}

func newRecord(url model.URL) record {
	return record{
		UUID:      url.ID,
		Code:      url.Code,
		LongURL:   url.LongURL,
		ShortURL:  url.ShortURL,
		Clicks:    url.Clicks,
		CreatedAt: url.CreatedAt,
	}
}

func (r record) url() model.URL {
	return model.URL{
		ID:        r.UUID,
		Code:      r.Code,
		LongURL:   r.LongURL,
		ShortURL:  r.ShortURL,
		Clicks:    r.Clicks,
		CreatedAt: r.CreatedAt,
	}
}

// Storage implements URLStorage as an in-memory index backed by an
// append-only JSONL file.
type Storage struct {
	index *memory.Storage
	file  *os.File
	mu    sync.Mutex
}

// NewStorage opens (or creates) the log at filePath and replays it.
func NewStorage(filePath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	s := &Storage{index: memory.NewStorage()}
	if err := s.loadFromFile(filePath); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for writing: %w", err)
	}
	s.file = f

	return s, nil
}

func (s *Storage) loadFromFile(filePath string) error {
	f, err := os.OpenFile(filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// Lines have no length limit, unlike bufio.Scanner tokens.
	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("error reading file: %w", readErr)
		}

		if line = bytes.TrimSpace(line); len(line) > 0 {
			var rec record
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}

			if rec.IsDeleted {
				s.index.Remove(rec.Code)
			} else {
				s.index.Put(rec.url())
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (s *Storage) writeRecords(records ...record) error {
	buf := make([]byte, 0, 256*len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	if _, err := s.file.Write(buf); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

func (s *Storage) Save(ctx context.Context, url model.URL) (model.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.index.Save(ctx, url)
	if err != nil {
		return saved, err
	}

	if err := s.writeRecords(newRecord(saved)); err != nil {
		s.index.Remove(saved.Code)
		return model.URL{}, err
	}

	return saved, nil
}

func (s *Storage) SaveBatch(ctx context.Context, urls []model.URL) ([]model.URL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]bool, len(urls))
	for _, url := range urls {
		if _, err := s.index.GetByCode(ctx, url.Code); err == nil {
			known[url.Code] = true
		}
	}

	result, err := s.index.SaveBatch(ctx, urls)
	if err != nil {
		return nil, err
	}

	var fresh []record
	for i, url := range result {
		if url.Code == urls[i].Code && !known[url.Code] {
			fresh = append(fresh, newRecord(url))
			known[url.Code] = true
		}
	}

	if err := s.writeRecords(fresh...); err != nil {
		for _, rec := range fresh {
			s.index.Remove(rec.Code)
		}
		return nil, err
	}

	return result, nil
}

func (s *Storage) GetByCode(ctx context.Context, code string) (model.URL, error) {
	return s.index.GetByCode(ctx, code)
}

func (s *Storage) List(ctx context.Context, limit, offset int) ([]model.URL, error) {
	return s.index.List(ctx, limit, offset)
}

func (s *Storage) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	url, err := s.index.GetByCode(ctx, code)
	if err != nil {
		return err
	}

	tombstone := newRecord(url)
	tombstone.IsDeleted = true
	if err := s.writeRecords(tombstone); err != nil {
		return fmt.Errorf("failed to save deletion record: %w", err)
	}

	return s.index.Delete(ctx, code)
}

func (s *Storage) AddClicks(ctx context.Context, clicks map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.AddClicks(ctx, clicks); err != nil {
		return err
	}

	snapshots := make([]record, 0, len(clicks))
	for code := range clicks {
		url, err := s.index.GetByCode(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		snapshots = append(snapshots, newRecord(url))
	}

	return s.writeRecords(snapshots...)
}

func (s *Storage) Stats(ctx context.Context) (model.Stats, error) {
	return s.index.Stats(ctx)
}

func (s *Storage) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Stat(); err != nil {
		return fmt.Errorf("storage file unavailable: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.Close()
}
