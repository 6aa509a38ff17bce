package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

type urlRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Code      string    `gorm:"uniqueIndex;size:32;not null"`
	LongURL   string    `gorm:"uniqueIndex;not null"`
	ShortURL  string    `gorm:"not null"`
	Clicks    int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"index"`
}

func (urlRow) TableName() string {
	return "urls"
}

func fromModel(url model.URL) urlRow {
	return urlRow{
		ID:        url.ID,
		Code:      url.Code,
		LongURL:   url.LongURL,
		ShortURL:  url.ShortURL,
		Clicks:    url.Clicks,
		CreatedAt: url.CreatedAt,
	}
}

func (r urlRow) toModel() model.URL {
	return model.URL{
		ID:        r.ID,
		Code:      r.Code,
		LongURL:   r.LongURL,
		ShortURL:  r.ShortURL,
		Clicks:    r.Clicks,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// Storage implements URLStorage on a SQLite file through gorm.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens the database at path and migrates the schema.
func NewStorage(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql database: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&urlRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

func findBy(tx *gorm.DB, column, value string) (urlRow, error) {
	var row urlRow
	err := tx.Where(column+" = ?", value).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return urlRow{}, storage.ErrNotFound
	}
	return row, err
}

// insert stores url unless its long URL exists, in which case the stored row
// is returned with storage.ErrURLExists.
func insert(tx *gorm.DB, url model.URL) (model.URL, error) {
	existing, err := findBy(tx, "long_url", url.LongURL)
	if err == nil {
		return existing.toModel(), storage.ErrURLExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return model.URL{}, err
	}

	_, err = findBy(tx, "code", url.Code)
	if err == nil {
		return model.URL{}, storage.ErrCodeExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return model.URL{}, err
	}

	row := fromModel(url)
	if err := tx.Create(&row).Error; err != nil {
		return model.URL{}, fmt.Errorf("error inserting URL: %w", err)
	}

	return row.toModel(), nil
}

func (s *Storage) Save(ctx context.Context, url model.URL) (model.URL, error) {
	var saved model.URL
	var exists bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		saved, err = insert(tx, url)
		if errors.Is(err, storage.ErrURLExists) {
			exists = true
			return nil
		}
		return err
	})
	if err != nil {
		return model.URL{}, err
	}
	if exists {
		return saved, storage.ErrURLExists
	}

	return saved, nil
}

func (s *Storage) SaveBatch(ctx context.Context, urls []model.URL) ([]model.URL, error) {
	result := make([]model.URL, len(urls))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, url := range urls {
			saved, err := insert(tx, url)
			if err != nil && !errors.Is(err, storage.ErrURLExists) {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			result[i] = saved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Storage) GetByCode(ctx context.Context, code string) (model.URL, error) {
	row, err := findBy(s.db.WithContext(ctx), "code", code)
	if err != nil {
		return model.URL{}, err
	}

	return row.toModel(), nil
}

func (s *Storage) List(ctx context.Context, limit, offset int) ([]model.URL, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC").Order("code DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []urlRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error listing URLs: %w", err)
	}

	result := make([]model.URL, len(rows))
	for i, row := range rows {
		result[i] = row.toModel()
	}

	return result, nil
}

func (s *Storage) Delete(ctx context.Context, code string) error {
	res := s.db.WithContext(ctx).Where("code = ?", code).Delete(&urlRow{})
	if res.Error != nil {
		return fmt.Errorf("error deleting URL: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Storage) AddClicks(ctx context.Context, clicks map[string]int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for code, n := range clicks {
			err := tx.Model(&urlRow{}).
				Where("code = ?", code).
				UpdateColumn("clicks", gorm.Expr("clicks + ?", n)).Error
			if err != nil {
				return fmt.Errorf("error updating clicks: %w", err)
			}
		}
		return nil
	})
}

func (s *Storage) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	err := s.db.WithContext(ctx).
		Model(&urlRow{}).
		Select("COUNT(*) AS links, COALESCE(SUM(clicks), 0) AS clicks").
		Scan(&stats).Error
	if err != nil {
		return model.Stats{}, fmt.Errorf("error reading stats: %w", err)
	}

	return stats, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
