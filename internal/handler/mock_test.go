package handler

import (
	"context"

	"github.com/MikhailRaia/urlshort/internal/model"
	"github.com/MikhailRaia/urlshort/internal/storage"
)

type MockURLService struct {
	ShortenFunc      func(ctx context.Context, longURL string) (model.URL, error)
	ShortenBatchFunc func(ctx context.Context, items []model.BatchRequestItem) ([]model.BatchResponseItem, error)
	ResolveFunc      func(ctx context.Context, code string) (string, error)
	LookupFunc       func(ctx context.Context, code string) (model.URL, error)
	ListFunc         func(ctx context.Context, limit, offset int) ([]model.URL, error)
	DeleteFunc       func(ctx context.Context, code string) error
	StatsFunc        func(ctx context.Context) (model.Stats, error)
	PingFunc         func(ctx context.Context) error
}

func (m *MockURLService) Shorten(ctx context.Context, longURL string) (model.URL, error) {
	if m.ShortenFunc != nil {
		return m.ShortenFunc(ctx, longURL)
	}
	return model.URL{}, nil
}

func (m *MockURLService) ShortenBatch(ctx context.Context, items []model.BatchRequestItem) ([]model.BatchResponseItem, error) {
	if m.ShortenBatchFunc != nil {
		return m.ShortenBatchFunc(ctx, items)
	}
	return []model.BatchResponseItem{}, nil
}

func (m *MockURLService) Resolve(ctx context.Context, code string) (string, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, code)
	}
	return "", storage.ErrNotFound
}

func (m *MockURLService) Lookup(ctx context.Context, code string) (model.URL, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, code)
	}
	return model.URL{}, storage.ErrNotFound
}

func (m *MockURLService) List(ctx context.Context, limit, offset int) ([]model.URL, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []model.URL{}, nil
}

func (m *MockURLService) Delete(ctx context.Context, code string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, code)
	}
	return nil
}

func (m *MockURLService) Stats(ctx context.Context) (model.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return model.Stats{}, nil
}

func (m *MockURLService) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}
