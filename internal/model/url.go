package model

import "time"

// MaxLongURLLength bounds accepted long URLs. It keeps a unique index on the
// long URL within the Postgres btree row limit.
const MaxLongURLLength = 2048

// URL is a stored short link.
type URL struct {
	ID        string    `json:"id"`
	Code      string    `json:"urlCode"`
	LongURL   string    `json:"longUrl"`
	ShortURL  string    `json:"shortUrl"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"date"`
}

// ShortenRequest is the body of POST /api/url/shorten.
type ShortenRequest struct {
	LongURL string `json:"longUrl"`
}

// Stats summarizes the whole store.
type Stats struct {
	Links  int64 `json:"links"`
	Clicks int64 `json:"clicks"`
}
