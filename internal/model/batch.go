package model

// BatchRequestItem is one entry of a batch shorten request.
type BatchRequestItem struct {
	CorrelationID string `json:"correlation_id"`
	LongURL       string `json:"longUrl"`
}

// BatchResponseItem is one entry of a batch shorten response.
type BatchResponseItem struct {
	CorrelationID string `json:"correlation_id"`
	Code          string `json:"urlCode"`
	ShortURL      string `json:"shortUrl"`
}
