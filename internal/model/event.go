package model

import "time"

const (
	EventLinkCreated = "link.created"
	EventLinkDeleted = "link.deleted"
)

// Event is published to the message broker when links change.
type Event struct {
	Type    string    `json:"type"`
	Code    string    `json:"code"`
	LongURL string    `json:"longUrl,omitempty"`
	At      time.Time `json:"at"`
}
