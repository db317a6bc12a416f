package models

import (
	"time"

	"github.com/coastline-realty/content-backend/internal/grouping"
)

// DefaultGoLiveDays is how many days before its date an event starts showing.
const DefaultGoLiveDays = 15

// EventPoster is one page of an event flyer. Pages of a multi-page flyer share
// a GroupID and are ordered by Ordinal.
type EventPoster struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId,omitempty"`
	Ordinal     int       `json:"ordinal"`
	ImageURL    string    `json:"imageUrl"`
	ObjectKey   string    `json:"objectKey,omitempty"`
	Title       string    `json:"title,omitempty"`
	EventDate   Date      `json:"eventDate"`
	GoLiveDays  int       `json:"goLiveDays"`
	ForceGoLive bool      `json:"forceGoLive"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordID returns the collection identity.
func (e EventPoster) RecordID() string { return e.ID }

// EffectiveGoLiveDays returns GoLiveDays, or the default when it is unset.
func (e EventPoster) EffectiveGoLiveDays() int {
	if e.GoLiveDays < 1 {
		return DefaultGoLiveDays
	}
	return e.GoLiveDays
}

// GroupKey returns the flyer group and page ordinal. Records written before
// groupId existed derive both from the id suffix.
func (e EventPoster) GroupKey() (string, int) {
	if e.GroupID != "" {
		return e.GroupID, e.Ordinal
	}
	return grouping.Split(e.ID)
}
