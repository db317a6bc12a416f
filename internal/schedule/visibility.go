// Package schedule decides what content is live at a given instant.
package schedule

import (
	"time"

	"github.com/coastline-realty/content-backend/internal/grouping"
	"github.com/coastline-realty/content-backend/internal/models"
)

// EventStatus is the admin-facing state of an event.
type EventStatus string

const (
	StatusLive      EventStatus = "live"
	StatusForced    EventStatus = "forced"
	StatusScheduled EventStatus = "scheduled"
	StatusPast      EventStatus = "past"
)

// GoLiveDate is the first day the event shows.
func GoLiveDate(e models.EventPoster) models.Date {
	return e.EventDate.AddDays(-e.EffectiveGoLiveDays())
}

// ShouldShow reports whether e is live at now. Calendar dates are read in
// now's location. An event never shows on or after its date, even when
// forced.
func ShouldShow(e models.EventPoster, now time.Time) bool {
	if e.EventDate.IsZero() {
		return false
	}
	if !now.Before(e.EventDate.At(now.Location())) {
		return false
	}
	if e.ForceGoLive {
		return true
	}
	return !now.Before(GoLiveDate(e).At(now.Location()))
}

// DaysUntilGoLive counts calendar days from now's date to the go-live date,
// so a partial day counts as a whole one. It is negative once the window has
// opened and 0 for forced events.
func DaysUntilGoLive(e models.EventPoster, now time.Time) int {
	if e.ForceGoLive {
		return 0
	}
	return GoLiveDate(e).DaysSince(models.DateOf(now))
}

// Status summarizes e for admin views.
func Status(e models.EventPoster, now time.Time) EventStatus {
	switch {
	case e.EventDate.IsZero() || !now.Before(e.EventDate.At(now.Location())):
		return StatusPast
	case e.ForceGoLive:
		return StatusForced
	case ShouldShow(e, now):
		return StatusLive
	default:
		return StatusScheduled
	}
}

// GroupEvents groups event pages into flyers.
func GroupEvents(events []models.EventPoster) []grouping.Group[models.EventPoster] {
	return grouping.By(events, models.EventPoster.GroupKey)
}

// LiveGroups returns the flyers with at least one live page.
func LiveGroups(events []models.EventPoster, now time.Time) []grouping.Group[models.EventPoster] {
	var live []grouping.Group[models.EventPoster]
	for _, g := range GroupEvents(events) {
		for _, e := range g.Members {
			if ShouldShow(e, now) {
				live = append(live, g)
				break
			}
		}
	}
	return live
}

// PromoImageLive reports whether img is active and not past its expiration
// date at now.
func PromoImageLive(img models.PromoImage, now time.Time) bool {
	if img.IsArchived {
		return false
	}
	if img.ExpirationDate == nil || img.ExpirationDate.IsZero() {
		return true
	}
	return !img.ExpirationDate.Before(models.DateOf(now))
}
