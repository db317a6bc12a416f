package schedule

import (
	"time"

	"github.com/coastline-realty/content-backend/internal/grouping"
	"github.com/coastline-realty/content-backend/internal/models"
)

// DisplayKind is what the public site shows.
type DisplayKind string

const (
	DisplayPromo  DisplayKind = "promo"
	DisplayEvents DisplayKind = "events"
	DisplayNone   DisplayKind = "none"
)

// Decision is the outcome of Decide.
type Decision struct {
	Kind   DisplayKind
	Events []grouping.Group[models.EventPoster]
	Promo  *models.PromoConfig
	// Forced is set when the promo won through its force override.
	Forced bool
}

// Decide picks the one thing to display at now. A forced promo beats live
// events, live events beat a regular promo, and a promo that is disabled or
// has no live images never shows. The decided promo carries only the images
// live at now.
func Decide(events []models.EventPoster, promo *models.PromoConfig, now time.Time) Decision {
	ready := livePromo(promo, now)

	if ready != nil && ready.ForceGoLive {
		return Decision{Kind: DisplayPromo, Promo: ready, Forced: true}
	}
	if live := LiveGroups(events, now); len(live) > 0 {
		return Decision{Kind: DisplayEvents, Events: live}
	}
	if ready != nil {
		return Decision{Kind: DisplayPromo, Promo: ready}
	}
	return Decision{Kind: DisplayNone}
}

// livePromo returns a copy of promo narrowed to its live images, or nil when
// it is disabled or none are live.
func livePromo(promo *models.PromoConfig, now time.Time) *models.PromoConfig {
	if promo == nil || !promo.Enabled {
		return nil
	}
	var images []models.PromoImage
	for _, img := range promo.Images {
		if PromoImageLive(img, now) {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		return nil
	}
	out := *promo
	out.Images = images
	out.PastPromos = nil
	out.DeriveType()
	return &out
}
