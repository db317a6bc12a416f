package promo

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coastline-realty/content-backend/internal/models"
)

// Schema is the collection schema of the singleton promo config. A nil
// config means nothing has been stored yet.
type Schema struct{}

func (Schema) Empty() *models.PromoConfig { return nil }

func (Schema) Decode(data []byte) (*models.PromoConfig, error) {
	var c *models.PromoConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode promo config: %w", err)
	}
	return c, nil
}

func (Schema) Encode(c *models.PromoConfig) ([]byte, error) {
	return json.Marshal(c)
}

// Merge prefers the object store copy as a whole.
func (Schema) Merge(baseline, remote *models.PromoConfig) *models.PromoConfig {
	if remote != nil {
		return remote
	}
	return baseline
}

func (Schema) Len(c *models.PromoConfig) int {
	if c == nil {
		return 0
	}
	return 1
}

// Migrate fills defaults, keeps every image id in exactly one list and
// sweeps expired images into the past list.
func (Schema) Migrate(c *models.PromoConfig, now time.Time) (*models.PromoConfig, bool) {
	if c == nil {
		return nil, false
	}
	c = c.Clone()
	today := models.DateOf(now)
	changed := false
	set := func(cond bool) {
		if cond {
			changed = true
		}
	}

	if c.Images == nil {
		c.Images = []models.PromoImage{}
		changed = true
	}
	if c.PastPromos == nil {
		c.PastPromos = []models.PromoImage{}
		changed = true
	}
	set(defaultString(&c.LinkText, models.DefaultPromoLinkText))
	set(defaultString(&c.BackgroundColor, models.DefaultPromoBackground))
	set(defaultString(&c.TextColor, models.DefaultPromoTextColor))

	activeIDs := make(map[string]bool, len(c.Images))
	var active, swept []models.PromoImage
	for _, img := range c.Images {
		if activeIDs[img.ID] {
			changed = true
			continue
		}
		activeIDs[img.ID] = true
		set(defaultCreated(&img, today))
		if img.ExpirationDate != nil && img.ExpirationDate.Before(today) {
			img.IsArchived = true
			img.LastUsedDate = today.Ptr()
			swept = append(swept, img)
			continue
		}
		if img.IsArchived {
			img.IsArchived = false
			changed = true
		}
		active = append(active, img)
	}

	pastIDs := make(map[string]bool, len(c.PastPromos))
	past := make([]models.PromoImage, 0, len(c.PastPromos)+len(swept))
	for _, img := range c.PastPromos {
		// An id in both lists stays active; a swept copy replaces the old one.
		if activeIDs[img.ID] || pastIDs[img.ID] {
			changed = true
			continue
		}
		pastIDs[img.ID] = true
		set(defaultCreated(&img, today))
		if !img.IsArchived {
			img.IsArchived = true
			changed = true
		}
		past = append(past, img)
	}
	c.Images = append([]models.PromoImage{}, active...)
	c.PastPromos = append(past, swept...)

	if len(swept) > 0 {
		changed = true
		c.ForceGoLive = false
	}
	prev := c.Type
	c.DeriveType()
	set(prev != c.Type)
	return c, changed
}

func defaultString(s *string, def string) bool {
	if *s != "" {
		return false
	}
	*s = def
	return true
}

func defaultCreated(img *models.PromoImage, today models.Date) bool {
	if !img.CreatedDate.IsZero() {
		return false
	}
	img.CreatedDate = today
	return true
}
