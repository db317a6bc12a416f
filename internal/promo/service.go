// Package promo manages the promo popup: its settings and its active and
// past images.
package promo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/internal/auth"
	"github.com/coastline-realty/content-backend/internal/collections"
	"github.com/coastline-realty/content-backend/internal/grouping"
	"github.com/coastline-realty/content-backend/internal/invalidation"
	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/uploads"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

// Store is the promo config repository.
type Store = collections.Store[*models.PromoConfig]

// SettingsInput changes popup settings. Nil fields are left as they are.
type SettingsInput struct {
	Enabled         *bool   `json:"enabled"`
	LinkURL         *string `json:"linkUrl" validate:"omitempty,url"`
	LinkText        *string `json:"linkText" validate:"omitempty,max=80"`
	BackgroundColor *string `json:"backgroundColor" validate:"omitempty,hexcolor"`
	TextColor       *string `json:"textColor" validate:"omitempty,hexcolor"`
}

// AddInput is the metadata shared by a batch of new images.
type AddInput struct {
	Alt            string `json:"alt" form:"alt" validate:"max=300"`
	ExpirationDate string `json:"expirationDate" form:"expirationDate"`
}

// Service implements the promo actions.
type Service struct {
	store    *Store
	objects  storage.ObjectStore
	codec    uploads.Processor
	guard    auth.Guard
	notifier invalidation.Notifier
	retry    uploads.Retrier
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService creates the promo service. objects may be nil when no object
// store is configured.
func NewService(store *Store, objects storage.ObjectStore, codec uploads.Processor, guard auth.Guard, notifier invalidation.Notifier, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, objects: objects, codec: codec, guard: guard, notifier: notifier, clock: clock, logger: logger}
}

// SetDeleteRetrier hands blob deletes that fail to r for another attempt.
func (s *Service) SetDeleteRetrier(r uploads.Retrier) {
	s.retry = r
}

// Current returns the stored config, or the defaults when none exists.
func (s *Service) Current(ctx context.Context) (*models.PromoConfig, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return models.DefaultPromoConfig(), nil
	}
	return c, nil
}

// Config returns the promo config.
func (s *Service) Config(ctx context.Context) action.Result {
	return action.Run(s.logger, "promo.config", func() (any, error) {
		return s.Current(ctx)
	})
}

// UpdateSettings changes the popup settings. Disabling the popup also drops
// the force override.
func (s *Service) UpdateSettings(ctx context.Context, in SettingsInput) action.Result {
	return s.mutate(ctx, "promo.settings", func() error {
		return action.ValidateStruct(in)
	}, func(c *models.PromoConfig, _ models.Date) error {
		if in.Enabled != nil {
			c.Enabled = *in.Enabled
			if !c.Enabled {
				c.ForceGoLive = false
			}
		}
		if in.LinkURL != nil {
			c.LinkURL = strings.TrimSpace(*in.LinkURL)
		}
		if in.LinkText != nil {
			c.LinkText = strings.TrimSpace(*in.LinkText)
		}
		if in.BackgroundColor != nil {
			c.BackgroundColor = *in.BackgroundColor
		}
		if in.TextColor != nil {
			c.TextColor = *in.TextColor
		}
		return nil
	})
}

// AddImages uploads new active images in order.
func (s *Service) AddImages(ctx context.Context, in AddInput, files []uploads.File) action.Result {
	return action.Run(s.logger, "promo.add", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		if err := action.ValidateStruct(in); err != nil {
			return nil, err
		}
		now := s.clock()
		today := models.DateOf(now)
		var expires *models.Date
		if in.ExpirationDate != "" {
			d, err := models.ParseDate(in.ExpirationDate)
			if err != nil {
				return nil, action.Validation("expirationDate: " + err.Error())
			}
			if d.Before(today) {
				return nil, action.Validation("expirationDate is in the past")
			}
			expires = &d
		}
		if s.objects == nil || !s.store.Writable() {
			return nil, action.ErrNotConfigured
		}
		prepared, err := uploads.Prepare(s.codec, files)
		if err != nil {
			return nil, err
		}

		ids := make([]string, len(prepared))
		for i := range ids {
			ids[i] = grouping.NewID("promo", now)
		}
		stored, err := uploads.Put(ctx, s.objects, prepared, func(i int, p uploads.Prepared) string {
			return fmt.Sprintf("%s/%s%s", storage.FolderPromo, ids[i], p.Ext())
		}, s.logger)
		if err != nil {
			return nil, err
		}

		images := make([]models.PromoImage, len(stored))
		for i, obj := range stored {
			images[i] = models.PromoImage{
				ID:          ids[i],
				ImageURL:    obj.URL,
				ObjectKey:   obj.Key,
				Alt:         strings.TrimSpace(in.Alt),
				CreatedDate: today,
				Width:       obj.Image.Width,
				Height:      obj.Image.Height,
			}
			if expires != nil {
				images[i].ExpirationDate = expires.Ptr()
			}
		}
		saved, err := s.update(ctx, func(c *models.PromoConfig) error {
			c.Images = append(c.Images, images...)
			return nil
		})
		if err != nil {
			s.logger.Error("promo images not saved, uploads orphaned", zap.Int("count", len(images)), zap.Error(err))
			return nil, err
		}
		return saved, nil
	})
}

// Archive moves an active image to the past list.
func (s *Service) Archive(ctx context.Context, id string) action.Result {
	return s.mutate(ctx, "promo.archive", nil, func(c *models.PromoConfig, today models.Date) error {
		i := c.ActiveIndex(id)
		if i < 0 {
			return action.NotFound("active promo image " + id + " not found")
		}
		img := c.Images[i]
		img.IsArchived = true
		img.LastUsedDate = today.Ptr()
		img.ExpirationDate = nil
		c.Images = append(c.Images[:i], c.Images[i+1:]...)
		c.PastPromos = append(c.PastPromos, img)
		return nil
	})
}

// Reinstate moves a past image back to the active list for durationDays and
// forces the popup live.
func (s *Service) Reinstate(ctx context.Context, id string, durationDays int) action.Result {
	return s.mutate(ctx, "promo.reinstate", func() error {
		if durationDays < 1 {
			return action.Validation("durationDays must be at least 1")
		}
		return nil
	}, func(c *models.PromoConfig, today models.Date) error {
		i := c.PastIndex(id)
		if i < 0 {
			return action.NotFound("past promo image " + id + " not found")
		}
		img := c.PastPromos[i]
		img.IsArchived = false
		img.ExpirationDate = today.AddDays(durationDays).Ptr()
		c.PastPromos = append(c.PastPromos[:i], c.PastPromos[i+1:]...)
		c.Images = append(c.Images, img)
		c.ForceGoLive = true
		return nil
	})
}

// PermanentlyDelete removes a past image and then its object. The object
// delete is best-effort.
func (s *Service) PermanentlyDelete(ctx context.Context, id string) action.Result {
	var blob uploads.Blob
	res := s.mutate(ctx, "promo.delete", nil, func(c *models.PromoConfig, _ models.Date) error {
		i := c.PastIndex(id)
		if i < 0 {
			return action.NotFound("past promo image " + id + " not found")
		}
		blob = uploads.Blob{Key: c.PastPromos[i].ObjectKey, URL: c.PastPromos[i].ImageURL}
		c.PastPromos = append(c.PastPromos[:i], c.PastPromos[i+1:]...)
		return nil
	})
	if res.Success {
		keys := uploads.ResolveKeys(s.objects, []uploads.Blob{blob}, s.logger)
		uploads.DeleteAll(ctx, s.objects, keys, s.retry, s.logger)
	}
	return res
}

// SetExpiration sets or clears (date nil) the expiration of an active image.
func (s *Service) SetExpiration(ctx context.Context, id string, date *string) action.Result {
	var expires *models.Date
	return s.mutate(ctx, "promo.expiration", func() error {
		if date == nil || *date == "" {
			return nil
		}
		d, err := models.ParseDate(*date)
		if err != nil {
			return action.Validation("expirationDate: " + err.Error())
		}
		if d.Before(models.DateOf(s.clock())) {
			return action.Validation("expirationDate is in the past")
		}
		expires = &d
		return nil
	}, func(c *models.PromoConfig, _ models.Date) error {
		i := c.ActiveIndex(id)
		if i < 0 {
			return action.NotFound("active promo image " + id + " not found")
		}
		c.Images[i].ExpirationDate = expires
		return nil
	})
}

// SetForceGoLive turns the force override on or off. It cannot be turned on
// while the popup is disabled or has no active images.
func (s *Service) SetForceGoLive(ctx context.Context, on bool) action.Result {
	return s.mutate(ctx, "promo.force", nil, func(c *models.PromoConfig, _ models.Date) error {
		if on && !c.Enabled {
			return action.Validation("enable the promo popup before forcing it live")
		}
		if on && len(c.Images) == 0 {
			return action.Validation("add at least one active image before forcing the popup live")
		}
		c.ForceGoLive = on
		return nil
	})
}

// mutate authorizes, runs check, then applies fn to the config under the
// collection's writer lock and returns the saved config.
func (s *Service) mutate(ctx context.Context, name string, check func() error, fn func(c *models.PromoConfig, today models.Date) error) action.Result {
	return action.Run(s.logger, name, func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		if check != nil {
			if err := check(); err != nil {
				return nil, err
			}
		}
		today := models.DateOf(s.clock())
		return s.update(ctx, func(c *models.PromoConfig) error {
			return fn(c, today)
		})
	})
}

func (s *Service) update(ctx context.Context, fn func(c *models.PromoConfig) error) (*models.PromoConfig, error) {
	saved, err := s.store.Update(ctx, func(c *models.PromoConfig) (*models.PromoConfig, error) {
		if c == nil {
			c = models.DefaultPromoConfig()
		}
		if err := fn(c); err != nil {
			return nil, err
		}
		c.DeriveType()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(collections.Promo)
	return saved, nil
}
