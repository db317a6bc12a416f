// Package listings manages property listings.
package listings

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/internal/auth"
	"github.com/coastline-realty/content-backend/internal/collections"
	"github.com/coastline-realty/content-backend/internal/grouping"
	"github.com/coastline-realty/content-backend/internal/invalidation"
	"github.com/coastline-realty/content-backend/internal/models"
)

// Input is the editable part of a listing.
type Input struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Address     string               `json:"address" validate:"required,max=300"`
	Price       int64                `json:"price" validate:"gte=0"`
	Bedrooms    int                  `json:"bedrooms" validate:"gte=0"`
	Bathrooms   float64              `json:"bathrooms" validate:"gte=0"`
	SquareFeet  int                  `json:"squareFeet" validate:"gte=0"`
	Description string               `json:"description" validate:"max=10000"`
	ImageURL    string               `json:"imageUrl" validate:"omitempty,url"`
	Images      []string             `json:"images" validate:"omitempty,dive,url"`
	Status      models.ListingStatus `json:"status" validate:"omitempty,oneof=active pending sold"`
}

// Schema returns the listings collection schema.
func Schema() collections.RecordSchema[models.Listing] {
	return collections.RecordSchema[models.Listing]{MigrateRecord: migrateListing}
}

func migrateListing(l models.Listing, _ time.Time) (models.Listing, bool) {
	if l.Status != "" {
		return l, false
	}
	l.Status = models.ListingActive
	return l, true
}

// Service implements the listing actions.
type Service struct {
	store    *collections.Store[[]models.Listing]
	guard    auth.Guard
	notifier invalidation.Notifier
	clock    func() time.Time
	logger   *zap.Logger
}

// NewService creates the listings service.
func NewService(store *collections.Store[[]models.Listing], guard auth.Guard, notifier invalidation.Notifier, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, guard: guard, notifier: notifier, clock: clock, logger: logger}
}

// List returns all listings, optionally only those with status.
func (s *Service) List(ctx context.Context, status models.ListingStatus) action.Result {
	return action.Run(s.logger, "listings.list", func() (any, error) {
		all, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if status == "" {
			return all, nil
		}
		out := make([]models.Listing, 0, len(all))
		for _, l := range all {
			if l.Status == status {
				out = append(out, l)
			}
		}
		return out, nil
	})
}

// Get returns one listing.
func (s *Service) Get(ctx context.Context, id string) action.Result {
	return action.Run(s.logger, "listings.get", func() (any, error) {
		all, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if i := indexOf(all, id); i >= 0 {
			return all[i], nil
		}
		return nil, action.NotFound("listing " + id + " not found")
	})
}

// Create adds a listing.
func (s *Service) Create(ctx context.Context, in Input) action.Result {
	return action.Run(s.logger, "listings.create", func() (any, error) {
		if err := s.authorize(ctx, in); err != nil {
			return nil, err
		}
		now := s.clock()
		l := apply(models.Listing{ID: grouping.NewID("listing", now), CreatedAt: now}, in, now)
		if _, err := s.store.Update(ctx, func(all []models.Listing) ([]models.Listing, error) {
			return append(all, l), nil
		}); err != nil {
			return nil, err
		}
		s.notifier.Notify(collections.Listings)
		return l, nil
	})
}

// Update replaces the editable fields of listing id.
func (s *Service) Update(ctx context.Context, id string, in Input) action.Result {
	return action.Run(s.logger, "listings.update", func() (any, error) {
		if err := s.authorize(ctx, in); err != nil {
			return nil, err
		}
		var updated models.Listing
		if _, err := s.store.Update(ctx, func(all []models.Listing) ([]models.Listing, error) {
			i := indexOf(all, id)
			if i < 0 {
				return nil, action.NotFound("listing " + id + " not found")
			}
			updated = apply(all[i], in, s.clock())
			all[i] = updated
			return all, nil
		}); err != nil {
			return nil, err
		}
		s.notifier.Notify(collections.Listings)
		return updated, nil
	})
}

// Delete removes listing id.
func (s *Service) Delete(ctx context.Context, id string) action.Result {
	return action.Run(s.logger, "listings.delete", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		if _, err := s.store.Update(ctx, func(all []models.Listing) ([]models.Listing, error) {
			i := indexOf(all, id)
			if i < 0 {
				return nil, action.NotFound("listing " + id + " not found")
			}
			return append(all[:i], all[i+1:]...), nil
		}); err != nil {
			return nil, err
		}
		s.notifier.Notify(collections.Listings)
		return nil, nil
	})
}

func (s *Service) authorize(ctx context.Context, in Input) error {
	if !s.guard.IsAuthenticated(ctx) {
		return action.ErrUnauthorized
	}
	return action.ValidateStruct(in)
}

func apply(l models.Listing, in Input, now time.Time) models.Listing {
	l.Title = strings.TrimSpace(in.Title)
	l.Address = strings.TrimSpace(in.Address)
	l.Price = in.Price
	l.Bedrooms = in.Bedrooms
	l.Bathrooms = in.Bathrooms
	l.SquareFeet = in.SquareFeet
	l.Description = in.Description
	l.ImageURL = in.ImageURL
	l.Images = append([]string(nil), in.Images...)
	if l.ImageURL == "" && len(l.Images) > 0 {
		l.ImageURL = l.Images[0]
	}
	l.Status = in.Status
	if l.Status == "" {
		l.Status = models.ListingActive
	}
	l.UpdatedAt = now
	return l
}

func indexOf(all []models.Listing, id string) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}
