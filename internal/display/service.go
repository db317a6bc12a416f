// Package display answers what the public site shows right now.
package display

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/internal/events"
	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/schedule"
)

// EventSource loads the event posters.
type EventSource interface {
	Posters(ctx context.Context) ([]models.EventPoster, error)
}

// PromoSource loads the promo config.
type PromoSource interface {
	Current(ctx context.Context) (*models.PromoConfig, error)
}

// View is the public display decision.
type View struct {
	Kind   schedule.DisplayKind `json:"kind"`
	Forced bool                 `json:"forced,omitempty"`
	Events []events.GroupView   `json:"events,omitempty"`
	Promo  *PromoView           `json:"promo,omitempty"`
}

// PromoView is the part of the promo config the popup needs.
type PromoView struct {
	Type            models.PromoType    `json:"type"`
	Images          []models.PromoImage `json:"images"`
	LinkURL         string              `json:"linkUrl,omitempty"`
	LinkText        string              `json:"linkText,omitempty"`
	BackgroundColor string              `json:"backgroundColor"`
	TextColor       string              `json:"textColor"`
}

// Service evaluates the display decision per request. Loaded collections
// may be cached for ttl; the decision itself always uses the current time.
type Service struct {
	eventSrc EventSource
	promoSrc PromoSource
	clock    func() time.Time
	ttl      time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	cached   *snapshot
	cachedAt time.Time
}

type snapshot struct {
	posters []models.EventPoster
	promo   *models.PromoConfig
}

// NewService creates the display service. A zero ttl disables caching.
func NewService(eventSrc EventSource, promoSrc PromoSource, clock func() time.Time, ttl time.Duration, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{eventSrc: eventSrc, promoSrc: promoSrc, clock: clock, ttl: ttl, logger: logger}
}

// Current returns what to show now.
func (s *Service) Current(ctx context.Context) action.Result {
	return action.Run(s.logger, "display.current", func() (any, error) {
		snap, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		now := s.clock()
		d := schedule.Decide(snap.posters, snap.promo, now)
		v := View{Kind: d.Kind, Forced: d.Forced}
		for _, g := range d.Events {
			v.Events = append(v.Events, events.NewGroupView(g, now))
		}
		if d.Promo != nil {
			v.Promo = &PromoView{
				Type:            d.Promo.Type,
				Images:          d.Promo.Images,
				LinkURL:         d.Promo.LinkURL,
				LinkText:        d.Promo.LinkText,
				BackgroundColor: d.Promo.BackgroundColor,
				TextColor:       d.Promo.TextColor,
			}
		}
		return v, nil
	})
}

// Invalidate drops the cached collections.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Service) load(ctx context.Context) (*snapshot, error) {
	if s.ttl > 0 {
		s.mu.Lock()
		if s.cached != nil && s.clock().Sub(s.cachedAt) < s.ttl {
			snap := s.cached
			s.mu.Unlock()
			return snap, nil
		}
		s.mu.Unlock()
	}

	posters, err := s.eventSrc.Posters(ctx)
	if err != nil {
		return nil, err
	}
	promo, err := s.promoSrc.Current(ctx)
	if err != nil {
		return nil, err
	}
	snap := &snapshot{posters: posters, promo: promo}
	if s.ttl > 0 {
		s.mu.Lock()
		s.cached, s.cachedAt = snap, s.clock()
		s.mu.Unlock()
	}
	return snap, nil
}
