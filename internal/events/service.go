// Package events manages event flyers: groups of poster pages that share a
// date and go-live window.
package events

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
	"github.com/coastline-realty/content-backend/internal/schedule"
	"github.com/coastline-realty/content-backend/internal/uploads"
	"github.com/coastline-realty/content-backend/pkg/storage"
)

// Store is the events collection repository.
type Store = collections.Store[[]models.EventPoster]

// Schema returns the events collection schema. Older records get the
// default go-live window and an explicit group derived from their id.
func Schema() collections.RecordSchema[models.EventPoster] {
	return collections.RecordSchema[models.EventPoster]{MigrateRecord: migratePoster}
}

func migratePoster(e models.EventPoster, _ time.Time) (models.EventPoster, bool) {
	changed := false
	if e.GoLiveDays < 1 {
		e.GoLiveDays = models.DefaultGoLiveDays
		changed = true
	}
	if e.GroupID == "" {
		e.GroupID, e.Ordinal = grouping.Split(e.ID)
		changed = true
	}
	return e, changed
}

// CreateInput is the metadata of a new flyer.
type CreateInput struct {
	Title       string `json:"title" form:"title" validate:"max=200"`
	EventDate   string `json:"eventDate" form:"eventDate" validate:"required"`
	GoLiveDays  int    `json:"goLiveDays" form:"goLiveDays" validate:"gte=0,lte=365"`
	ForceGoLive bool   `json:"forceGoLive" form:"forceGoLive"`
}

// UpdateInput changes flyer metadata. Nil fields are left as they are.
type UpdateInput struct {
	Title      *string `json:"title" validate:"omitempty,max=200"`
	EventDate  *string `json:"eventDate"`
	GoLiveDays *int    `json:"goLiveDays" validate:"omitempty,gte=1,lte=365"`
}

// GroupView is a flyer with its computed schedule.
type GroupView struct {
	ID              string               `json:"id"`
	Title           string               `json:"title,omitempty"`
	EventDate       models.Date          `json:"eventDate"`
	GoLiveDays      int                  `json:"goLiveDays"`
	GoLiveDate      models.Date          `json:"goLiveDate"`
	ForceGoLive     bool                 `json:"forceGoLive"`
	ShouldShow      bool                 `json:"shouldShow"`
	DaysUntilGoLive int                  `json:"daysUntilGoLive"`
	Status          schedule.EventStatus `json:"status"`
	Pages           []models.EventPoster `json:"pages"`
}

// NewGroupView computes the schedule of g at now.
func NewGroupView(g grouping.Group[models.EventPoster], now time.Time) GroupView {
	first := g.Members[0]
	v := GroupView{
		ID:              g.ID,
		Title:           first.Title,
		EventDate:       first.EventDate,
		GoLiveDays:      first.EffectiveGoLiveDays(),
		GoLiveDate:      schedule.GoLiveDate(first),
		ForceGoLive:     first.ForceGoLive,
		DaysUntilGoLive: schedule.DaysUntilGoLive(first, now),
		Status:          schedule.Status(first, now),
		Pages:           g.Members,
	}
	for _, e := range g.Members {
		if schedule.ShouldShow(e, now) {
			v.ShouldShow = true
			break
		}
	}
	return v
}

// Service implements the event flyer actions.
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

// NewService creates the events service. objects may be nil when no object
// store is configured; uploads then fail as not configured.
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

// Posters returns the merged poster collection.
func (s *Service) Posters(ctx context.Context) ([]models.EventPoster, error) {
	return s.store.Load(ctx)
}

// List returns every flyer with its schedule, for the admin view.
func (s *Service) List(ctx context.Context) action.Result {
	return action.Run(s.logger, "events.list", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		all, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		now := s.clock()
		groups := schedule.GroupEvents(all)
		out := make([]GroupView, 0, len(groups))
		for _, g := range groups {
			out = append(out, NewGroupView(g, now))
		}
		return out, nil
	})
}

// Live returns the flyers showing now.
func (s *Service) Live(ctx context.Context) action.Result {
	return action.Run(s.logger, "events.live", func() (any, error) {
		all, err := s.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		now := s.clock()
		live := schedule.LiveGroups(all, now)
		out := make([]GroupView, 0, len(live))
		for _, g := range live {
			out = append(out, NewGroupView(g, now))
		}
		return out, nil
	})
}

// CreateGroup uploads the pages of a new flyer in order and saves one record
// per page. The first page gets the bare group id.
func (s *Service) CreateGroup(ctx context.Context, in CreateInput, files []uploads.File) action.Result {
	return action.Run(s.logger, "events.create", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		if err := action.ValidateStruct(in); err != nil {
			return nil, err
		}
		date, err := models.ParseDate(in.EventDate)
		if err != nil {
			return nil, action.Validation("eventDate: " + err.Error())
		}
		if s.objects == nil || !s.store.Writable() {
			return nil, action.ErrNotConfigured
		}
		pages, err := uploads.Prepare(s.codec, files)
		if err != nil {
			return nil, err
		}

		now := s.clock()
		groupID := grouping.NewID("event", now)
		stored, err := uploads.Put(ctx, s.objects, pages, func(i int, p uploads.Prepared) string {
			return fmt.Sprintf("%s/%s/%d%s", storage.FolderEvents, groupID, i, p.Ext())
		}, s.logger)
		if err != nil {
			return nil, err
		}

		goLive := in.GoLiveDays
		if goLive == 0 {
			goLive = models.DefaultGoLiveDays
		}
		records := make([]models.EventPoster, len(stored))
		for i, obj := range stored {
			records[i] = models.EventPoster{
				ID:          grouping.MemberID(groupID, i),
				GroupID:     groupID,
				Ordinal:     i,
				ImageURL:    obj.URL,
				ObjectKey:   obj.Key,
				Title:       strings.TrimSpace(in.Title),
				EventDate:   date,
				GoLiveDays:  goLive,
				ForceGoLive: in.ForceGoLive,
				Width:       obj.Image.Width,
				Height:      obj.Image.Height,
				CreatedAt:   now,
			}
		}
		if _, err := s.store.Update(ctx, func(all []models.EventPoster) ([]models.EventPoster, error) {
			return append(all, records...), nil
		}); err != nil {
			s.logger.Error("event records not saved, uploaded pages orphaned", zap.String("group_id", groupID), zap.Error(err))
			return nil, err
		}
		s.notifier.Notify(collections.Events)
		s.logger.Info("event flyer created", zap.String("group_id", groupID), zap.Int("pages", len(records)))
		return NewGroupView(grouping.Group[models.EventPoster]{ID: groupID, Members: records}, now), nil
	})
}

// UpdateGroup applies metadata changes to every page of the flyer.
func (s *Service) UpdateGroup(ctx context.Context, groupID string, in UpdateInput) action.Result {
	return action.Run(s.logger, "events.update", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		if err := action.ValidateStruct(in); err != nil {
			return nil, err
		}
		if in.Title == nil && in.EventDate == nil && in.GoLiveDays == nil {
			return nil, action.Validation("nothing to update")
		}
		var date models.Date
		if in.EventDate != nil {
			d, err := models.ParseDate(*in.EventDate)
			if err != nil {
				return nil, action.Validation("eventDate: " + err.Error())
			}
			date = d
		}
		return s.mutateGroup(ctx, groupID, func(e *models.EventPoster) {
			if in.Title != nil {
				e.Title = strings.TrimSpace(*in.Title)
			}
			if in.EventDate != nil {
				e.EventDate = date
			}
			if in.GoLiveDays != nil {
				e.GoLiveDays = *in.GoLiveDays
			}
		})
	})
}

// ToggleForceGoLive flips the force flag of the whole flyer.
func (s *Service) ToggleForceGoLive(ctx context.Context, groupID string) action.Result {
	return action.Run(s.logger, "events.toggle_force", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		var next *bool
		return s.mutateGroup(ctx, groupID, func(e *models.EventPoster) {
			if next == nil {
				v := !e.ForceGoLive
				next = &v
			}
			e.ForceGoLive = *next
		})
	})
}

// DeleteGroup removes every page of the flyer and then deletes the page
// images. Image deletion is best-effort.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) action.Result {
	return action.Run(s.logger, "events.delete", func() (any, error) {
		if !s.guard.IsAuthenticated(ctx) {
			return nil, action.ErrUnauthorized
		}
		var blobs []uploads.Blob
		if _, err := s.store.Update(ctx, func(all []models.EventPoster) ([]models.EventPoster, error) {
			kept := all[:0]
			for _, e := range all {
				if id, _ := e.GroupKey(); id == groupID {
					blobs = append(blobs, uploads.Blob{Key: e.ObjectKey, URL: e.ImageURL})
					continue
				}
				kept = append(kept, e)
			}
			if len(blobs) == 0 {
				return nil, action.NotFound("event " + groupID + " not found")
			}
			return kept, nil
		}); err != nil {
			return nil, err
		}
		keys := uploads.ResolveKeys(s.objects, blobs, s.logger)
		uploads.DeleteAll(ctx, s.objects, keys, s.retry, s.logger)
		s.notifier.Notify(collections.Events)
		return nil, nil
	})
}

// mutateGroup applies fn to every page of groupID and returns the updated
// flyer view.
func (s *Service) mutateGroup(ctx context.Context, groupID string, fn func(*models.EventPoster)) (GroupView, error) {
	var members []models.EventPoster
	if _, err := s.store.Update(ctx, func(all []models.EventPoster) ([]models.EventPoster, error) {
		for i := range all {
			if id, _ := all[i].GroupKey(); id == groupID {
				fn(&all[i])
				members = append(members, all[i])
			}
		}
		if len(members) == 0 {
			return nil, action.NotFound("event " + groupID + " not found")
		}
		return all, nil
	}); err != nil {
		return GroupView{}, err
	}
	s.notifier.Notify(collections.Events)
	groups := schedule.GroupEvents(members)
	return NewGroupView(groups[0], s.clock()), nil
}
