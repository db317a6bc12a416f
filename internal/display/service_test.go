package display

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/schedule"
	"github.com/coastline-realty/content-backend/internal/testutil"
)

type fakeEvents struct {
	posters []models.EventPoster
	err     error
	calls   int
}

func (f *fakeEvents) Posters(context.Context) ([]models.EventPoster, error) {
	f.calls++
	return f.posters, f.err
}

type fakePromo struct {
	cfg *models.PromoConfig
}

func (f *fakePromo) Current(context.Context) (*models.PromoConfig, error) {
	return f.cfg, nil
}

var (
	eventDay = models.NewDate(2026, time.October, 31)
	liveNow  = eventDay.AddDays(-3).At(time.UTC).Add(10 * time.Hour)
)

func enabledPromo(forced bool) *models.PromoConfig {
	c := models.DefaultPromoConfig()
	c.Enabled = true
	c.ForceGoLive = forced
	c.Images = []models.PromoImage{{ID: "p1", ImageURL: "https://img.test/p1.jpg"}}
	c.DeriveType()
	return c
}

func TestCurrent(t *testing.T) {
	ev := &fakeEvents{posters: []models.EventPoster{{ID: "event-1-ab", EventDate: eventDay, GoLiveDays: 15}}}
	pr := &fakePromo{cfg: enabledPromo(false)}
	svc := NewService(ev, pr, func() time.Time { return liveNow }, 0, nil)

	res := svc.Current(context.Background())
	require.True(t, res.Success, res.Error)
	v := res.Data.(View)
	assert.Equal(t, schedule.DisplayEvents, v.Kind)
	require.Len(t, v.Events, 1)
	assert.Nil(t, v.Promo)

	pr.cfg = enabledPromo(true)
	v = svc.Current(context.Background()).Data.(View)
	assert.Equal(t, schedule.DisplayPromo, v.Kind)
	assert.True(t, v.Forced)
	require.NotNil(t, v.Promo)
	assert.Equal(t, models.PromoSingle, v.Promo.Type)
}

func TestCurrent_CacheAndInvalidate(t *testing.T) {
	clock := testutil.NewClock(liveNow)
	ev := &fakeEvents{}
	pr := &fakePromo{cfg: enabledPromo(false)}
	svc := NewService(ev, pr, clock.Now, time.Minute, nil)

	assert.Equal(t, schedule.DisplayPromo, svc.Current(context.Background()).Data.(View).Kind)
	svc.Current(context.Background())
	assert.Equal(t, 1, ev.calls)

	ev.posters = []models.EventPoster{{ID: "event-1-ab", EventDate: eventDay, GoLiveDays: 15}}
	svc.Invalidate()
	assert.Equal(t, schedule.DisplayEvents, svc.Current(context.Background()).Data.(View).Kind)
	assert.Equal(t, 2, ev.calls)

	clock.Advance(2 * time.Minute)
	svc.Current(context.Background())
	assert.Equal(t, 3, ev.calls)
}

func TestCurrent_CachedPromoExpiresAtMidnight(t *testing.T) {
	expires := models.NewDate(2026, time.October, 20)
	clock := testutil.NewClock(expires.At(time.UTC).Add(23*time.Hour + 59*time.Minute + 50*time.Second))
	cfg := enabledPromo(false)
	cfg.Images = append(cfg.Images, models.PromoImage{ID: "p2", ImageURL: "https://img.test/p2.jpg", ExpirationDate: expires.Ptr()})
	cfg.DeriveType()
	ev := &fakeEvents{}
	svc := NewService(ev, &fakePromo{cfg: cfg}, clock.Now, time.Minute, nil)

	v := svc.Current(context.Background()).Data.(View)
	require.NotNil(t, v.Promo)
	assert.Len(t, v.Promo.Images, 2)
	assert.Equal(t, models.PromoCarousel, v.Promo.Type)

	clock.Advance(25 * time.Second)
	v = svc.Current(context.Background()).Data.(View)
	assert.Equal(t, 1, ev.calls, "still served from cache")
	require.NotNil(t, v.Promo)
	require.Len(t, v.Promo.Images, 1)
	assert.Equal(t, "p1", v.Promo.Images[0].ID)
	assert.Equal(t, models.PromoSingle, v.Promo.Type)
}

func TestCurrent_LoadError(t *testing.T) {
	ev := &fakeEvents{err: errors.New("boom")}
	svc := NewService(ev, &fakePromo{}, nil, 0, nil)

	res := svc.Current(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, http.StatusInternalServerError, res.Status())
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(&fakeEvents{}, &fakePromo{}, func() time.Time { return liveNow }, 0, nil)
	r := gin.New()
	NewHandler(svc).Register(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/display", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"kind":"none"}}`, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
