package listings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastline-realty/content-backend/internal/collections"
	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/testutil"
)

var now = time.Date(2026, time.April, 2, 15, 4, 5, 0, time.UTC)

type fixture struct {
	svc      *Service
	remote   *testutil.MemoryObjectStore
	notifier *testutil.Notifier
	store    *collections.Store[[]models.Listing]
}

func newFixture(t *testing.T, allow bool, seed string) *fixture {
	t.Helper()
	remote := testutil.NewMemoryObjectStore()
	if seed != "" {
		remote.Set("content/listings.json", seed)
	}
	baseline := testutil.NewMemoryBaseline(nil)
	store := collections.NewStore[[]models.Listing](collections.Listings, Schema(), collections.Options{
		Remote:    remote,
		Baseline:  baseline,
		KeyPrefix: "content",
		Clock:     func() time.Time { return now },
	})
	t.Cleanup(store.Wait)
	notifier := &testutil.Notifier{}
	svc := NewService(store, testutil.Guard{Allow: allow}, notifier, func() time.Time { return now }, nil)
	return &fixture{svc: svc, remote: remote, notifier: notifier, store: store}
}

func validInput() Input {
	return Input{Title: " Harbor View ", Address: "12 Pier Rd", Price: 850000, Bedrooms: 3, Images: []string{"https://img.test/1.jpg"}}
}

func TestCreate(t *testing.T) {
	f := newFixture(t, true, "")

	res := f.svc.Create(context.Background(), validInput())
	require.True(t, res.Success, res.Error)

	l := res.Data.(models.Listing)
	assert.True(t, strings.HasPrefix(l.ID, "listing-"))
	assert.Equal(t, "Harbor View", l.Title)
	assert.Equal(t, models.ListingActive, l.Status)
	assert.Equal(t, "https://img.test/1.jpg", l.ImageURL)
	assert.Equal(t, now, l.CreatedAt)
	assert.Equal(t, []string{collections.Listings}, f.notifier.Calls())

	doc, ok := f.remote.Object("content/listings.json")
	require.True(t, ok)
	assert.Contains(t, doc, l.ID)
}

func TestCreate_Rejections(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		f := newFixture(t, false, "")
		res := f.svc.Create(context.Background(), validInput())
		assert.False(t, res.Success)
		assert.Equal(t, "UNAUTHORIZED", res.Code)
		assert.Equal(t, http.StatusUnauthorized, res.Status())
		assert.Empty(t, f.remote.Puts)
	})
	t.Run("invalid", func(t *testing.T) {
		f := newFixture(t, true, "")
		in := validInput()
		in.Title = ""
		in.Status = "leased"
		res := f.svc.Create(context.Background(), in)
		assert.Equal(t, "VALIDATION_ERROR", res.Code)
		assert.Contains(t, res.Error, "title is required")
		assert.Empty(t, f.remote.Puts)
		assert.Empty(t, f.notifier.Calls())
	})
	t.Run("storage failure", func(t *testing.T) {
		f := newFixture(t, true, "")
		f.remote.PutErr = errors.New("throttled")
		res := f.svc.Create(context.Background(), validInput())
		assert.Equal(t, "STORAGE_WRITE_FAILURE", res.Code)
		assert.Empty(t, f.notifier.Calls())
	})
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t, true, `[{"id":"listing-1-ab","title":"Old","address":"1 Main","price":1,"status":"active"}]`)
	ctx := context.Background()

	in := validInput()
	in.Status = models.ListingSold
	res := f.svc.Update(ctx, "listing-1-ab", in)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, models.ListingSold, res.Data.(models.Listing).Status)

	res = f.svc.Update(ctx, "listing-404", in)
	assert.Equal(t, "NOT_FOUND", res.Code)

	res = f.svc.Delete(ctx, "listing-1-ab")
	require.True(t, res.Success, res.Error)
	res = f.svc.Get(ctx, "listing-1-ab")
	assert.Equal(t, "NOT_FOUND", res.Code)

	res = f.svc.Delete(ctx, "listing-1-ab")
	assert.Equal(t, "NOT_FOUND", res.Code)
}

func TestList_FiltersByStatus(t *testing.T) {
	f := newFixture(t, false, `[{"id":"a","status":"sold"},{"id":"b","status":"active"},{"id":"c"}]`)

	res := f.svc.List(context.Background(), models.ListingActive)
	require.True(t, res.Success)
	got := res.Data.([]models.Listing)
	require.Len(t, got, 2, "records without a status migrate to active")
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestCreate_LocalModeIsNotConfigured(t *testing.T) {
	store := collections.NewStore[[]models.Listing](collections.Listings, Schema(), collections.Options{
		Baseline: testutil.NewMemoryBaseline(nil),
	})
	svc := NewService(store, testutil.Guard{Allow: true}, &testutil.Notifier{}, nil, nil)

	res := svc.Create(context.Background(), validInput())
	assert.Equal(t, "NOT_CONFIGURED", res.Code)
	assert.Equal(t, http.StatusServiceUnavailable, res.Status())
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t, true, `[{"id":"a","title":"Loft","status":"active"}]`)
	r := gin.New()
	h := NewHandler(f.svc)
	h.RegisterPublic(r.Group("/api"))
	h.RegisterAdmin(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings/a", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Loft"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader(`{"title":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader(`{"title":"New","address":"2 Elm","price":10}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}
