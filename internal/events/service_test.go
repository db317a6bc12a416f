package events

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastline-realty/content-backend/internal/collections"
	"github.com/coastline-realty/content-backend/internal/models"
	"github.com/coastline-realty/content-backend/internal/schedule"
	"github.com/coastline-realty/content-backend/internal/testutil"
	"github.com/coastline-realty/content-backend/internal/uploads"
	"github.com/coastline-realty/content-backend/pkg/imaging"
)

var now = time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	remote   *testutil.MemoryObjectStore
	notifier *testutil.Notifier
}

func newFixture(t *testing.T, allow bool) *fixture {
	t.Helper()
	remote := testutil.NewMemoryObjectStore()
	store := collections.NewStore[[]models.EventPoster](collections.Events, Schema(), collections.Options{
		Remote:    remote,
		Baseline:  testutil.NewMemoryBaseline(nil),
		KeyPrefix: "content",
		Clock:     func() time.Time { return now },
	})
	t.Cleanup(store.Wait)
	notifier := &testutil.Notifier{}
	svc := NewService(store, remote, imaging.Codec{}, testutil.Guard{Allow: allow}, notifier, func() time.Time { return now }, nil)
	return &fixture{svc: svc, remote: remote, notifier: notifier}
}

func pages(n int) []uploads.File {
	files := make([]uploads.File, n)
	for i := range files {
		files[i] = uploads.File{Filename: "page.png", ContentType: "image/png", Data: testutil.PNG(30+i, 40)}
	}
	return files
}

func TestMigratePoster(t *testing.T) {
	e, changed := migratePoster(models.EventPoster{ID: "event-100-abc2"}, now)
	assert.True(t, changed)
	assert.Equal(t, models.DefaultGoLiveDays, e.GoLiveDays)
	assert.Equal(t, "event-100-abc", e.GroupID)
	assert.Equal(t, 2, e.Ordinal)

	_, changed = migratePoster(e, now)
	assert.False(t, changed)
}

func TestCreateGroup(t *testing.T) {
	f := newFixture(t, true)
	in := CreateInput{Title: "Open House", EventDate: "2026-05-20"}

	res := f.svc.CreateGroup(context.Background(), in, pages(3))
	require.True(t, res.Success, res.Error)

	view := res.Data.(GroupView)
	require.Len(t, view.Pages, 3)
	base := view.ID
	assert.Equal(t, base, view.Pages[0].ID)
	assert.Equal(t, base+"1", view.Pages[1].ID)
	assert.Equal(t, base+"2", view.Pages[2].ID)
	for i, p := range view.Pages {
		assert.Equal(t, base, p.GroupID)
		assert.Equal(t, i, p.Ordinal)
		assert.Equal(t, models.DefaultGoLiveDays, p.GoLiveDays)
		assert.Equal(t, 40, p.Height)
	}
	assert.Equal(t, "events/"+base+"/0.png", view.Pages[0].ObjectKey)
	assert.Equal(t, "https://blob.test/events/"+base+"/2.png", view.Pages[2].ImageURL)
	assert.True(t, view.ShouldShow, "event is 10 days away")
	assert.Equal(t, []string{collections.Events}, f.notifier.Calls())

	list := f.svc.List(context.Background())
	require.True(t, list.Success)
	assert.Len(t, list.Data.([]GroupView), 1)
}

func TestCreateGroup_Rejections(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		f := newFixture(t, false)
		res := f.svc.CreateGroup(context.Background(), CreateInput{EventDate: "2026-05-20"}, pages(1))
		assert.Equal(t, "UNAUTHORIZED", res.Code)
		assert.Empty(t, f.remote.Puts)
	})
	t.Run("bad date", func(t *testing.T) {
		f := newFixture(t, true)
		res := f.svc.CreateGroup(context.Background(), CreateInput{EventDate: "20/05/2026"}, pages(1))
		assert.Equal(t, "VALIDATION_ERROR", res.Code)
		assert.Empty(t, f.remote.Puts)
	})
	t.Run("corrupt page", func(t *testing.T) {
		f := newFixture(t, true)
		files := pages(2)
		files[1].Data = files[1].Data[:16]
		res := f.svc.CreateGroup(context.Background(), CreateInput{EventDate: "2026-05-20"}, files)
		assert.Equal(t, "VALIDATION_ERROR", res.Code)
		assert.Empty(t, f.remote.Puts, "pages are checked before anything is uploaded")
	})
	t.Run("no object store", func(t *testing.T) {
		store := collections.NewStore[[]models.EventPoster](collections.Events, Schema(), collections.Options{Baseline: testutil.NewMemoryBaseline(nil)})
		svc := NewService(store, nil, imaging.Codec{}, testutil.Guard{Allow: true}, &testutil.Notifier{}, nil, nil)
		res := svc.CreateGroup(context.Background(), CreateInput{EventDate: "2026-05-20"}, pages(1))
		assert.Equal(t, "NOT_CONFIGURED", res.Code)
	})
}

func TestCreateGroup_PartialFailure(t *testing.T) {
	f := newFixture(t, true)
	f.remote.PutErr = errors.New("connection reset")
	f.remote.FailPutAfter = 1

	res := f.svc.CreateGroup(context.Background(), CreateInput{EventDate: "2026-05-20"}, pages(3))

	assert.False(t, res.Success)
	assert.Equal(t, "PARTIAL_FAILURE", res.Code)
	assert.Equal(t, http.StatusMultiStatus, res.Status())
	require.Len(t, f.remote.Puts, 1, "the first page stays uploaded")
	_, saved := f.remote.Object("content/events.json")
	assert.False(t, saved, "no records are saved")
	assert.Empty(t, f.notifier.Calls())
}

func seedLegacy(f *fixture) {
	f.remote.Set("content/events.json", `[
		{"id":"event-100-abc1","imageUrl":"https://img.test/a1.jpg","eventDate":"2026-05-20","goLiveDays":15,"forceGoLive":false,"createdAt":"2026-01-01T00:00:00Z"},
		{"id":"event-100-abc","imageUrl":"https://img.test/a0.jpg","objectKey":"events/a/0.jpg","eventDate":"2026-05-20","forceGoLive":false,"createdAt":"2026-01-01T00:00:00Z"},
		{"id":"event-200-xyz","imageUrl":"https://img.test/b.jpg","eventDate":"2026-09-01","goLiveDays":15,"forceGoLive":false,"createdAt":"2026-01-01T00:00:00Z"}
	]`)
}

func TestList_LegacyGroups(t *testing.T) {
	f := newFixture(t, true)
	seedLegacy(f)

	res := f.svc.List(context.Background())
	require.True(t, res.Success, res.Error)
	views := res.Data.([]GroupView)

	require.Len(t, views, 2)
	assert.Equal(t, "event-100-abc", views[0].ID)
	assert.Equal(t, "event-100-abc", views[0].Pages[0].ID)
	assert.Equal(t, "event-100-abc1", views[0].Pages[1].ID)
	assert.Equal(t, schedule.StatusLive, views[0].Status)
	assert.Equal(t, models.NewDate(2026, time.May, 5), views[0].GoLiveDate)
	assert.Equal(t, schedule.StatusScheduled, views[1].Status)
	assert.Equal(t, 99, views[1].DaysUntilGoLive)

	live := f.svc.Live(context.Background())
	require.True(t, live.Success)
	require.Len(t, live.Data.([]GroupView), 1)
}

func TestList_RequiresSession(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, "UNAUTHORIZED", f.svc.List(context.Background()).Code)
	assert.True(t, f.svc.Live(context.Background()).Success)
}

func TestUpdateGroup(t *testing.T) {
	f := newFixture(t, true)
	seedLegacy(f)
	date := "2026-06-30"
	days := 3

	res := f.svc.UpdateGroup(context.Background(), "event-100-abc", UpdateInput{EventDate: &date, GoLiveDays: &days})
	require.True(t, res.Success, res.Error)

	view := res.Data.(GroupView)
	assert.Len(t, view.Pages, 2)
	for _, p := range view.Pages {
		assert.Equal(t, models.NewDate(2026, time.June, 30), p.EventDate)
		assert.Equal(t, 3, p.GoLiveDays)
	}
	assert.False(t, view.ShouldShow)

	bad := "tomorrow"
	res = f.svc.UpdateGroup(context.Background(), "event-100-abc", UpdateInput{EventDate: &bad})
	assert.Equal(t, "VALIDATION_ERROR", res.Code)
	res = f.svc.UpdateGroup(context.Background(), "event-100-abc", UpdateInput{})
	assert.Equal(t, "VALIDATION_ERROR", res.Code)
	res = f.svc.UpdateGroup(context.Background(), "event-404", UpdateInput{EventDate: &date})
	assert.Equal(t, "NOT_FOUND", res.Code)
}

func TestToggleForceGoLive(t *testing.T) {
	f := newFixture(t, true)
	seedLegacy(f)

	res := f.svc.ToggleForceGoLive(context.Background(), "event-200-xyz")
	require.True(t, res.Success, res.Error)
	view := res.Data.(GroupView)
	assert.True(t, view.ForceGoLive)
	assert.True(t, view.ShouldShow)
	assert.Equal(t, 0, view.DaysUntilGoLive)

	res = f.svc.ToggleForceGoLive(context.Background(), "event-200-xyz")
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Data.(GroupView).ForceGoLive)
}

func TestDeleteGroup(t *testing.T) {
	f := newFixture(t, true)
	seedLegacy(f)

	res := f.svc.DeleteGroup(context.Background(), "event-100-abc")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"events/a/0.jpg"}, f.remote.Deletes)

	list := f.svc.List(context.Background())
	require.True(t, list.Success)
	views := list.Data.([]GroupView)
	require.Len(t, views, 1)
	assert.Equal(t, "event-200-xyz", views[0].ID)

	res = f.svc.DeleteGroup(context.Background(), "event-100-abc")
	assert.Equal(t, "NOT_FOUND", res.Code)
}

func TestDeleteGroup_LegacyPageWithoutKey(t *testing.T) {
	f := newFixture(t, true)
	f.remote.Set("content/events.json", `[
		{"id":"event-300-leg","imageUrl":"https://blob.test/events/legacy/0.jpg","eventDate":"2026-09-01","goLiveDays":15,"createdAt":"2026-01-01T00:00:00Z"}
	]`)
	f.remote.Set("events/legacy/0.jpg", "x")

	res := f.svc.DeleteGroup(context.Background(), "event-300-leg")
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{"events/legacy/0.jpg"}, f.remote.Deletes)
	_, ok := f.remote.Object("events/legacy/0.jpg")
	assert.False(t, ok)
}

func TestDeleteGroup_BlobFailureStillSucceeds(t *testing.T) {
	f := newFixture(t, true)
	seedLegacy(f)
	f.remote.DeleteErr = errors.New("denied")
	retry := &testutil.Retrier{}
	f.svc.SetDeleteRetrier(retry)

	res := f.svc.DeleteGroup(context.Background(), "event-100-abc")
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"events/a/0.jpg"}, retry.Keys)
}

func TestHandler_CreateMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t, true)
	r := gin.New()
	NewHandler(f.svc).RegisterAdmin(r.Group("/api/admin"))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("title", "Spring Fair"))
	require.NoError(t, mw.WriteField("eventDate", "2026-05-25"))
	require.NoError(t, mw.WriteField("goLiveDays", "20"))
	for i := 0; i < 2; i++ {
		part, err := mw.CreateFormFile("files", "page.png")
		require.NoError(t, err)
		_, err = part.Write(testutil.PNG(10, 10))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/events", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"goLiveDays":20`)
	assert.Contains(t, w.Body.String(), `"eventDate":"2026-05-25"`)
	assert.Len(t, f.remote.Puts, 3, "two pages and the collection document")
}
