package uploads

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/coastline-realty/content-backend/internal/action"
	"github.com/coastline-realty/content-backend/internal/testutil"
	"github.com/coastline-realty/content-backend/pkg/imaging"
)

func TestPrepare_Validation(t *testing.T) {
	codec := imaging.Codec{}
	png := testutil.PNG(8, 6)

	tests := []struct {
		name  string
		files []File
		msg   string
	}{
		{"no files", nil, "at least one image"},
		{"empty part", []File{{Filename: "a.png"}}, "a.png is empty"},
		{"wrong type", []File{{Filename: "a.pdf", ContentType: "application/pdf", Data: png}}, "only jpg"},
		{"corrupt", []File{{Filename: "a.png", ContentType: "image/png", Data: png[:24]}}, "not a readable image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(codec, tt.files)
			assert.ErrorIs(t, err, action.ErrValidation)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPrepare_Measures(t *testing.T) {
	got, err := Prepare(imaging.Codec{}, []File{{Filename: "flyer.png", Data: testutil.PNG(8, 6)}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Image.Width)
	assert.Equal(t, 6, got[0].Image.Height)
	assert.Equal(t, ".png", got[0].Ext())
}

func TestPut_PartialFailure(t *testing.T) {
	objects := testutil.NewMemoryObjectStore()
	objects.PutErr = errors.New("bucket unavailable")
	objects.FailPutAfter = 2
	items, err := Prepare(imaging.Codec{}, []File{
		{Filename: "1.png", Data: testutil.PNG(4, 4)},
		{Filename: "2.png", Data: testutil.PNG(4, 4)},
		{Filename: "3.png", Data: testutil.PNG(4, 4)},
	})
	require.NoError(t, err)

	stored, err := Put(context.Background(), objects, items, func(i int, p Prepared) string {
		return fmt.Sprintf("events/g/%d%s", i, p.Ext())
	}, zap.NewNop())

	assert.ErrorIs(t, err, action.ErrPartialFailure)
	assert.Contains(t, err.Error(), "uploaded 2 of 3")
	assert.Len(t, stored, 2)
	assert.Equal(t, []string{"events/g/0.png", "events/g/1.png"}, objects.Puts)
}

func TestPut_FirstFailureIsStorageWrite(t *testing.T) {
	objects := testutil.NewMemoryObjectStore()
	objects.PutErr = errors.New("denied")
	items, err := Prepare(imaging.Codec{}, []File{{Filename: "1.png", Data: testutil.PNG(4, 4)}})
	require.NoError(t, err)

	_, err = Put(context.Background(), objects, items, func(int, Prepared) string { return "k" }, zap.NewNop())
	assert.ErrorIs(t, err, action.ErrStorageWrite)
	assert.NotErrorIs(t, err, action.ErrPartialFailure)
}

type retrier struct {
	keys []string
	err  error
}

func (r *retrier) RetryDelete(_ context.Context, keys []string) error {
	r.keys = append(r.keys, keys...)
	return r.err
}

func TestResolveKeys(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	objects := testutil.NewMemoryObjectStore()

	keys := ResolveKeys(objects, []Blob{
		{Key: "events/a/0.jpg", URL: "https://blob.test/events/a/0.jpg"},
		{URL: "https://blob.test/events/legacy/1.jpg"},
		{URL: "https://img.elsewhere.test/2.jpg"},
		{},
	}, zap.New(core))

	assert.Equal(t, []string{"events/a/0.jpg", "events/legacy/1.jpg"}, keys)
	entries := logs.FilterMessage("blobs orphaned, no object key").All()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"https://img.elsewhere.test/2.jpg"}, entries[0].ContextMap()["urls"])

	assert.Nil(t, ResolveKeys(nil, []Blob{{Key: "a"}}, zap.NewNop()))
}

func TestDeleteAll_IgnoresFailures(t *testing.T) {
	objects := testutil.NewMemoryObjectStore()
	objects.DeleteErr = errors.New("denied")

	var failed []string
	assert.NotPanics(t, func() {
		failed = DeleteAll(context.Background(), objects, []string{"a", ""}, nil, zap.NewNop())
	})
	assert.Equal(t, []string{"a"}, failed)
	assert.Nil(t, DeleteAll(context.Background(), nil, []string{"a"}, nil, zap.NewNop()))
}

func TestDeleteAll_HandsFailuresToRetrier(t *testing.T) {
	objects := testutil.NewMemoryObjectStore()
	objects.Set("events/g/0.jpg", "x")
	objects.DeleteErr = errors.New("503")
	r := &retrier{err: errors.New("redis down")}

	failed := DeleteAll(context.Background(), objects, []string{"events/g/0.jpg", "events/g/1.jpg"}, r, zap.NewNop())

	assert.Equal(t, []string{"events/g/0.jpg", "events/g/1.jpg"}, failed)
	assert.Equal(t, failed, r.keys)

	objects.DeleteErr = nil
	r.keys = nil
	assert.Nil(t, DeleteAll(context.Background(), objects, []string{"events/g/0.jpg"}, r, zap.NewNop()))
	assert.Empty(t, r.keys)
}
