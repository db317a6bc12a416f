package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2026, time.March, 14), d)

	d, err = ParseDate("2026-03-14T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", d.String())

	_, err = ParseDate("14/03/2026")
	assert.Error(t, err)
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2026, time.March, 1)
	assert.Equal(t, "2026-02-14", d.AddDays(-15).String())
	assert.True(t, d.AddDays(-1).Before(d))
	assert.True(t, d.AddDays(1).After(d))
	assert.True(t, d.Equal(NewDate(2026, time.March, 1)))

	loc := time.FixedZone("PST", -8*3600)
	at := d.At(loc)
	assert.Equal(t, 0, at.Hour())
	assert.Equal(t, loc, at.Location())
}

func TestDate_JSON(t *testing.T) {
	type doc struct {
		Date     Date  `json:"date"`
		Optional *Date `json:"optional,omitempty"`
	}

	raw, err := json.Marshal(doc{Date: NewDate(2026, time.May, 2)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-05-02"}`, string(raw))

	raw, err = json.Marshal(doc{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":null}`, string(raw))

	var out doc
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-05-02","optional":"2026-06-01"}`), &out))
	assert.Equal(t, "2026-05-02", out.Date.String())
	require.NotNil(t, out.Optional)
	assert.Equal(t, "2026-06-01", out.Optional.String())

	var empty doc
	require.NoError(t, json.Unmarshal([]byte(`{"date":null}`), &empty))
	assert.True(t, empty.Date.IsZero())
	assert.Nil(t, empty.Optional)

	assert.Error(t, json.Unmarshal([]byte(`{"date":"soon"}`), &out))
}

func TestPromoConfig_DeriveTypeAndClone(t *testing.T) {
	cfg := DefaultPromoConfig()
	cfg.Images = []PromoImage{{ID: "a", ExpirationDate: NewDate(2026, time.January, 1).Ptr()}}
	cfg.DeriveType()
	assert.Equal(t, PromoSingle, cfg.Type)

	clone := cfg.Clone()
	*clone.Images[0].ExpirationDate = NewDate(2027, time.January, 1)
	clone.Images = append(clone.Images, PromoImage{ID: "b"})
	clone.DeriveType()

	assert.Equal(t, "2026-01-01", cfg.Images[0].ExpirationDate.String())
	assert.Len(t, cfg.Images, 1)
	assert.Equal(t, PromoCarousel, clone.Type)
	assert.Equal(t, 0, cfg.ActiveIndex("a"))
	assert.Equal(t, -1, cfg.PastIndex("a"))
}
