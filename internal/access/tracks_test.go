package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

func TestCompatible(t *testing.T) {
	cases := []struct {
		user, unit models.Track
		want       bool
	}{
		{models.TrackScientific, models.TrackScience, true},
		{models.TrackScientific, models.TrackMath, true},
		{models.TrackScientific, models.TrackScientific, true},
		{models.TrackScientific, models.TrackLiterary, false},
		{models.TrackScience, models.TrackMath, false},
		{models.TrackMath, models.TrackScientific, true},
		{models.TrackLiterary, models.TrackAll, true},
		{models.TrackLiterary, "", true},
		{"", models.TrackAll, true},
		{"", models.TrackMath, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Compatible(c.user, c.unit), "%s -> %s", c.user, c.unit)
	}
}

func TestFilterUnits(t *testing.T) {
	units := []models.Unit{
		{ID: 1, Track: models.TrackAll},
		{ID: 2, Track: models.TrackMath},
		{ID: 3, Track: models.TrackLiterary},
	}
	got := FilterUnits(models.TrackScientific, units)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
}
