package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

func ptr(v int64) *int64 { return &v }

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func sub(id int64, unitID, teacherID *int64, end time.Time) models.Subscription {
	return models.Subscription{
		ID: id, UserID: 1, Plan: "monthly", Status: models.SubscriptionActive,
		StartDate: end.AddDate(0, -1, 0), EndDate: end,
		UnitID: unitID, TeacherID: teacherID,
	}
}

func TestDecide_FreeTargetsIgnoreSubscriptions(t *testing.T) {
	user := models.User{ID: 1}
	targets := []Target{
		Unit{ID: 7, Free: true},
		FreeVideo{ID: 3},
		Course{ID: 2, Free: true},
		CourseVideo{ID: 4, CourseID: 2, Free: true},
		CourseVideo{ID: 5, CourseID: 2, CourseFree: true},
	}
	subSets := [][]models.Subscription{
		nil,
		{sub(1, nil, nil, now.Add(-time.Hour))},
		{sub(2, ptr(99), nil, now.Add(time.Hour))},
	}
	for _, tg := range targets {
		for _, subs := range subSets {
			d := Decide(user, tg, subs, now)
			assert.True(t, d.Granted, "%#v", tg)
			assert.Equal(t, ReasonFree, d.Reason)
		}
	}
}

func TestDecide_ComprehensiveGrantsEverything(t *testing.T) {
	subs := []models.Subscription{sub(10, nil, nil, now.Add(24*time.Hour))}
	for _, id := range []int64{1, 2, 500} {
		d := Decide(models.User{}, Unit{ID: id}, subs, now)
		require.True(t, d.Granted)
		assert.Equal(t, ReasonComprehensive, d.Reason)
		assert.Equal(t, int64(10), d.SubscriptionID)
	}
	assert.True(t, HasAccess(models.User{}, Platform{}, subs, now))
	assert.True(t, HasAccess(models.User{}, Course{ID: 3}, subs, now))
}

func TestDecide_EndDateIsInclusive(t *testing.T) {
	subs := []models.Subscription{sub(1, nil, nil, now)}
	assert.True(t, HasAccess(models.User{}, Unit{ID: 1}, subs, now))
	assert.False(t, HasAccess(models.User{}, Unit{ID: 1}, subs, now.Add(time.Second)))
}

func TestDecide_ExpiredComprehensiveFallsBackToScoped(t *testing.T) {
	subs := []models.Subscription{
		sub(1, nil, nil, now.Add(-time.Hour)),
		sub(2, ptr(7), nil, now.Add(time.Hour)),
	}
	d := Decide(models.User{}, Unit{ID: 7}, subs, now)
	assert.True(t, d.Granted)
	assert.Equal(t, ReasonScoped, d.Reason)
	assert.Equal(t, int64(2), d.SubscriptionID)

	assert.False(t, HasAccess(models.User{}, Unit{ID: 8}, subs, now))
	assert.False(t, HasAccess(models.User{}, Platform{}, subs, now))
}

func TestDecide_TeacherWideSubscription(t *testing.T) {
	subs := []models.Subscription{sub(3, nil, ptr(42), now.Add(time.Hour))}
	assert.True(t, HasAccess(models.User{}, Unit{ID: 1, TeacherID: ptr(42)}, subs, now))
	assert.True(t, HasAccess(models.User{}, Course{ID: 1, TeacherID: ptr(42)}, subs, now))
	assert.False(t, HasAccess(models.User{}, Unit{ID: 1, TeacherID: ptr(43)}, subs, now))
	assert.False(t, HasAccess(models.User{}, Unit{ID: 1}, subs, now))
}

func TestDecide_CancelledSubscriptionIsIgnored(t *testing.T) {
	s := sub(1, nil, nil, now.Add(time.Hour))
	s.Status = models.SubscriptionCancelled
	assert.False(t, HasAccess(models.User{}, Unit{ID: 1}, []models.Subscription{s}, now))
}

func TestDecide_PurchasedCourse(t *testing.T) {
	d := Decide(models.User{}, Course{ID: 1, Purchased: true}, nil, now)
	assert.True(t, d.Granted)
	assert.Equal(t, ReasonPurchased, d.Reason)
	assert.False(t, HasAccess(models.User{}, Course{ID: 1}, nil, now))
}

func TestDecide_NoSubscriptionsThenApproved(t *testing.T) {
	unit := models.Unit{ID: 5, Track: models.TrackAll}
	user := models.User{ID: 1}
	require.False(t, HasAccess(user, UnitTarget(unit), nil, now))

	refreshed := []models.Subscription{sub(9, ptr(5), nil, now.AddDate(0, 1, 0))}
	assert.True(t, HasAccess(user, UnitTarget(unit), refreshed, now))
}

func TestDecide_IsPureOverTime(t *testing.T) {
	subs := []models.Subscription{sub(1, ptr(1), nil, now)}
	t1 := now.Add(-time.Minute)
	t2 := now.Add(time.Minute)
	assert.True(t, HasAccess(models.User{}, Unit{ID: 1}, subs, t1))
	assert.False(t, HasAccess(models.User{}, Unit{ID: 1}, subs, t2))
	assert.True(t, HasAccess(models.User{}, Unit{ID: 1}, subs, t1))
}

func TestActiveSubscriptions(t *testing.T) {
	subs := []models.Subscription{
		sub(1, nil, nil, now.Add(-time.Hour)),
		sub(2, ptr(1), nil, now.Add(time.Hour)),
	}
	got := ActiveSubscriptions(subs, now)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestLessonVisible(t *testing.T) {
	user := models.User{Track: models.TrackLiterary}
	unit := models.Unit{ID: 1, Track: models.TrackAll}
	freeVideo := models.Lesson{Type: models.Explanation, IsFree: true}
	exam := models.Lesson{Type: models.Exam, IsFree: true}

	denied := Decision{Reason: ReasonDenied}
	assert.True(t, LessonVisible(user, unit, freeVideo, denied))
	assert.False(t, LessonVisible(user, unit, exam, denied))
	assert.True(t, LessonVisible(user, unit, exam, Decision{Granted: true}))

	sciUnit := models.Unit{ID: 2, Track: models.TrackMath}
	assert.False(t, LessonVisible(user, sciUnit, freeVideo, Decision{Granted: true}))
}
