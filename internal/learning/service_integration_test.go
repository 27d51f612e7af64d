//go:build testutil
// +build testutil

package learning_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
	"github.com/Spok95/learning-platform-bot/internal/testutil/testdb"
)

type recorder struct {
	created  []models.SubscriptionRequest
	reviewed []*models.Subscription
}

func (r *recorder) RequestCreated(_ context.Context, req models.SubscriptionRequest, _ models.User) {
	r.created = append(r.created, req)
}

func (r *recorder) RequestReviewed(_ context.Context, _ models.SubscriptionRequest, sub *models.Subscription) {
	r.reviewed = append(r.reviewed, sub)
}

type fixture struct {
	svc     *learning.Service
	bus     *events.Bus
	notes   *recorder
	admin   models.User
	student models.User
	unit    models.Unit
	parts   map[models.LessonType]int64
}

func setup(t *testing.T, h *testdb.DBHandle) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{bus: events.NewBus(), notes: &recorder{}, parts: map[models.LessonType]int64{}}
	f.svc = learning.New(h.DB, f.bus, nil, learning.WithNotifier(f.notes))

	adminTG := int64(1)
	admin, err := db.CreateUser(ctx, h.DB, models.User{TelegramID: &adminTG, Name: "admin", Role: models.Admin})
	require.NoError(t, err)
	f.admin = *admin

	grades, err := f.svc.Grades(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, grades)

	tg := int64(2)
	st, err := f.svc.Register(ctx, learning.RegisterInput{
		TelegramID: &tg, Name: "منى علي", Phone: "01012345678", GradeID: grades[0].ID, Track: "Scientific",
	})
	require.NoError(t, err)
	f.student = *st

	unit, err := f.svc.CreateUnit(ctx, f.admin, learning.UnitInput{
		SemesterID: grades[0].Semesters[0].ID, Title: "الكهرباء", Track: "Science",
	})
	require.NoError(t, err)
	f.unit = *unit

	for _, in := range []learning.LessonInput{
		{Type: "EXPLANATION", Title: "شرح: أوم", VideoURL: "https://v.example/1", IsFree: true},
		{Type: "HOMEWORK", Title: "واجب: أوم", Questions: []models.Question{
			{Text: "1", Options: []string{"a", "b"}, CorrectIndex: 0},
			{Text: "2", Options: []string{"a", "b"}, CorrectIndex: 1},
		}},
		{Type: "EXAM", Title: "امتحان: أوم", ImageURL: "https://i.example/1.png", CorrectAnswers: []string{"Ohm"}},
	} {
		in.UnitID = unit.ID
		l, err := f.svc.CreateLesson(ctx, f.admin, in)
		require.NoError(t, err)
		f.parts[l.Type] = l.ID
	}
	return f
}

func TestUnitView_LockedUntilSubscribed(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	f := setup(t, h)

	view, err := f.svc.UnitView(ctx, f.student, f.unit.ID)
	require.NoError(t, err)
	assert.False(t, view.Decision.Granted)
	require.Len(t, view.Groups, 1)
	g := view.Groups[0]
	assert.Equal(t, "أوم", g.BaseTitle)
	assert.Equal(t, 3, g.TotalParts)
	assert.True(t, view.Visible[f.parts[models.Explanation]])
	assert.False(t, view.Visible[f.parts[models.Homework]])
	assert.Empty(t, g.Parts[models.Homework].Questions)
	assert.Equal(t, "https://v.example/1", g.Parts[models.Explanation].VideoURL)

	_, err = f.svc.MarkComplete(ctx, f.student, f.parts[models.Homework])
	assert.ErrorIs(t, err, learning.ErrLocked)

	// заявка → одобрение → доступ
	req, err := f.svc.RequestSubscription(ctx, f.student, learning.RequestInput{Plan: "monthly", UnitID: &f.unit.ID, PaymentRef: "VF-123"})
	require.NoError(t, err)
	require.Len(t, f.notes.created, 1)
	_, err = f.svc.ApproveRequest(ctx, f.admin, req.ID)
	require.NoError(t, err)
	require.Len(t, f.notes.reviewed, 1)
	assert.NotNil(t, f.notes.reviewed[0])

	view, err = f.svc.UnitView(ctx, f.student, f.unit.ID)
	require.NoError(t, err)
	assert.True(t, view.Decision.Granted)
	assert.Equal(t, access.ReasonScoped, view.Decision.Reason)
	assert.Len(t, view.Groups[0].Parts[models.Homework].Questions, 2)
}

func TestQuizFlow_SubmitAndProgress(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	f := setup(t, h)

	now := time.Now()
	_, err = db.CreateSubscription(ctx, h.DB, models.Subscription{
		UserID: f.student.ID, Plan: "annual", StartDate: now.Add(-time.Hour), EndDate: now.AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	var progressEvents int
	f.bus.Subscribe(events.TopicProgress, func(events.Event) { progressEvents++ })

	attempt, err := f.svc.SubmitAnswers(ctx, f.student, f.parts[models.Homework], quiz.Answers{Choices: []int{0, 0}}, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 50, attempt.Score)
	assert.True(t, attempt.IsPass)
	assert.Equal(t, []string{"0", "0"}, attempt.SubmittedAnswers)

	attempt, err = f.svc.SubmitAnswers(ctx, f.student, f.parts[models.Exam], quiz.Answers{Lines: []string{" ohm "}}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 100, attempt.Score)

	_, err = f.svc.SubmitAnswers(ctx, f.student, f.parts[models.Explanation], quiz.Answers{}, 0)
	assert.ErrorIs(t, err, learning.ErrNotQuiz)

	first, err := f.svc.MarkComplete(ctx, f.student, f.parts[models.Explanation])
	require.NoError(t, err)
	assert.True(t, first)
	again, err := f.svc.MarkComplete(ctx, f.student, f.parts[models.Explanation])
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, 3, progressEvents)

	// пересдача уже пройденной домашки: новая попытка есть, события нет
	_, err = f.svc.SubmitAnswers(ctx, f.student, f.parts[models.Homework], quiz.Answers{Choices: []int{0, 0}}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, progressEvents)

	view, err := f.svc.UnitView(ctx, f.student, f.unit.ID)
	require.NoError(t, err)
	assert.True(t, view.Groups[0].IsFullyCompleted)
	assert.Equal(t, 100, view.Progress.Percent)

	lv, err := f.svc.LessonView(ctx, f.student, f.parts[models.Exam])
	require.NoError(t, err)
	require.NotNil(t, lv.Latest)
	assert.Equal(t, 100, lv.Latest.Score)
}

func TestMarkComplete_QuizNeedsPassingAttempt(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	f := setup(t, h)

	now := time.Now()
	_, err = db.CreateSubscription(ctx, h.DB, models.Subscription{
		UserID: f.student.ID, Plan: "annual", StartDate: now.Add(-time.Hour), EndDate: now.AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	for _, typ := range []models.LessonType{models.Homework, models.Exam} {
		newly, err := f.svc.MarkComplete(ctx, f.student, f.parts[typ])
		assert.ErrorIs(t, err, learning.ErrQuizCompletion)
		assert.False(t, newly)
	}

	progress, err := db.FetchProgress(ctx, h.DB, f.student.ID)
	require.NoError(t, err)
	assert.False(t, progress[f.parts[models.Homework]])
	assert.False(t, progress[f.parts[models.Exam]])
}

func TestFreeVideos_ByGradeAndAlwaysGranted(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	f := setup(t, h)

	grades, err := f.svc.Grades(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 3)

	_, err = f.svc.CreateFreeVideo(ctx, f.admin, learning.FreeVideoInput{Title: "للجميع", VideoURL: "https://v.example/all"})
	require.NoError(t, err)
	_, err = f.svc.CreateFreeVideo(ctx, f.admin, learning.FreeVideoInput{Title: "للصف", VideoURL: "https://v.example/g1", GradeID: &grades[0].ID})
	require.NoError(t, err)
	other, err := f.svc.CreateFreeVideo(ctx, f.admin, learning.FreeVideoInput{Title: "صف آخر", VideoURL: "https://v.example/g2", GradeID: &grades[1].ID})
	require.NoError(t, err)

	// у ученика нет подписок, бесплатные видео всё равно открыты
	list, err := f.svc.FreeVideos(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, v := range list {
		assert.True(t, v.Decision.Granted)
		assert.Equal(t, access.ReasonFree, v.Decision.Reason)
		assert.NotEqual(t, other.ID, v.Video.ID)
	}

	require.NoError(t, f.svc.DeleteFreeVideo(ctx, f.admin, other.ID))
	assert.ErrorIs(t, f.svc.DeleteFreeVideo(ctx, f.admin, other.ID), db.ErrNotFound)
}

func TestGrades_CacheInvalidatedOnCatalogChange(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	f := setup(t, h)

	grades, err := f.svc.Grades(ctx)
	require.NoError(t, err)
	before := len(grades[0].Semesters[0].Units)

	_, err = f.svc.CreateUnit(ctx, f.admin, learning.UnitInput{SemesterID: grades[0].Semesters[0].ID, Title: "الضوء"})
	require.NoError(t, err)

	grades, err = f.svc.Grades(ctx)
	require.NoError(t, err)
	assert.Len(t, grades[0].Semesters[0].Units, before+1)
}

func TestGenerateAndRedeemCodes(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	f := setup(t, h)

	codes, err := f.svc.GenerateCodes(ctx, f.admin, learning.GenerateCodesInput{Count: 5, Plan: "term", UnitID: &f.unit.ID})
	require.NoError(t, err)
	require.Len(t, codes, 5)
	assert.Equal(t, 120, codes[0].DurationDays)

	newcomer := int64(99)
	sub, user, err := f.svc.RedeemCode(ctx, learning.RedeemInput{Code: codes[0].Code, TelegramID: &newcomer, Name: "زائر جديد", Track: "Math"})
	require.NoError(t, err)
	assert.Equal(t, models.Student, user.Role)
	require.NotNil(t, sub.UnitID)
	assert.Equal(t, f.unit.ID, *sub.UnitID)

	_, _, err = f.svc.RedeemCode(ctx, learning.RedeemInput{Code: codes[0].Code, TelegramID: &newcomer})
	assert.ErrorIs(t, err, db.ErrCodeUsed)
}
