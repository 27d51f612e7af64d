package learning

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

// Проверки ввода срабатывают до обращения к БД: сервис без базы.
func newOffline() *Service { return New(nil, nil, nil) }

func TestRedeemCode_ValidatesBeforeDB(t *testing.T) {
	_, _, err := newOffline().RedeemCode(context.Background(), RedeemInput{Code: "!", Phone: "123"})
	require.Error(t, err)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "code")
	assert.Contains(t, verr.Fields, "phone")
}

func TestRegister_ValidatesBeforeDB(t *testing.T) {
	tg := int64(1)
	_, err := newOffline().Register(context.Background(), RegisterInput{TelegramID: &tg, Name: "ab", Phone: "01012345678", GradeID: 1, Track: "Math"})
	assert.True(t, validation.IsValidation(err))
}

func TestRequestSubscription_UnknownPlan(t *testing.T) {
	_, err := newOffline().RequestSubscription(context.Background(), models.User{ID: 1}, RequestInput{Plan: "weekly", PaymentRef: "x"})
	assert.True(t, validation.IsValidation(err))
}

func TestStaffOnlyOperations(t *testing.T) {
	s := newOffline()
	student := models.User{ID: 1, Role: models.Student}
	ctx := context.Background()

	_, err := s.GenerateCodes(ctx, student, GenerateCodesInput{Count: 1, Plan: "monthly"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.ApproveRequest(ctx, student, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.PendingRequests(ctx, student)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = s.Report(ctx, student, ReportUsers, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, s.DeleteAccount(ctx, student, 2), ErrForbidden)
}

func TestGenerateCodes_ValidatesCount(t *testing.T) {
	admin := models.User{ID: 1, Role: models.Admin}
	_, err := newOffline().GenerateCodes(context.Background(), admin, GenerateCodesInput{Count: 0, Plan: "monthly"})
	assert.True(t, validation.IsValidation(err))
}

func TestNewCodeToken(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{12}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		c := NewCodeToken()
		assert.Regexp(t, re, c)
		assert.False(t, seen[c])
		seen[c] = true
	}
	assert.NoError(t, validation.Var("code", NewCodeToken(), "redeem_code"))
}

func TestParseReportKind(t *testing.T) {
	k, ok := ParseReportKind("quiz_results")
	assert.True(t, ok)
	assert.Equal(t, ReportQuizResults, k)
	_, ok = ParseReportKind("scores")
	assert.False(t, ok)
}

func TestStripPayload(t *testing.T) {
	l := stripPayload(models.Lesson{
		ID: 1, Title: "واجب", VideoURL: "v", ImageURL: "i", CorrectAnswers: []string{"a"},
		Questions: []models.Question{{Text: "q"}}, SummaryHTML: "s",
	})
	assert.Equal(t, int64(1), l.ID)
	assert.Equal(t, "واجب", l.Title)
	assert.Empty(t, l.VideoURL)
	assert.Empty(t, l.ImageURL)
	assert.Nil(t, l.CorrectAnswers)
	assert.Nil(t, l.Questions)
	assert.Empty(t, l.SummaryHTML)
}

func TestSetRole_Rules(t *testing.T) {
	s := newOffline()
	ctx := context.Background()
	student := models.User{ID: 1, Role: models.Student}
	supervisor := models.User{ID: 2, Role: models.Supervisor}

	assert.ErrorIs(t, s.SetRole(ctx, student, 5, models.Teacher), ErrForbidden)
	assert.ErrorIs(t, s.SetRole(ctx, supervisor, 5, models.Admin), ErrForbidden)
	assert.True(t, validation.IsValidation(s.SetRole(ctx, supervisor, 5, models.Role("owner"))))
}

func TestSetActive_CannotBlockSelf(t *testing.T) {
	admin := models.User{ID: 3, Role: models.Admin}
	err := newOffline().SetActive(context.Background(), admin, 3, false)
	assert.True(t, validation.IsValidation(err))
}

func TestCreateCourse_ValidatesVideos(t *testing.T) {
	admin := models.User{ID: 3, Role: models.Admin}
	_, err := newOffline().CreateCourse(context.Background(), admin, CourseInput{
		Title:  "كورس المراجعة",
		Videos: []CourseVideoInput{{Title: "الحصة الأولى", VideoURL: "not a url"}},
	})
	assert.True(t, validation.IsValidation(err))
}

func TestCreateFreeVideo_StaffAndURL(t *testing.T) {
	ctx := context.Background()
	in := FreeVideoInput{Title: "مراجعة", VideoURL: "ftp//broken"}

	_, err := newOffline().CreateFreeVideo(ctx, models.User{ID: 1, Role: models.Student}, in)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = newOffline().CreateFreeVideo(ctx, models.User{ID: 3, Role: models.Admin}, in)
	assert.True(t, validation.IsValidation(err))
}
