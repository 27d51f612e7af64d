package handlers

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/export"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▱▱▱▱▱▱▱▱▱▱ 0%", progressBar(0))
	assert.Equal(t, "▰▰▰▰▰▱▱▱▱▱ 50%", progressBar(50))
	assert.Equal(t, "▰▰▰▰▰▰▰▰▰▰ 100%", progressBar(100))
	assert.Equal(t, "▰▰▰▰▰▰▰▰▰▰ 130%", progressBar(130))
}

func TestStripTags(t *testing.T) {
	got := stripTags("<p>المشتقة</p><ul><li>الأولى</li><li>الثانية</li></ul>")
	assert.Equal(t, "المشتقة\n• الأولى\n• الثانية", got)
	assert.Equal(t, "سطر\nسطر", stripTags("سطر<br/>سطر"))
}

func TestAttemptsText_DeletedLesson(t *testing.T) {
	title := "امتحان الوحدة"
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	list := []models.AttemptWithLesson{
		{QuizAttempt: models.QuizAttempt{Score: 80, IsPass: true, SubmittedAt: at}, LessonTitle: &title},
		{QuizAttempt: models.QuizAttempt{Score: 20, SubmittedAt: at}},
	}
	got := attemptsText(list, time.UTC)
	assert.Contains(t, got, title)
	assert.Contains(t, got, export.DeletedLessonTitle)
	assert.Contains(t, got, "2026-03-01 10:00")

	assert.Equal(t, "لا توجد محاولات بعد.", attemptsText(nil, time.UTC))
}

func TestCodeChunks(t *testing.T) {
	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	codes := make([]models.Code, 0, 120)
	for i := 0; i < 120; i++ {
		codes = append(codes, models.Code{Code: fmt.Sprintf("C%03d", i), Plan: "monthly", ValidUntil: until})
	}
	chunks := codeChunks(codes, 50)
	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[0], "120")
	assert.Contains(t, chunks[0], "2026-12-31")
	assert.Contains(t, chunks[2], "C119")
	assert.Equal(t, 20, strings.Count(chunks[2], "\nC"))

	assert.Empty(t, codeChunks(nil, 50))
}

func TestParseAnswer(t *testing.T) {
	q, opt, ok := parseAnswer(cbQuizAnswer + "3_1")
	require.True(t, ok)
	assert.Equal(t, 3, q)
	assert.Equal(t, 1, opt)

	_, _, ok = parseAnswer(cbQuizAnswer + "x_1")
	assert.False(t, ok)
	_, _, ok = parseAnswer(cbQuizAnswer + "-1_0")
	assert.False(t, ok)
}

func TestQuestionView(t *testing.T) {
	l := models.Lesson{Questions: []models.Question{
		{Text: "2+2؟", Options: []string{"3", "4"}, CorrectIndex: 1},
		{Text: "3+3؟", Options: []string{"6", "7"}, CorrectIndex: 0},
	}}
	text, rows := questionView(l, quiz.Answers{Choices: []int{1, -1}}, 0)
	assert.Contains(t, text, "سؤال 1 من 2")
	assert.Contains(t, text, "تمت الإجابة على 1")
	require.Len(t, rows, 3)
	assert.Equal(t, "3", rows[0][0].Text)
	assert.Equal(t, "🔘 4", rows[1][0].Text)
	assert.Equal(t, cbQuizAnswer+"0_1", *rows[1][0].CallbackData)

	_, rows = questionView(models.Lesson{}, quiz.Answers{}, 0)
	require.Len(t, rows, 1)
	assert.Equal(t, cbQuizSubmit, *rows[0][0].CallbackData)
}

func TestRedeemErrorText(t *testing.T) {
	cases := []struct {
		err    error
		system bool
	}{
		{validation.Field("code", "bad"), false},
		{fmt.Errorf("redeem: %w", db.ErrCodeNotFound), false},
		{db.ErrCodeUsed, false},
		{db.ErrCodeExpired, false},
		{errors.New("conn reset"), true},
	}
	for _, c := range cases {
		text, system := redeemErrorText(c.err)
		assert.NotEmpty(t, text)
		assert.Equal(t, c.system, system, c.err.Error())
	}
	text, _ := redeemErrorText(errors.New("x"))
	assert.Equal(t, TextTryAgain, text)
}

func TestResultText_AutoSubmitted(t *testing.T) {
	sub := quiz.Submission{Result: quiz.Result{Score: 40, CorrectCount: 2, Total: 5}, AutoSubmitted: true}
	got := resultText(sub, 50)
	assert.Contains(t, got, "40%")
	assert.Contains(t, got, "تلقائيًا")
	assert.Contains(t, got, passMark(false))
}
