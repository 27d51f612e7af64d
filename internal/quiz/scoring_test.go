package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

func questions(correct ...int) []models.Question {
	out := make([]models.Question, len(correct))
	for i, c := range correct {
		out[i] = models.Question{Text: "q", Options: []string{"a", "b", "c", "d"}, CorrectIndex: c}
	}
	return out
}

func TestScoreMCQ(t *testing.T) {
	assert.Equal(t, 100, ScoreMCQ(nil, nil).Score)

	res := ScoreMCQ(questions(0, 1, 2, 3), []int{0, 1, 2, 0})
	assert.Equal(t, 3, res.CorrectCount)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 75, res.Score)

	// неотвеченные и короткий список ответов: неверно
	res = ScoreMCQ(questions(0, 1, 2), []int{0, -1})
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 33, res.Score)
}

func TestScoreImage(t *testing.T) {
	res, err := ScoreImage([]string{"Paris", "London"}, []string{"paris", "madrid"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 50, res.Score)

	res, err = ScoreImage([]string{"Paris", "London"}, []string{"  LONDON ", "", "Paris"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 100, res.Score)

	_, err = ScoreImage(nil, []string{"x"})
	assert.ErrorIs(t, err, ErrNoAcceptedAnswers)

	res, err = ScoreImage([]string{"Paris", "London"}, []string{"paris", "PARIS", " paris "})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 50, res.Score)
}

func TestEvaluate_PassingScore(t *testing.T) {
	l := models.Lesson{Type: models.Exam, Questions: questions(0, 1, 2, 3)}
	res, err := Evaluate(l, Answers{Choices: []int{0, 1, 2, 0}})
	require.NoError(t, err)
	assert.Equal(t, 75, res.Score)
	assert.True(t, res.IsPass)

	strict := 80
	l.PassingScore = &strict
	res, err = Evaluate(l, Answers{Choices: []int{0, 1, 2, 0}})
	require.NoError(t, err)
	assert.False(t, res.IsPass)
}

func TestEvaluate_ZeroQuestionsVersusZeroAnswers(t *testing.T) {
	mcq := models.Lesson{Type: models.Homework}
	res, err := Evaluate(mcq, Answers{})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.IsPass)

	img := models.Lesson{Type: models.Homework, ImageURL: "https://cdn/hw.png"}
	_, err = Evaluate(img, Answers{Lines: []string{"a"}})
	assert.ErrorIs(t, err, ErrNoAcceptedAnswers)
}

func TestPassingScoreDefault(t *testing.T) {
	assert.Equal(t, DefaultPassingScore, PassingScore(models.Lesson{}))
	zero := 0
	assert.Equal(t, 0, PassingScore(models.Lesson{PassingScore: &zero}))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"باريس", "London, UK"}, SplitLines(" باريس \r\n\n London, UK \n"))
	assert.Empty(t, SplitLines("  \n "))
}

func TestPassed(t *testing.T) {
	assert.True(t, Passed(50, DefaultPassingScore))
	assert.False(t, Passed(49, DefaultPassingScore))
	assert.True(t, Passed(0, 0))
}
