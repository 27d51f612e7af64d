// Package quiz: проверка домашних заданий и экзаменов.
package quiz

import (
	"errors"
	"math"
	"strings"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// DefaultPassingScore: проходной балл, если в уроке он не задан.
const DefaultPassingScore = 50

// ErrNoAcceptedAnswers: у теста по картинке нет ни одного правильного ответа,
// отправлять такой тест нельзя (это не 0 и не 100 баллов).
var ErrNoAcceptedAnswers = errors.New("quiz: lesson has no accepted answers")

// Answers: то, что ввёл ученик. Choices, для MCQ (индекс варианта по
// номеру вопроса, -1 = без ответа), Lines = строки для теста по картинке.
type Answers struct {
	Choices []int
	Lines   []string
}

type Result struct {
	CorrectCount int
	Total        int
	Score        int
	IsPass       bool
}

// ScoreMCQ: score = round(100 * correct / total). Ноль вопросов: 100.
func ScoreMCQ(questions []models.Question, choices []int) Result {
	if len(questions) == 0 {
		return Result{Score: 100}
	}
	correct := 0
	for i, q := range questions {
		if i < len(choices) && choices[i] == q.CorrectIndex {
			correct++
		}
	}
	return Result{
		CorrectCount: correct,
		Total:        len(questions),
		Score:        roundPercent(correct, len(questions)),
	}
}

// ScoreImage считает строки ученика, совпавшие (без учёта регистра и
// крайних пробелов) с любым из принимаемых ответов. Позиция не важна,
// каждый принимаемый ответ засчитывается не больше одного раза.
func ScoreImage(accepted, lines []string) (Result, error) {
	if len(accepted) == 0 {
		return Result{}, ErrNoAcceptedAnswers
	}
	set := make(map[string]struct{}, len(accepted))
	for _, a := range accepted {
		set[normalize(a)] = struct{}{}
	}
	correct := 0
	for _, l := range lines {
		n := normalize(l)
		if _, ok := set[n]; ok && n != "" {
			correct++
			// повтор того же ответа второй раз не засчитывается
			delete(set, n)
		}
	}
	return Result{
		CorrectCount: correct,
		Total:        len(accepted),
		Score:        roundPercent(correct, len(accepted)),
	}, nil
}

// PassingScore урока с учётом значения по умолчанию.
func PassingScore(l models.Lesson) int {
	if l.PassingScore == nil {
		return DefaultPassingScore
	}
	return *l.PassingScore
}

func Passed(score, passingScore int) bool {
	return score >= passingScore
}

// Evaluate выбирает нужную форму теста и выставляет IsPass.
func Evaluate(l models.Lesson, a Answers) (Result, error) {
	var (
		res Result
		err error
	)
	if l.IsImageQuiz() {
		res, err = ScoreImage(l.CorrectAnswers, a.Lines)
		if err != nil {
			return Result{}, err
		}
	} else {
		res = ScoreMCQ(l.Questions, a.Choices)
	}
	res.IsPass = Passed(res.Score, PassingScore(l))
	return res, nil
}

// SplitLines: ввод ученика построчно, пустые строки отбрасываются.
func SplitLines(text string) []string {
	fields := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func roundPercent(n, total int) int {
	return int(math.Round(100 * float64(n) / float64(total)))
}
