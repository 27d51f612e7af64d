package models

import "time"

type LessonType string

const (
	Explanation LessonType = "EXPLANATION"
	Homework    LessonType = "HOMEWORK"
	Exam        LessonType = "EXAM"
	Summary     LessonType = "SUMMARY"
)

// LessonTypes: порядок частей урока при выводе.
var LessonTypes = []LessonType{Explanation, Homework, Exam, Summary}

func (t LessonType) Valid() bool {
	switch t {
	case Explanation, Homework, Exam, Summary:
		return true
	}
	return false
}

// IsQuiz: части, которые проверяются тестом.
func (t LessonType) IsQuiz() bool {
	return t == Homework || t == Exam
}

// Question: вопрос с вариантами ответа.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type Lesson struct {
	ID             int64
	UnitID         int64
	Type           LessonType
	Title          string
	VideoURL       string
	ImageURL       string
	CorrectAnswers []string
	Questions      []Question
	SummaryHTML    string
	PassingScore   *int
	TimeLimit      int // минуты, 0: без таймера
	IsFree         bool
	CreatedAt      time.Time
}

// IsImageQuiz: тест по картинке со списком принимаемых ответов; иначе MCQ.
func (l Lesson) IsImageQuiz() bool {
	return l.ImageURL != ""
}

type UserProgress struct {
	UserID      int64
	LessonID    int64
	Completed   bool
	CompletedAt time.Time
}

type QuizAttempt struct {
	ID               int64
	UserID           int64
	LessonID         int64
	Score            int
	SubmittedAnswers []string
	TimeTaken        int // секунды
	IsPass           bool
	SubmittedAt      time.Time
}

// AttemptWithLesson: попытка с названием урока; LessonTitle nil, если урок удалён.
type AttemptWithLesson struct {
	QuizAttempt
	LessonTitle *string
	UnitTitle   *string
}
