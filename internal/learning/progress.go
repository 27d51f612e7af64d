package learning

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
)

// MarkComplete: идемпотентная отметка. newlyDone=false, если урок уже был
// пройден: повторного уведомления не будет.
func (s *Service) MarkComplete(ctx context.Context, user models.User, lessonID int64) (newlyDone bool, err error) {
	v, err := s.gate(ctx, user, lessonID)
	if err != nil {
		return false, err
	}
	if !v.Visible {
		return false, ErrLocked
	}
	if v.Lesson.Type.IsQuiz() {
		return false, ErrQuizCompletion
	}
	inserted, err := db.MarkLessonComplete(ctx, s.db, user.ID, lessonID)
	if err != nil {
		return false, fmt.Errorf("mark complete: %w", err)
	}
	if inserted {
		s.publish(events.TopicProgress, user.ID, v.Unit.ID)
	}
	return inserted, nil
}

// StartQuiz: сессия для бота. Невидимый урок или не тест, ошибка.
func (s *Service) StartQuiz(ctx context.Context, user models.User, lessonID int64, opts ...quiz.Option) (*quiz.Session, error) {
	v, err := s.gate(ctx, user, lessonID)
	if err != nil {
		return nil, err
	}
	if !v.Visible {
		return nil, ErrLocked
	}
	if !v.Lesson.Type.IsQuiz() {
		return nil, ErrNotQuiz
	}
	return quiz.NewSession(v.Lesson, opts...), nil
}

// SubmitAnswers: проверка и сохранение попытки одним вызовом (HTTP API).
func (s *Service) SubmitAnswers(ctx context.Context, user models.User, lessonID int64, a quiz.Answers, timeTaken time.Duration) (*models.QuizAttempt, error) {
	v, err := s.gate(ctx, user, lessonID)
	if err != nil {
		return nil, err
	}
	if !v.Visible {
		return nil, ErrLocked
	}
	if !v.Lesson.Type.IsQuiz() {
		return nil, ErrNotQuiz
	}
	res, err := quiz.Evaluate(v.Lesson, a)
	if err != nil {
		return nil, err
	}
	return s.RecordSubmission(ctx, user, v.Lesson, quiz.Submission{Result: res, Answers: a, TimeTaken: timeTaken})
}

// RecordSubmission сохраняет уже посчитанную попытку (новой строкой, старые не трогаем).
// Сданный тест заодно отмечается пройденным.
func (s *Service) RecordSubmission(ctx context.Context, user models.User, l models.Lesson, sub quiz.Submission) (*models.QuizAttempt, error) {
	a := models.QuizAttempt{
		UserID:           user.ID,
		LessonID:         l.ID,
		Score:            sub.Score,
		SubmittedAnswers: submittedAnswers(l, sub.Answers),
		TimeTaken:        int(sub.TimeTaken.Round(time.Second) / time.Second),
		IsPass:           sub.IsPass,
		SubmittedAt:      s.now(),
	}
	id, err := db.SaveQuizAttempt(ctx, s.db, a)
	if err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	a.ID = id

	kind := "mcq"
	if l.IsImageQuiz() {
		kind = "image"
	}
	metrics.ObserveQuiz(kind, a.IsPass)
	s.log.Debug("quiz submitted",
		zap.Int64("user_id", user.ID), zap.Int64("lesson_id", l.ID),
		zap.Int("score", a.Score), zap.Bool("auto", sub.AutoSubmitted))

	if !a.IsPass {
		return &a, nil
	}
	inserted, err := db.MarkLessonComplete(ctx, s.db, user.ID, l.ID)
	if err != nil {
		return &a, fmt.Errorf("mark complete: %w", err)
	}
	// пересдача уже пройденного теста события не даёт
	if inserted {
		s.publish(events.TopicProgress, user.ID, l.UnitID)
	}
	return &a, nil
}

func submittedAnswers(l models.Lesson, a quiz.Answers) []string {
	if l.IsImageQuiz() {
		return append([]string(nil), a.Lines...)
	}
	out := make([]string, len(a.Choices))
	for i, c := range a.Choices {
		out[i] = strconv.Itoa(c)
	}
	return out
}

// Attempts: история попыток; lessonID nil, по всем урокам.
func (s *Service) Attempts(ctx context.Context, user models.User, lessonID *int64) ([]models.AttemptWithLesson, error) {
	return db.ListAttemptsWithLessons(ctx, s.db, user.ID, lessonID)
}
