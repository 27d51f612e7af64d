package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// SaveQuizAttempt: только добавление, старые попытки не трогаем.
func SaveQuizAttempt(ctx context.Context, database *sql.DB, a models.QuizAttempt) (int64, error) {
	answers := a.SubmittedAnswers
	if answers == nil {
		answers = []string{}
	}
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO quiz_attempts (user_id, lesson_id, score, submitted_answers, time_taken, is_pass, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
		RETURNING id
	`, a.UserID, a.LessonID, a.Score, pq.Array(answers), a.TimeTaken, a.IsPass, nullTime(a.SubmittedAt)).Scan(&id)
	return id, err
}

const attemptColumns = `a.id, a.user_id, a.lesson_id, a.score, a.submitted_answers, a.time_taken, a.is_pass, a.submitted_at`

func scanAttempt(row interface{ Scan(...any) error }, extra ...any) (*models.QuizAttempt, error) {
	var a models.QuizAttempt
	dest := []any{&a.ID, &a.UserID, &a.LessonID, &a.Score, pq.Array(&a.SubmittedAnswers), &a.TimeTaken, &a.IsPass, &a.SubmittedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

// FetchLatestQuizAttempt: последняя попытка по времени, при равенстве, по id.
func FetchLatestQuizAttempt(ctx context.Context, database *sql.DB, userID, lessonID int64) (*models.QuizAttempt, error) {
	row := database.QueryRowContext(ctx, `
		SELECT `+attemptColumns+`
		FROM quiz_attempts a
		WHERE a.user_id = $1 AND a.lesson_id = $2
		ORDER BY a.submitted_at DESC, a.id DESC
		LIMIT 1
	`, userID, lessonID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListAttemptsWithLessons: история попыток; для удалённых уроков названия nil.
func ListAttemptsWithLessons(ctx context.Context, database *sql.DB, userID int64, lessonID *int64) ([]models.AttemptWithLesson, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+attemptColumns+`, l.title, u.title
		FROM quiz_attempts a
		LEFT JOIN lessons l ON l.id = a.lesson_id
		LEFT JOIN units u ON u.id = l.unit_id
		WHERE a.user_id = $1 AND ($2::bigint IS NULL OR a.lesson_id = $2)
		ORDER BY a.submitted_at DESC, a.id DESC
	`, userID, nullInt64(lessonID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.AttemptWithLesson
	for rows.Next() {
		var lessonTitle, unitTitle sql.NullString
		a, err := scanAttempt(rows, &lessonTitle, &unitTitle)
		if err != nil {
			return nil, err
		}
		out = append(out, models.AttemptWithLesson{
			QuizAttempt: *a,
			LessonTitle: stringPtr(lessonTitle),
			UnitTitle:   stringPtr(unitTitle),
		})
	}
	return out, rows.Err()
}

// AttemptExportRow: строка отчёта по результатам тестов.
type AttemptExportRow struct {
	UserName    string
	Phone       string
	LessonTitle *string
	UnitTitle   *string
	Score       int
	IsPass      bool
	TimeTaken   int
	SubmittedAt time.Time
}

func ListAttemptsForExport(ctx context.Context, database *sql.DB, from, to time.Time) ([]AttemptExportRow, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT usr.name, usr.phone, l.title, u.title, a.score, a.is_pass, a.time_taken, a.submitted_at
		FROM quiz_attempts a
		JOIN users usr ON usr.id = a.user_id
		LEFT JOIN lessons l ON l.id = a.lesson_id
		LEFT JOIN units u ON u.id = l.unit_id
		WHERE a.submitted_at >= $1 AND a.submitted_at < $2
		ORDER BY a.submitted_at, a.id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []AttemptExportRow
	for rows.Next() {
		var (
			r                     AttemptExportRow
			lessonTitle, unitName sql.NullString
		)
		if err := rows.Scan(&r.UserName, &r.Phone, &lessonTitle, &unitName, &r.Score, &r.IsPass, &r.TimeTaken, &r.SubmittedAt); err != nil {
			return nil, err
		}
		r.LessonTitle = stringPtr(lessonTitle)
		r.UnitTitle = stringPtr(unitName)
		out = append(out, r)
	}
	return out, rows.Err()
}
