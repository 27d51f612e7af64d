package db

import (
	"context"
	"database/sql"
)

// FetchProgress: lessonID → completed для пользователя.
func FetchProgress(ctx context.Context, database *sql.DB, userID int64) (map[int64]bool, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT lesson_id, completed FROM user_progress WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]bool)
	for rows.Next() {
		var (
			lessonID  int64
			completed bool
		)
		if err := rows.Scan(&lessonID, &completed); err != nil {
			return nil, err
		}
		out[lessonID] = completed
	}
	return out, rows.Err()
}

// MarkLessonComplete: идемпотентная отметка. inserted=false, если урок уже был пройден.
func MarkLessonComplete(ctx context.Context, database *sql.DB, userID, lessonID int64) (inserted bool, err error) {
	res, err := database.ExecContext(ctx, `
		INSERT INTO user_progress (user_id, lesson_id, completed, completed_at)
		VALUES ($1, $2, TRUE, now())
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET completed = TRUE, completed_at = now()
		WHERE user_progress.completed = FALSE
	`, userID, lessonID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
