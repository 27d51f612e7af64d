package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

func ListCourses(ctx context.Context, database *sql.DB) ([]models.Course, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, title, description, price, is_free, teacher_id FROM courses ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCourse(row interface{ Scan(...any) error }) (*models.Course, error) {
	var (
		c         models.Course
		teacherID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Price, &c.IsFree, &teacherID); err != nil {
		return nil, err
	}
	c.TeacherID = int64Ptr(teacherID)
	return &c, nil
}

// GetCourse: курс вместе с видео по порядку.
func GetCourse(ctx context.Context, database *sql.DB, id int64) (*models.Course, error) {
	c, err := scanCourse(database.QueryRowContext(ctx, `
		SELECT id, title, description, price, is_free, teacher_id FROM courses WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := database.QueryContext(ctx, `
		SELECT id, course_id, title, video_url, position, is_free
		FROM course_videos WHERE course_id = $1 ORDER BY position, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var v models.CourseVideo
		if err := rows.Scan(&v.ID, &v.CourseID, &v.Title, &v.VideoURL, &v.Position, &v.IsFree); err != nil {
			return nil, err
		}
		c.Videos = append(c.Videos, v)
	}
	return c, rows.Err()
}

func CreateCourse(ctx context.Context, database *sql.DB, c models.Course) (int64, error) {
	var id int64
	err := inTx(ctx, database, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO courses (title, description, price, is_free, teacher_id)
			VALUES ($1, $2, $3, $4, $5) RETURNING id
		`, c.Title, c.Description, c.Price, c.IsFree, nullInt64(c.TeacherID)).Scan(&id); err != nil {
			return err
		}
		for i, v := range c.Videos {
			pos := v.Position
			if pos == 0 {
				pos = i + 1
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO course_videos (course_id, title, video_url, position, is_free)
				VALUES ($1, $2, $3, $4, $5)
			`, id, v.Title, v.VideoURL, pos, v.IsFree); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

func HasPurchased(ctx context.Context, database *sql.DB, userID, courseID int64) (bool, error) {
	var ok bool
	err := database.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM course_purchases WHERE user_id = $1 AND course_id = $2)
	`, userID, courseID).Scan(&ok)
	return ok, err
}

// RecordPurchase: идемпотентно.
func RecordPurchase(ctx context.Context, database *sql.DB, userID, courseID int64) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO course_purchases (user_id, course_id) VALUES ($1, $2)
		ON CONFLICT (user_id, course_id) DO NOTHING
	`, userID, courseID)
	return err
}
