package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// ListFreeVideos: видео для класса плюс общие; gradeID nil, только общие.
func ListFreeVideos(ctx context.Context, database *sql.DB, gradeID *int64) ([]models.FreeVideo, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT id, title, video_url, grade_id, created_at
		FROM free_videos
		WHERE grade_id IS NULL OR grade_id = $1
		ORDER BY created_at DESC, id DESC
	`, nullInt64(gradeID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.FreeVideo
	for rows.Next() {
		var (
			v     models.FreeVideo
			grade sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.Title, &v.VideoURL, &grade, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.GradeID = int64Ptr(grade)
		out = append(out, v)
	}
	return out, rows.Err()
}

func CreateFreeVideo(ctx context.Context, database *sql.DB, v models.FreeVideo) (*models.FreeVideo, error) {
	err := database.QueryRowContext(ctx, `
		INSERT INTO free_videos (title, video_url, grade_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, v.Title, v.VideoURL, nullInt64(v.GradeID)).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func DeleteFreeVideo(ctx context.Context, database *sql.DB, id int64) error {
	return execOne(ctx, database, `DELETE FROM free_videos WHERE id = $1`, id)
}
