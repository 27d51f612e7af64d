package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// ListGrades: дерево класс → семестры → юниты.
func ListGrades(ctx context.Context, database *sql.DB) ([]models.Grade, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT g.id, g.name, g.position, s.id, s.name, s.position
		FROM grades g
		LEFT JOIN semesters s ON s.grade_id = g.id
		ORDER BY g.position, g.id, s.position, s.id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var grades []models.Grade
	semIndex := map[int64][2]int{}
	for rows.Next() {
		var (
			g      models.Grade
			semID  sql.NullInt64
			semNm  sql.NullString
			semPos sql.NullInt32
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Position, &semID, &semNm, &semPos); err != nil {
			return nil, err
		}
		if len(grades) == 0 || grades[len(grades)-1].ID != g.ID {
			grades = append(grades, g)
		}
		if semID.Valid {
			gi := len(grades) - 1
			grades[gi].Semesters = append(grades[gi].Semesters, models.Semester{
				ID: semID.Int64, GradeID: g.ID, Name: semNm.String, Position: int(semPos.Int32),
			})
			semIndex[semID.Int64] = [2]int{gi, len(grades[gi].Semesters) - 1}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	units, err := listUnits(ctx, database, `TRUE`)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if idx, ok := semIndex[u.SemesterID]; ok {
			s := &grades[idx[0]].Semesters[idx[1]]
			s.Units = append(s.Units, u)
		}
	}
	return grades, nil
}

func GetGrade(ctx context.Context, database *sql.DB, id int64) (*models.Grade, error) {
	var g models.Grade
	err := database.QueryRowContext(ctx, `SELECT id, name, position FROM grades WHERE id = $1`, id).Scan(&g.ID, &g.Name, &g.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

const unitColumns = `id, semester_id, teacher_id, title, track, is_free`

func scanUnit(row interface{ Scan(...any) error }) (*models.Unit, error) {
	var (
		u         models.Unit
		teacherID sql.NullInt64
		track     string
	)
	if err := row.Scan(&u.ID, &u.SemesterID, &teacherID, &u.Title, &track, &u.IsFree); err != nil {
		return nil, err
	}
	u.TeacherID = int64Ptr(teacherID)
	u.Track = models.Track(track)
	return &u, nil
}

func listUnits(ctx context.Context, q queryer, where string, args ...any) ([]models.Unit, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+unitColumns+` FROM units WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func GetUnit(ctx context.Context, database *sql.DB, id int64) (*models.Unit, error) {
	u, err := scanUnit(database.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func CreateUnit(ctx context.Context, database *sql.DB, u models.Unit) (int64, error) {
	if u.Track == "" {
		u.Track = models.TrackAll
	}
	var id int64
	err := database.QueryRowContext(ctx, `
		INSERT INTO units (semester_id, teacher_id, title, track, is_free)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, u.SemesterID, nullInt64(u.TeacherID), u.Title, string(u.Track), u.IsFree).Scan(&id)
	return id, err
}

func UpdateUnit(ctx context.Context, database *sql.DB, u models.Unit) error {
	res, err := database.ExecContext(ctx, `
		UPDATE units SET title = $1, track = $2, is_free = $3, teacher_id = $4
		WHERE id = $5
	`, u.Title, string(u.Track), u.IsFree, nullInt64(u.TeacherID), u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func DeleteUnit(ctx context.Context, database *sql.DB, id int64) error {
	res, err := database.ExecContext(ctx, `DELETE FROM units WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const lessonColumns = `id, unit_id, type, title, video_url, image_url, correct_answers, questions, summary_html, passing_score, time_limit, is_free, created_at`

func scanLesson(row interface{ Scan(...any) error }) (*models.Lesson, error) {
	var (
		l         models.Lesson
		typ       string
		questions []byte
		passing   sql.NullInt32
	)
	err := row.Scan(&l.ID, &l.UnitID, &typ, &l.Title, &l.VideoURL, &l.ImageURL, pq.Array(&l.CorrectAnswers),
		&questions, &l.SummaryHTML, &passing, &l.TimeLimit, &l.IsFree, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Type = models.LessonType(typ)
	l.PassingScore = intPtr(passing)
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &l.Questions); err != nil {
			return nil, fmt.Errorf("lesson %d questions: %w", l.ID, err)
		}
	}
	return &l, nil
}

// ListLessonsByUnit: плоский список частей юнита, в порядке создания.
func ListLessonsByUnit(ctx context.Context, database *sql.DB, unitID int64) ([]models.Lesson, error) {
	rows, err := database.QueryContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE unit_id = $1 ORDER BY id`, unitID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func GetLesson(ctx context.Context, database *sql.DB, id int64) (*models.Lesson, error) {
	l, err := scanLesson(database.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

func CreateLesson(ctx context.Context, database *sql.DB, l models.Lesson) (int64, error) {
	questions, err := json.Marshal(questionsOrEmpty(l.Questions))
	if err != nil {
		return 0, err
	}
	var passing sql.NullInt32
	if l.PassingScore != nil {
		passing = sql.NullInt32{Int32: int32(*l.PassingScore), Valid: true}
	}
	var id int64
	err = database.QueryRowContext(ctx, `
		INSERT INTO lessons (unit_id, type, title, video_url, image_url, correct_answers, questions,
		                     summary_html, passing_score, time_limit, is_free)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, l.UnitID, string(l.Type), l.Title, l.VideoURL, l.ImageURL, pq.Array(l.CorrectAnswers), questions,
		l.SummaryHTML, passing, l.TimeLimit, l.IsFree).Scan(&id)
	return id, err
}

func DeleteLesson(ctx context.Context, database *sql.DB, id int64) error {
	res, err := database.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func questionsOrEmpty(q []models.Question) []models.Question {
	if q == nil {
		return []models.Question{}
	}
	return q
}
