package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// SeedDemo наполняет пустой каталог демонстрационными юнитами и уроками (ENV=dev).
// Если юниты уже есть, ничего не делает.
func SeedDemo(ctx context.Context, database *sql.DB) error {
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&count); err != nil {
		return fmt.Errorf("count units: %w", err)
	}
	if count > 0 {
		return nil
	}

	var semesterID int64
	err := database.QueryRowContext(ctx, `
		SELECT s.id FROM semesters s JOIN grades g ON g.id = s.grade_id
		ORDER BY g.position, s.position LIMIT 1
	`).Scan(&semesterID)
	if err != nil {
		return fmt.Errorf("first semester: %w", err)
	}

	units := []models.Unit{
		{SemesterID: semesterID, Title: "الوحدة الأولى: الكهرباء", Track: models.TrackScientific, IsFree: true},
		{SemesterID: semesterID, Title: "الوحدة الثانية: التفاضل", Track: models.TrackMath},
		{SemesterID: semesterID, Title: "الوحدة الثالثة: النحو", Track: models.TrackLiterary},
	}
	for _, u := range units {
		unitID, err := CreateUnit(ctx, database, u)
		if err != nil {
			return fmt.Errorf("insert unit %q: %w", u.Title, err)
		}
		for _, l := range demoLessons(unitID) {
			if _, err := CreateLesson(ctx, database, l); err != nil {
				return fmt.Errorf("insert lesson %q: %w", l.Title, err)
			}
		}
	}
	return nil
}

func demoLessons(unitID int64) []models.Lesson {
	return []models.Lesson{
		{UnitID: unitID, Type: models.Explanation, Title: "شرح: الدرس الأول", VideoURL: "https://example.com/v/1", IsFree: true},
		{UnitID: unitID, Type: models.Homework, Title: "واجب: الدرس الأول", Questions: []models.Question{
			{Text: "2 + 2 = ?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
			{Text: "3 × 3 = ?", Options: []string{"6", "9"}, CorrectIndex: 1},
		}},
		{UnitID: unitID, Type: models.Exam, Title: "امتحان: الدرس الأول", ImageURL: "https://example.com/i/1.png",
			CorrectAnswers: []string{"نيوتن", "newton"}, TimeLimit: 10},
		{UnitID: unitID, Type: models.Summary, Title: "ملخص: الدرس الأول", SummaryHTML: "<b>ملخص</b>"},
	}
}
