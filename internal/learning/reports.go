package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/export"
	"github.com/Spok95/learning-platform-bot/internal/models"
)

type ReportKind string

const (
	ReportSubscriptions ReportKind = "subscriptions"
	ReportQuizResults   ReportKind = "quiz_results"
	ReportUsers         ReportKind = "users"
)

func ParseReportKind(s string) (ReportKind, bool) {
	switch k := ReportKind(s); k {
	case ReportSubscriptions, ReportQuizResults, ReportUsers:
		return k, true
	}
	return "", false
}

// Report: xlsx-отчёт для админа. from/to используются только для результатов тестов.
func (s *Service) Report(ctx context.Context, admin models.User, kind ReportKind, from, to time.Time) (filename string, data []byte, err error) {
	if err := requireStaff(admin); err != nil {
		return "", nil, err
	}
	var sheet export.SheetSpec
	switch kind {
	case ReportSubscriptions:
		rows, err := db.ListSubscriptionsForExport(ctx, s.db)
		if err != nil {
			return "", nil, fmt.Errorf("list subscriptions: %w", err)
		}
		sheet = export.SubscriptionsSheet(rows, s.loc)
		from, to = time.Time{}, time.Time{}
	case ReportQuizResults:
		if to.IsZero() {
			to = s.now()
		}
		if from.IsZero() {
			from = to.AddDate(0, -1, 0)
		}
		rows, err := db.ListAttemptsForExport(ctx, s.db, from, to)
		if err != nil {
			return "", nil, fmt.Errorf("list attempts: %w", err)
		}
		sheet = export.AttemptsSheet(rows, s.loc)
	case ReportUsers:
		rows, err := db.ListUsersForExport(ctx, s.db, true)
		if err != nil {
			return "", nil, fmt.Errorf("list users: %w", err)
		}
		sheet = export.UsersSheet(rows, s.loc)
		from, to = time.Time{}, time.Time{}
	default:
		return "", nil, fmt.Errorf("unknown report %q", kind)
	}

	wb, err := export.NewWorkbook([]export.SheetSpec{sheet})
	if err != nil {
		return "", nil, err
	}
	data, err = wb.Bytes()
	if err != nil {
		return "", nil, err
	}
	return export.BuildReportFilename(string(kind), from.In(s.loc), to.In(s.loc)), data, nil
}
