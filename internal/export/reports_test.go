package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/learning-platform-bot/internal/db"
)

func TestAttemptsWorkbook_DeletedLessonPlaceholder(t *testing.T) {
	title := "واجب: أوم"
	unit := "الكهرباء"
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	rows := []db.AttemptExportRow{
		{UserName: "منى", Phone: "01012345678", LessonTitle: &title, UnitTitle: &unit, Score: 80, IsPass: true, TimeTaken: 95, SubmittedAt: at},
		{UserName: "علي", Phone: "01112345678", Score: 20, SubmittedAt: at},
	}

	wb, err := NewWorkbook([]SheetSpec{AttemptsSheet(rows, time.UTC)})
	require.NoError(t, err)
	data, err := wb.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetRows("نتائج الاختبارات")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "الطالب", got[0][0])
	assert.Equal(t, title, got[1][3])
	assert.Equal(t, "80%", got[1][4])
	assert.Equal(t, "ناجح", got[1][5])
	assert.Equal(t, DeletedLessonTitle, got[2][3])
	assert.Equal(t, "راسب", got[2][5])
}

func TestSubscriptionsSheet_ScopeAndPlan(t *testing.T) {
	unit := "التفاضل"
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	spec := SubscriptionsSheet([]db.SubscriptionExportRow{
		{ID: 1, UserName: "a", Plan: "monthly", Status: "active", StartDate: start, EndDate: start.AddDate(0, 0, 30)},
		{ID: 2, UserName: "b", Plan: "custom", Status: "cancelled", StartDate: start, EndDate: start, UnitTitle: &unit},
	}, time.UTC)

	require.Len(t, spec.Rows, 2)
	assert.Equal(t, "شهري", spec.Rows[0][3])
	assert.Equal(t, "فعال", spec.Rows[0][4])
	assert.Equal(t, "شامل", spec.Rows[0][7])
	assert.Equal(t, "custom", spec.Rows[1][3])
	assert.Equal(t, "ملغي", spec.Rows[1][4])
	assert.Equal(t, unit, spec.Rows[1][7])
}

func TestNewWorkbook_NoSheets(t *testing.T) {
	_, err := NewWorkbook(nil)
	assert.Error(t, err)
}

func TestBuildReportFilename(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "quiz results — 2026-01-01 — 2026-02-01.xlsx", BuildReportFilename("quiz results", from, to))
	assert.Equal(t, "a_b.xlsx", BuildReportFilename("a/b", time.Time{}, time.Time{}))
}

func TestSheetName_Truncates(t *testing.T) {
	assert.Equal(t, 31, len([]rune(sheetName("ابجدهوزحطيكلمنسعفصقرشتثخذضظغ ابجد", 0))))
	assert.Equal(t, "—", sheetName("  ", 1))
}
