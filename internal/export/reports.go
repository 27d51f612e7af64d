package export

import (
	"strconv"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/models"
)

// DeletedLessonTitle: подпись для попыток по удалённым урокам.
const DeletedLessonTitle = "درس محذوف"

func SubscriptionsSheet(rows []db.SubscriptionExportRow, loc *time.Location) SheetSpec {
	spec := SheetSpec{
		Title:  "الاشتراكات",
		Header: []string{"#", "الطالب", "الهاتف", "الخطة", "الحالة", "البداية", "النهاية", "الوحدة", "المدرس"},
	}
	for _, r := range rows {
		spec.Rows = append(spec.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.UserName,
			r.Phone,
			planTitle(r.Plan),
			statusTitle(r.Status),
			r.StartDate.In(loc).Format("2006-01-02"),
			r.EndDate.In(loc).Format("2006-01-02"),
			scopeOrAll(r.UnitTitle),
			scopeOrAll(r.Teacher),
		})
	}
	return spec
}

func AttemptsSheet(rows []db.AttemptExportRow, loc *time.Location) SheetSpec {
	spec := SheetSpec{
		Title:  "نتائج الاختبارات",
		Header: []string{"الطالب", "الهاتف", "الوحدة", "الدرس", "الدرجة", "النتيجة", "الوقت (ث)", "التاريخ"},
	}
	for _, r := range rows {
		lesson := DeletedLessonTitle
		if r.LessonTitle != nil {
			lesson = *r.LessonTitle
		}
		unit := ""
		if r.UnitTitle != nil {
			unit = *r.UnitTitle
		}
		result := "راسب"
		if r.IsPass {
			result = "ناجح"
		}
		spec.Rows = append(spec.Rows, []string{
			r.UserName,
			r.Phone,
			unit,
			lesson,
			strconv.Itoa(r.Score) + "%",
			result,
			strconv.Itoa(r.TimeTaken),
			r.SubmittedAt.In(loc).Format("2006-01-02 15:04"),
		})
	}
	return spec
}

func UsersSheet(rows []db.UserExportRow, loc *time.Location) SheetSpec {
	spec := SheetSpec{
		Title:  "المستخدمون",
		Header: []string{"#", "الاسم", "الهاتف", "البريد", "الدور", "الصف", "الشعبة", "الأجهزة", "اشتراكات فعالة", "أجزاء مكتملة", "تاريخ التسجيل"},
	}
	for _, r := range rows {
		spec.Rows = append(spec.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			r.Phone,
			r.Email.String,
			r.Role,
			r.Grade.String,
			r.Track,
			strconv.Itoa(r.Devices),
			strconv.Itoa(r.ActiveSubs),
			strconv.Itoa(r.CompletedPart),
			r.CreatedAt.In(loc).Format("2006-01-02"),
		})
	}
	return spec
}

func planTitle(code string) string {
	if p, ok := models.PlanByCode(code); ok {
		return p.Title
	}
	return code
}

func statusTitle(s string) string {
	switch models.SubscriptionStatus(s) {
	case models.SubscriptionActive:
		return "فعال"
	case models.SubscriptionCancelled:
		return "ملغي"
	}
	return s
}

func scopeOrAll(p *string) string {
	if p == nil {
		return "شامل"
	}
	return *p
}
