package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/export"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/lessons"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
)

const textUpsell = "🔒 هذا المحتوى يتطلب اشتراكًا.\nاطلب اشتراكًا أو فعّل كودًا للوصول إليه."

func lessonTypeTitle(t models.LessonType) string {
	switch t {
	case models.Explanation:
		return "شرح"
	case models.Homework:
		return "واجب"
	case models.Exam:
		return "امتحان"
	case models.Summary:
		return "ملخص"
	}
	return string(t)
}

func lessonTypeIcon(t models.LessonType) string {
	switch t {
	case models.Explanation:
		return "🎥"
	case models.Homework:
		return "📝"
	case models.Exam:
		return "🧪"
	case models.Summary:
		return "📄"
	}
	return "•"
}

func progressBar(percent int) string {
	const width = 10
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled) + fmt.Sprintf(" %d%%", percent)
}

// partLabel: подпись кнопки части урока.
func partLabel(l models.Lesson, visible, completed bool) string {
	mark := ""
	switch {
	case !visible:
		mark = " 🔒"
	case completed:
		mark = " ✅"
	}
	return lessonTypeIcon(l.Type) + " " + lessonTypeTitle(l.Type) + mark
}

func unitText(v *learning.UnitView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📘 %s\n", v.Unit.Title)
	if v.Unit.IsFree {
		b.WriteString("🎁 وحدة مجانية\n")
	}
	fmt.Fprintf(&b, "التقدم: %s (%d/%d)\n", progressBar(v.Progress.Percent), v.Progress.CompletedParts, v.Progress.Parts)
	if !v.Decision.Granted {
		b.WriteString("\n🔒 بعض الأجزاء مغلقة. الشرح المجاني متاح للجميع.\n")
	}
	if len(v.Groups) == 0 {
		b.WriteString("\nلا توجد دروس بعد.")
		return b.String()
	}
	for i, g := range v.Groups {
		done := ""
		if g.IsFullyCompleted {
			done = " ✅"
		}
		fmt.Fprintf(&b, "\n%d. %s — %d/%d%s", i+1, groupTitle(g), g.CompletedCount, g.TotalParts, done)
	}
	return b.String()
}

func groupTitle(g lessons.GroupedLesson) string {
	if g.BaseTitle != "" {
		return g.BaseTitle
	}
	for _, l := range g.Ordered() {
		return l.Title
	}
	return "—"
}

func lessonText(v *learning.LessonView) string {
	if !v.Visible {
		return fmt.Sprintf("%s %s\n\n%s", lessonTypeIcon(v.Lesson.Type), v.Lesson.Title, textUpsell)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", lessonTypeIcon(v.Lesson.Type), v.Lesson.Title)
	if v.Completed {
		b.WriteString("✅ مكتمل\n")
	}
	switch v.Lesson.Type {
	case models.Explanation:
		if v.Lesson.VideoURL != "" {
			fmt.Fprintf(&b, "\n🎥 الفيديو: %s\n", v.Lesson.VideoURL)
		}
	case models.Summary:
		if v.Lesson.SummaryHTML != "" {
			fmt.Fprintf(&b, "\n%s\n", stripTags(v.Lesson.SummaryHTML))
		}
		if v.Lesson.VideoURL != "" {
			fmt.Fprintf(&b, "\n🎥 %s\n", v.Lesson.VideoURL)
		}
	case models.Homework, models.Exam:
		if v.Lesson.IsImageQuiz() {
			b.WriteString("\n🖼 اختبار بالصورة: اكتب إجاباتك، كل إجابة في سطر.\n")
		} else {
			fmt.Fprintf(&b, "\n❓ عدد الأسئلة: %d\n", len(v.Lesson.Questions))
		}
		fmt.Fprintf(&b, "درجة النجاح: %d%%\n", quiz.PassingScore(v.Lesson))
		if v.Lesson.TimeLimit > 0 {
			fmt.Fprintf(&b, "⏱ الوقت: %d دقيقة\n", v.Lesson.TimeLimit)
		}
		if v.Latest != nil {
			fmt.Fprintf(&b, "\nآخر محاولة: %d%% %s", v.Latest.Score, passMark(v.Latest.IsPass))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func passMark(pass bool) string {
	if pass {
		return "✅ ناجح"
	}
	return "❌ لم تنجح"
}

// stripTags: грубое превращение HTML конспекта в текст для Telegram.
func stripTags(html string) string {
	r := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n", "</li>", "\n", "<li>", "• ")
	s := r.Replace(html)
	var b strings.Builder
	in := false
	for _, c := range s {
		switch {
		case c == '<':
			in = true
		case c == '>':
			in = false
		case !in:
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(b.String())
}

func resultText(sub quiz.Submission, passing int) string {
	var b strings.Builder
	if sub.AutoSubmitted {
		b.WriteString("⏱ انتهى الوقت، تم تسليم إجاباتك تلقائيًا.\n")
	}
	fmt.Fprintf(&b, "النتيجة: %d%% (%d/%d)\n", sub.Score, sub.CorrectCount, sub.Total)
	fmt.Fprintf(&b, "درجة النجاح: %d%%\n", passing)
	b.WriteString(passMark(sub.IsPass))
	return b.String()
}

func attemptsText(list []models.AttemptWithLesson, loc *time.Location) string {
	if len(list) == 0 {
		return "لا توجد محاولات بعد."
	}
	var b strings.Builder
	b.WriteString("📝 نتائج الاختبارات:\n")
	for _, a := range list {
		title := export.DeletedLessonTitle
		if a.LessonTitle != nil {
			title = *a.LessonTitle
		}
		fmt.Fprintf(&b, "\n• %s — %d%% %s\n  %s", title, a.Score, passMark(a.IsPass), a.SubmittedAt.In(loc).Format("2006-01-02 15:04"))
	}
	return b.String()
}

func planTitle(code string) string {
	if p, ok := models.PlanByCode(code); ok {
		return p.Title
	}
	return code
}

func subscriptionsText(subs []models.Subscription, now time.Time, loc *time.Location) string {
	if len(subs) == 0 {
		return "ليس لديك اشتراكات بعد."
	}
	var b strings.Builder
	b.WriteString("💳 اشتراكاتك:\n")
	for _, s := range subs {
		state := "⛔️ منتهي"
		if s.ActiveAt(now) {
			state = "✅ فعال"
		}
		scope := "شامل"
		if !s.IsComprehensive() {
			scope = "محدد"
		}
		fmt.Fprintf(&b, "\n• %s (%s) %s\n  حتى %s", planTitle(s.Plan), scope, state, s.EndDate.In(loc).Format("2006-01-02"))
	}
	return b.String()
}

func requestText(r models.SubscriptionRequest, u *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📥 طلب اشتراك #%d\n", r.ID)
	if u != nil {
		fmt.Fprintf(&b, "👤 %s\n📱 %s\n", u.Name, u.Phone)
	}
	fmt.Fprintf(&b, "الخطة: %s\n", planTitle(r.Plan))
	if r.UnitID != nil {
		fmt.Fprintf(&b, "الوحدة: #%d\n", *r.UnitID)
	} else {
		b.WriteString("النطاق: شامل\n")
	}
	fmt.Fprintf(&b, "مرجع الدفع: %s", r.PaymentRef)
	return b.String()
}

func decisionNote(d access.Decision) string {
	switch d.Reason {
	case access.ReasonFree:
		return "🎁 مجاني"
	case access.ReasonPurchased:
		return "🛍 تم الشراء"
	case access.ReasonComprehensive, access.ReasonScoped:
		return "✅ متاح باشتراكك"
	}
	return "🔒 يتطلب اشتراكًا"
}

func courseText(v *learning.CourseView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎬 %s\n", v.Course.Title)
	if v.Course.Description != "" {
		fmt.Fprintf(&b, "%s\n", v.Course.Description)
	}
	if !v.Course.IsFree {
		fmt.Fprintf(&b, "السعر: %d جنيه\n", v.Course.Price)
	}
	fmt.Fprintf(&b, "%s\n", decisionNote(v.Decision))
	for i, vv := range v.Videos {
		if vv.Decision.Granted {
			fmt.Fprintf(&b, "\n%d. %s\n   %s", i+1, vv.Video.Title, vv.Video.VideoURL)
		} else {
			fmt.Fprintf(&b, "\n%d. %s 🔒", i+1, vv.Video.Title)
		}
	}
	return b.String()
}
