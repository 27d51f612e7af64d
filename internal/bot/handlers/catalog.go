package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

const (
	cbCatRoot     = "cat_root"
	cbCatGrade    = "cat_grade_"
	cbCatSemester = "cat_sem_"
	cbCatUnit     = "cat_unit_"
	cbLesson      = "lesson_open_"
	cbLessonDone  = "lesson_done_"
)

func upsellRows() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 طلب اشتراك", cbSubStart),
			tgbotapi.NewInlineKeyboardButtonData("🎟 تفعيل كود", cbRedeemStart),
		),
	}
}

// ShowCatalog: вход в каталог: сразу класс ученика, иначе список классов.
func (h *Handlers) ShowCatalog(ctx context.Context, user models.User, chatID int64) {
	grades, err := h.svc.Grades(ctx)
	if err != nil {
		h.fail(ctx, chatID, "catalog grades", err)
		return
	}
	if user.GradeID != nil && !user.Role.IsStaff() {
		for _, g := range grades {
			if g.ID == *user.GradeID {
				h.showSemesters(chatID, 0, g)
				return
			}
		}
	}
	h.showGrades(chatID, 0, grades)
}

func (h *Handlers) showGrades(chatID int64, msgID int, grades []models.Grade) {
	if len(grades) == 0 {
		tg.Text(h.bot, chatID, "لا توجد صفوف دراسية بعد.")
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(grades))
	for _, g := range grades {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏫 "+g.Name, fmt.Sprintf("%s%d", cbCatGrade, g.ID)),
		))
	}
	h.show(chatID, msgID, "اختر الصف الدراسي:", rows)
}

func (h *Handlers) showSemesters(chatID int64, msgID int, g models.Grade) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(g.Semesters)+1)
	for _, s := range g.Semesters {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 "+s.Name, fmt.Sprintf("%s%d", cbCatSemester, s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ الصفوف", cbCatRoot)))
	h.show(chatID, msgID, "🏫 "+g.Name+"\nاختر الترم:", rows)
}

func (h *Handlers) show(chatID int64, msgID int, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	if msgID != 0 {
		fsmutil.EditText(h.bot, chatID, msgID, text, rows)
		return
	}
	fsmutil.SendRows(h.bot, chatID, text, rows)
}

func IsCatalogCallback(data string) bool {
	return strings.HasPrefix(data, "cat_") || strings.HasPrefix(data, "lesson_")
}

func (h *Handlers) HandleCatalogCallback(ctx context.Context, user models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data
	tg.AnswerCallback(h.bot, cb, "")

	switch {
	case data == cbCatRoot:
		grades, err := h.svc.Grades(ctx)
		if err != nil {
			h.fail(ctx, chatID, "catalog grades", err)
			return
		}
		h.showGrades(chatID, msgID, grades)

	case strings.HasPrefix(data, cbCatGrade):
		id, ok := fsmutil.ParseID(data, cbCatGrade)
		if !ok {
			return
		}
		grades, err := h.svc.Grades(ctx)
		if err != nil {
			h.fail(ctx, chatID, "catalog grades", err)
			return
		}
		for _, g := range grades {
			if g.ID == id {
				h.showSemesters(chatID, msgID, g)
				return
			}
		}

	case strings.HasPrefix(data, cbCatSemester):
		id, ok := fsmutil.ParseID(data, cbCatSemester)
		if !ok {
			return
		}
		h.showUnits(ctx, user, chatID, msgID, id)

	case strings.HasPrefix(data, cbCatUnit):
		id, ok := fsmutil.ParseID(data, cbCatUnit)
		if !ok {
			return
		}
		h.stopQuiz(chatID)
		h.showUnit(ctx, user, chatID, msgID, id)

	case strings.HasPrefix(data, cbLesson):
		id, ok := fsmutil.ParseID(data, cbLesson)
		if !ok {
			return
		}
		h.stopQuiz(chatID)
		h.showLesson(ctx, user, chatID, msgID, id)

	case strings.HasPrefix(data, cbLessonDone):
		id, ok := fsmutil.ParseID(data, cbLessonDone)
		if !ok {
			return
		}
		h.markDone(ctx, user, chatID, msgID, id)
	}
}

func (h *Handlers) showUnits(ctx context.Context, user models.User, chatID int64, msgID int, semesterID int64) {
	units, err := h.svc.Units(ctx, user, semesterID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			tg.Text(h.bot, chatID, "الترم غير موجود.")
			return
		}
		h.fail(ctx, chatID, "catalog units", err)
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(units)+1)
	for _, u := range units {
		label := "📘 " + u.Title
		if u.IsFree {
			label += " 🎁"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbCatUnit, u.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⬅️ الصفوف", cbCatRoot)))
	text := "اختر الوحدة:"
	if len(units) == 0 {
		text = "لا توجد وحدات متاحة لشعبتك في هذا الترم."
	}
	h.show(chatID, msgID, text, rows)
}

func (h *Handlers) showUnit(ctx context.Context, user models.User, chatID int64, msgID int, unitID int64) {
	v, err := h.svc.UnitView(ctx, user, unitID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			tg.Text(h.bot, chatID, "الوحدة غير موجودة.")
			return
		}
		h.fail(ctx, chatID, "unit view", err)
		return
	}
	h.show(chatID, msgID, unitText(v), unitRows(v))
}

// unitRows: по строке на урок, в строке кнопки его частей.
func unitRows(v *learning.UnitView) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range v.Groups {
		var row []tgbotapi.InlineKeyboardButton
		for _, l := range g.Ordered() {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				partLabel(l, v.Visible[l.ID], v.Completed[l.ID]), fmt.Sprintf("%s%d", cbLesson, l.ID)))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if !v.Decision.Granted {
		rows = append(rows, upsellRows()...)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ الوحدات", fmt.Sprintf("%s%d", cbCatSemester, v.Unit.SemesterID)),
	))
	return rows
}

func (h *Handlers) showLesson(ctx context.Context, user models.User, chatID int64, msgID int, lessonID int64) {
	v, err := h.svc.LessonView(ctx, user, lessonID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			tg.Text(h.bot, chatID, "الدرس غير موجود.")
			return
		}
		h.fail(ctx, chatID, "lesson view", err)
		return
	}
	h.show(chatID, msgID, lessonText(v), lessonRows(v))
}

func lessonRows(v *learning.LessonView) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	switch {
	case !v.Visible:
		// доступ есть, но профиль не тот: подписка не поможет
		if !v.Decision.Granted {
			rows = append(rows, upsellRows()...)
		}
	case v.Lesson.Type.IsQuiz():
		label := "▶️ ابدأ الاختبار"
		if v.Latest != nil {
			label = "🔁 إعادة الاختبار"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbQuizStart, v.Lesson.ID)),
		))
	case !v.Completed:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ تم", fmt.Sprintf("%s%d", cbLessonDone, v.Lesson.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ الوحدة", fmt.Sprintf("%s%d", cbCatUnit, v.Lesson.UnitID)),
	))
	return rows
}

func (h *Handlers) markDone(ctx context.Context, user models.User, chatID int64, msgID int, lessonID int64) {
	newly, err := h.svc.MarkComplete(ctx, user, lessonID)
	switch {
	case errors.Is(err, learning.ErrLocked):
		fsmutil.SendRows(h.bot, chatID, textUpsell, upsellRows())
		return
	case errors.Is(err, learning.ErrQuizCompletion):
		tg.Text(h.bot, chatID, "📝 يُحتسب هذا الجزء عند النجاح في الاختبار.")
		return
	case err != nil:
		h.fail(ctx, chatID, "mark complete", err)
		return
	}
	if newly {
		tg.Text(h.bot, chatID, "👏 أحسنت! تم تسجيل إكمال الدرس.")
	}
	h.showLesson(ctx, user, chatID, msgID, lessonID)
}
