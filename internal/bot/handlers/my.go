package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

const cbCourse = "course_open_"

// ShowProgress: прогресс по всем юнитам класса ученика.
func (h *Handlers) ShowProgress(ctx context.Context, user models.User, chatID int64) {
	if user.GradeID == nil {
		tg.Text(h.bot, chatID, "لم يتم تحديد صفك الدراسي بعد.")
		return
	}
	grades, err := h.svc.Grades(ctx)
	if err != nil {
		h.fail(ctx, chatID, "progress grades", err)
		return
	}
	var b strings.Builder
	b.WriteString("📈 تقدمك:\n")
	units := 0
	for _, g := range grades {
		if g.ID != *user.GradeID {
			continue
		}
		for _, s := range g.Semesters {
			list, err := h.svc.Units(ctx, user, s.ID)
			if err != nil {
				h.fail(ctx, chatID, "progress units", err)
				return
			}
			for _, u := range list {
				v, err := h.svc.UnitView(ctx, user, u.ID)
				if err != nil {
					h.fail(ctx, chatID, "progress unit view", err)
					return
				}
				units++
				fmt.Fprintf(&b, "\n📘 %s\n%s\n", u.Title, progressBar(v.Progress.Percent))
			}
		}
	}
	if units == 0 {
		b.WriteString("\nلا توجد وحدات بعد.")
	}
	tg.Text(h.bot, chatID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handlers) ShowAttempts(ctx context.Context, user models.User, chatID int64) {
	list, err := h.svc.Attempts(ctx, user, nil)
	if err != nil {
		h.fail(ctx, chatID, "attempts", err)
		return
	}
	if len(list) > 20 {
		list = list[:20]
	}
	tg.Text(h.bot, chatID, attemptsText(list, h.loc))
}

func (h *Handlers) ShowSubscriptions(ctx context.Context, user models.User, chatID int64) {
	subs, err := h.svc.Subscriptions(ctx, user)
	if err != nil {
		h.fail(ctx, chatID, "subscriptions", err)
		return
	}
	text := subscriptionsText(subs, time.Now(), h.loc)
	fsmutil.SendRows(h.bot, chatID, text, upsellRows())
}

func (h *Handlers) ShowCourses(ctx context.Context, chatID int64) {
	list, err := h.svc.Courses(ctx)
	if err != nil {
		h.fail(ctx, chatID, "courses", err)
		return
	}
	if len(list) == 0 {
		tg.Text(h.bot, chatID, "لا توجد كورسات حاليًا.")
		return
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for _, c := range list {
		label := "🎬 " + c.Title
		if c.IsFree {
			label += " 🎁"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbCourse, c.ID)),
		))
	}
	fsmutil.SendRows(h.bot, chatID, "🎬 الكورسات المتاحة:", rows)
}

func IsCourseCallback(data string) bool {
	return strings.HasPrefix(data, "course_")
}

func (h *Handlers) HandleCourseCallback(ctx context.Context, user models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	tg.AnswerCallback(h.bot, cb, "")
	id, ok := fsmutil.ParseID(cb.Data, cbCourse)
	if !ok {
		return
	}
	v, err := h.svc.CourseView(ctx, user, id)
	if err != nil {
		h.fail(ctx, chatID, "course view", err)
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	if !v.Decision.Granted {
		rows = upsellRows()
	}
	fsmutil.SendRows(h.bot, chatID, courseText(v), rows)
}
