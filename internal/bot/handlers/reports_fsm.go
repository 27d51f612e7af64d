package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

const (
	cbRepKind   = "rep_kind_"
	cbRepDays   = "rep_days_"
	cbRepBack   = "rep_back"
	cbRepCancel = "rep_cancel"
)

type ReportState struct {
	Kind learning.ReportKind
}

var reportStates = fsmutil.NewStore[ReportState]()

var reportKinds = []struct {
	Kind  learning.ReportKind
	Title string
}{
	{learning.ReportSubscriptions, "💳 الاشتراكات"},
	{learning.ReportQuizResults, "📝 نتائج الاختبارات"},
	{learning.ReportUsers, "👥 الطلاب"},
}

func kindRows() [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reportKinds)+1)
	for _, k := range reportKinds {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(k.Title, cbRepKind+string(k.Kind)),
		))
	}
	return append(rows, fsmutil.CancelRow(cbRepCancel))
}

func (h *Handlers) StartReport(admin models.User, chatID int64) {
	if !admin.Role.IsStaff() {
		tg.Text(h.bot, chatID, textForbidden)
		return
	}
	h.StopAll(chatID)
	reportStates.Set(chatID, &ReportState{})
	fsmutil.SendRows(h.bot, chatID, "📊 اختر نوع التقرير:", kindRows())
}

func IsReportCallback(data string) bool {
	return strings.HasPrefix(data, "rep_")
}

func (h *Handlers) HandleReportCallback(ctx context.Context, admin models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	tg.AnswerCallback(h.bot, cb, "")
	st := reportStates.Get(chatID)
	if st == nil {
		fsmutil.DisableMarkup(h.bot, chatID, msgID)
		return
	}
	switch data := cb.Data; {
	case data == cbRepCancel:
		reportStates.Delete(chatID)
		fsmutil.EditText(h.bot, chatID, msgID, textCancelled, nil)

	case data == cbRepBack:
		st.Kind = ""
		fsmutil.EditText(h.bot, chatID, msgID, "📊 اختر نوع التقرير:", kindRows())

	case strings.HasPrefix(data, cbRepKind):
		kind, ok := learning.ParseReportKind(strings.TrimPrefix(data, cbRepKind))
		if !ok {
			return
		}
		st.Kind = kind
		if kind != learning.ReportQuizResults {
			h.sendReport(ctx, admin, chatID, msgID, kind, 0)
			return
		}
		fsmutil.EditText(h.bot, chatID, msgID, "📅 اختر الفترة:", [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("7 أيام", cbRepDays+"7"),
				tgbotapi.NewInlineKeyboardButtonData("30 يومًا", cbRepDays+"30"),
				tgbotapi.NewInlineKeyboardButtonData("90 يومًا", cbRepDays+"90"),
			),
			fsmutil.BackCancelRow(cbRepBack, cbRepCancel),
		})

	case strings.HasPrefix(data, cbRepDays) && st.Kind != "":
		days, err := strconv.Atoi(strings.TrimPrefix(data, cbRepDays))
		if err != nil || days <= 0 {
			return
		}
		h.sendReport(ctx, admin, chatID, msgID, st.Kind, days)
	}
}

// sendReport: xlsx документом; days=0, за всё время.
func (h *Handlers) sendReport(ctx context.Context, admin models.User, chatID int64, msgID int, kind learning.ReportKind, days int) {
	key := fmt.Sprintf("report:%d", chatID)
	if !fsmutil.SetPending(chatID, key) {
		tg.Text(h.bot, chatID, textBusy)
		return
	}
	defer fsmutil.ClearPending(chatID, key)
	reportStates.Delete(chatID)
	fsmutil.EditText(h.bot, chatID, msgID, "⏳ جاري إعداد التقرير…", nil)

	to := time.Now().In(h.loc)
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, h.loc)
	if days > 0 {
		from = to.AddDate(0, 0, -days)
	}
	name, data, err := h.svc.Report(ctx, admin, kind, from, to)
	if err != nil {
		h.fail(ctx, chatID, "report", err)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = "📊 " + name
	h.send(doc)
}
