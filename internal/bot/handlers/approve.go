package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

const (
	cbReqApprove = "req_ok_"
	cbReqReject  = "req_no_"
)

// RequestRows: кнопки «принять/отклонить» для заявки.
func RequestRows(requestID int64) [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ قبول", fmt.Sprintf("%s%d", cbReqApprove, requestID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ رفض", fmt.Sprintf("%s%d", cbReqReject, requestID)),
		),
	}
}

// RequestText: карточка заявки для админа.
func RequestText(r models.SubscriptionRequest, u *models.User) string {
	return requestText(r, u)
}

// ShowPendingRequests показывает администратору все заявки со статусом pending.
func (h *Handlers) ShowPendingRequests(ctx context.Context, admin models.User, chatID int64) {
	if !admin.Role.IsStaff() {
		tg.Text(h.bot, chatID, textForbidden)
		return
	}
	list, err := h.svc.PendingRequests(ctx, admin)
	if err != nil {
		h.fail(ctx, chatID, "pending requests", err)
		return
	}
	if len(list) == 0 {
		tg.Text(h.bot, chatID, "لا توجد طلبات بانتظار المراجعة.")
		return
	}
	for _, r := range list {
		u, err := h.svc.UserByID(ctx, r.UserID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			h.fail(ctx, chatID, "request user", err)
			return
		}
		fsmutil.SendRows(h.bot, chatID, requestText(r, u), RequestRows(r.ID))
	}
}

func IsRequestCallback(data string) bool {
	return strings.HasPrefix(data, "req_")
}

// HandleRequestCallback: решение по заявке; повторное нажатие видит «уже рассмотрено».
func (h *Handlers) HandleRequestCallback(ctx context.Context, admin models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	if !admin.Role.IsStaff() {
		tg.AnswerCallback(h.bot, cb, textForbidden)
		return
	}
	key := fmt.Sprintf("request:%d", chatID)
	if !fsmutil.SetPending(chatID, key) {
		tg.AnswerCallback(h.bot, cb, textBusy)
		return
	}
	defer fsmutil.ClearPending(chatID, key)
	tg.AnswerCallback(h.bot, cb, "")

	var (
		result string
		err    error
	)
	if id, ok := fsmutil.ParseID(cb.Data, cbReqApprove); ok {
		var sub *models.Subscription
		sub, err = h.svc.ApproveRequest(ctx, admin, id)
		if err == nil {
			result = fmt.Sprintf("✅ تم قبول الطلب #%d. الاشتراك فعال حتى %s.", id, sub.EndDate.In(h.loc).Format("2006-01-02"))
		}
	} else if id, ok := fsmutil.ParseID(cb.Data, cbReqReject); ok {
		_, err = h.svc.RejectRequest(ctx, admin, id)
		if err == nil {
			result = fmt.Sprintf("❌ تم رفض الطلب #%d.", id)
		}
	} else {
		return
	}

	switch {
	case errors.Is(err, db.ErrRequestNotPending):
		fsmutil.EditText(h.bot, chatID, msgID, "ℹ️ تمت مراجعة هذا الطلب بالفعل.", nil)
	case errors.Is(err, db.ErrNotFound):
		fsmutil.EditText(h.bot, chatID, msgID, "الطلب غير موجود.", nil)
	case err != nil:
		h.fail(ctx, chatID, "review request", err)
	default:
		fsmutil.EditText(h.bot, chatID, msgID, result, nil)
	}
}
