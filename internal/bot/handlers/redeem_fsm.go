package handlers

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/menu"
	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

const (
	cbRedeemStart  = "redeem_start"
	cbRedeemCancel = "redeem_cancel"
)

type RedeemState struct {
	Attempts int
}

var redeemStates = fsmutil.NewStore[RedeemState]()

const maxRedeemAttempts = 5

// StartRedeem: ввод кода. Доступно и без регистрации.
func (h *Handlers) StartRedeem(chatID int64) {
	h.StopAll(chatID)
	redeemStates.Set(chatID, &RedeemState{})
	fsmutil.SendRows(h.bot, chatID, "🎟 اكتب كود التفعيل:", [][]tgbotapi.InlineKeyboardButton{
		fsmutil.CancelRow(cbRedeemCancel),
	})
}

func IsRedeemCallback(data string) bool {
	return data == cbRedeemStart || data == cbRedeemCancel
}

func (h *Handlers) HandleRedeemCallback(cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	tg.AnswerCallback(h.bot, cb, "")
	switch cb.Data {
	case cbRedeemStart:
		h.StartRedeem(chatID)
	case cbRedeemCancel:
		redeemStates.Delete(chatID)
		fsmutil.EditText(h.bot, chatID, cb.Message.MessageID, textCancelled, nil)
	}
}

func (h *Handlers) handleRedeemText(ctx context.Context, user *models.User, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st := redeemStates.Get(chatID)
	if st == nil {
		return
	}
	if fsmutil.IsCancelText(msg.Text) {
		redeemStates.Delete(chatID)
		tg.Text(h.bot, chatID, textCancelled)
		return
	}
	key := fmt.Sprintf("redeem:%d", chatID)
	if !fsmutil.SetPending(chatID, key) {
		tg.Text(h.bot, chatID, textBusy)
		return
	}
	defer fsmutil.ClearPending(chatID, key)

	telegramID := chatID
	in := learning.RedeemInput{Code: msg.Text, TelegramID: &telegramID}
	if user == nil && msg.From != nil {
		in.Name = redeemerName(msg.From)
	}
	sub, u, err := h.svc.RedeemCode(ctx, in)
	if err != nil {
		st.Attempts++
		text, system := redeemErrorText(err)
		if system {
			redeemStates.Delete(chatID)
			h.fail(ctx, chatID, "redeem code", err)
			return
		}
		if st.Attempts >= maxRedeemAttempts {
			redeemStates.Delete(chatID)
			text += "\nتم إيقاف المحاولة، ابدأ من جديد لاحقًا."
		}
		tg.Text(h.bot, chatID, text)
		return
	}
	redeemStates.Delete(chatID)
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ تم تفعيل اشتراك «%s» حتى %s.",
		planTitle(sub.Plan), sub.EndDate.In(h.loc).Format("2006-01-02")))
	out.ReplyMarkup = menu.GetRoleMenu(u.Role)
	h.send(out)
}

// redeemerName: имя для аккаунта, созданного при погашении кода.
func redeemerName(from *tgbotapi.User) string {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}
	if validation.Var("name", name, "notblank,min=3,max=100") != nil {
		return ""
	}
	return name
}

// redeemErrorText: сообщение для ученика; system=true, ошибка не его.
func redeemErrorText(err error) (string, bool) {
	switch {
	case validation.IsValidation(err):
		return "⚠️ الكود غير صحيح. تأكد من كتابته كما هو.", false
	case errors.Is(err, db.ErrCodeNotFound):
		return "❌ الكود غير صحيح.", false
	case errors.Is(err, db.ErrCodeUsed):
		return "❌ تم استخدام هذا الكود من قبل.", false
	case errors.Is(err, db.ErrCodeExpired):
		return "⌛️ انتهت صلاحية هذا الكود.", false
	}
	return TextTryAgain, true
}
