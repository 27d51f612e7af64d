package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

const (
	cbSubStart  = "sub_start"
	cbSubPlan   = "sub_plan_"
	cbSubAll    = "sub_scope_all"
	cbSubUnit   = "sub_scope_unit_"
	cbSubBack   = "sub_back"
	cbSubCancel = "sub_cancel"
)

type SubscribeStep int

const (
	SubStepPlan SubscribeStep = iota
	SubStepScope
	SubStepPayment
)

type SubscribeState struct {
	Step  SubscribeStep
	Input learning.RequestInput
}

var subscribeStates = fsmutil.NewStore[SubscribeState]()

func planRows() [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.Plans)+1)
	for _, p := range models.Plans {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s (%d يوم)", p.Title, p.Days), cbSubPlan+p.Code),
		))
	}
	return append(rows, fsmutil.CancelRow(cbSubCancel))
}

func (h *Handlers) StartSubscribe(chatID int64) {
	h.StopAll(chatID)
	subscribeStates.Set(chatID, &SubscribeState{Step: SubStepPlan})
	fsmutil.SendRows(h.bot, chatID, "🛒 اختر خطة الاشتراك:", planRows())
}

func IsSubscribeCallback(data string) bool {
	return strings.HasPrefix(data, "sub_")
}

func (h *Handlers) HandleSubscribeCallback(ctx context.Context, user models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data
	tg.AnswerCallback(h.bot, cb, "")

	if data == cbSubStart {
		h.StartSubscribe(chatID)
		return
	}
	st := subscribeStates.Get(chatID)
	if st == nil {
		fsmutil.DisableMarkup(h.bot, chatID, msgID)
		return
	}

	switch {
	case data == cbSubCancel:
		subscribeStates.Delete(chatID)
		fsmutil.EditText(h.bot, chatID, msgID, textCancelled, nil)

	case data == cbSubBack:
		st.Step = SubStepPlan
		st.Input = learning.RequestInput{}
		fsmutil.EditText(h.bot, chatID, msgID, "🛒 اختر خطة الاشتراك:", planRows())

	case strings.HasPrefix(data, cbSubPlan) && st.Step == SubStepPlan:
		st.Input.Plan = strings.TrimPrefix(data, cbSubPlan)
		st.Step = SubStepScope
		rows, err := h.scopeRows(ctx, user)
		if err != nil {
			h.fail(ctx, chatID, "subscribe scope", err)
			return
		}
		fsmutil.EditText(h.bot, chatID, msgID, "📦 اختر نطاق الاشتراك:", rows)

	case data == cbSubAll && st.Step == SubStepScope:
		st.Input.UnitID = nil
		h.askPayment(chatID, msgID, st)

	case strings.HasPrefix(data, cbSubUnit) && st.Step == SubStepScope:
		id, ok := fsmutil.ParseID(data, cbSubUnit)
		if !ok {
			return
		}
		st.Input.UnitID = &id
		h.askPayment(chatID, msgID, st)
	}
}

// scopeRows: «شامل» плюс платные юниты класса ученика.
func (h *Handlers) scopeRows(ctx context.Context, user models.User) ([][]tgbotapi.InlineKeyboardButton, error) {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🌐 اشتراك شامل", cbSubAll)),
	}
	if user.GradeID != nil {
		grades, err := h.svc.Grades(ctx)
		if err != nil {
			return nil, err
		}
		for _, g := range grades {
			if g.ID != *user.GradeID {
				continue
			}
			for _, s := range g.Semesters {
				units, err := h.svc.Units(ctx, user, s.ID)
				if err != nil {
					return nil, err
				}
				for _, u := range units {
					if u.IsFree {
						continue
					}
					rows = append(rows, tgbotapi.NewInlineKeyboardRow(
						tgbotapi.NewInlineKeyboardButtonData("📘 "+u.Title, fmt.Sprintf("%s%d", cbSubUnit, u.ID)),
					))
				}
			}
		}
	}
	return append(rows, fsmutil.BackCancelRow(cbSubBack, cbSubCancel)), nil
}

func (h *Handlers) askPayment(chatID int64, msgID int, st *SubscribeState) {
	st.Step = SubStepPayment
	fsmutil.EditText(h.bot, chatID, msgID,
		"💵 حوّل قيمة الاشتراك ثم اكتب رقم العملية أو اسم المحوِّل كمرجع للدفع:",
		[][]tgbotapi.InlineKeyboardButton{fsmutil.BackCancelRow(cbSubBack, cbSubCancel)})
}

func (h *Handlers) handleSubscribeText(ctx context.Context, user models.User, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st := subscribeStates.Get(chatID)
	if st == nil {
		return
	}
	if fsmutil.IsCancelText(msg.Text) {
		subscribeStates.Delete(chatID)
		tg.Text(h.bot, chatID, textCancelled)
		return
	}
	if st.Step != SubStepPayment {
		tg.Text(h.bot, chatID, "👆 اختر من الأزرار في الرسالة السابقة.")
		return
	}
	st.Input.PaymentRef = strings.TrimSpace(msg.Text)
	req, err := h.svc.RequestSubscription(ctx, user, st.Input)
	if err != nil {
		if validation.IsValidation(err) {
			tg.Text(h.bot, chatID, "⚠️ "+err.Error())
			return
		}
		subscribeStates.Delete(chatID)
		h.fail(ctx, chatID, "request subscription", err)
		return
	}
	subscribeStates.Delete(chatID)
	tg.Text(h.bot, chatID, fmt.Sprintf("📨 تم إرسال طلبك #%d. سيتم إشعارك بعد مراجعته.", req.ID))
}
