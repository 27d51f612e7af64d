package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

const (
	cbCodesPlan   = "codes_plan_"
	cbCodesCancel = "codes_cancel"
)

type CodesState struct {
	Plan string
}

var codesStates = fsmutil.NewStore[CodesState]()

// StartCodes: админ выбирает план, затем вводит количество кодов.
func (h *Handlers) StartCodes(admin models.User, chatID int64) {
	if !admin.Role.IsStaff() {
		tg.Text(h.bot, chatID, textForbidden)
		return
	}
	h.StopAll(chatID)
	codesStates.Set(chatID, &CodesState{})
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.Plans)+1)
	for _, p := range models.Plans {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s (%d يوم)", p.Title, p.Days), cbCodesPlan+p.Code),
		))
	}
	rows = append(rows, fsmutil.CancelRow(cbCodesCancel))
	fsmutil.SendRows(h.bot, chatID, "🔑 اختر خطة الأكواد (اشتراك شامل):", rows)
}

func IsCodesCallback(data string) bool {
	return strings.HasPrefix(data, "codes_")
}

func (h *Handlers) HandleCodesCallback(cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	tg.AnswerCallback(h.bot, cb, "")
	st := codesStates.Get(chatID)
	if st == nil {
		fsmutil.DisableMarkup(h.bot, chatID, msgID)
		return
	}
	switch {
	case cb.Data == cbCodesCancel:
		codesStates.Delete(chatID)
		fsmutil.EditText(h.bot, chatID, msgID, textCancelled, nil)
	case strings.HasPrefix(cb.Data, cbCodesPlan):
		st.Plan = strings.TrimPrefix(cb.Data, cbCodesPlan)
		fsmutil.EditText(h.bot, chatID, msgID, "🔢 اكتب عدد الأكواد (من 1 إلى 500):",
			[][]tgbotapi.InlineKeyboardButton{fsmutil.CancelRow(cbCodesCancel)})
	}
}

func (h *Handlers) handleCodesText(ctx context.Context, admin models.User, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st := codesStates.Get(chatID)
	if st == nil {
		return
	}
	if fsmutil.IsCancelText(msg.Text) {
		codesStates.Delete(chatID)
		tg.Text(h.bot, chatID, textCancelled)
		return
	}
	if st.Plan == "" {
		tg.Text(h.bot, chatID, "👆 اختر الخطة من الأزرار أولًا.")
		return
	}
	count, err := strconv.Atoi(strings.TrimSpace(validation.NormalizePhone(msg.Text)))
	if err != nil {
		tg.Text(h.bot, chatID, "⚠️ اكتب رقمًا صحيحًا.")
		return
	}
	key := fmt.Sprintf("codes:%d", chatID)
	if !fsmutil.SetPending(chatID, key) {
		tg.Text(h.bot, chatID, textBusy)
		return
	}
	defer fsmutil.ClearPending(chatID, key)

	codes, err := h.svc.GenerateCodes(ctx, admin, learning.GenerateCodesInput{Count: count, Plan: st.Plan})
	if err != nil {
		if validation.IsValidation(err) {
			tg.Text(h.bot, chatID, "⚠️ "+err.Error())
			return
		}
		codesStates.Delete(chatID)
		h.fail(ctx, chatID, "generate codes", err)
		return
	}
	codesStates.Delete(chatID)
	for _, chunk := range codeChunks(codes, 50) {
		tg.Text(h.bot, chatID, chunk)
	}
}

// codeChunks: коды по size штук в сообщении, чтобы не упереться в лимит Telegram.
func codeChunks(codes []models.Code, size int) []string {
	var out []string
	for start := 0; start < len(codes); start += size {
		end := start + size
		if end > len(codes) {
			end = len(codes)
		}
		var b strings.Builder
		if start == 0 {
			fmt.Fprintf(&b, "🔑 تم إنشاء %d كود (%s، صالحة حتى %s):\n",
				len(codes), planTitle(codes[0].Plan), codes[0].ValidUntil.Format("2006-01-02"))
		}
		for _, c := range codes[start:end] {
			b.WriteString("\n" + c.Code)
		}
		out = append(out, b.String())
	}
	return out
}
