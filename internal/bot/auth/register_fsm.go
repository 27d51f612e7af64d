package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/menu"
	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

// Registrar: то, что нужно сценарию от learning.Service.
type Registrar interface {
	Grades(ctx context.Context) ([]models.Grade, error)
	Register(ctx context.Context, in learning.RegisterInput) (*models.User, error)
}

type RegisterFSMState string

const (
	StateName  RegisterFSMState = "reg_name"
	StatePhone RegisterFSMState = "reg_phone"
	StateEmail RegisterFSMState = "reg_email"
	StateGrade RegisterFSMState = "reg_grade"
	StateTrack RegisterFSMState = "reg_track"
)

type RegisterState struct {
	Step RegisterFSMState
	Data learning.RegisterInput
}

var states = fsmutil.NewStore[RegisterState]()

const (
	cbSkipEmail = "reg_skip_email"
	cbBack      = "reg_back"
	cbCancel    = "reg_cancel"
	cbGrade     = "reg_grade_"
	cbTrack     = "reg_track_"
)

const (
	textAskName    = "👋 أهلًا بك! اكتب اسمك الثلاثي:"
	textAskPhone   = "📱 اكتب رقم الموبايل (مثال: 01012345678):"
	textAskEmail   = "✉️ اكتب بريدك الإلكتروني أو اضغط «تخطي»:"
	textAskGrade   = "🏫 اختر الصف الدراسي:"
	textAskTrack   = "🧭 اختر الشعبة:"
	textCancelled  = "🚫 تم إلغاء التسجيل. اضغط /start للبدء من جديد."
	textRegistered = "✅ تم التسجيل بنجاح! اختر من القائمة:"
	textTryAgain   = "حدث خطأ، حاول مرة أخرى"
)

func GetState(chatID int64) *RegisterState {
	return states.Get(chatID)
}

func Reset(chatID int64) {
	states.Delete(chatID)
}

// StartRegistration: начало сценария регистрации ученика.
func StartRegistration(ctx context.Context, chatID int64, bot tg.Sender) {
	select {
	case <-ctx.Done():
		return
	default:
	}
	id := chatID
	states.Set(chatID, &RegisterState{Step: StateName, Data: learning.RegisterInput{TelegramID: &id}})
	tg.Text(bot, chatID, textAskName)
}

// HandleText: текстовые шаги: имя, телефон, почта.
func HandleText(ctx context.Context, chatID int64, text string, bot tg.Sender, svc Registrar) {
	st := states.Get(chatID)
	if st == nil {
		return
	}
	if fsmutil.IsCancelText(text) {
		states.Delete(chatID)
		tg.Text(bot, chatID, textCancelled)
		return
	}
	text = strings.TrimSpace(text)

	switch st.Step {
	case StateName:
		if err := validation.Var("name", text, "required,notblank,min=3,max=100"); err != nil {
			tg.Text(bot, chatID, "⚠️ "+err.Error())
			return
		}
		st.Data.Name = text
		st.Step = StatePhone
		tg.Text(bot, chatID, textAskPhone)
	case StatePhone:
		if err := validation.Var("phone", text, "required,phone_eg"); err != nil {
			tg.Text(bot, chatID, "⚠️ "+err.Error())
			return
		}
		st.Data.Phone = validation.NormalizePhone(text)
		st.Step = StateEmail
		fsmutil.SendRows(bot, chatID, textAskEmail, [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏭ تخطي", cbSkipEmail)),
			fsmutil.BackCancelRow(cbBack, cbCancel),
		})
	case StateEmail:
		if err := validation.Var("email", text, "required,email"); err != nil {
			tg.Text(bot, chatID, "⚠️ "+err.Error())
			return
		}
		st.Data.Email = text
		askGrade(ctx, chatID, 0, bot, svc)
	default:
		tg.Text(bot, chatID, "👆 اختر من الأزرار في الرسالة السابقة.")
	}
}

func askGrade(ctx context.Context, chatID int64, messageID int, bot tg.Sender, svc Registrar) {
	st := states.Get(chatID)
	if st == nil {
		return
	}
	grades, err := svc.Grades(ctx)
	if err != nil {
		metrics.HandlerErrors.Inc()
		tg.Text(bot, chatID, textTryAgain)
		return
	}
	st.Step = StateGrade
	rows := gradeRows(grades)
	if messageID != 0 {
		fsmutil.EditText(bot, chatID, messageID, textAskGrade, rows)
		return
	}
	fsmutil.SendRows(bot, chatID, textAskGrade, rows)
}

func gradeRows(grades []models.Grade) [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(grades)+1)
	for _, g := range grades {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("%s%d", cbGrade, g.ID)),
		))
	}
	return append(rows, fsmutil.BackCancelRow(cbBack, cbCancel))
}

func trackRows() [][]tgbotapi.InlineKeyboardButton {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.SelectableTracks)+1)
	for _, t := range models.SelectableTracks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.Title(), cbTrack+string(t)),
		))
	}
	return append(rows, fsmutil.BackCancelRow(cbBack, cbCancel))
}

// IsCallback: callback относится к регистрации.
func IsCallback(data string) bool {
	return strings.HasPrefix(data, "reg_")
}

func HandleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, bot tg.Sender, svc Registrar) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data
	tg.AnswerCallback(bot, cb, "")

	st := states.Get(chatID)
	if st == nil {
		fsmutil.DisableMarkup(bot, chatID, msgID)
		return
	}

	switch {
	case data == cbCancel:
		states.Delete(chatID)
		fsmutil.EditText(bot, chatID, msgID, textCancelled, nil)

	case data == cbBack:
		switch st.Step {
		case StateEmail:
			st.Step = StatePhone
			fsmutil.EditText(bot, chatID, msgID, textAskPhone, nil)
		case StateGrade:
			st.Step = StateEmail
			st.Data.Email = ""
			fsmutil.EditText(bot, chatID, msgID, textAskEmail, [][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("⏭ تخطي", cbSkipEmail)),
				fsmutil.BackCancelRow(cbBack, cbCancel),
			})
		case StateTrack:
			askGrade(ctx, chatID, msgID, bot, svc)
		}

	case data == cbSkipEmail && st.Step == StateEmail:
		st.Data.Email = ""
		askGrade(ctx, chatID, msgID, bot, svc)

	case strings.HasPrefix(data, cbGrade) && st.Step == StateGrade:
		id, ok := fsmutil.ParseID(data, cbGrade)
		if !ok {
			return
		}
		st.Data.GradeID = id
		st.Step = StateTrack
		fsmutil.EditText(bot, chatID, msgID, textAskTrack, trackRows())

	case strings.HasPrefix(data, cbTrack) && st.Step == StateTrack:
		st.Data.Track = strings.TrimPrefix(data, cbTrack)
		finish(ctx, chatID, msgID, st, bot, svc)
	}
}

func finish(ctx context.Context, chatID int64, msgID int, st *RegisterState, bot tg.Sender, svc Registrar) {
	user, err := svc.Register(ctx, st.Data)
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		// данные из шагов уже проверены; остаётся несуществующий класс
		fsmutil.EditText(bot, chatID, msgID, "⚠️ "+verr.Error(), nil)
		askGrade(ctx, chatID, 0, bot, svc)
		return
	case err != nil:
		metrics.HandlerErrors.Inc()
		states.Delete(chatID)
		fsmutil.EditText(bot, chatID, msgID, textTryAgain, nil)
		return
	}
	states.Delete(chatID)
	fsmutil.DisableMarkup(bot, chatID, msgID)
	msg := tgbotapi.NewMessage(chatID, textRegistered)
	msg.ReplyMarkup = menu.GetRoleMenu(user.Role)
	if _, err := tg.Send(bot, msg); err != nil {
		metrics.HandlerErrors.Inc()
	}
}
