package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/observability"
)

// Sender: то, что нужно от *tgbotapi.BotAPI; в тестах подменяется.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Системными считаем 5xx, 429 и таймауты. 400-ки и валидации Telegram в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, marker := range []string{"Bad Request", "message is not modified", "chat not found", "can't parse entities", "bot was blocked"} {
		if strings.Contains(s, marker) {
			return false
		}
	}
	for _, marker := range []string{"429", "500", "502", "503", "504", "timeout", "Too Many Requests"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func Send(bot Sender, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return m, err
}

func Request(bot Sender, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return r, err
}

// Text: короткая форма для простого сообщения.
func Text(bot Sender, chatID int64, text string) {
	_, _ = Send(bot, tgbotapi.NewMessage(chatID, text))
}

// AnswerCallback: снимает «часики» с inline-кнопки.
func AnswerCallback(bot Sender, cb *tgbotapi.CallbackQuery, text string) {
	if cb == nil {
		return
	}
	_, _ = Request(bot, tgbotapi.NewCallback(cb.ID, text))
}
