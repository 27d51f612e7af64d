// Package tgtest: запись исходящих сообщений бота для тестов.
package tgtest

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Recorder struct {
	mu   sync.Mutex
	Sent []tgbotapi.Chattable
	Err  error
}

func (r *Recorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, c)
	return tgbotapi.Message{MessageID: len(r.Sent)}, r.Err
}

func (r *Recorder) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, c)
	return &tgbotapi.APIResponse{Ok: r.Err == nil}, r.Err
}

// Texts: тексты новых и отредактированных сообщений по порядку.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.Sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

// Last: текст последнего сообщения или "".
func (r *Recorder) Last() string {
	t := r.Texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

// Buttons: callback-данные inline-кнопок последнего сообщения с клавиатурой.
func (r *Recorder) Buttons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Sent) - 1; i >= 0; i-- {
		var mk *tgbotapi.InlineKeyboardMarkup
		switch m := r.Sent[i].(type) {
		case tgbotapi.MessageConfig:
			if k, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				mk = &k
			}
		case tgbotapi.EditMessageTextConfig:
			mk = m.ReplyMarkup
		}
		if mk == nil || len(mk.InlineKeyboard) == 0 {
			continue
		}
		var out []string
		for _, row := range mk.InlineKeyboard {
			for _, b := range row {
				if b.CallbackData != nil {
					out = append(out, *b.CallbackData)
				}
			}
		}
		return out
	}
	return nil
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = nil
}

// Callback: callback-запрос от chatID к сообщению messageID.
func Callback(chatID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}
}
