package fsmutil

import (
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

// pending: простая защита от повторной обработки "тяжёлых" действий.
// Ключ: chatID; значение = произвольный ключ контекста (например "report" или "codes").
var pending = struct {
	mu sync.Mutex
	m  map[int64]string
}{
	m: make(map[int64]string),
}

// SetPending помечает чат как "в обработке" для ключа key.
// Возвращает false, если уже что-то обрабатывается.
func SetPending(chatID int64, key string) bool {
	pending.mu.Lock()
	defer pending.mu.Unlock()

	if _, ok := pending.m[chatID]; ok {
		return false
	}
	pending.m[chatID] = key
	return true
}

// ClearPending снимает флаг "в обработке", если ключ совпал.
func ClearPending(chatID int64, key string) {
	pending.mu.Lock()
	defer pending.mu.Unlock()

	if cur, ok := pending.m[chatID]; ok && cur == key {
		delete(pending.m, chatID)
	}
}

// Store: состояния одного сценария по chatID. Обработчики идут в горутинах,
// поэтому доступ под мьютексом.
type Store[T any] struct {
	mu sync.Mutex
	m  map[int64]*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{m: make(map[int64]*T)}
}

func (s *Store[T]) Get(chatID int64) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[chatID]
}

func (s *Store[T]) Set(chatID int64, v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = v
}

// Delete возвращает удалённое состояние (nil, если его не было).
func (s *Store[T]) Delete(chatID int64) *T {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.m[chatID]
	delete(s.m, chatID)
	return v
}

// DisableMarkup "гасит" inline‑клавиатуру у сообщения (one‑shot клавиатура).
func DisableMarkup(bot tg.Sender, chatID int64, messageID int) {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: make([][]tgbotapi.InlineKeyboardButton, 0)}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)
	if _, err := tg.Send(bot, edit); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// EditText заменяет текст и клавиатуру сообщения с кнопками.
func EditText(bot tg.Sender, chatID int64, messageID int, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	cfg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if len(rows) > 0 {
		mk := tgbotapi.NewInlineKeyboardMarkup(rows...)
		cfg.ReplyMarkup = &mk
	}
	if _, err := tg.Send(bot, cfg); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// SendRows: новое сообщение с inline‑кнопками.
func SendRows(bot tg.Sender, chatID int64, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if _, err := tg.Send(bot, msg); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// BackCancelRow: готовая строка с кнопками "رجوع" и "إلغاء".
func BackCancelRow(backData, cancelData string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ رجوع", backData),
		tgbotapi.NewInlineKeyboardButtonData("❌ إلغاء", cancelData),
	)
}

func CancelRow(cancelData string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ إلغاء", cancelData))
}

// IsCancelText: проверка "текстовой" отмены на шагах, где пользователь вводит текст.
// Поддерживаем: "إلغاء", "الغاء", "/cancel", "cancel" (регистр/пробелы игнорим).
func IsCancelText(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "إلغاء", "الغاء", "❌ إلغاء", "/cancel", "cancel":
		return true
	}
	return false
}

// ParseID: числовой хвост callback-данных после префикса.
func ParseID(data, prefix string) (int64, bool) {
	if !strings.HasPrefix(data, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
