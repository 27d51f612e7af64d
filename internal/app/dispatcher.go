package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/bot/auth"
	"github.com/Spok95/learning-platform-bot/internal/bot/handlers"
	"github.com/Spok95/learning-platform-bot/internal/bot/menu"
	"github.com/Spok95/learning-platform-bot/internal/ctxutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/logging"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/observability"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

// Service: всё, что боту нужно от learning.Service.
type Service interface {
	handlers.Service
	auth.Registrar
	UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	EnsureAdmin(ctx context.Context, adminIDs []int64, chatID int64, name string) error
}

const (
	textBlocked      = "🚫 تم إيقاف حسابك. تواصل مع الإدارة."
	textUnregistered = "⚠️ أنت غير مسجل. اضغط /start للتسجيل أو «🎟 تفعيل كود» إذا كان لديك كود."
	textUnknown      = "⚠️ أمر غير معروف. استخدم القائمة أو /start"
)

type Dispatcher struct {
	bot      tg.Sender
	svc      Service
	h        *handlers.Handlers
	log      *zap.Logger
	limiter  *ChatLimiter
	adminIDs []int64
}

func NewDispatcher(bot tg.Sender, svc Service, log *zap.Logger, loc *time.Location, adminIDs []int64) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		bot:      bot,
		svc:      svc,
		h:        handlers.New(bot, svc, log, loc),
		log:      log,
		limiter:  NewChatLimiter(),
		adminIDs: adminIDs,
	}
}

// Run читает апдейты до отмены ctx, затем ждёт уже запущенные обработчики.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			d.limiter.Wait()
			return
		case upd, ok := <-updates:
			if !ok {
				d.limiter.Wait()
				return
			}
			d.Dispatch(ctx, upd)
		}
	}
}

// Dispatch: асинхронная обработка с очередью на чат.
func (d *Dispatcher) Dispatch(ctx context.Context, upd tgbotapi.Update) {
	chatID := updateChatID(upd)
	if chatID == 0 {
		return
	}
	d.limiter.Go(chatID, func() {
		defer func() {
			if rec := recover(); rec != nil {
				metrics.HandlerErrors.Inc()
				observability.CaptureErr(fmt.Errorf("panic in update %d: %v", upd.UpdateID, rec))
				d.log.Error("update panic", zap.Int("update_id", upd.UpdateID), zap.Any("panic", rec))
			}
		}()
		d.HandleUpdate(ctx, upd)
	})
}

func updateChatID(upd tgbotapi.Update) int64 {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// HandleUpdate: синхронная обработка одного апдейта.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	metrics.BotUpdates.Inc()
	switch {
	case upd.CallbackQuery != nil:
		d.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		d.handleMessage(ctx, upd.Message)
	}
}

// lookup: nil без ошибки, если пользователь ещё не зарегистрирован.
func (d *Dispatcher) lookup(ctx context.Context, chatID int64) (*models.User, error) {
	u, err := d.svc.UserByTelegramID(ctx, chatID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (d *Dispatcher) systemErr(ctx context.Context, chatID int64, op string, err error) {
	metrics.HandlerErrors.Inc()
	logging.FromContext(ctx, d.log).Error(op, zap.Error(err))
	observability.CaptureErrCtx(ctx, err)
	tg.Text(d.bot, chatID, handlers.TextTryAgain)
}

func (d *Dispatcher) blocked(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, textBlocked)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := tg.Send(d.bot, msg); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	ctx = ctxutil.WithChatID(ctx, chatID)

	if err := d.svc.EnsureAdmin(ctx, d.adminIDs, chatID, senderName(msg.From)); err != nil {
		logging.FromContext(ctx, d.log).Warn("ensure admin", zap.Error(err))
	}
	user, err := d.lookup(ctx, chatID)
	if err != nil {
		d.systemErr(ctx, chatID, "lookup user", err)
		return
	}
	if user != nil {
		ctx = ctxutil.WithUserID(ctx, user.ID)
	}

	if text == "/start" {
		d.h.StopAll(chatID)
		auth.Reset(chatID)
		switch {
		case user == nil:
			auth.StartRegistration(ctx, chatID, d.bot)
		case !user.IsActive:
			d.blocked(chatID)
		default:
			d.sendMenu(*user, chatID, fmt.Sprintf("👋 أهلًا %s! اختر من القائمة:", user.Name))
		}
		return
	}

	if user == nil {
		switch {
		case auth.GetState(chatID) != nil:
			auth.HandleText(ctx, chatID, text, d.bot, d.svc)
		case text == menu.BtnRedeem || text == "/redeem":
			d.h.StartRedeem(chatID)
		case d.h.HandleText(ctx, nil, msg):
		default:
			tg.Text(d.bot, chatID, textUnregistered)
		}
		return
	}
	if !user.IsActive {
		d.blocked(chatID)
		return
	}

	// кнопки меню важнее незавершённых диалогов
	if d.handleMenu(ctx, *user, chatID, text) {
		return
	}
	if d.h.HandleText(ctx, user, msg) {
		return
	}
	tg.Text(d.bot, chatID, textUnknown)
}

func (d *Dispatcher) sendMenu(user models.User, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = menu.GetRoleMenu(user.Role)
	if _, err := tg.Send(d.bot, msg); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

func (d *Dispatcher) handleMenu(ctx context.Context, user models.User, chatID int64, text string) bool {
	var run func()
	switch text {
	case menu.BtnCourses, "/courses":
		run = func() { d.h.ShowCatalog(ctx, user, chatID) }
	case menu.BtnMyProgress:
		run = func() { d.h.ShowProgress(ctx, user, chatID) }
	case menu.BtnAttempts:
		run = func() { d.h.ShowAttempts(ctx, user, chatID) }
	case menu.BtnSubscriptions:
		run = func() { d.h.ShowSubscriptions(ctx, user, chatID) }
	case menu.BtnSubscribe:
		run = func() { d.h.StartSubscribe(chatID) }
	case menu.BtnRedeem, "/redeem":
		run = func() { d.h.StartRedeem(chatID) }
	case menu.BtnVideoCourses:
		run = func() { d.h.ShowCourses(ctx, chatID) }
	case menu.BtnRequests, "/requests":
		run = func() { d.h.ShowPendingRequests(ctx, user, chatID) }
	case menu.BtnCodes:
		run = func() { d.h.StartCodes(user, chatID) }
	case menu.BtnReports:
		run = func() { d.h.StartReport(user, chatID) }
	case menu.BtnUnits:
		run = func() { d.h.StartUnitDialog(ctx, user, chatID) }
	case "/menu":
		run = func() { d.sendMenu(user, chatID, "القائمة الرئيسية:") }
	default:
		return false
	}
	d.h.StopAll(chatID)
	run()
	return true
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		tg.AnswerCallback(d.bot, cb, "")
		return
	}
	chatID := cb.Message.Chat.ID
	ctx = ctxutil.WithChatID(ctx, chatID)
	data := cb.Data

	if auth.IsCallback(data) {
		auth.HandleCallback(ctx, cb, d.bot, d.svc)
		return
	}

	user, err := d.lookup(ctx, chatID)
	if err != nil {
		tg.AnswerCallback(d.bot, cb, "")
		d.systemErr(ctx, chatID, "lookup user", err)
		return
	}
	if user == nil {
		if handlers.IsRedeemCallback(data) {
			d.h.HandleRedeemCallback(cb)
			return
		}
		tg.AnswerCallback(d.bot, cb, "سجّل أولًا عبر /start")
		return
	}
	ctx = ctxutil.WithUserID(ctx, user.ID)
	if !user.IsActive {
		tg.AnswerCallback(d.bot, cb, "الحساب موقوف")
		d.blocked(chatID)
		return
	}
	logging.FromContext(ctx, d.log).Debug("callback", zap.String("data", data), zap.Int("msg_id", cb.Message.MessageID))

	u := *user
	switch {
	case handlers.IsCatalogCallback(data):
		d.h.HandleCatalogCallback(ctx, u, cb)
	case handlers.IsQuizCallback(data):
		d.h.HandleQuizCallback(ctx, u, cb)
	case handlers.IsSubscribeCallback(data):
		d.h.HandleSubscribeCallback(ctx, u, cb)
	case handlers.IsRedeemCallback(data):
		d.h.HandleRedeemCallback(cb)
	case handlers.IsRequestCallback(data):
		d.h.HandleRequestCallback(ctx, u, cb)
	case handlers.IsCodesCallback(data):
		d.h.HandleCodesCallback(cb)
	case handlers.IsReportCallback(data):
		d.h.HandleReportCallback(ctx, u, cb)
	case handlers.IsUnitCallback(data):
		d.h.HandleUnitCallback(ctx, u, cb)
	case handlers.IsCourseCallback(data):
		d.h.HandleCourseCallback(ctx, u, cb)
	default:
		tg.AnswerCallback(d.bot, cb, "")
		tg.Text(d.bot, chatID, textUnknown)
	}
}

func senderName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
