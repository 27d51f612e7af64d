package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/bot/handlers"
	"github.com/Spok95/learning-platform-bot/internal/ctxutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/logging"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

// TelegramNotifier: уведомления о заявках на подписку: админам о новой, ученику о решении.
type TelegramNotifier struct {
	bot      tg.Sender
	db       *sql.DB
	adminIDs []int64
	log      *zap.Logger
	loc      *time.Location
}

func NewTelegramNotifier(bot tg.Sender, database *sql.DB, adminIDs []int64, log *zap.Logger, loc *time.Location) *TelegramNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TelegramNotifier{bot: bot, db: database, adminIDs: adminIDs, log: log, loc: loc}
}

func (n *TelegramNotifier) RequestCreated(ctx context.Context, req models.SubscriptionRequest, user models.User) {
	text := "🆕 طلب اشتراك جديد\n\n" + handlers.RequestText(req, &user)
	for _, chatID := range n.staffChats(ctx) {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(handlers.RequestRows(req.ID)...)
		if _, err := tg.Send(n.bot, msg); err != nil {
			metrics.HandlerErrors.Inc()
		}
	}
}

func (n *TelegramNotifier) RequestReviewed(ctx context.Context, req models.SubscriptionRequest, sub *models.Subscription) {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	user, err := db.GetUserByID(dbCtx, n.db, req.UserID)
	if err != nil {
		logging.FromContext(ctx, n.log).Warn("notify reviewed: user", zap.Int64("request_id", req.ID), zap.Error(err))
		return
	}
	if user.TelegramID == nil {
		// пользователь веб-клиента, в Telegram писать некуда
		return
	}
	if _, err := tg.Send(n.bot, tgbotapi.NewMessage(*user.TelegramID, ReviewText(req, sub, n.loc))); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// staffChats: ADMIN_IDS плюс админы/супервайзеры из базы, без повторов.
func (n *TelegramNotifier) staffChats(ctx context.Context) []int64 {
	dbCtx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	ids, err := db.ListStaffChatIDs(dbCtx, n.db)
	if err != nil {
		logging.FromContext(ctx, n.log).Warn("notify created: staff", zap.Error(err))
	}
	seen := make(map[int64]bool, len(ids)+len(n.adminIDs))
	out := make([]int64, 0, len(ids)+len(n.adminIDs))
	for _, id := range append(append([]int64{}, n.adminIDs...), ids...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func ReviewText(req models.SubscriptionRequest, sub *models.Subscription, loc *time.Location) string {
	if req.Status == models.RequestApproved && sub != nil {
		plan := sub.Plan
		if p, ok := models.PlanByCode(plan); ok {
			plan = p.Title
		}
		return fmt.Sprintf("✅ تم تفعيل اشتراكك (%s) حتى %s. بالتوفيق!", plan, sub.EndDate.In(loc).Format("2006-01-02"))
	}
	return "❌ تم رفض طلب الاشتراك. تواصل مع الإدارة للتفاصيل."
}
