package jobs

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

// ReminderSource: откуда брать подписки для напоминаний (learning.Service).
type ReminderSource interface {
	ExpiryReminders(ctx context.Context, within time.Duration) ([]db.ExpiringSubscription, error)
	MarkReminderSent(ctx context.Context, subscriptionID int64) (bool, error)
}

// ExpiryReminders: напоминание за days дней до конца подписки, по одному на подписку.
func ExpiryReminders(src ReminderSource, bot tg.Sender, days int, loc *time.Location) Job {
	within := time.Duration(days) * 24 * time.Hour
	return func(ctx context.Context) error {
		due, err := src.ExpiryReminders(ctx, within)
		if err != nil {
			return fmt.Errorf("expiry reminders: %w", err)
		}
		var firstErr error
		for _, e := range due {
			// сначала помечаем: при гонке двух инстансов сообщение уйдёт один раз
			claimed, err := src.MarkReminderSent(ctx, e.Subscription.ID)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !claimed {
				continue
			}
			if _, err := tg.Send(bot, tgbotapi.NewMessage(e.TelegramID, ReminderText(e, loc))); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("send reminder %d: %w", e.Subscription.ID, err)
			}
		}
		return firstErr
	}
}

func ReminderText(e db.ExpiringSubscription, loc *time.Location) string {
	plan := e.Subscription.Plan
	if p, ok := models.PlanByCode(plan); ok {
		plan = p.Title
	}
	return fmt.Sprintf("⏰ مرحبًا %s، اشتراكك (%s) ينتهي يوم %s. جدّد اشتراكك حتى لا تفقد الوصول إلى الدروس.",
		e.UserName, plan, e.Subscription.EndDate.In(loc).Format("2006-01-02"))
}
