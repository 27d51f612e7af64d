package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
)

type fakeSource struct {
	due     []db.ExpiringSubscription
	claimed map[int64]bool
	within  time.Duration
}

func (f *fakeSource) ExpiryReminders(_ context.Context, within time.Duration) ([]db.ExpiringSubscription, error) {
	f.within = within
	return f.due, nil
}

func (f *fakeSource) MarkReminderSent(_ context.Context, id int64) (bool, error) {
	if f.claimed[id] {
		return false, nil
	}
	f.claimed[id] = true
	return true, nil
}

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, m)
	}
	return tgbotapi.Message{}, b.err
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestExpiryReminders_OncePerSubscription(t *testing.T) {
	end := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{
		claimed: map[int64]bool{2: true},
		due: []db.ExpiringSubscription{
			{Subscription: models.Subscription{ID: 1, Plan: "monthly", EndDate: end}, TelegramID: 100, UserName: "منى"},
			{Subscription: models.Subscription{ID: 2, Plan: "annual", EndDate: end}, TelegramID: 200, UserName: "علي"},
		},
	}
	bot := &fakeBot{}
	job := ExpiryReminders(src, bot, 3, time.UTC)

	require.NoError(t, job(context.Background()))
	assert.Equal(t, 72*time.Hour, src.within)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(100), bot.sent[0].ChatID)
	assert.Contains(t, bot.sent[0].Text, "شهري")
	assert.Contains(t, bot.sent[0].Text, "2026-05-10")

	// второй прогон ничего не шлёт
	require.NoError(t, job(context.Background()))
	assert.Len(t, bot.sent, 1)
}

func TestExpiryReminders_SendErrorReported(t *testing.T) {
	src := &fakeSource{
		claimed: map[int64]bool{},
		due:     []db.ExpiringSubscription{{Subscription: models.Subscription{ID: 1}, TelegramID: 1}},
	}
	bot := &fakeBot{err: errors.New("Bad Request: chat not found")}
	assert.Error(t, ExpiryReminders(src, bot, 1, time.UTC)(context.Background()))
}

func TestRunner_CronRejectsBadSpec(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx, nil, time.UTC)
	assert.Error(t, r.Cron("not a spec", "bad", func(context.Context) error { return nil }))
	assert.NoError(t, r.Cron("0 9 * * *", "daily", func(context.Context) error { return nil }))
}

func jobRuns(t *testing.T, job, result string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, metrics.JobRuns.WithLabelValues(job, result).Write(m))
	return m.GetCounter().GetValue()
}

func TestRunner_RunRecoversPanic(t *testing.T) {
	r := New(context.Background(), nil, nil)
	assert.NotPanics(t, func() {
		r.run("boom", func(context.Context) error { panic("x") })
	})
	assert.Equal(t, float64(1), jobRuns(t, "boom", "panic"))
	assert.Zero(t, jobRuns(t, "boom", "ok"))
}

func TestRunner_RunCountsByResult(t *testing.T) {
	r := New(context.Background(), nil, nil)
	r.run("flaky", func(context.Context) error { return errors.New("db down") })
	r.run("flaky", func(context.Context) error { return nil })
	assert.Equal(t, float64(1), jobRuns(t, "flaky", "error"))
	assert.Equal(t, float64(1), jobRuns(t, "flaky", "ok"))
}
