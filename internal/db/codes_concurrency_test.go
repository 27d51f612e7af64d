//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/testutil/testdb"
)

func TestRedeemCode_Parallel(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	now := time.Now().UTC()
	inserted, err := db.InsertCodes(ctx, h.DB, []models.Code{{
		Code: "PARALLEL1", Plan: "monthly", DurationDays: 30,
		ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(24 * time.Hour),
	}})
	require.NoError(t, err)
	require.Equal(t, []string{"PARALLEL1"}, inserted)

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		used    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(tg int64) {
			defer wg.Done()
			_, _, err := db.RedeemCode(ctx, h.DB, db.RedeemInput{Code: "PARALLEL1", TelegramID: &tg, Name: "طالب"}, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, db.ErrCodeUsed):
				used++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(5000 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, used)

	var subs int
	require.NoError(t, h.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions`).Scan(&subs))
	assert.Equal(t, 1, subs)
}

func TestRedeemCode_Diagnostics(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()

	now := time.Now().UTC()
	_, err = db.InsertCodes(ctx, h.DB, []models.Code{
		{Code: "OLD", Plan: "monthly", DurationDays: 30, ValidFrom: now.Add(-48 * time.Hour), ValidUntil: now.Add(-24 * time.Hour)},
		{Code: "OK", Plan: "annual", DurationDays: 365, ValidFrom: now.Add(-time.Hour), ValidUntil: now.Add(time.Hour)},
	})
	require.NoError(t, err)

	tg := int64(77)
	_, _, err = db.RedeemCode(ctx, h.DB, db.RedeemInput{Code: "NOPE", TelegramID: &tg}, now)
	assert.ErrorIs(t, err, db.ErrCodeNotFound)

	_, _, err = db.RedeemCode(ctx, h.DB, db.RedeemInput{Code: "OLD", TelegramID: &tg}, now)
	assert.ErrorIs(t, err, db.ErrCodeExpired)

	sub, user, err := db.RedeemCode(ctx, h.DB, db.RedeemInput{Code: "OK", TelegramID: &tg, Name: "منى", Track: models.TrackMath}, now)
	require.NoError(t, err)
	assert.Equal(t, "منى", user.Name)
	assert.Equal(t, models.TrackMath, user.Track)
	assert.True(t, sub.IsComprehensive())
	assert.True(t, sub.ActiveAt(now.AddDate(0, 0, 364)))

	// повторно тем же пользователем: уже использован, вторая подписка не появилась
	_, _, err = db.RedeemCode(ctx, h.DB, db.RedeemInput{Code: "OK", TelegramID: &tg}, now)
	assert.ErrorIs(t, err, db.ErrCodeUsed)
	subs, err := db.ListSubscriptions(ctx, h.DB, user.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
