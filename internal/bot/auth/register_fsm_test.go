package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg/tgtest"
)

type fakeRegistrar struct {
	got *learning.RegisterInput
}

func (f *fakeRegistrar) Grades(context.Context) ([]models.Grade, error) {
	return []models.Grade{{ID: 3, Name: "الصف الثالث الثانوي"}}, nil
}

func (f *fakeRegistrar) Register(_ context.Context, in learning.RegisterInput) (*models.User, error) {
	f.got = &in
	return &models.User{ID: 1, Name: in.Name, Role: models.Student, IsActive: true}, nil
}

func TestRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	bot := &tgtest.Recorder{}
	svc := &fakeRegistrar{}
	const chat = int64(100)

	StartRegistration(ctx, chat, bot)
	assert.Equal(t, textAskName, bot.Last())

	HandleText(ctx, chat, "أ", bot, svc)
	assert.Equal(t, StateName, GetState(chat).Step)

	HandleText(ctx, chat, "أحمد محمد علي", bot, svc)
	assert.Equal(t, StatePhone, GetState(chat).Step)

	HandleText(ctx, chat, "12345", bot, svc)
	assert.Equal(t, StatePhone, GetState(chat).Step)

	HandleText(ctx, chat, "٠١٠١٢٣٤٥٦٧٨", bot, svc)
	require.Equal(t, StateEmail, GetState(chat).Step)
	assert.Contains(t, bot.Buttons(), cbSkipEmail)

	HandleCallback(ctx, tgtest.Callback(chat, 5, cbSkipEmail), bot, svc)
	require.Equal(t, StateGrade, GetState(chat).Step)
	assert.Contains(t, bot.Buttons(), "reg_grade_3")

	HandleCallback(ctx, tgtest.Callback(chat, 5, "reg_grade_3"), bot, svc)
	require.Equal(t, StateTrack, GetState(chat).Step)
	assert.Contains(t, bot.Buttons(), "reg_track_Literary")

	HandleCallback(ctx, tgtest.Callback(chat, 5, "reg_track_Literary"), bot, svc)
	assert.Nil(t, GetState(chat))
	require.NotNil(t, svc.got)
	assert.Equal(t, "01012345678", svc.got.Phone)
	assert.Equal(t, int64(3), svc.got.GradeID)
	assert.Equal(t, "Literary", svc.got.Track)
	require.NotNil(t, svc.got.TelegramID)
	assert.Equal(t, chat, *svc.got.TelegramID)
	assert.Equal(t, textRegistered, bot.Last())
}

func TestRegistrationCancel(t *testing.T) {
	ctx := context.Background()
	bot := &tgtest.Recorder{}
	StartRegistration(ctx, 200, bot)
	HandleText(ctx, 200, "إلغاء", bot, &fakeRegistrar{})
	assert.Nil(t, GetState(200))
	assert.Equal(t, textCancelled, bot.Last())
}
