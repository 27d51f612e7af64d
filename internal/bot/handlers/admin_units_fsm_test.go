package handlers

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg/tgtest"
)

type fakeUnits struct {
	Service
	created *learning.UnitInput
	updated *learning.UnitInput
	deleted int64
}

func (f *fakeUnits) Grades(context.Context) ([]models.Grade, error) {
	return []models.Grade{{
		ID: 1, Name: "الثالث الثانوي",
		Semesters: []models.Semester{{
			ID: 7, GradeID: 1, Name: "الترم الأول",
			Units: []models.Unit{{ID: 5, SemesterID: 7, Title: "التفاضل", Track: models.TrackMath}},
		}},
	}}, nil
}

func (f *fakeUnits) CreateUnit(_ context.Context, _ models.User, in learning.UnitInput) (*models.Unit, error) {
	f.created = &in
	return &models.Unit{ID: 9, SemesterID: in.SemesterID, Title: in.Title, Track: models.Track(in.Track), IsFree: in.IsFree}, nil
}

func (f *fakeUnits) UpdateUnit(_ context.Context, _ models.User, id int64, in learning.UnitInput) (*models.Unit, error) {
	f.updated = &in
	return &models.Unit{ID: id, SemesterID: in.SemesterID, Title: in.Title}, nil
}

func (f *fakeUnits) DeleteUnit(_ context.Context, _ models.User, id int64) error {
	f.deleted = id
	return nil
}

var testAdmin = models.User{ID: 1, Name: "المدير", Role: models.Admin, IsActive: true}

func textMsg(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
}

func TestApplyUnitText(t *testing.T) {
	d, ok, err := applyUnitText(addUnit{Step: addTitle, SemesterID: 7}, "  الجبر ")
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, addUnit{Step: addTrack, SemesterID: 7, Title: "الجبر"}, d)

	_, ok, err = applyUnitText(addUnit{Step: addTitle}, "   ")
	assert.True(t, ok)
	assert.ErrorIs(t, err, errEmptyTitle)

	_, ok, _ = applyUnitText(addUnit{Step: addTrack}, "نص")
	assert.False(t, ok)

	_, ok, _ = applyUnitText(editUnit{}, "نص")
	assert.False(t, ok, "юнит ещё не выбран")

	orig := &models.Unit{ID: 5, Title: "قديم", Track: models.TrackMath}
	d, ok, err = applyUnitText(editUnit{Unit: orig}, "جديد")
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "جديد", d.(editUnit).Unit.Title)
	assert.Equal(t, models.TrackMath, d.(editUnit).Unit.Track)
	assert.Equal(t, "قديم", orig.Title)

	_, ok, _ = applyUnitText(deleteUnit{Unit: orig}, "x")
	assert.False(t, ok)
	_, ok, _ = applyUnitText(unitDialogClosed{}, "x")
	assert.False(t, ok)
}

func TestUnitPrompt(t *testing.T) {
	for _, d := range []unitDialog{
		unitDialogClosed{},
		addUnit{Step: addPickSemester}, addUnit{Step: addTitle}, addUnit{Step: addTrack}, addUnit{Step: addFree},
		editUnit{}, editUnit{Unit: &models.Unit{Title: "u"}},
		deleteUnit{}, deleteUnit{Unit: &models.Unit{Title: "u"}},
	} {
		assert.NotEmpty(t, unitPrompt(d), "%#v", d)
	}
}

func TestUnitDialog_Add(t *testing.T) {
	ctx := context.Background()
	bot := &tgtest.Recorder{}
	svc := &fakeUnits{}
	h := New(bot, svc, nil, nil)
	const chat = int64(500)
	defer unitDialogs.Delete(chat)

	h.StartUnitDialog(ctx, testAdmin, chat)
	require.Contains(t, bot.Buttons(), cbUnitAdd)

	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, cbUnitAdd))
	require.Contains(t, bot.Buttons(), "unit_sem_7")

	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, "unit_sem_7"))
	assert.Equal(t, unitPrompt(addUnit{Step: addTitle}), bot.Last())

	require.True(t, h.HandleText(ctx, &testAdmin, textMsg(chat, "الجبر")))
	require.Contains(t, bot.Buttons(), "unit_track_Math")

	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 2, "unit_track_Math"))
	require.Contains(t, bot.Buttons(), "unit_free_0")

	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 2, "unit_free_0"))
	require.NotNil(t, svc.created)
	assert.Equal(t, learning.UnitInput{SemesterID: 7, Title: "الجبر", Track: "Math"}, *svc.created)
	assert.Nil(t, unitDialogs.Get(chat))
	assert.Contains(t, bot.Last(), "الجبر")
}

func TestUnitDialog_EditKeepsFields(t *testing.T) {
	ctx := context.Background()
	bot := &tgtest.Recorder{}
	svc := &fakeUnits{}
	h := New(bot, svc, nil, nil)
	const chat = int64(501)
	defer unitDialogs.Delete(chat)

	h.StartUnitDialog(ctx, testAdmin, chat)
	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, cbUnitEdit))
	require.Contains(t, bot.Buttons(), "unit_pick_5")
	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, "unit_pick_5"))

	h.HandleText(ctx, &testAdmin, textMsg(chat, "التفاضل والتكامل"))
	require.NotNil(t, svc.updated)
	assert.Equal(t, learning.UnitInput{SemesterID: 7, Title: "التفاضل والتكامل", Track: "Math"}, *svc.updated)
	assert.Nil(t, unitDialogs.Get(chat))
}

func TestUnitDialog_DeleteNeedsConfirm(t *testing.T) {
	ctx := context.Background()
	bot := &tgtest.Recorder{}
	svc := &fakeUnits{}
	h := New(bot, svc, nil, nil)
	const chat = int64(502)
	defer unitDialogs.Delete(chat)

	h.StartUnitDialog(ctx, testAdmin, chat)
	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, cbUnitDelete))
	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, "unit_pick_5"))
	assert.Zero(t, svc.deleted)
	require.Contains(t, bot.Buttons(), cbUnitConfirm)

	h.HandleUnitCallback(ctx, testAdmin, tgtest.Callback(chat, 1, cbUnitConfirm))
	assert.Equal(t, int64(5), svc.deleted)
}

func TestUnitDialog_StudentForbidden(t *testing.T) {
	bot := &tgtest.Recorder{}
	h := New(bot, &fakeUnits{}, nil, nil)
	student := models.User{ID: 2, Role: models.Student, IsActive: true}

	h.StartUnitDialog(context.Background(), student, 503)
	assert.Equal(t, textForbidden, bot.Last())
	assert.Nil(t, unitDialogs.Get(503))
}
