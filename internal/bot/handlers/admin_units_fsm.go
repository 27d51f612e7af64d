package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/tg"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

// unitDialog: состояние диалога управления юнитами. Ровно один вариант за раз.
type unitDialog interface{ isUnitDialog() }

// unitDialogClosed: меню открыто, действие не выбрано.
type unitDialogClosed struct{}

type addUnitStep int

const (
	addPickSemester addUnitStep = iota
	addTitle
	addTrack
	addFree
)

type addUnit struct {
	Step       addUnitStep
	SemesterID int64
	Title      string
	Track      models.Track
}

// editUnit: Unit nil, пока юнит не выбран.
type editUnit struct {
	Unit *models.Unit
}

type deleteUnit struct {
	Unit *models.Unit
}

func (unitDialogClosed) isUnitDialog() {}
func (addUnit) isUnitDialog()          {}
func (editUnit) isUnitDialog()         {}
func (deleteUnit) isUnitDialog()       {}

type UnitDialogState struct {
	Dialog unitDialog
	MsgID  int
}

var unitDialogs = fsmutil.NewStore[UnitDialogState]()

const (
	cbUnitAdd     = "unit_add"
	cbUnitEdit    = "unit_edit"
	cbUnitDelete  = "unit_delete"
	cbUnitSem     = "unit_sem_"
	cbUnitPick    = "unit_pick_"
	cbUnitTrack   = "unit_track_"
	cbUnitFree    = "unit_free_"
	cbUnitConfirm = "unit_confirm"
	cbUnitBack    = "unit_back"
	cbUnitCancel  = "unit_cancel"
)

var errEmptyTitle = errors.New("empty title")

// unitPrompt: текст для текущего шага диалога.
func unitPrompt(d unitDialog) string {
	switch d := d.(type) {
	case unitDialogClosed:
		return "🗂 إدارة الوحدات: اختر الإجراء."
	case addUnit:
		switch d.Step {
		case addPickSemester:
			return "➕ اختر الترم للوحدة الجديدة:"
		case addTitle:
			return "✏️ اكتب اسم الوحدة:"
		case addTrack:
			return fmt.Sprintf("«%s»\nاختر الشعبة:", d.Title)
		case addFree:
			return fmt.Sprintf("«%s» (%s)\nهل الوحدة مجانية؟", d.Title, d.Track.Title())
		}
	case editUnit:
		if d.Unit == nil {
			return "✏️ اختر الوحدة لتعديل اسمها:"
		}
		return fmt.Sprintf("✏️ الاسم الحالي: «%s»\nاكتب الاسم الجديد:", d.Unit.Title)
	case deleteUnit:
		if d.Unit == nil {
			return "🗑 اختر الوحدة للحذف:"
		}
		return fmt.Sprintf("⚠️ سيتم حذف «%s» مع كل دروسها. تأكيد؟", d.Unit.Title)
	}
	return ""
}

// applyUnitText: шаг с вводом названия; остальные шаги текст не принимают.
func applyUnitText(d unitDialog, text string) (unitDialog, bool, error) {
	text = strings.TrimSpace(text)
	switch d := d.(type) {
	case addUnit:
		if d.Step != addTitle {
			return d, false, nil
		}
		if text == "" {
			return d, true, errEmptyTitle
		}
		d.Title = text
		d.Step = addTrack
		return d, true, nil
	case editUnit:
		if d.Unit == nil {
			return d, false, nil
		}
		if text == "" {
			return d, true, errEmptyTitle
		}
		u := *d.Unit
		u.Title = text
		return editUnit{Unit: &u}, true, nil
	case unitDialogClosed, deleteUnit:
		return d, false, nil
	}
	return d, false, nil
}

func unitInput(u models.Unit) learning.UnitInput {
	return learning.UnitInput{
		SemesterID: u.SemesterID,
		TeacherID:  u.TeacherID,
		Title:      u.Title,
		Track:      string(u.Track),
		IsFree:     u.IsFree,
	}
}

func (h *Handlers) StartUnitDialog(ctx context.Context, admin models.User, chatID int64) {
	if !admin.Role.IsStaff() {
		tg.Text(h.bot, chatID, textForbidden)
		return
	}
	h.StopAll(chatID)
	st := &UnitDialogState{Dialog: unitDialogClosed{}}
	unitDialogs.Set(chatID, st)
	h.renderUnitDialog(ctx, chatID, st)
}

func IsUnitCallback(data string) bool {
	return strings.HasPrefix(data, "unit_")
}

func (h *Handlers) renderUnitDialog(ctx context.Context, chatID int64, st *UnitDialogState) {
	rows, err := h.unitDialogRows(ctx, st.Dialog)
	if err != nil {
		h.fail(ctx, chatID, "unit dialog", err)
		return
	}
	text := unitPrompt(st.Dialog)
	if st.MsgID != 0 {
		fsmutil.EditText(h.bot, chatID, st.MsgID, text, rows)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if sent, err := tg.Send(h.bot, msg); err == nil {
		st.MsgID = sent.MessageID
	}
}

func (h *Handlers) unitDialogRows(ctx context.Context, d unitDialog) ([][]tgbotapi.InlineKeyboardButton, error) {
	back := fsmutil.BackCancelRow(cbUnitBack, cbUnitCancel)
	switch d := d.(type) {
	case unitDialogClosed:
		return [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ إضافة وحدة", cbUnitAdd)),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ تعديل", cbUnitEdit),
				tgbotapi.NewInlineKeyboardButtonData("🗑 حذف", cbUnitDelete),
			),
			fsmutil.CancelRow(cbUnitCancel),
		}, nil
	case addUnit:
		switch d.Step {
		case addPickSemester:
			grades, err := h.svc.Grades(ctx)
			if err != nil {
				return nil, err
			}
			var rows [][]tgbotapi.InlineKeyboardButton
			for _, g := range grades {
				for _, s := range g.Semesters {
					rows = append(rows, tgbotapi.NewInlineKeyboardRow(
						tgbotapi.NewInlineKeyboardButtonData(g.Name+" / "+s.Name, fmt.Sprintf("%s%d", cbUnitSem, s.ID)),
					))
				}
			}
			return append(rows, back), nil
		case addTitle:
			return [][]tgbotapi.InlineKeyboardButton{back}, nil
		case addTrack:
			rows := [][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(models.TrackAll.Title(), cbUnitTrack+string(models.TrackAll))),
			}
			for _, t := range models.SelectableTracks {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(t.Title(), cbUnitTrack+string(t)),
				))
			}
			return append(rows, back), nil
		case addFree:
			return [][]tgbotapi.InlineKeyboardButton{
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("🎁 مجانية", cbUnitFree+"1"),
					tgbotapi.NewInlineKeyboardButtonData("💳 مدفوعة", cbUnitFree+"0"),
				),
				back,
			}, nil
		}
	case editUnit:
		if d.Unit == nil {
			return h.unitPickRows(ctx, back)
		}
		return [][]tgbotapi.InlineKeyboardButton{back}, nil
	case deleteUnit:
		if d.Unit == nil {
			return h.unitPickRows(ctx, back)
		}
		return [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗑 نعم، احذف", cbUnitConfirm)),
			back,
		}, nil
	}
	return [][]tgbotapi.InlineKeyboardButton{back}, nil
}

func (h *Handlers) unitPickRows(ctx context.Context, back []tgbotapi.InlineKeyboardButton) ([][]tgbotapi.InlineKeyboardButton, error) {
	grades, err := h.svc.Grades(ctx)
	if err != nil {
		return nil, err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range grades {
		for _, s := range g.Semesters {
			for _, u := range s.Units {
				rows = append(rows, tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(u.Title+" · "+g.Name, fmt.Sprintf("%s%d", cbUnitPick, u.ID)),
				))
			}
		}
	}
	return append(rows, back), nil
}

func (h *Handlers) findUnit(ctx context.Context, id int64) (*models.Unit, error) {
	grades, err := h.svc.Grades(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range grades {
		for _, s := range g.Semesters {
			for _, u := range s.Units {
				if u.ID == id {
					return &u, nil
				}
			}
		}
	}
	return nil, db.ErrNotFound
}

func (h *Handlers) HandleUnitCallback(ctx context.Context, admin models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	data := cb.Data
	if !admin.Role.IsStaff() {
		tg.AnswerCallback(h.bot, cb, textForbidden)
		return
	}
	tg.AnswerCallback(h.bot, cb, "")
	st := unitDialogs.Get(chatID)
	if st == nil {
		fsmutil.DisableMarkup(h.bot, chatID, cb.Message.MessageID)
		return
	}
	st.MsgID = cb.Message.MessageID

	if data == cbUnitCancel {
		unitDialogs.Delete(chatID)
		fsmutil.EditText(h.bot, chatID, st.MsgID, textCancelled, nil)
		return
	}
	if data == cbUnitBack {
		st.Dialog = unitDialogClosed{}
		h.renderUnitDialog(ctx, chatID, st)
		return
	}

	switch d := st.Dialog.(type) {
	case unitDialogClosed:
		switch data {
		case cbUnitAdd:
			st.Dialog = addUnit{Step: addPickSemester}
		case cbUnitEdit:
			st.Dialog = editUnit{}
		case cbUnitDelete:
			st.Dialog = deleteUnit{}
		default:
			return
		}

	case addUnit:
		switch {
		case d.Step == addPickSemester && strings.HasPrefix(data, cbUnitSem):
			id, ok := fsmutil.ParseID(data, cbUnitSem)
			if !ok {
				return
			}
			d.SemesterID, d.Step = id, addTitle
		case d.Step == addTrack && strings.HasPrefix(data, cbUnitTrack):
			t, ok := models.ParseTrack(strings.TrimPrefix(data, cbUnitTrack))
			if !ok {
				return
			}
			d.Track, d.Step = t, addFree
		case d.Step == addFree && strings.HasPrefix(data, cbUnitFree):
			u := models.Unit{SemesterID: d.SemesterID, Title: d.Title, Track: d.Track, IsFree: data == cbUnitFree+"1"}
			created, err := h.svc.CreateUnit(ctx, admin, unitInput(u))
			if !h.unitResult(ctx, chatID, st, err) {
				return
			}
			fsmutil.EditText(h.bot, chatID, st.MsgID, fmt.Sprintf("✅ تمت إضافة الوحدة «%s».", created.Title), nil)
			unitDialogs.Delete(chatID)
			return
		default:
			return
		}
		st.Dialog = d

	case editUnit:
		if d.Unit != nil || !strings.HasPrefix(data, cbUnitPick) {
			return
		}
		u, err := h.pickUnit(ctx, data)
		if err != nil {
			h.fail(ctx, chatID, "pick unit", err)
			return
		}
		st.Dialog = editUnit{Unit: u}

	case deleteUnit:
		switch {
		case d.Unit == nil && strings.HasPrefix(data, cbUnitPick):
			u, err := h.pickUnit(ctx, data)
			if err != nil {
				h.fail(ctx, chatID, "pick unit", err)
				return
			}
			st.Dialog = deleteUnit{Unit: u}
		case d.Unit != nil && data == cbUnitConfirm:
			err := h.svc.DeleteUnit(ctx, admin, d.Unit.ID)
			if !h.unitResult(ctx, chatID, st, err) {
				return
			}
			fsmutil.EditText(h.bot, chatID, st.MsgID, fmt.Sprintf("🗑 تم حذف «%s».", d.Unit.Title), nil)
			unitDialogs.Delete(chatID)
			return
		default:
			return
		}
	}
	h.renderUnitDialog(ctx, chatID, st)
}

func (h *Handlers) pickUnit(ctx context.Context, data string) (*models.Unit, error) {
	id, ok := fsmutil.ParseID(data, cbUnitPick)
	if !ok {
		return nil, db.ErrNotFound
	}
	return h.findUnit(ctx, id)
}

// unitResult: ошибки записи: валидация и «не найдено» показываются, остальное, fail.
func (h *Handlers) unitResult(ctx context.Context, chatID int64, st *UnitDialogState, err error) bool {
	switch {
	case err == nil:
		return true
	case validation.IsValidation(err):
		tg.Text(h.bot, chatID, "⚠️ "+err.Error())
	case errors.Is(err, db.ErrNotFound):
		unitDialogs.Delete(chatID)
		fsmutil.EditText(h.bot, chatID, st.MsgID, "الوحدة غير موجودة.", nil)
	default:
		unitDialogs.Delete(chatID)
		h.fail(ctx, chatID, "unit write", err)
	}
	return false
}

func (h *Handlers) handleUnitDialogText(ctx context.Context, admin models.User, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st := unitDialogs.Get(chatID)
	if st == nil {
		return
	}
	if fsmutil.IsCancelText(msg.Text) {
		unitDialogs.Delete(chatID)
		tg.Text(h.bot, chatID, textCancelled)
		return
	}
	next, accepted, err := applyUnitText(st.Dialog, msg.Text)
	switch {
	case !accepted:
		tg.Text(h.bot, chatID, "👆 اختر من الأزرار في الرسالة السابقة.")
		return
	case err != nil:
		tg.Text(h.bot, chatID, "⚠️ الاسم لا يمكن أن يكون فارغًا.")
		return
	}

	if d, ok := next.(editUnit); ok {
		updated, err := h.svc.UpdateUnit(ctx, admin, d.Unit.ID, unitInput(*d.Unit))
		if !h.unitResult(ctx, chatID, st, err) {
			return
		}
		unitDialogs.Delete(chatID)
		tg.Text(h.bot, chatID, fmt.Sprintf("✅ تم تغيير الاسم إلى «%s».", updated.Title))
		return
	}
	st.Dialog = next
	st.MsgID = 0
	h.renderUnitDialog(ctx, chatID, st)
}
