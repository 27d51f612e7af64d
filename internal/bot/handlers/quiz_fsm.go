package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/bot/shared/fsmutil"
	"github.com/Spok95/learning-platform-bot/internal/ctxutil"
	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

const (
	cbQuizStart  = "quiz_start_"
	cbQuizAnswer = "quiz_ans_"
	cbQuizSubmit = "quiz_submit"
	cbQuizRetake = "quiz_retake"
	cbQuizStop   = "quiz_stop"
)

// QuizState: попытка в чате. Сессия остаётся после отправки ради «повторить».
type QuizState struct {
	Session  *quiz.Session
	User     models.User
	Question int
	MsgID    int
}

var quizzes = fsmutil.NewStore[QuizState]()

func (h *Handlers) stopQuiz(chatID int64) {
	if st := quizzes.Delete(chatID); st != nil {
		st.Session.Stop()
	}
}

func IsQuizCallback(data string) bool {
	return strings.HasPrefix(data, "quiz_")
}

func (h *Handlers) HandleQuizCallback(ctx context.Context, user models.User, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	data := cb.Data
	tg.AnswerCallback(h.bot, cb, "")

	if strings.HasPrefix(data, cbQuizStart) {
		id, ok := fsmutil.ParseID(data, cbQuizStart)
		if !ok {
			return
		}
		h.startQuiz(ctx, user, chatID, id)
		return
	}

	st := quizzes.Get(chatID)
	if st == nil {
		fsmutil.DisableMarkup(h.bot, chatID, msgID)
		return
	}
	switch {
	case data == cbQuizStop:
		h.stopQuiz(chatID)
		fsmutil.EditText(h.bot, chatID, msgID, textCancelled, nil)

	case data == cbQuizSubmit:
		h.submitQuiz(ctx, chatID, st)

	case data == cbQuizRetake:
		if err := st.Session.Retake(); err != nil {
			return
		}
		h.beginAttempt(ctx, chatID, st)

	case strings.HasPrefix(data, cbQuizAnswer):
		q, opt, ok := parseAnswer(data)
		if !ok {
			return
		}
		if err := st.Session.Choose(q, opt); err != nil {
			tg.Text(h.bot, chatID, "⚠️ انتهت هذه المحاولة.")
			return
		}
		if q+1 < len(st.Session.Lesson().Questions) {
			st.Question = q + 1
		}
		h.showQuestion(chatID, st)
	}
}

// parseAnswer: "quiz_ans_<вопрос>_<вариант>".
func parseAnswer(data string) (int, int, bool) {
	var q, opt int
	if _, err := fmt.Sscanf(strings.TrimPrefix(data, cbQuizAnswer), "%d_%d", &q, &opt); err != nil {
		return 0, 0, false
	}
	return q, opt, q >= 0 && opt >= 0
}

func (h *Handlers) startQuiz(ctx context.Context, user models.User, chatID, lessonID int64) {
	h.stopQuiz(chatID)
	s, err := h.svc.StartQuiz(ctx, user, lessonID)
	switch {
	case errors.Is(err, learning.ErrLocked):
		fsmutil.SendRows(h.bot, chatID, textUpsell, upsellRows())
		return
	case errors.Is(err, learning.ErrNotQuiz):
		tg.Text(h.bot, chatID, "هذا الدرس ليس اختبارًا.")
		return
	case err != nil:
		h.fail(ctx, chatID, "start quiz", err)
		return
	}
	l := s.Lesson()
	if l.IsImageQuiz() && len(l.CorrectAnswers) == 0 {
		tg.Text(h.bot, chatID, "⚠️ هذا الاختبار غير جاهز بعد، حاول لاحقًا.")
		return
	}
	st := &QuizState{Session: s, User: user}
	quizzes.Set(chatID, st)
	h.beginAttempt(ctx, chatID, st)
}

// beginAttempt запускает таймер; по истечении ответы отправляются сами.
func (h *Handlers) beginAttempt(ctx context.Context, chatID int64, st *QuizState) {
	st.Question = 0
	st.MsgID = 0
	logCtx := ctxutil.WithChatID(context.WithoutCancel(ctx), chatID)
	err := st.Session.Start(func(sub quiz.Submission) {
		h.recordSubmission(logCtx, chatID, st, sub)
	})
	if err != nil {
		return
	}
	l := st.Session.Lesson()
	if l.TimeLimit > 0 {
		tg.Text(h.bot, chatID, fmt.Sprintf("⏱ لديك %d دقيقة. سيتم التسليم تلقائيًا عند انتهاء الوقت.", l.TimeLimit))
	}
	if l.IsImageQuiz() {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(l.ImageURL))
		photo.Caption = l.Title
		h.send(photo)
		fsmutil.SendRows(h.bot, chatID, "✍️ اكتب إجاباتك، كل إجابة في سطر منفصل:", [][]tgbotapi.InlineKeyboardButton{
			fsmutil.CancelRow(cbQuizStop),
		})
		return
	}
	h.showQuestion(chatID, st)
}

func (h *Handlers) showQuestion(chatID int64, st *QuizState) {
	text, rows := questionView(st.Session.Lesson(), st.Session.Answers(), st.Question)
	if st.MsgID != 0 {
		fsmutil.EditText(h.bot, chatID, st.MsgID, text, rows)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	sent, err := tg.Send(h.bot, msg)
	if err == nil {
		st.MsgID = sent.MessageID
	}
}

// questionView: текст вопроса и кнопки вариантов; выбранный вариант отмечен.
func questionView(l models.Lesson, a quiz.Answers, q int) (string, [][]tgbotapi.InlineKeyboardButton) {
	if len(l.Questions) == 0 {
		return "لا توجد أسئلة في هذا الاختبار.", [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📤 تسليم", cbQuizSubmit)),
		}
	}
	question := l.Questions[q]
	answered := 0
	for _, c := range a.Choices {
		if c >= 0 {
			answered++
		}
	}
	text := fmt.Sprintf("سؤال %d من %d (تمت الإجابة على %d)\n\n%s", q+1, len(l.Questions), answered, question.Text)

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, opt := range question.Options {
		label := opt
		if q < len(a.Choices) && a.Choices[q] == i {
			label = "🔘 " + opt
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d_%d", cbQuizAnswer, q, i)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📤 تسليم", cbQuizSubmit),
		tgbotapi.NewInlineKeyboardButtonData("❌ إلغاء", cbQuizStop),
	))
	return text, rows
}

func (h *Handlers) handleQuizText(ctx context.Context, _ models.User, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st := quizzes.Get(chatID)
	if st == nil {
		return
	}
	if fsmutil.IsCancelText(msg.Text) {
		h.stopQuiz(chatID)
		tg.Text(h.bot, chatID, textCancelled)
		return
	}
	if !st.Session.Lesson().IsImageQuiz() || st.Session.State() != quiz.InProgress {
		tg.Text(h.bot, chatID, "👆 استخدم الأزرار للإجابة.")
		return
	}
	lines := quiz.SplitLines(msg.Text)
	if len(lines) == 0 {
		tg.Text(h.bot, chatID, "⚠️ اكتب إجابة واحدة على الأقل.")
		return
	}
	if err := st.Session.SetLines(lines); err != nil {
		return
	}
	h.submitQuiz(ctx, chatID, st)
}

func (h *Handlers) submitQuiz(ctx context.Context, chatID int64, st *QuizState) {
	sub, err := st.Session.Submit()
	switch {
	case errors.Is(err, quiz.ErrNoAcceptedAnswers):
		h.stopQuiz(chatID)
		tg.Text(h.bot, chatID, "⚠️ هذا الاختبار غير جاهز بعد، حاول لاحقًا.")
		return
	case errors.Is(err, quiz.ErrNotInProgress):
		return
	case err != nil:
		h.fail(ctx, chatID, "submit quiz", err)
		return
	}
	h.recordSubmission(ctx, chatID, st, sub)
}

func (h *Handlers) recordSubmission(ctx context.Context, chatID int64, st *QuizState, sub quiz.Submission) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	l := st.Session.Lesson()
	if _, err := h.svc.RecordSubmission(ctx, st.User, l, sub); err != nil {
		h.fail(ctx, chatID, "record submission", err)
		return
	}
	h.log.Debug("quiz result sent", zap.Int64("chat_id", chatID), zap.Int64("lesson_id", l.ID), zap.Bool("auto", sub.AutoSubmitted))
	fsmutil.SendRows(h.bot, chatID, resultText(sub, quiz.PassingScore(l)), [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 إعادة المحاولة", cbQuizRetake),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ الوحدة", fmt.Sprintf("%s%d", cbCatUnit, l.UnitID)),
		),
	})
}
