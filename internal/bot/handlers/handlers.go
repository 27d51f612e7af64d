// Package handlers: сценарии бота: каталог, уроки, тесты, подписки, коды и админка.
package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/learning"
	"github.com/Spok95/learning-platform-bot/internal/logging"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/observability"
	"github.com/Spok95/learning-platform-bot/internal/quiz"
	"github.com/Spok95/learning-platform-bot/internal/tg"
)

// Service: операции learning.Service, которые нужны боту.
type Service interface {
	Grades(ctx context.Context) ([]models.Grade, error)
	Units(ctx context.Context, user models.User, semesterID int64) ([]models.Unit, error)
	UnitView(ctx context.Context, user models.User, unitID int64) (*learning.UnitView, error)
	LessonView(ctx context.Context, user models.User, lessonID int64) (*learning.LessonView, error)
	MarkComplete(ctx context.Context, user models.User, lessonID int64) (bool, error)
	StartQuiz(ctx context.Context, user models.User, lessonID int64, opts ...quiz.Option) (*quiz.Session, error)
	RecordSubmission(ctx context.Context, user models.User, l models.Lesson, sub quiz.Submission) (*models.QuizAttempt, error)
	Attempts(ctx context.Context, user models.User, lessonID *int64) ([]models.AttemptWithLesson, error)

	Subscriptions(ctx context.Context, user models.User) ([]models.Subscription, error)
	RequestSubscription(ctx context.Context, user models.User, in learning.RequestInput) (*models.SubscriptionRequest, error)
	RedeemCode(ctx context.Context, in learning.RedeemInput) (*models.Subscription, *models.User, error)
	Courses(ctx context.Context) ([]models.Course, error)
	CourseView(ctx context.Context, user models.User, courseID int64) (*learning.CourseView, error)

	PendingRequests(ctx context.Context, admin models.User) ([]models.SubscriptionRequest, error)
	ApproveRequest(ctx context.Context, admin models.User, requestID int64) (*models.Subscription, error)
	RejectRequest(ctx context.Context, admin models.User, requestID int64) (*models.SubscriptionRequest, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
	GenerateCodes(ctx context.Context, admin models.User, in learning.GenerateCodesInput) ([]models.Code, error)
	Report(ctx context.Context, admin models.User, kind learning.ReportKind, from, to time.Time) (string, []byte, error)
	CreateUnit(ctx context.Context, admin models.User, in learning.UnitInput) (*models.Unit, error)
	UpdateUnit(ctx context.Context, admin models.User, id int64, in learning.UnitInput) (*models.Unit, error)
	DeleteUnit(ctx context.Context, admin models.User, id int64) error
}

type Handlers struct {
	bot tg.Sender
	svc Service
	log *zap.Logger
	loc *time.Location
}

func New(bot tg.Sender, svc Service, log *zap.Logger, loc *time.Location) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{bot: bot, svc: svc, log: log, loc: loc}
}

const (
	TextTryAgain  = "حدث خطأ، حاول مرة أخرى"
	textBusy      = "⏳ جاري تنفيذ الطلب…"
	textForbidden = "🚫 هذا الإجراء متاح للإدارة فقط."
	textCancelled = "🚫 تم الإلغاء."
)

// fail: системная ошибка: лог, Sentry и короткое «попробуйте ещё раз».
func (h *Handlers) fail(ctx context.Context, chatID int64, op string, err error) {
	metrics.HandlerErrors.Inc()
	logging.FromContext(ctx, h.log).Error(op, zap.Error(err))
	observability.CaptureErrCtx(ctx, err)
	tg.Text(h.bot, chatID, TextTryAgain)
}

func (h *Handlers) send(msg tgbotapi.Chattable) {
	if _, err := tg.Send(h.bot, msg); err != nil {
		metrics.HandlerErrors.Inc()
	}
}

// StopAll гасит таймеры тестов и сбрасывает диалоги чата (/start, выход).
func (h *Handlers) StopAll(chatID int64) {
	h.stopQuiz(chatID)
	redeemStates.Delete(chatID)
	subscribeStates.Delete(chatID)
	codesStates.Delete(chatID)
	reportStates.Delete(chatID)
	unitDialogs.Delete(chatID)
}

// HandleText: текстовые шаги активных диалогов. false, ни один диалог не ждёт текста.
func (h *Handlers) HandleText(ctx context.Context, user *models.User, msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	switch {
	case redeemStates.Get(chatID) != nil:
		h.handleRedeemText(ctx, user, msg)
	case subscribeStates.Get(chatID) != nil && user != nil:
		h.handleSubscribeText(ctx, *user, msg)
	case codesStates.Get(chatID) != nil && user != nil:
		h.handleCodesText(ctx, *user, msg)
	case unitDialogs.Get(chatID) != nil && user != nil:
		h.handleUnitDialogText(ctx, *user, msg)
	case quizzes.Get(chatID) != nil && user != nil:
		h.handleQuizText(ctx, *user, msg)
	default:
		return false
	}
	return true
}
