// Package learning: операции платформы поверх db: доступ, прогресс, тесты,
// подписки и коды. Используется и ботом, и HTTP API.
package learning

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/models"
)

var (
	// ErrLocked: запись по уроку, который пользователю не виден.
	ErrLocked    = errors.New("lesson is locked")
	ErrNotQuiz   = errors.New("lesson is not a quiz")
	ErrForbidden = errors.New("staff only")
	ErrInactive  = errors.New("account is inactive")

	// ErrQuizCompletion: домашка и экзамен засчитываются только сданной попыткой.
	ErrQuizCompletion = errors.New("quiz lesson completes only by passing")
)

// Notifier: уведомления о заявках на подписку (в проде, Telegram).
type Notifier interface {
	RequestCreated(ctx context.Context, req models.SubscriptionRequest, user models.User)
	RequestReviewed(ctx context.Context, req models.SubscriptionRequest, sub *models.Subscription)
}

type nopNotifier struct{}

func (nopNotifier) RequestCreated(context.Context, models.SubscriptionRequest, models.User) {}
func (nopNotifier) RequestReviewed(context.Context, models.SubscriptionRequest, *models.Subscription) {
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notify = n } }

func WithDefaultDevices(n int) Option { return func(s *Service) { s.defaultDevices = n } }

func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

type Service struct {
	db     *sql.DB
	bus    *events.Bus
	log    *zap.Logger
	now    func() time.Time
	notify Notifier
	loc    *time.Location

	defaultDevices int

	mu     sync.RWMutex
	grades []models.Grade // кэш дерева каталога, сбрасывается по TopicCatalog
}

func New(database *sql.DB, bus *events.Bus, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		db:             database,
		bus:            bus,
		log:            log,
		now:            time.Now,
		notify:         nopNotifier{},
		loc:            time.UTC,
		defaultDevices: 2,
	}
	for _, o := range opts {
		o(s)
	}
	if bus != nil {
		bus.Subscribe(events.TopicCatalog, func(events.Event) { s.invalidateCatalog() })
	}
	return s
}

func (s *Service) publish(topic events.Topic, userID, unitID int64) {
	s.bus.Publish(events.Event{Topic: topic, UserID: userID, UnitID: unitID})
}

func requireStaff(u models.User) error {
	if !u.Role.IsStaff() {
		return ErrForbidden
	}
	return nil
}
