package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/access"
	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/metrics"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

// Subscriptions: все подписки пользователя (активные и нет).
func (s *Service) Subscriptions(ctx context.Context, user models.User) ([]models.Subscription, error) {
	return db.ListSubscriptions(ctx, s.db, user.ID)
}

// HasPlatformAccess: есть ли активная комплексная подписка.
func (s *Service) HasPlatformAccess(ctx context.Context, user models.User) (bool, error) {
	subs, err := db.FetchActiveSubscriptions(ctx, s.db, user.ID, s.now())
	if err != nil {
		return false, err
	}
	return access.HasAccess(user, access.Platform{}, subs, s.now()), nil
}

type RequestInput struct {
	Plan       string `json:"plan" validate:"required,plan"`
	UnitID     *int64 `json:"unit_id"`
	TeacherID  *int64 `json:"teacher_id"`
	PaymentRef string `json:"payment_ref" validate:"required,notblank,max=100"`
}

// RequestSubscription: заявка на подписку; админы получают уведомление.
func (s *Service) RequestSubscription(ctx context.Context, user models.User, in RequestInput) (*models.SubscriptionRequest, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	if in.UnitID != nil {
		_, err := db.GetUnit(ctx, s.db, *in.UnitID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, validation.Field("unit_id", "الوحدة غير موجودة")
		}
		if err != nil {
			return nil, fmt.Errorf("get unit: %w", err)
		}
		// заявка на юнит не бывает одновременно на учителя
		in.TeacherID = nil
	}
	req, err := db.CreateSubscriptionRequest(ctx, s.db, models.SubscriptionRequest{
		UserID:     user.ID,
		Plan:       in.Plan,
		UnitID:     in.UnitID,
		TeacherID:  in.TeacherID,
		PaymentRef: strings.TrimSpace(in.PaymentRef),
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.notify.RequestCreated(ctx, *req, user)
	return req, nil
}

func (s *Service) PendingRequests(ctx context.Context, admin models.User) ([]models.SubscriptionRequest, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	return db.ListPendingRequests(ctx, s.db)
}

// ApproveRequest: заявка закрывается и подписка создаётся атомарно; ученик получает уведомление.
func (s *Service) ApproveRequest(ctx context.Context, admin models.User, requestID int64) (*models.Subscription, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	req, sub, err := db.ApproveRequest(ctx, s.db, requestID, admin.ID, s.now())
	if err != nil {
		return nil, err
	}
	s.log.Info("subscription request approved",
		zap.Int64("request_id", req.ID), zap.Int64("user_id", req.UserID), zap.Int64("admin_id", admin.ID))
	s.publish(events.TopicSubscriptions, req.UserID, 0)
	s.notify.RequestReviewed(ctx, *req, sub)
	return sub, nil
}

func (s *Service) RejectRequest(ctx context.Context, admin models.User, requestID int64) (*models.SubscriptionRequest, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	req, err := db.RejectRequest(ctx, s.db, requestID, admin.ID, s.now())
	if err != nil {
		return nil, err
	}
	s.notify.RequestReviewed(ctx, *req, nil)
	return req, nil
}

type GenerateCodesInput struct {
	Count        int    `json:"count" validate:"required,gte=1,lte=500"`
	Plan         string `json:"plan" validate:"required,plan"`
	DurationDays int    `json:"duration_days" validate:"gte=0,lte=730"`
	UnitID       *int64 `json:"unit_id"`
	TeacherID    *int64 `json:"teacher_id"`
	ValidDays    int    `json:"valid_days" validate:"gte=0,lte=730"`
}

const (
	codeLength       = 12
	defaultValidDays = 90
)

// GenerateCodes: пакет одноразовых кодов. Длительность по умолчанию берётся из плана.
func (s *Service) GenerateCodes(ctx context.Context, admin models.User, in GenerateCodesInput) ([]models.Code, error) {
	if err := requireStaff(admin); err != nil {
		return nil, err
	}
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	plan, _ := models.PlanByCode(in.Plan)
	days := in.DurationDays
	if days == 0 {
		days = plan.Days
	}
	validDays := in.ValidDays
	if validDays == 0 {
		validDays = defaultValidDays
	}
	now := s.now()
	adminID := admin.ID

	out := make([]models.Code, 0, in.Count)
	for attempt := 0; len(out) < in.Count; attempt++ {
		if attempt == 3 {
			return nil, fmt.Errorf("insert codes: %d of %d inserted", len(out), in.Count)
		}
		batch := make([]models.Code, 0, in.Count-len(out))
		for i := len(out); i < in.Count; i++ {
			batch = append(batch, models.Code{
				Code:         NewCodeToken(),
				Plan:         plan.Code,
				DurationDays: days,
				UnitID:       in.UnitID,
				TeacherID:    in.TeacherID,
				ValidFrom:    now,
				ValidUntil:   now.AddDate(0, 0, validDays),
				CreatedBy:    &adminID,
				CreatedAt:    now,
			})
		}
		inserted, err := db.InsertCodes(ctx, s.db, batch)
		if err != nil {
			return nil, fmt.Errorf("insert codes: %w", err)
		}
		ok := make(map[string]bool, len(inserted))
		for _, c := range inserted {
			ok[c] = true
		}
		for _, c := range batch {
			if ok[c.Code] {
				out = append(out, c)
			}
		}
		if len(inserted) < len(batch) {
			s.log.Warn("code collision, regenerating", zap.Int("missing", len(batch)-len(inserted)))
		}
	}
	s.log.Info("codes generated", zap.Int("count", len(out)), zap.String("plan", plan.Code), zap.Int64("admin_id", admin.ID))
	return out, nil
}

// NewCodeToken: 12 шестнадцатеричных символов в верхнем регистре из UUIDv4.
func NewCodeToken() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:codeLength]
}

type RedeemInput struct {
	Code        string  `json:"code" validate:"required,redeem_code"`
	TelegramID  *int64  `json:"-"`
	AuthSubject *string `json:"-"`
	Name        string  `json:"name" validate:"omitempty,notblank,min=3,max=100"`
	Phone       string  `json:"phone" validate:"omitempty,phone_eg"`
	GradeID     *int64  `json:"grade_id"`
	Track       string  `json:"track" validate:"track"`
}

// RedeemCode: погашение кода. Незарегистрированный пользователь получает
// аккаунт и подписку в одной транзакции.
func (s *Service) RedeemCode(ctx context.Context, in RedeemInput) (*models.Subscription, *models.User, error) {
	if err := validation.Check(in); err != nil {
		metrics.ObserveRedemption("invalid")
		return nil, nil, err
	}
	sub, user, err := db.RedeemCode(ctx, s.db, db.RedeemInput{
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		TelegramID:  in.TelegramID,
		AuthSubject: in.AuthSubject,
		Name:        strings.TrimSpace(in.Name),
		Phone:       validation.NormalizePhone(in.Phone),
		GradeID:     in.GradeID,
		Track:       models.Track(in.Track),
	}, s.now())
	switch {
	case errors.Is(err, db.ErrCodeNotFound):
		metrics.ObserveRedemption("not_found")
		return nil, nil, err
	case errors.Is(err, db.ErrCodeUsed):
		metrics.ObserveRedemption("used")
		return nil, nil, err
	case errors.Is(err, db.ErrCodeExpired):
		metrics.ObserveRedemption("expired")
		return nil, nil, err
	case err != nil:
		metrics.ObserveRedemption("error")
		return nil, nil, fmt.Errorf("redeem code: %w", err)
	}
	metrics.ObserveRedemption("ok")
	s.publish(events.TopicSubscriptions, user.ID, 0)
	return sub, user, nil
}

// ExpiryReminders: подписки, по которым пора напомнить об окончании.
func (s *Service) ExpiryReminders(ctx context.Context, within time.Duration) ([]db.ExpiringSubscription, error) {
	return db.DueForExpiryReminder(ctx, s.db, s.now(), within)
}

func (s *Service) MarkReminderSent(ctx context.Context, subscriptionID int64) (bool, error) {
	return db.MarkReminderSent(ctx, s.db, subscriptionID)
}

// CancelSubscription: досрочная отмена админом; доступ пропадает сразу.
func (s *Service) CancelSubscription(ctx context.Context, admin models.User, subscriptionID int64) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	if err := db.CancelSubscription(ctx, s.db, subscriptionID); err != nil {
		return err
	}
	s.log.Info("subscription cancelled", zap.Int64("subscription_id", subscriptionID), zap.Int64("actor_id", admin.ID))
	s.publish(events.TopicSubscriptions, 0, 0)
	return nil
}
