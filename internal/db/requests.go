package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

const requestColumns = `id, user_id, plan, unit_id, teacher_id, payment_ref, status, reviewed_by, reviewed_at, created_at`

func scanRequest(row interface{ Scan(...any) error }) (*models.SubscriptionRequest, error) {
	var (
		r          models.SubscriptionRequest
		unitID     sql.NullInt64
		teacherID  sql.NullInt64
		reviewedBy sql.NullInt64
		reviewedAt sql.NullTime
		status     string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Plan, &unitID, &teacherID, &r.PaymentRef, &status, &reviewedBy, &reviewedAt, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.UnitID = int64Ptr(unitID)
	r.TeacherID = int64Ptr(teacherID)
	r.ReviewedBy = int64Ptr(reviewedBy)
	r.ReviewedAt = timePtr(reviewedAt)
	r.Status = models.RequestStatus(status)
	return &r, nil
}

func CreateSubscriptionRequest(ctx context.Context, database *sql.DB, r models.SubscriptionRequest) (*models.SubscriptionRequest, error) {
	if _, ok := models.PlanByCode(r.Plan); !ok {
		return nil, ErrUnknownPlan
	}
	row := database.QueryRowContext(ctx, `
		INSERT INTO subscription_requests (user_id, plan, unit_id, teacher_id, payment_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+requestColumns,
		r.UserID, r.Plan, nullInt64(r.UnitID), nullInt64(r.TeacherID), r.PaymentRef)
	return scanRequest(row)
}

func ListPendingRequests(ctx context.Context, database *sql.DB) ([]models.SubscriptionRequest, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM subscription_requests WHERE status = 'pending' ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.SubscriptionRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ApproveRequest: в одной транзакции закрывает заявку и создаёт подписку.
// Повторное одобрение (или гонка двух админов) даёт ErrRequestNotPending.
func ApproveRequest(ctx context.Context, database *sql.DB, requestID, reviewerID int64, now time.Time) (*models.SubscriptionRequest, *models.Subscription, error) {
	var (
		req *models.SubscriptionRequest
		sub *models.Subscription
	)
	err := inTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		req, err = scanRequest(tx.QueryRowContext(ctx, `
			UPDATE subscription_requests
			SET status = 'approved', reviewed_by = $2, reviewed_at = $3
			WHERE id = $1 AND status = 'pending'
			RETURNING `+requestColumns,
			requestID, reviewerID, now))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRequestNotPending
		}
		if err != nil {
			return err
		}
		plan, ok := models.PlanByCode(req.Plan)
		if !ok {
			return ErrUnknownPlan
		}
		sub, err = insertSubscription(ctx, tx, models.Subscription{
			UserID:    req.UserID,
			Plan:      plan.Code,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, plan.Days),
			TeacherID: req.TeacherID,
			UnitID:    req.UnitID,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return req, sub, nil
}

func RejectRequest(ctx context.Context, database *sql.DB, requestID, reviewerID int64, now time.Time) (*models.SubscriptionRequest, error) {
	req, err := scanRequest(database.QueryRowContext(ctx, `
		UPDATE subscription_requests
		SET status = 'rejected', reviewed_by = $2, reviewed_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		requestID, reviewerID, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotPending
	}
	return req, err
}
