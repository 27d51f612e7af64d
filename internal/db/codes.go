package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// InsertCodes: пакетная вставка; коллизии кода пропускаются. Возвращает вставленные коды.
func InsertCodes(ctx context.Context, database *sql.DB, codes []models.Code) ([]string, error) {
	var inserted []string
	err := inTx(ctx, database, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO codes (code, plan, duration_days, unit_id, teacher_id, valid_from, valid_until, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (code) DO NOTHING
			RETURNING code
		`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, c := range codes {
			var code string
			err := stmt.QueryRowContext(ctx, c.Code, c.Plan, c.DurationDays, nullInt64(c.UnitID), nullInt64(c.TeacherID),
				c.ValidFrom, c.ValidUntil, nullInt64(c.CreatedBy)).Scan(&code)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return err
			}
			inserted = append(inserted, code)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// RedeemInput: кто погашает код. Если пользователя ещё нет, он создаётся из Name/Phone/GradeID/Track.
type RedeemInput struct {
	Code        string
	TelegramID  *int64
	AuthSubject *string
	Name        string
	Phone       string
	GradeID     *int64
	Track       models.Track
}

// RedeemCode: атомарное погашение одноразового кода: код, пользователь и подписка
// в одной транзакции. Из двух параллельных погашений одного кода проходит ровно одно.
func RedeemCode(ctx context.Context, database *sql.DB, in RedeemInput, now time.Time) (*models.Subscription, *models.User, error) {
	var (
		sub  *models.Subscription
		user *models.User
	)
	err := inTx(ctx, database, func(tx *sql.Tx) error {
		var (
			plan      string
			days      int
			unitID    sql.NullInt64
			teacherID sql.NullInt64
		)
		err := tx.QueryRowContext(ctx, `
			UPDATE codes SET consumed_at = $2
			WHERE code = $1 AND consumed_at IS NULL AND valid_from <= $2 AND valid_until >= $2
			RETURNING plan, duration_days, unit_id, teacher_id
		`, in.Code, now).Scan(&plan, &days, &unitID, &teacherID)
		if errors.Is(err, sql.ErrNoRows) {
			return diagnoseCode(ctx, tx, in.Code)
		}
		if err != nil {
			return err
		}

		user, err = findOrCreateRedeemer(ctx, tx, in)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE codes SET consumed_by = $2 WHERE code = $1`, in.Code, user.ID); err != nil {
			return err
		}
		sub, err = insertSubscription(ctx, tx, models.Subscription{
			UserID:    user.ID,
			Plan:      plan,
			StartDate: now,
			EndDate:   now.AddDate(0, 0, days),
			TeacherID: int64Ptr(teacherID),
			UnitID:    int64Ptr(unitID),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sub, user, nil
}

func diagnoseCode(ctx context.Context, q queryer, code string) error {
	var consumed sql.NullTime
	err := q.QueryRowContext(ctx, `SELECT consumed_at FROM codes WHERE code = $1`, code).Scan(&consumed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	case err != nil:
		return err
	case consumed.Valid:
		return ErrCodeUsed
	default:
		return ErrCodeExpired
	}
}

func findOrCreateRedeemer(ctx context.Context, q queryer, in RedeemInput) (*models.User, error) {
	var (
		u   *models.User
		err error
	)
	switch {
	case in.TelegramID != nil:
		u, err = getUser(ctx, q, `telegram_id = $1`, *in.TelegramID)
	case in.AuthSubject != nil:
		u, err = getUser(ctx, q, `auth_subject = $1`, *in.AuthSubject)
	default:
		return nil, ErrNotFound
	}
	if errors.Is(err, ErrNotFound) {
		name := in.Name
		if name == "" {
			name = "طالب"
		}
		return insertUser(ctx, q, models.User{
			TelegramID:  in.TelegramID,
			AuthSubject: in.AuthSubject,
			Name:        name,
			Phone:       in.Phone,
			GradeID:     in.GradeID,
			Track:       in.Track,
		})
	}
	if err != nil {
		return nil, err
	}
	// класс и профиль заполняем только если их ещё нет
	if (u.GradeID == nil && in.GradeID != nil) || (u.Track == "" && in.Track != "") {
		row := q.QueryRowContext(ctx, `
			UPDATE users
			SET grade_id = COALESCE(grade_id, $2),
			    track = CASE WHEN track = '' THEN $3 ELSE track END
			WHERE id = $1
			RETURNING `+userColumns, u.ID, nullInt64(in.GradeID), string(in.Track))
		return scanUser(row)
	}
	return u, nil
}
