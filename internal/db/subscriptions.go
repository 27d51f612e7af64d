package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

const subscriptionColumns = `id, user_id, plan, status, start_date, end_date, teacher_id, unit_id, created_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var (
		s         models.Subscription
		status    string
		teacherID sql.NullInt64
		unitID    sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Plan, &status, &s.StartDate, &s.EndDate, &teacherID, &unitID, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Status = models.SubscriptionStatus(status)
	s.TeacherID = int64Ptr(teacherID)
	s.UnitID = int64Ptr(unitID)
	return &s, nil
}

func listSubscriptions(ctx context.Context, q queryer, where string, args ...any) ([]models.Subscription, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE `+where+` ORDER BY end_date DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// FetchActiveSubscriptions: кандидаты для резолвера доступа; окончательную
// проверку активности всё равно делает access.ActiveSubscriptions.
func FetchActiveSubscriptions(ctx context.Context, database *sql.DB, userID int64, now time.Time) ([]models.Subscription, error) {
	return listSubscriptions(ctx, database, `user_id = $1 AND status = 'active' AND end_date >= $2`, userID, now)
}

// ListSubscriptions: все подписки пользователя, включая истёкшие.
func ListSubscriptions(ctx context.Context, database *sql.DB, userID int64) ([]models.Subscription, error) {
	return listSubscriptions(ctx, database, `user_id = $1`, userID)
}

func CreateSubscription(ctx context.Context, database *sql.DB, s models.Subscription) (*models.Subscription, error) {
	return insertSubscription(ctx, database, s)
}

func insertSubscription(ctx context.Context, q queryer, s models.Subscription) (*models.Subscription, error) {
	if s.Status == "" {
		s.Status = models.SubscriptionActive
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, start_date, end_date, teacher_id, unit_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+subscriptionColumns,
		s.UserID, s.Plan, string(s.Status), s.StartDate, s.EndDate, nullInt64(s.TeacherID), nullInt64(s.UnitID))
	return scanSubscription(row)
}

func CancelSubscription(ctx context.Context, database *sql.DB, id int64) error {
	res, err := database.ExecContext(ctx, `UPDATE subscriptions SET status = 'cancelled' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpiringSubscription: подписка, по которой пора напомнить.
type ExpiringSubscription struct {
	Subscription models.Subscription
	TelegramID   int64
	UserName     string
}

// DueForExpiryReminder: активные подписки с end_date в (now, now+within], без отправленного напоминания,
// у пользователей с привязанным Telegram.
func DueForExpiryReminder(ctx context.Context, database *sql.DB, now time.Time, within time.Duration) ([]ExpiringSubscription, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT s.id, s.user_id, s.plan, s.status, s.start_date, s.end_date, s.teacher_id, s.unit_id, s.created_at,
		       u.telegram_id, u.name
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.status = 'active'
		  AND s.reminder_sent = FALSE
		  AND s.end_date > $1 AND s.end_date <= $2
		  AND u.telegram_id IS NOT NULL
		  AND u.is_active
		ORDER BY s.end_date, s.id
	`, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ExpiringSubscription
	for rows.Next() {
		var (
			e         ExpiringSubscription
			status    string
			teacherID sql.NullInt64
			unitID    sql.NullInt64
		)
		s := &e.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Plan, &status, &s.StartDate, &s.EndDate, &teacherID, &unitID, &s.CreatedAt,
			&e.TelegramID, &e.UserName); err != nil {
			return nil, err
		}
		s.Status = models.SubscriptionStatus(status)
		s.TeacherID = int64Ptr(teacherID)
		s.UnitID = int64Ptr(unitID)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkReminderSent: false, если напоминание уже отметил другой запуск.
func MarkReminderSent(ctx context.Context, database *sql.DB, subscriptionID int64) (bool, error) {
	res, err := database.ExecContext(ctx, `
		UPDATE subscriptions SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE
	`, subscriptionID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SubscriptionExportRow: строка отчёта по подпискам.
type SubscriptionExportRow struct {
	ID        int64
	UserName  string
	Phone     string
	Plan      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
	UnitTitle *string
	Teacher   *string
}

func ListSubscriptionsForExport(ctx context.Context, database *sql.DB) ([]SubscriptionExportRow, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT s.id, u.name, u.phone, s.plan, s.status, s.start_date, s.end_date, un.title, t.name
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN units un ON un.id = s.unit_id
		LEFT JOIN users t ON t.id = s.teacher_id
		ORDER BY s.start_date, s.id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []SubscriptionExportRow
	for rows.Next() {
		var (
			r              SubscriptionExportRow
			unit, teacher sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserName, &r.Phone, &r.Plan, &r.Status, &r.StartDate, &r.EndDate, &unit, &teacher); err != nil {
			return nil, err
		}
		r.UnitTitle = stringPtr(unit)
		r.Teacher = stringPtr(teacher)
		out = append(out, r)
	}
	return out, rows.Err()
}
