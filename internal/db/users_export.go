package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/learning-platform-bot/internal/ctxutil"
)

// UserExportRow: строка отчёта по пользователям.
type UserExportRow struct {
	ID            int64
	Name          string
	Phone         string
	Email         sql.NullString
	Role          string
	Grade         sql.NullString
	Track         string
	Devices       int
	ActiveSubs    int
	CompletedPart int
	CreatedAt     time.Time
}

func ListUsersForExport(ctx context.Context, database *sql.DB, includeInactive bool) ([]UserExportRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	q := `
		SELECT u.id, u.name, u.phone, u.email, u.role, g.name, u.track, cardinality(u.device_ids),
		       (SELECT COUNT(*) FROM subscriptions s
		         WHERE s.user_id = u.id AND s.status = 'active' AND s.end_date >= now()),
		       (SELECT COUNT(*) FROM user_progress p WHERE p.user_id = u.id AND p.completed),
		       u.created_at
		FROM users u
		LEFT JOIN grades g ON g.id = u.grade_id`
	if !includeInactive {
		q += `
		WHERE u.is_active = TRUE`
	}
	q += `
		ORDER BY LOWER(u.name), u.id`

	rows, err := database.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []UserExportRow
	for rows.Next() {
		var r UserExportRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Phone, &r.Email, &r.Role, &r.Grade, &r.Track, &r.Devices,
			&r.ActiveSubs, &r.CompletedPart, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
