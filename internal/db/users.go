package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

const userColumns = `id, telegram_id, auth_subject, name, phone, email, role, grade_id, track, device_ids, allowed_devices, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u       models.User
		tgID    sql.NullInt64
		subject sql.NullString
		email   sql.NullString
		gradeID sql.NullInt64
		role    string
		track   string
	)
	err := row.Scan(&u.ID, &tgID, &subject, &u.Name, &u.Phone, &email, &role, &gradeID, &track,
		pq.Array(&u.DeviceIDs), &u.AllowedDevices, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.TelegramID = int64Ptr(tgID)
	u.AuthSubject = stringPtr(subject)
	u.Email = stringPtr(email)
	u.GradeID = int64Ptr(gradeID)
	u.Role = models.Role(role)
	u.Track = models.Track(track)
	return &u, nil
}

func getUser(ctx context.Context, q queryer, where string, arg any) (*models.User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func GetUserByID(ctx context.Context, database *sql.DB, id int64) (*models.User, error) {
	return getUser(ctx, database, `id = $1`, id)
}

func GetUserByTelegramID(ctx context.Context, database *sql.DB, telegramID int64) (*models.User, error) {
	return getUser(ctx, database, `telegram_id = $1`, telegramID)
}

func GetUserByAuthSubject(ctx context.Context, database *sql.DB, subject string) (*models.User, error) {
	return getUser(ctx, database, `auth_subject = $1`, subject)
}

// CreateUser: регистрация. Возвращает пользователя с присвоенным id.
func CreateUser(ctx context.Context, database *sql.DB, u models.User) (*models.User, error) {
	return insertUser(ctx, database, u)
}

func insertUser(ctx context.Context, q queryer, u models.User) (*models.User, error) {
	if u.Role == "" {
		u.Role = models.Student
	}
	if u.AllowedDevices <= 0 {
		u.AllowedDevices = 2
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, auth_subject, name, phone, email, role, grade_id, track, allowed_devices)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		nullInt64(u.TelegramID), nullString(u.AuthSubject), u.Name, u.Phone, nullString(u.Email),
		string(u.Role), nullInt64(u.GradeID), string(u.Track), u.AllowedDevices,
	)
	return scanUser(row)
}

// UpdateProfile: правки из самообслуживания: имя, телефон, почта, класс, профиль.
func UpdateProfile(ctx context.Context, database *sql.DB, u models.User) error {
	res, err := database.ExecContext(ctx, `
		UPDATE users SET name = $1, phone = $2, email = $3, grade_id = $4, track = $5
		WHERE id = $6
	`, u.Name, u.Phone, nullString(u.Email), nullInt64(u.GradeID), string(u.Track), u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func SetUserRole(ctx context.Context, database *sql.DB, userID int64, role models.Role) error {
	return execOne(ctx, database, `UPDATE users SET role = $1 WHERE id = $2`, string(role), userID)
}

func SetUserActive(ctx context.Context, database *sql.DB, userID int64, active bool) error {
	return execOne(ctx, database, `UPDATE users SET is_active = $1 WHERE id = $2`, active, userID)
}

// execOne: UPDATE одной строки; ни одной, ErrNotFound.
func execOne(ctx context.Context, database *sql.DB, query string, args ...any) error {
	res, err := database.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RegisterDevice добавляет устройство пользователю. Уже известное устройство -
// no-op; новое сверх allowed_devices: ErrDeviceLimit.
func RegisterDevice(ctx context.Context, database *sql.DB, userID int64, deviceID string) error {
	res, err := database.ExecContext(ctx, `
		UPDATE users
		SET device_ids = array_append(device_ids, $1)
		WHERE id = $2
		  AND NOT ($1 = ANY(device_ids))
		  AND cardinality(device_ids) < allowed_devices
	`, deviceID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	var known bool
	err = database.QueryRowContext(ctx, `SELECT $1 = ANY(device_ids) FROM users WHERE id = $2`, deviceID, userID).Scan(&known)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if known {
		return nil
	}
	return ErrDeviceLimit
}

// ResetDevices: админ сбрасывает список устройств.
func ResetDevices(ctx context.Context, database *sql.DB, userID int64) error {
	_, err := database.ExecContext(ctx, `UPDATE users SET device_ids = '{}' WHERE id = $1`, userID)
	return err
}

// DeleteUser удаляет аккаунт; прогресс, попытки, подписки и заявки уходят каскадом.
func DeleteUser(ctx context.Context, database *sql.DB, userID int64) error {
	return inTx(ctx, database, func(tx *sql.Tx) error {
		// user_progress/quiz_attempts без FK на уроки, но с FK на users: каскад
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListStaffChatIDs: telegram_id всех админов/супервайзеров для рассылок.
func ListStaffChatIDs(ctx context.Context, database *sql.DB) ([]int64, error) {
	rows, err := database.QueryContext(ctx, `
		SELECT telegram_id FROM users
		WHERE role IN ('admin','supervisor') AND is_active AND telegram_id IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListTeachers: учителя для привязки к юнитам.
func ListTeachers(ctx context.Context, database *sql.DB) ([]models.User, error) {
	rows, err := database.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'teacher' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
