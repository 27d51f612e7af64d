package db

import (
	"context"
	"database/sql"
)

// EnsureAdmin: chatID из ADMIN_IDS всегда админ: создаём запись или
// повышаем роль существующей. Возвращает true, если запись изменилась.
func EnsureAdmin(ctx context.Context, database *sql.DB, adminIDs []int64, chatID int64, name string) (bool, error) {
	if !containsID(adminIDs, chatID) {
		return false, nil
	}
	if name == "" {
		name = "المدير"
	}
	res, err := database.ExecContext(ctx, `
		INSERT INTO users (telegram_id, name, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (telegram_id) DO UPDATE SET role = 'admin'
		WHERE users.role <> 'admin'
	`, chatID, name)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
