package ctxutil

import (
	"context"
	"time"
)

type key int

const (
	keyChatID key = iota
	keyUserID
	keyOpName
	keyDeviceID
	keyRequestID
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// WithChatID: чат Telegram, из которого пришёл апдейт.
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, keyChatID, chatID)
}

func ChatID(ctx context.Context) (int64, bool) { return value[int64](ctx, keyChatID) }

// WithUserID: внутренний users.id, если пользователь уже известен.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (int64, bool) { return value[int64](ctx, keyUserID) }

// WithOp: имя операции для логов.
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) { return value[string](ctx, keyOpName) }

// WithDeviceID: X-Device-ID из HTTP-запроса.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, keyDeviceID, deviceID)
}

func DeviceID(ctx context.Context) (string, bool) { return value[string](ctx, keyDeviceID) }

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) (string, bool) { return value[string](ctx, keyRequestID) }

var DefaultDBTimeout = 5 * time.Second

// WithTimeout: d<=0 означает без таймаута.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout: стандартный таймаут для БД, но не дольше дедлайна родителя.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		if remain := time.Until(dl); remain < DefaultDBTimeout {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
