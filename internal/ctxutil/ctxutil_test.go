package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues(t *testing.T) {
	ctx := context.Background()
	_, ok := ChatID(ctx)
	assert.False(t, ok)

	ctx = WithChatID(ctx, 42)
	ctx = WithUserID(ctx, 7)
	ctx = WithOp(ctx, "quiz.submit")
	ctx = WithDeviceID(ctx, "dev-1")

	chat, ok := ChatID(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(42), chat)
	uid, _ := UserID(ctx)
	assert.Equal(t, int64(7), uid)
	op, _ := Op(ctx)
	assert.Equal(t, "quiz.submit", op)
	dev, _ := DeviceID(ctx)
	assert.Equal(t, "dev-1", dev)
	_, ok = RequestID(ctx)
	assert.False(t, ok)
}

func TestWithDBTimeout_RespectsParentDeadline(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	ctx, cancel2 := WithDBTimeout(parent)
	defer cancel2()
	dl, ok := ctx.Deadline()
	require.True(t, ok)
	assert.LessOrEqual(t, time.Until(dl), 100*time.Millisecond)
}

func TestWithTimeout_ZeroMeansNoDeadline(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}
