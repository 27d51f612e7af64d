package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Spok95/learning-platform-bot/internal/ctxutil"
)

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := Init("nonsense", "prod")
	require.NoError(t, err)
	defer l.Closer()
	assert.Equal(t, zap.InfoLevel, l.Level.Level())
}

func TestFromContext_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ctxutil.WithOp(ctxutil.WithChatID(context.Background(), 9), "redeem")

	FromContext(ctx, zap.New(core)).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(9), fields["chat_id"])
	assert.Equal(t, "redeem", fields["op"])
}

func TestFromContext_NilLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background(), nil))
}
