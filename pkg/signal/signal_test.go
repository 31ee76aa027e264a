package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForShutdownOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WaitForShutdown(ctx, time.Second, func(ctx context.Context) error {
		called = true
		_, ok := ctx.Deadline()
		assert.True(t, ok, "shutdown context must carry the timeout")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestWaitForShutdownPropagatesError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	boom := errors.New("boom")
	err := WaitForShutdown(ctx, time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
