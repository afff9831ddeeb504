package progress

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-pgas/tests/mocks"
)

func TestEngine_NotRequired(t *testing.T) {
	tr := mocks.NewMockTransport()

	e := New(tr)
	require.NoError(t, e.Start(false))
	assert.False(t, e.Running())

	require.NoError(t, e.Stop(context.Background()))
	require.NoError(t, e.Stop(context.Background()))
	assert.Zero(t, tr.ProgressCalls())
}

func TestEngine_StartStop(t *testing.T) {
	tr := mocks.NewMockTransport()
	e := New(tr)

	require.NoError(t, e.Start(true))
	assert.True(t, e.Running())
	assert.ErrorIs(t, e.Start(true), ErrAlreadyStarted)

	assert.Eventually(t, func() bool { return tr.ProgressCalls() > 3 }, 2*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))
	assert.False(t, e.Running())

	// 退出后不再推进
	calls := tr.ProgressCalls()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, calls, tr.ProgressCalls())
	assert.Equal(t, uint64(calls), e.Polls())

	require.NoError(t, e.Stop(ctx))
}

func TestEngine_CadenceWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	tr := mocks.NewMockTransport()
	e := New(tr, WithClock(mock), WithDelay(10*time.Microsecond))

	require.NoError(t, e.Start(true))

	// 至少推进一次，然后阻塞在休眠上
	assert.Eventually(t, func() bool { return tr.ProgressCalls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, int64(1), tr.ProgressCalls())

	// 时钟每前进一个 delay 推进一次
	assert.Eventually(t, func() bool {
		mock.Add(10 * time.Microsecond)
		return tr.ProgressCalls() >= 5
	}, 2*time.Second, time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- e.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		mock.Add(10 * time.Microsecond)
		select {
		case err := <-stopped:
			return assert.NoError(t, err)
		default:
			return false
		}
	}, 2*time.Second, time.Millisecond)
	assert.False(t, e.Running())
}

func TestEngine_JoinFailed(t *testing.T) {
	mock := clock.NewMock()
	tr := mocks.NewMockTransport()
	e := New(tr, WithClock(mock), WithDelay(time.Second))

	require.NoError(t, e.Start(true))
	assert.Eventually(t, func() bool { return tr.ProgressCalls() >= 1 }, time.Second, time.Millisecond)

	// 时钟不前进，线程无法离开休眠
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Stop(ctx)
	assert.ErrorIs(t, err, ErrJoinFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		mock.Add(time.Second)
		return !e.Running()
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, e.Stop(context.Background()))
}

func TestEngine_SetDelayWhileRunning(t *testing.T) {
	tr := mocks.NewMockTransport()
	e := New(tr)
	assert.Equal(t, DefaultDelay, e.Delay())

	require.NoError(t, e.Start(true))
	e.SetDelay(50 * time.Microsecond)
	assert.Equal(t, 50*time.Microsecond, e.Delay())

	assert.Eventually(t, func() bool { return tr.ProgressCalls() > 2 }, 2*time.Second, time.Millisecond)
	require.NoError(t, e.Stop(context.Background()))
}
