package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmarini/reviewdesk/pkg/ctxutil"
)

func TestSubmit_DeliversResult(t *testing.T) {
	t.Parallel()

	r := NewRunner(2, slog.Default())
	tk := Submit(r, context.Background(), "fetch", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	got, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	// Repeated waits observe the same outcome.
	got, err = tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestSubmit_DeliversError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := NewRunner(2, slog.Default())
	tk := Submit(r, context.Background(), "fetch", func(ctx context.Context) (string, error) {
		return "", boom
	})

	_, err := tk.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSubmit_TaskContextCarriesIdentity(t *testing.T) {
	t.Parallel()

	r := NewRunner(1, slog.Default())
	tk := Submit(r, context.Background(), "upload", func(ctx context.Context) (string, error) {
		id, ok := ctxutil.TaskIDFromCtx(ctx)
		require.True(t, ok)
		assert.NotEqual(t, "", id.String())
		return ctxutil.TaskNameFromCtx(ctx), nil
	})

	name, err := tk.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "upload", name)
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const limit = 2
	r := NewRunner(limit, slog.Default())

	var running, peak int64
	var mu sync.Mutex

	tasks := make([]*Task[struct{}], 0, 8)
	for i := 0; i < 8; i++ {
		tk := Submit(r, context.Background(), "work", func(ctx context.Context) (struct{}, error) {
			cur := atomic.AddInt64(&running, 1)
			mu.Lock()
			if cur > peak {
				peak = cur
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return struct{}{}, nil
		})
		tasks = append(tasks, tk)
	}

	for _, tk := range tasks {
		_, err := tk.Wait(context.Background())
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(limit))
}

func TestWait_RespectsContext(t *testing.T) {
	t.Parallel()

	r := NewRunner(1, slog.Default())
	release := make(chan struct{})
	tk := Submit(r, context.Background(), "slow", func(ctx context.Context) (struct{}, error) {
		<-release
		return struct{}{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := tk.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	r.Wait()
}

func TestGo_SwallowsFailure(t *testing.T) {
	t.Parallel()

	r := NewRunner(1, slog.Default())
	var called atomic.Bool
	r.Go(context.Background(), "cleanup", func(ctx context.Context) error {
		called.Store(true)
		return errors.New("remote refused")
	})

	r.Wait()
	assert.True(t, called.Load())
}
