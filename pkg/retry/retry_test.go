package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelhil/open-neon-go/errors"
)

func TestDo_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Fixed(5, 5*time.Millisecond), func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_AllAttemptsFail(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Fixed(3, time.Millisecond), func() error {
		attempts++
		return stderrors.New("persistent")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestDo_FixedInterval(t *testing.T) {
	var gaps []time.Duration
	last := time.Now()
	attempts := 0

	_ = Do(context.Background(), Fixed(3, 20*time.Millisecond), func() error {
		now := time.Now()
		if attempts > 0 {
			gaps = append(gaps, now.Sub(last))
		}
		last = now
		attempts++
		return stderrors.New("fail")
	})

	require.Len(t, gaps, 2)
	for _, gap := range gaps {
		assert.GreaterOrEqual(t, gap, 15*time.Millisecond)
		assert.Less(t, gap, 100*time.Millisecond)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Fixed(5, time.Millisecond), func() error {
		attempts++
		return NonRetryable(stderrors.New("bad input"))
	})

	require.Error(t, err)
	assert.True(t, IsNonRetryable(err))
	assert.Equal(t, 1, attempts)
}

func TestDo_CancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, Fixed(10, 100*time.Millisecond), func() error {
		attempts++
		return stderrors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, errors.CodeCancelled, errors.CodeOf(err))
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	v, err := DoWithResult(context.Background(), Fixed(3, time.Millisecond), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, stderrors.New("not yet")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, time.Second)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, errors.CodeCancelled, errors.CodeOf(err))
}

func TestWithTimeout_DeadlineHit(t *testing.T) {
	start := time.Now()
	_, err := WithTimeout(context.Background(), "slowOp", 30*time.Millisecond,
		func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	require.Error(t, err)
	assert.Equal(t, errors.CodeTimeout, errors.CodeOf(err))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
}

func TestWithTimeout_Success(t *testing.T) {
	v, err := WithTimeout(context.Background(), "fastOp", time.Second,
		func(_ context.Context) (string, error) {
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
