//go:build unit

package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetry(t *testing.T) {
	t.Parallel()

	t.Run("固定间隔", func(t *testing.T) {
		t.Parallel()
		strategy, err := NewRetry(Config{
			Type: "fixed",
			FixedInterval: &FixedIntervalConfig{
				MaxRetries: 2,
				Interval:   100,
			},
		})
		require.NoError(t, err)

		interval, ok := strategy.Next()
		assert.True(t, ok)
		assert.Equal(t, 100*time.Millisecond, interval)

		_, ok = strategy.Next()
		assert.True(t, ok)
		// 次数耗尽
		_, ok = strategy.Next()
		assert.False(t, ok)
	})

	t.Run("指数退避", func(t *testing.T) {
		t.Parallel()
		strategy, err := NewRetry(Config{
			Type: "exponential",
			ExponentialBackoff: &ExponentialBackoffConfig{
				InitialInterval: 100,
				MaxInterval:     400,
				MaxRetries:      4,
			},
		})
		require.NoError(t, err)

		first, ok := strategy.Next()
		assert.True(t, ok)
		assert.Equal(t, 100*time.Millisecond, first)

		second, ok := strategy.Next()
		assert.True(t, ok)
		assert.Equal(t, 200*time.Millisecond, second)

		// 间隔封顶在 maxInterval
		third, ok := strategy.Next()
		assert.True(t, ok)
		assert.Equal(t, 400*time.Millisecond, third)
		fourth, ok := strategy.Next()
		assert.True(t, ok)
		assert.Equal(t, 400*time.Millisecond, fourth)

		_, ok = strategy.Next()
		assert.False(t, ok)
	})

	t.Run("未知类型", func(t *testing.T) {
		t.Parallel()
		_, err := NewRetry(Config{Type: "jitter"})
		assert.Error(t, err)
	})
}
