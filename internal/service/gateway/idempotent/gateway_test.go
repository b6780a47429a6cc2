//go:build unit

package idempotent

import (
	"context"
	"sync/atomic"
	"testing"

	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGateway struct {
	sendCount atomic.Int32
}

func (g *countingGateway) Send(_ context.Context, _ gateway.Message) (gateway.Receipt, error) {
	g.sendCount.Add(1)
	return gateway.Receipt{RequestID: "req-1", Status: gateway.SendStatusSucceeded}, nil
}

type stubIdempotencyService struct {
	exists bool
	err    error
}

func (s *stubIdempotencyService) Exists(_ context.Context, _ string) (bool, error) {
	return s.exists, s.err
}

func (s *stubIdempotencyService) MExists(_ context.Context, keys ...string) ([]bool, error) {
	res := make([]bool, len(keys))
	for i := range res {
		res[i] = s.exists
	}
	return res, s.err
}

func TestGateway_Send(t *testing.T) {
	t.Parallel()

	msg := gateway.Message{IdempotencyKey: "reminder-1", Receiver: "13800000001"}

	t.Run("首次投递_透传给下游", func(t *testing.T) {
		t.Parallel()
		inner := &countingGateway{}
		g := NewGateway(inner, &stubIdempotencyService{exists: false})

		receipt, err := g.Send(t.Context(), msg)
		require.NoError(t, err)
		assert.Equal(t, gateway.SendStatusSucceeded, receipt.Status)
		assert.Equal(t, int32(1), inner.sendCount.Load())
	})

	t.Run("重复投递_短路成成功回执", func(t *testing.T) {
		t.Parallel()
		inner := &countingGateway{}
		g := NewGateway(inner, &stubIdempotencyService{exists: true})

		receipt, err := g.Send(t.Context(), msg)
		require.NoError(t, err)
		assert.Equal(t, gateway.SendStatusSucceeded, receipt.Status)
		// 下游没有被触达
		assert.Equal(t, int32(0), inner.sendCount.Load())
	})

	t.Run("幂等服务不可用_放行投递", func(t *testing.T) {
		t.Parallel()
		inner := &countingGateway{}
		g := NewGateway(inner, &stubIdempotencyService{err: errors.New("redis 连接失败")})

		receipt, err := g.Send(t.Context(), msg)
		require.NoError(t, err)
		assert.Equal(t, gateway.SendStatusSucceeded, receipt.Status)
		assert.Equal(t, int32(1), inner.sendCount.Load())
	})
}
