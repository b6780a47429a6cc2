//go:build unit

package sequential

import (
	"context"
	"testing"

	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopGateway struct {
	name string
}

func (g *noopGateway) Send(_ context.Context, _ gateway.Message) (gateway.Receipt, error) {
	return gateway.Receipt{Status: gateway.SendStatusSucceeded}, nil
}

func TestSelector_Next(t *testing.T) {
	t.Parallel()

	first := &noopGateway{name: "aliyun"}
	second := &noopGateway{name: "tencentcloud"}
	builder := NewSelectorBuilder([]gateway.Gateway{first, second})

	selector, err := builder.Build()
	require.NoError(t, err)

	msg := gateway.Message{Receiver: "13800000001"}
	g, err := selector.Next(t.Context(), msg)
	require.NoError(t, err)
	assert.Same(t, gateway.Gateway(first), g)

	g, err = selector.Next(t.Context(), msg)
	require.NoError(t, err)
	assert.Same(t, gateway.Gateway(second), g)

	// 轮完一圈之后没有网关可用
	_, err = selector.Next(t.Context(), msg)
	assert.ErrorIs(t, err, errs.ErrNoAvailableGateway)
}

func TestSelectorBuilder_BuildIsFresh(t *testing.T) {
	t.Parallel()

	first := &noopGateway{name: "aliyun"}
	builder := NewSelectorBuilder([]gateway.Gateway{first})

	msg := gateway.Message{Receiver: "13800000001"}
	s1, err := builder.Build()
	require.NoError(t, err)
	_, err = s1.Next(t.Context(), msg)
	require.NoError(t, err)
	_, err = s1.Next(t.Context(), msg)
	require.ErrorIs(t, err, errs.ErrNoAvailableGateway)

	// 新选择器的游标从头开始
	s2, err := builder.Build()
	require.NoError(t, err)
	g, err := s2.Next(t.Context(), msg)
	require.NoError(t, err)
	assert.Same(t, gateway.Gateway(first), g)
}

func TestSelector_Empty(t *testing.T) {
	t.Parallel()

	selector, err := NewSelectorBuilder(nil).Build()
	require.NoError(t, err)

	_, err = selector.Next(t.Context(), gateway.Message{})
	assert.ErrorIs(t, err, errs.ErrNoAvailableGateway)
}
