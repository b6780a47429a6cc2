package sequential

import (
	"context"
	"fmt"

	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
)

var (
	_ gateway.Selector = (*selector)(nil)
	_ gateway.Builder  = (*SelectorBuilder)(nil)
)

// selector 网关顺序选择器
type selector struct {
	idx      int
	gateways []gateway.Gateway
}

func (s *selector) Next(_ context.Context, _ gateway.Message) (gateway.Gateway, error) {
	if len(s.gateways) == s.idx {
		return nil, fmt.Errorf("%w", errs.ErrNoAvailableGateway)
	}

	g := s.gateways[s.idx]
	s.idx++
	return g, nil
}

type SelectorBuilder struct {
	gateways []gateway.Gateway
}

func NewSelectorBuilder(gateways []gateway.Gateway) *SelectorBuilder {
	return &SelectorBuilder{gateways: gateways}
}

func (b *SelectorBuilder) Build() (gateway.Selector, error) {
	return &selector{
		gateways: b.gateways,
	}, nil
}
