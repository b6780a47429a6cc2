package idempotent

import (
	"context"

	"gitee.com/flycash/live-reminder-platform/internal/pkg/idempotent"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"github.com/gotomicro/ego/core/elog"
)

// Gateway 在真正触达供应商之前做一次幂等前置检查的装饰器。
// 提醒被重复认领（比如 SENDING 超时兜底之后重试）时，
// 靠布隆过滤器把已经发出去的 key 直接短路成成功回执。
type Gateway struct {
	gateway gateway.Gateway
	svc     idempotent.IdempotencyService
	logger  *elog.Component
}

func NewGateway(g gateway.Gateway, svc idempotent.IdempotencyService) *Gateway {
	return &Gateway{
		gateway: g,
		svc:     svc,
		logger:  elog.DefaultLogger,
	}
}

func (g *Gateway) Send(ctx context.Context, msg gateway.Message) (gateway.Receipt, error) {
	exists, err := g.svc.Exists(ctx, msg.IdempotencyKey)
	if err != nil {
		// 幂等服务不可用时放行，重复投递比漏投递可接受
		g.logger.Warn("幂等检查失败，直接投递",
			elog.String("key", msg.IdempotencyKey),
			elog.FieldErr(err))
		return g.gateway.Send(ctx, msg)
	}
	if exists {
		g.logger.Info("重复投递请求，直接返回成功",
			elog.String("key", msg.IdempotencyKey))
		return gateway.Receipt{Status: gateway.SendStatusSucceeded}, nil
	}
	return g.gateway.Send(ctx, msg)
}
