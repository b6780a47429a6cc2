package console

import (
	"context"

	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"github.com/gotomicro/ego/core/elog"
)

// 开发和本地联调时输出到控制台的网关实现

type Gateway struct {
	logger *elog.Component
}

func NewGateway() *Gateway {
	return &Gateway{
		logger: elog.DefaultLogger,
	}
}

func (g *Gateway) Send(_ context.Context, msg gateway.Message) (gateway.Receipt, error) {
	g.logger.Info("投递提醒",
		elog.String("key", msg.IdempotencyKey),
		elog.String("receiver", msg.Receiver),
		elog.String("channel", msg.Channel.String()),
		elog.String("content", msg.Content))
	return gateway.Receipt{Status: gateway.SendStatusSucceeded}, nil
}
