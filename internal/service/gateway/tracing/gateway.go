package tracing

import (
	"context"

	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Gateway 为投递网关实现添加链路追踪的装饰器
type Gateway struct {
	gateway gateway.Gateway
	tracer  trace.Tracer
}

// NewGateway 创建一个新的带有链路追踪的网关
func NewGateway(g gateway.Gateway) *Gateway {
	return &Gateway{
		gateway: g,
		tracer:  otel.Tracer("live-reminder-platform/gateway"),
	}
}

func (g *Gateway) Send(ctx context.Context, msg gateway.Message) (gateway.Receipt, error) {
	ctx, span := g.tracer.Start(ctx, "Gateway.Send",
		trace.WithAttributes(
			attribute.String("reminder.key", msg.IdempotencyKey),
			attribute.String("reminder.channel", msg.Channel.String()),
			attribute.String("reminder.receiver", msg.Receiver),
		))
	defer span.End()

	receipt, err := g.gateway.Send(ctx, msg)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.String("reminder.requestId", receipt.RequestID),
			attribute.String("reminder.status", string(receipt.Status)),
		)
	}

	return receipt, err
}
