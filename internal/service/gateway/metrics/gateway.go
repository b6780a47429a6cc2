// Gateway 为投递网关实现添加指标收集的装饰器
package metrics

import (
	"context"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"github.com/prometheus/client_golang/prometheus"
)

// Gateway 为投递网关实现添加指标收集的装饰器
type Gateway struct {
	gateway             gateway.Gateway
	sendDurationSummary *prometheus.SummaryVec
	sendCounter         *prometheus.CounterVec
	sendStatusCounter   *prometheus.CounterVec
	name                string
}

// NewGateway 创建一个新的带有指标收集的网关
func NewGateway(name string, g gateway.Gateway) *Gateway {
	sendDurationSummary := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "gateway_send_duration_seconds",
			Help:       "网关投递提醒耗时统计（秒）",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
			MaxAge:     time.Minute * 5,
		},
		[]string{"gateway", "channel", "status"},
	)

	sendCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_send_total",
			Help: "网关投递提醒总数",
		},
		[]string{"gateway", "channel"},
	)

	sendStatusCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_send_status_total",
			Help: "网关投递提醒状态统计",
		},
		[]string{"gateway", "channel", "status"},
	)

	// 注册指标
	prometheus.MustRegister(sendDurationSummary, sendCounter, sendStatusCounter)

	return &Gateway{
		gateway:             g,
		sendDurationSummary: sendDurationSummary,
		sendCounter:         sendCounter,
		sendStatusCounter:   sendStatusCounter,
		name:                name,
	}
}

// Send 投递提醒并记录指标
func (g *Gateway) Send(ctx context.Context, msg gateway.Message) (gateway.Receipt, error) {
	startTime := time.Now()

	g.sendCounter.WithLabelValues(
		g.name,
		msg.Channel.String(),
	).Inc()

	receipt, err := g.gateway.Send(ctx, msg)

	duration := time.Since(startTime).Seconds()

	g.sendStatusCounter.WithLabelValues(
		g.name,
		msg.Channel.String(),
		string(receipt.Status),
	).Inc()

	g.sendDurationSummary.WithLabelValues(
		g.name,
		msg.Channel.String(),
		string(receipt.Status),
	).Observe(duration)

	return receipt, err
}
