package metrics

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var (
	// Redis命令计数器
	commandCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_commands_total",
			Help: "Total number of Redis commands executed",
		},
		[]string{"command", "status"},
	)

	// Redis命令执行时间
	commandDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "redis_command_duration_seconds",
			Help:       "Redis command execution time in seconds",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.95: 0.005, 0.99: 0.001},
		},
		[]string{"command"},
	)

	// Redis连接计数器
	connectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_connections_total",
			Help: "Total number of Redis connections created",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		commandCounter,
		commandDuration,
		connectionCounter,
	)
}

// Hook 实现了 redis.Hook 接口，为所有 Redis 操作添加指标收集
type Hook struct{}

// NewMetricsHook 创建一个新的 Redis 指标收集钩子
func NewMetricsHook() *Hook {
	return &Hook{}
}

const (
	successStatus = "success"
	errorStatus   = "error"
)

// ProcessHook 处理Redis命令的指标收集
func (h *Hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		cmdName := cmd.Name()

		startTime := time.Now()
		err := next(ctx, cmd)
		duration := time.Since(startTime)

		commandDuration.WithLabelValues(cmdName).Observe(duration.Seconds())

		status := successStatus
		if err != nil && !errors.Is(err, redis.Nil) {
			status = errorStatus
		}
		commandCounter.WithLabelValues(cmdName, status).Inc()

		return err
	}
}

// ProcessPipelineHook 处理Redis管道命令的指标收集
func (h *Hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		if len(cmds) == 0 {
			return next(ctx, cmds)
		}

		startTime := time.Now()
		err := next(ctx, cmds)
		duration := time.Since(startTime)

		status := successStatus
		if err != nil {
			status = errorStatus
		}
		for _, cmd := range cmds {
			commandDuration.WithLabelValues(cmd.Name()).Observe(duration.Seconds() / float64(len(cmds)))
			commandCounter.WithLabelValues(cmd.Name(), status).Inc()
		}

		return err
	}
}

// DialHook 处理Redis连接的指标收集
func (h *Hook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)

		status := successStatus
		if err != nil {
			status = errorStatus
		}
		connectionCounter.WithLabelValues(status).Inc()

		return conn, err
	}
}

// WithMetrics 为Redis客户端添加指标收集功能
func WithMetrics(client *redis.Client) *redis.Client {
	client.AddHook(NewMetricsHook())
	return client
}
