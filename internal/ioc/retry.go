package ioc

import (
	pkgretry "gitee.com/flycash/live-reminder-platform/internal/pkg/retry"
	"github.com/ecodeclub/ekit/retry"
	"github.com/gotomicro/ego/core/econf"
)

// InitRetryStrategyFactory 发送重试的间隔策略。
// 策略有内部状态，每次发送都要一个新实例，所以给的是工厂
func InitRetryStrategyFactory() func() retry.Strategy {
	cfg := pkgretry.Config{
		Type: "exponential",
		ExponentialBackoff: &pkgretry.ExponentialBackoffConfig{
			InitialInterval: 1000,
			MaxInterval:     10000,
			MaxRetries:      3,
		},
	}
	_ = econf.UnmarshalKey("dispatcher.retry", &cfg)
	return func() retry.Strategy {
		strategy, err := pkgretry.NewRetry(cfg)
		if err != nil {
			panic(err)
		}
		return strategy
	}
}
