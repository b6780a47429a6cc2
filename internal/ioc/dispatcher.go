package ioc

import (
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/repository"
	"gitee.com/flycash/live-reminder-platform/internal/service/dispatcher"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"gitee.com/flycash/live-reminder-platform/internal/service/template"
	"github.com/ecodeclub/ekit/retry"
	"github.com/gotomicro/ego/core/econf"
)

func InitDispatcher(
	reminderRepo repository.ReminderRepository,
	streamRepo repository.StreamRepository,
	templateSvc template.Service,
	builder gateway.Builder,
	retryStrategy func() retry.Strategy,
) dispatcher.Dispatcher {
	type Config struct {
		BatchSize   int           `yaml:"batchSize"`
		Concurrency int           `yaml:"concurrency"`
		MaxAttempts int8          `yaml:"maxAttempts"`
		GraceWindow time.Duration `yaml:"graceWindow"`
		SendTimeout time.Duration `yaml:"sendTimeout"`
	}
	var cfg Config
	_ = econf.UnmarshalKey("dispatcher", &cfg)
	return dispatcher.NewDispatcher(reminderRepo, streamRepo, templateSvc, builder, retryStrategy, dispatcher.Config{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		MaxAttempts: cfg.MaxAttempts,
		GraceWindow: cfg.GraceWindow,
		SendTimeout: cfg.SendTimeout,
	})
}
