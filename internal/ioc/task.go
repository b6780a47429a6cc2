package ioc

import (
	"context"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/repository"
	"gitee.com/flycash/live-reminder-platform/internal/service/dispatcher"
	"github.com/gotomicro/ego/core/econf"
	"github.com/meoying/dlock-go"
)

// Task 后台常驻任务
type Task interface {
	Start(ctx context.Context)
}

func InitDispatchCycleTask(
	dclient dlock.Client,
	d dispatcher.Dispatcher,
) *dispatcher.CycleTask {
	type Config struct {
		Interval time.Duration `yaml:"interval"`
	}
	var cfg Config
	_ = econf.UnmarshalKey("dispatcher", &cfg)
	return dispatcher.NewCycleTask(dclient, d, cfg.Interval)
}

func InitSendingTimeoutTask(
	dclient dlock.Client,
	repo repository.ReminderRepository,
) *dispatcher.SendingTimeoutTask {
	type Config struct {
		SendingTimeout time.Duration `yaml:"sendingTimeout"`
	}
	var cfg Config
	_ = econf.UnmarshalKey("dispatcher", &cfg)
	return dispatcher.NewSendingTimeoutTask(dclient, repo, cfg.SendingTimeout)
}

func InitTasks(t1 *dispatcher.CycleTask, t2 *dispatcher.SendingTimeoutTask) []Task {
	return []Task{
		t1,
		t2,
	}
}
