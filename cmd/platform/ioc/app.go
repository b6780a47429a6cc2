package ioc

import (
	"context"

	streamevt "gitee.com/flycash/live-reminder-platform/internal/event/stream"
	"gitee.com/flycash/live-reminder-platform/internal/ioc"
	"github.com/gotomicro/ego/server/egin"
)

type App struct {
	WebServer *egin.Component
	Tasks     []ioc.Task
	Consumer  *streamevt.ScheduleChangeConsumer
}

func (a *App) StartTasks(ctx context.Context) {
	for _, t := range a.Tasks {
		go func(t ioc.Task) {
			t.Start(ctx)
		}(t)
	}
	a.Consumer.Start(ctx)
}
