package dispatcher

import (
	"context"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/pkg/loopjob"
	"gitee.com/flycash/live-reminder-platform/internal/repository"
	"github.com/meoying/dlock-go"
)

// CycleTask 周期性驱动分发器。分布式锁保证同一时刻
// 只有一个实例在跑分发循环
type CycleTask struct {
	dclient    dlock.Client
	dispatcher Dispatcher
	interval   time.Duration
}

func NewCycleTask(dclient dlock.Client, dispatcher Dispatcher, interval time.Duration) *CycleTask {
	const defaultInterval = 30 * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	return &CycleTask{
		dclient:    dclient,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

func (t *CycleTask) Start(ctx context.Context) {
	const key = "reminder_dispatch_cycle"
	lj := loopjob.NewInfiniteLoopWithInterval(t.dclient, t.runCycle, key, t.interval)
	lj.Run(ctx)
}

func (t *CycleTask) runCycle(ctx context.Context) error {
	result, err := t.dispatcher.RunCycle(ctx, time.Now())
	if err != nil {
		// RunCycle 内部已经聚合记录过，这里只决定要不要休眠
		return nil
	}
	// 本轮没活干，休息一个周期再扫
	if result.Claimed == 0 && result.Canceled == 0 {
		time.Sleep(t.interval)
	}
	return nil
}

// SendingTimeoutTask 认领后卡死的提醒兜底任务。
// 分发器实例崩溃会把提醒留在 SENDING，超时后统一置为失败
type SendingTimeoutTask struct {
	dclient dlock.Client
	repo    repository.ReminderRepository
	// timeout SENDING 状态的最长存活时间
	timeout time.Duration
}

func NewSendingTimeoutTask(dclient dlock.Client, repo repository.ReminderRepository, timeout time.Duration) *SendingTimeoutTask {
	const defaultTimeout = 3 * time.Minute
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SendingTimeoutTask{dclient: dclient, repo: repo, timeout: timeout}
}

func (t *SendingTimeoutTask) Start(ctx context.Context) {
	const key = "reminder_handling_sending_timeout"
	lj := loopjob.NewInfiniteLoop(t.dclient, t.HandleSendingTimeout, key)
	lj.Run(ctx)
}

func (t *SendingTimeoutTask) HandleSendingTimeout(ctx context.Context) error {
	const batchSize = 10
	const defaultSleepTime = time.Second * 10
	cnt, err := t.repo.MarkTimeoutSendingAsFailed(ctx, time.Now().Add(-t.timeout), batchSize)
	if err != nil {
		return err
	}
	// 说明 SENDING 的不多，可以休息一下
	if cnt < batchSize {
		time.Sleep(defaultSleepTime)
	}
	return nil
}
