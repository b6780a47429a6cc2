package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/repository"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"gitee.com/flycash/live-reminder-platform/internal/service/template"

	"github.com/ecodeclub/ekit/retry"
	"github.com/gotomicro/ego/core/elog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 10
	defaultMaxAttempts = int8(3)
	defaultGraceWindow = time.Minute
	defaultSendTimeout = 5 * time.Second
)

// Config 分发器配置，零值字段取默认值
type Config struct {
	// BatchSize 单轮最多处理的提醒条数
	BatchSize int
	// Concurrency 单轮内的发送并发度
	Concurrency int
	// MaxAttempts 每条提醒的最大发送次数，含第一次
	MaxAttempts int8
	// GraceWindow 宽限窗口。触发时间落后 now 超过这个窗口的
	// Pending 提醒不再发送，直接取消
	GraceWindow time.Duration
	// SendTimeout 单次投递的超时时间
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = defaultGraceWindow
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}
	return c
}

// CycleResult 一轮分发的统计
type CycleResult struct {
	// Claimed 本轮成功认领的条数
	Claimed int
	// Sent 发送成功条数
	Sent int
	// Failed 进入失败终态的条数
	Failed int
	// Canceled 本轮取消的条数，含超窗和直播状态变化两种来源
	Canceled int
	// Skipped 被其他实例抢先认领而跳过的条数
	Skipped int
}

// Dispatcher 提醒分发器。每轮扫描到期的 Pending 提醒，
// 认领后渲染并投递，单条提醒的失败不影响本轮的其他提醒
//
//go:generate mockgen -source=./dispatcher.go -destination=./mocks/dispatcher.mock.go -package=dispatchermocks -typed Dispatcher
type Dispatcher interface {
	// RunCycle 以 now 为当前时刻执行一轮分发。
	// 返回的 error 是本轮所有单条错误的聚合，调用方只用来记日志
	RunCycle(ctx context.Context, now time.Time) (CycleResult, error)
}

type dispatcher struct {
	reminderRepo  repository.ReminderRepository
	streamRepo    repository.StreamRepository
	templateSvc   template.Service
	builder       gateway.Builder
	retryStrategy func() retry.Strategy
	cfg           Config
	logger        *elog.Component
}

// NewDispatcher 创建分发器实例。retryStrategy 每条提醒调用一次，
// 产出的策略只决定重试之间的等待间隔，次数上限由 MaxAttempts 管
func NewDispatcher(
	reminderRepo repository.ReminderRepository,
	streamRepo repository.StreamRepository,
	templateSvc template.Service,
	builder gateway.Builder,
	retryStrategy func() retry.Strategy,
	cfg Config,
) Dispatcher {
	return &dispatcher{
		reminderRepo:  reminderRepo,
		streamRepo:    streamRepo,
		templateSvc:   templateSvc,
		builder:       builder,
		retryStrategy: retryStrategy,
		cfg:           cfg.withDefaults(),
		logger:        elog.DefaultLogger,
	}
}

func (d *dispatcher) RunCycle(ctx context.Context, now time.Time) (CycleResult, error) {
	var result CycleResult
	var errList *multierror.Error

	// 先把已经滑出宽限窗口的提醒清掉，它们不该再打扰用户
	missed, err := d.reminderRepo.MarkMissedWindowAsCanceled(ctx, now.Add(-d.cfg.GraceWindow), d.cfg.BatchSize)
	if err != nil {
		errList = multierror.Append(errList, fmt.Errorf("清理超窗提醒失败: %w", err))
	}
	result.Canceled += int(missed)

	due, err := d.reminderRepo.FindDue(ctx, now, d.cfg.GraceWindow, d.cfg.BatchSize)
	if err != nil {
		errList = multierror.Append(errList, fmt.Errorf("查询到期提醒失败: %w", err))
		return result, errList.ErrorOrNil()
	}
	if len(due) == 0 {
		return result, errList.ErrorOrNil()
	}

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(d.cfg.Concurrency)
	for i := range due {
		ob := due[i]
		eg.Go(func() error {
			outcome, er := d.dispatch(ctx, ob, now)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSent:
				result.Claimed++
				result.Sent++
			case outcomeFailed:
				result.Claimed++
				result.Failed++
			case outcomeCanceled:
				result.Canceled++
			case outcomeSkipped:
				result.Skipped++
			}
			if er != nil {
				errList = multierror.Append(errList, fmt.Errorf("提醒 id=%d: %w", ob.ID, er))
			}
			// 单条失败不中断本轮
			return nil
		})
	}
	//nolint:errcheck // goroutine 里永远返回 nil
	_ = eg.Wait()

	aggErr := errList.ErrorOrNil()
	if aggErr != nil {
		d.logger.Warn("本轮分发存在失败",
			elog.Int("due", len(due)),
			elog.Any("result", result),
			elog.FieldErr(aggErr))
	}
	return result, aggErr
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
	outcomeCanceled
)

func (d *dispatcher) dispatch(ctx context.Context, ob domain.ReminderObligation, now time.Time) (outcome, error) {
	stream, err := d.streamRepo.GetByID(ctx, ob.StreamID)
	if err != nil {
		// 查不到直播先不动这条提醒，留给下一轮
		return outcomeSkipped, err
	}

	// 直播不在排期状态了，提醒没有意义
	if stream.Status != domain.StreamStatusScheduled {
		reason := domain.CancelReasonStreamNotScheduled
		if stream.Status == domain.StreamStatusCanceled {
			reason = domain.CancelReasonStreamCanceled
		}
		if er := d.reminderRepo.Cancel(ctx, ob.ID, reason); er != nil {
			if errors.Is(er, errs.ErrObligationVersionMismatch) {
				// 已经被别的实例处理了
				return outcomeSkipped, nil
			}
			return outcomeSkipped, er
		}
		return outcomeCanceled, nil
	}

	// CAS 认领，并发实例下同一条提醒只会有一个赢家
	err = d.reminderRepo.Claim(ctx, ob.ID, ob.Version)
	if err != nil {
		if errors.Is(err, errs.ErrObligationVersionMismatch) {
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}

	rendered, err := d.templateSvc.Render(ctx, stream.Category, d.templateVars(ob, stream))
	if err != nil {
		// 模板缺失和变量缺失重试也不会好，直接失败
		if er := d.reminderRepo.MarkFailed(ctx, ob.ID, ob.Attempts); er != nil {
			return outcomeFailed, errors.Join(err, er)
		}
		return outcomeFailed, err
	}

	return d.send(ctx, ob, rendered, now)
}

// send 投递渲染好的提醒，失败按固定的次数上限重试
func (d *dispatcher) send(ctx context.Context, ob domain.ReminderObligation, rendered domain.RenderedReminder, now time.Time) (outcome, error) {
	selector, err := d.builder.Build()
	if err != nil {
		if er := d.reminderRepo.MarkFailed(ctx, ob.ID, ob.Attempts); er != nil {
			return outcomeFailed, errors.Join(err, er)
		}
		return outcomeFailed, err
	}

	msg := gateway.Message{
		IdempotencyKey: idempotencyKey(ob.ID),
		Receiver:       ob.Receiver,
		Channel:        rendered.Channel,
		Content:        rendered.Content,
		Variables:      rendered.Variables,
	}

	strategy := d.retryStrategy()
	attempts := ob.Attempts
	var lastErr error
	for attempts < d.cfg.MaxAttempts {
		attempts++

		gw, er := selector.Next(ctx, msg)
		if er != nil {
			if errors.Is(er, errs.ErrNoAvailableGateway) {
				// 网关轮了一圈，从头再来
				selector, er = d.builder.Build()
				if er != nil {
					lastErr = er
					break
				}
				gw, er = selector.Next(ctx, msg)
			}
			if er != nil {
				lastErr = er
				break
			}
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		receipt, sendErr := gw.Send(sendCtx, msg)
		cancel()
		if sendErr == nil && receipt.Status == gateway.SendStatusSucceeded {
			if er := d.reminderRepo.MarkSent(ctx, ob.ID, attempts, now); er != nil {
				return outcomeSent, er
			}
			return outcomeSent, nil
		}
		if sendErr == nil {
			sendErr = fmt.Errorf("%w: 网关回执状态 %s", errs.ErrSendReminderFailed, receipt.Status)
		}
		lastErr = sendErr

		if attempts >= d.cfg.MaxAttempts {
			break
		}
		interval, ok := strategy.Next()
		if !ok {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			lastErr = errors.Join(lastErr, ctx.Err())
		}
		if ctx.Err() != nil {
			break
		}
	}

	if er := d.reminderRepo.MarkFailed(ctx, ob.ID, attempts); er != nil {
		return outcomeFailed, errors.Join(lastErr, er)
	}
	return outcomeFailed, lastErr
}

func (d *dispatcher) templateVars(ob domain.ReminderObligation, stream domain.Stream) map[string]string {
	return map[string]string{
		"userName":  ob.UserName,
		"title":     stream.Title,
		"artist":    stream.Artist,
		"startTime": stream.ScheduledStartTime.Format("2006-01-02 15:04"),
		"leadTime":  ob.LeadTime.String(),
	}
}

func idempotencyKey(obligationID int64) string {
	return "reminder-" + strconv.FormatInt(obligationID, 10)
}
