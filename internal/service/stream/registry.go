package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	streamevt "gitee.com/flycash/live-reminder-platform/internal/event/stream"
	"gitee.com/flycash/live-reminder-platform/internal/repository"
	"gitee.com/flycash/live-reminder-platform/internal/service/planner"

	"github.com/ecodeclub/ekit/retry"
	"github.com/gofrs/uuid"
	"github.com/gotomicro/ego/core/elog"
	"github.com/sony/sonyflake"
)

// Registry 直播排期注册服务
//
//go:generate mockgen -source=./registry.go -destination=./mocks/registry.mock.go -package=streammocks -typed Registry
type Registry interface {
	// Create 创建直播，初始状态是已排期
	Create(ctx context.Context, stream domain.Stream) (domain.Stream, error)

	// GetByID 根据ID获取直播
	GetByID(ctx context.Context, id int64) (domain.Stream, error)

	// Reschedule 改期。只有已排期的直播可以改期，
	// 直播改时间和提醒触发时间重算在同一个事务里完成
	Reschedule(ctx context.Context, id int64, newStart time.Time) (domain.Stream, error)

	// Transition 直播状态流转，不合法的流转返回错误。
	// 流转到已取消会同时取消全部 Pending 提醒
	Transition(ctx context.Context, id int64, to domain.StreamStatus) error

	// UpdateActualViewers 回填实际观看人数
	UpdateActualViewers(ctx context.Context, id, viewers int64) error
}

// RegistryConfig 注册服务配置
type RegistryConfig struct {
	// AllowPastStart 是否允许补录开播时间在过去的直播，
	// 历史数据导入场景使用，线上默认关
	AllowPastStart bool
}

type registry struct {
	streamRepo    repository.StreamRepository
	plannerSvc    planner.Service
	idGenerator   *sonyflake.Sonyflake
	rescheduled   streamevt.RescheduledEventProducer
	cancelled     streamevt.CancelledEventProducer
	retryStrategy func() retry.Strategy
	cfg           RegistryConfig
	nowFunc       func() time.Time
	logger        *elog.Component
}

// NewRegistry 创建直播排期注册服务实例
func NewRegistry(
	streamRepo repository.StreamRepository,
	plannerSvc planner.Service,
	idGenerator *sonyflake.Sonyflake,
	rescheduled streamevt.RescheduledEventProducer,
	cancelled streamevt.CancelledEventProducer,
	retryStrategy func() retry.Strategy,
	cfg RegistryConfig,
) Registry {
	return &registry{
		streamRepo:    streamRepo,
		plannerSvc:    plannerSvc,
		idGenerator:   idGenerator,
		rescheduled:   rescheduled,
		cancelled:     cancelled,
		retryStrategy: retryStrategy,
		cfg:           cfg,
		nowFunc:       time.Now,
		logger:        elog.DefaultLogger,
	}
}

func (r *registry) Create(ctx context.Context, stream domain.Stream) (domain.Stream, error) {
	if err := stream.Validate(); err != nil {
		return domain.Stream{}, err
	}
	if !r.cfg.AllowPastStart && !stream.ScheduledStartTime.After(r.nowFunc()) {
		return domain.Stream{}, fmt.Errorf("%w: 开播时间 %s 已经过去", errs.ErrInvalidParameter, stream.ScheduledStartTime)
	}

	id, err := r.generateID()
	if err != nil {
		return domain.Stream{}, err
	}
	stream.ID = id
	stream.Status = domain.StreamStatusScheduled
	stream.ActualViewers = 0

	created, err := r.streamRepo.Create(ctx, stream)
	if err != nil {
		if errors.Is(err, errs.ErrStreamDuplicate) {
			return domain.Stream{}, fmt.Errorf("%w", errs.ErrStreamDuplicate)
		}
		return domain.Stream{}, fmt.Errorf("创建直播失败: %w", err)
	}
	return created, nil
}

func (r *registry) GetByID(ctx context.Context, id int64) (domain.Stream, error) {
	return r.streamRepo.GetByID(ctx, id)
}

func (r *registry) Reschedule(ctx context.Context, id int64, newStart time.Time) (domain.Stream, error) {
	if newStart.IsZero() {
		return domain.Stream{}, fmt.Errorf("%w: 新开播时间不能为零值", errs.ErrInvalidParameter)
	}

	strategy := r.retryStrategy()
	var oldStart time.Time
	for {
		stream, err := r.streamRepo.GetByID(ctx, id)
		if err != nil {
			return domain.Stream{}, err
		}
		if stream.Status != domain.StreamStatusScheduled {
			return domain.Stream{}, fmt.Errorf("%w: 直播 id=%d 处于 %s 状态，不能改期", errs.ErrInvalidStreamState, id, stream.Status)
		}
		oldStart = stream.ScheduledStartTime

		err = r.streamRepo.Reschedule(ctx, id, newStart, stream.Version, r.nowFunc())
		if err == nil {
			break
		}
		if !errors.Is(err, errs.ErrStreamVersionMismatch) {
			return domain.Stream{}, err
		}
		// 版本冲突说明有并发改期，重新读最新版本再试
		interval, ok := strategy.Next()
		if !ok {
			return domain.Stream{}, fmt.Errorf("%w: 改期重试次数耗尽", errs.ErrStreamVersionMismatch)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return domain.Stream{}, ctx.Err()
		}
	}

	r.publishRescheduled(ctx, id, oldStart, newStart)
	return r.streamRepo.GetByID(ctx, id)
}

func (r *registry) Transition(ctx context.Context, id int64, to domain.StreamStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: 未知的目标状态 %s", errs.ErrInvalidParameter, to)
	}
	stream, err := r.streamRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !stream.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, stream.Status, to)
	}

	err = r.streamRepo.CASStatus(ctx, id, stream.Status, to)
	if err != nil {
		return err
	}

	if to == domain.StreamStatusCanceled {
		cancelled, er := r.plannerSvc.OnCancelled(ctx, id)
		if er != nil {
			// 提醒取消失败不回滚状态流转，事件消费侧会兜底收敛
			r.logger.Error("直播取消后取消提醒失败",
				elog.FieldErr(er),
				elog.Int64("streamID", id))
		} else {
			r.logger.Info("直播取消，提醒已取消",
				elog.Int64("streamID", id),
				elog.Int64("cancelled", cancelled))
		}
		r.publishCancelled(ctx, id)
	}
	return nil
}

func (r *registry) UpdateActualViewers(ctx context.Context, id, viewers int64) error {
	if viewers < 0 {
		return fmt.Errorf("%w: viewers = %d", errs.ErrInvalidParameter, viewers)
	}
	return r.streamRepo.UpdateActualViewers(ctx, id, viewers)
}

func (r *registry) publishRescheduled(ctx context.Context, id int64, oldStart, newStart time.Time) {
	if r.rescheduled == nil {
		return
	}
	evt := streamevt.RescheduledEvent{
		EventID:      r.newEventID(),
		StreamID:     id,
		OldStartTime: oldStart.UnixMilli(),
		NewStartTime: newStart.UnixMilli(),
	}
	if err := r.rescheduled.Produce(ctx, evt); err != nil {
		r.logger.Error("发布直播改期事件失败",
			elog.FieldErr(err),
			elog.Int64("streamID", id))
	}
}

func (r *registry) publishCancelled(ctx context.Context, id int64) {
	if r.cancelled == nil {
		return
	}
	evt := streamevt.CancelledEvent{
		EventID:  r.newEventID(),
		StreamID: id,
	}
	if err := r.cancelled.Produce(ctx, evt); err != nil {
		r.logger.Error("发布直播取消事件失败",
			elog.FieldErr(err),
			elog.Int64("streamID", id))
	}
}

func (r *registry) generateID() (int64, error) {
	id, err := r.idGenerator.NextID()
	if err != nil {
		return 0, fmt.Errorf("%w", errs.ErrIDGenerateFailed)
	}
	//nolint:gosec // sonyflake 的ID不会超过 int64 范围
	return int64(id), nil
}

func (r *registry) newEventID() string {
	return uuid.Must(uuid.NewV4()).String()
}
