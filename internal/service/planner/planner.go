package planner

import (
	"context"
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/repository"

	"github.com/gotomicro/ego/core/elog"
)

// Service 提醒编排服务。订阅关系换算成一条条带触发时间的提醒记录
//
//go:generate mockgen -source=./planner.go -destination=./mocks/planner.mock.go -package=plannermocks -typed Service
type Service interface {
	// PlanFor 为一批订阅者按指定提前量生成提醒，返回实际创建条数。
	// 触发时间已经过去的提前量直接跳过，同一 (用户, 直播, 提前量) 重复编排幂等
	PlanFor(ctx context.Context, streamID int64, kinds []domain.LeadTime, subscribers []domain.Subscriber) (int64, error)

	// OnRescheduled 直播改期后重算 Pending 提醒的触发时间，
	// 重算后落在过去的提醒会被取消
	OnRescheduled(ctx context.Context, streamID int64, newStart time.Time) error

	// OnCancelled 直播取消后取消全部 Pending 提醒，返回取消条数
	OnCancelled(ctx context.Context, streamID int64) (int64, error)
}

type plannerService struct {
	streamRepo   repository.StreamRepository
	reminderRepo repository.ReminderRepository
	nowFunc      func() time.Time
	logger       *elog.Component
}

// NewService 创建提醒编排服务实例
func NewService(streamRepo repository.StreamRepository, reminderRepo repository.ReminderRepository) Service {
	return &plannerService{
		streamRepo:   streamRepo,
		reminderRepo: reminderRepo,
		nowFunc:      time.Now,
		logger:       elog.DefaultLogger,
	}
}

// NewServiceWithNowFunc 测试用，注入时钟
func NewServiceWithNowFunc(streamRepo repository.StreamRepository, reminderRepo repository.ReminderRepository, nowFunc func() time.Time) Service {
	return &plannerService{
		streamRepo:   streamRepo,
		reminderRepo: reminderRepo,
		nowFunc:      nowFunc,
		logger:       elog.DefaultLogger,
	}
}

func (s *plannerService) PlanFor(ctx context.Context, streamID int64, kinds []domain.LeadTime, subscribers []domain.Subscriber) (int64, error) {
	if len(subscribers) == 0 {
		return 0, nil
	}
	for i := range subscribers {
		if err := subscribers[i].Validate(); err != nil {
			return 0, err
		}
	}
	if len(kinds) == 0 {
		kinds = domain.AllLeadTimes()
	}
	for _, kind := range kinds {
		if !kind.IsValid() {
			return 0, fmt.Errorf("%w: 未知的提前量 %s", errs.ErrInvalidParameter, kind)
		}
	}

	stream, err := s.streamRepo.GetByID(ctx, streamID)
	if err != nil {
		return 0, err
	}
	// 只有还没开播的直播才需要编排提醒
	if stream.Status != domain.StreamStatusScheduled {
		return 0, fmt.Errorf("%w: 直播 id=%d 处于 %s 状态", errs.ErrInvalidStreamState, streamID, stream.Status)
	}

	now := s.nowFunc()
	obligations := make([]domain.ReminderObligation, 0, len(subscribers)*len(kinds))
	skipped := 0
	for _, sub := range subscribers {
		for _, kind := range kinds {
			fireTime := kind.FireTimeFor(stream.ScheduledStartTime)
			// 触发时间已经过去的提醒没有意义，不落库
			if !fireTime.After(now) {
				skipped++
				continue
			}
			obligations = append(obligations, domain.ReminderObligation{
				UserID:   sub.UserID,
				UserName: sub.UserName,
				Receiver: sub.Receiver,
				StreamID: stream.ID,
				LeadTime: kind,
				FireTime: fireTime,
				Status:   domain.ObligationStatusPending,
			})
		}
	}
	if skipped > 0 {
		s.logger.Info("跳过已过触发时间的提醒",
			elog.Int64("streamID", streamID),
			elog.Int("skipped", skipped))
	}
	if len(obligations) == 0 {
		return 0, nil
	}

	created, err := s.reminderRepo.BatchCreate(ctx, obligations)
	if err != nil {
		return 0, fmt.Errorf("批量创建提醒失败: %w", err)
	}
	return created, nil
}

func (s *plannerService) OnRescheduled(ctx context.Context, streamID int64, newStart time.Time) error {
	return s.reminderRepo.ResyncFireTimes(ctx, streamID, newStart, s.nowFunc())
}

func (s *plannerService) OnCancelled(ctx context.Context, streamID int64) (int64, error) {
	return s.reminderRepo.CancelAllPending(ctx, streamID, domain.CancelReasonStreamCanceled)
}
