package repository

import (
	"context"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/repository/dao"

	"github.com/ecodeclub/ekit/slice"
)

// ReminderRepository 提醒仓储接口
type ReminderRepository interface {
	// Create 创建一条提醒
	Create(ctx context.Context, ob domain.ReminderObligation) (domain.ReminderObligation, error)

	// BatchCreate 批量创建提醒，唯一键冲突的行幂等跳过，返回实际创建条数
	BatchCreate(ctx context.Context, obs []domain.ReminderObligation) (int64, error)

	// GetByID 根据ID获取提醒
	GetByID(ctx context.Context, id int64) (domain.ReminderObligation, error)

	// GetByKey 根据 (用户, 直播, 提前量) 唯一键获取提醒
	GetByKey(ctx context.Context, userID, streamID int64, leadTime domain.LeadTime) (domain.ReminderObligation, error)

	// FindByStream 获取一个直播的全部提醒
	FindByStream(ctx context.Context, streamID int64) ([]domain.ReminderObligation, error)

	// FindDue 获取宽限窗口内到期的 Pending 提醒，按触发时间升序
	FindDue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]domain.ReminderObligation, error)

	// Claim 认领提醒，保证并发分发器下同一条提醒至多被一个实例处理
	Claim(ctx context.Context, id int64, version int) error

	// MarkSent 标记发送成功
	MarkSent(ctx context.Context, id int64, attempts int8, sentTime time.Time) error

	// MarkFailed 标记发送失败
	MarkFailed(ctx context.Context, id int64, attempts int8) error

	// Cancel 取消单条提醒
	Cancel(ctx context.Context, id int64, reason string) error

	// CancelAllPending 取消一个直播的全部 Pending 提醒
	CancelAllPending(ctx context.Context, streamID int64, reason string) (int64, error)

	// MarkMissedWindowAsCanceled 取消滑出宽限窗口的 Pending 提醒
	MarkMissedWindowAsCanceled(ctx context.Context, deadline time.Time, batchSize int) (int64, error)

	// MarkTimeoutSendingAsFailed 认领后卡死的提醒兜底置为失败
	MarkTimeoutSendingAsFailed(ctx context.Context, deadline time.Time, batchSize int) (int64, error)

	// ResyncFireTimes 按新开播时间重算触发时间
	ResyncFireTimes(ctx context.Context, streamID int64, newStart, now time.Time) error
}

// reminderRepository 提醒仓储实现
type reminderRepository struct {
	dao dao.ReminderDAO
}

// NewReminderRepository 创建提醒仓储实例
func NewReminderRepository(d dao.ReminderDAO) ReminderRepository {
	return &reminderRepository{
		dao: d,
	}
}

func (r *reminderRepository) Create(ctx context.Context, ob domain.ReminderObligation) (domain.ReminderObligation, error) {
	created, err := r.dao.Create(ctx, r.toEntity(ob))
	if err != nil {
		return domain.ReminderObligation{}, err
	}
	return r.toDomain(created), nil
}

func (r *reminderRepository) BatchCreate(ctx context.Context, obs []domain.ReminderObligation) (int64, error) {
	return r.dao.BatchCreate(ctx, slice.Map(obs, func(_ int, src domain.ReminderObligation) dao.ReminderObligation {
		return r.toEntity(src)
	}))
}

func (r *reminderRepository) GetByID(ctx context.Context, id int64) (domain.ReminderObligation, error) {
	ob, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.ReminderObligation{}, err
	}
	return r.toDomain(ob), nil
}

func (r *reminderRepository) GetByKey(ctx context.Context, userID, streamID int64, leadTime domain.LeadTime) (domain.ReminderObligation, error) {
	ob, err := r.dao.GetByKey(ctx, userID, streamID, leadTime.String())
	if err != nil {
		return domain.ReminderObligation{}, err
	}
	return r.toDomain(ob), nil
}

func (r *reminderRepository) FindByStream(ctx context.Context, streamID int64) ([]domain.ReminderObligation, error) {
	obs, err := r.dao.FindByStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return slice.Map(obs, func(_ int, src dao.ReminderObligation) domain.ReminderObligation {
		return r.toDomain(src)
	}), nil
}

func (r *reminderRepository) FindDue(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]domain.ReminderObligation, error) {
	obs, err := r.dao.FindDue(ctx, now.UnixMilli(), grace.Milliseconds(), limit)
	if err != nil {
		return nil, err
	}
	return slice.Map(obs, func(_ int, src dao.ReminderObligation) domain.ReminderObligation {
		return r.toDomain(src)
	}), nil
}

func (r *reminderRepository) Claim(ctx context.Context, id int64, version int) error {
	return r.dao.Claim(ctx, id, version)
}

func (r *reminderRepository) MarkSent(ctx context.Context, id int64, attempts int8, sentTime time.Time) error {
	return r.dao.MarkSent(ctx, id, attempts, sentTime.UnixMilli())
}

func (r *reminderRepository) MarkFailed(ctx context.Context, id int64, attempts int8) error {
	return r.dao.MarkFailed(ctx, id, attempts)
}

func (r *reminderRepository) Cancel(ctx context.Context, id int64, reason string) error {
	return r.dao.Cancel(ctx, id, reason)
}

func (r *reminderRepository) CancelAllPending(ctx context.Context, streamID int64, reason string) (int64, error) {
	return r.dao.CancelAllPending(ctx, streamID, reason)
}

func (r *reminderRepository) MarkMissedWindowAsCanceled(ctx context.Context, deadline time.Time, batchSize int) (int64, error) {
	return r.dao.MarkMissedWindowAsCanceled(ctx, deadline.UnixMilli(), batchSize)
}

func (r *reminderRepository) MarkTimeoutSendingAsFailed(ctx context.Context, deadline time.Time, batchSize int) (int64, error) {
	return r.dao.MarkTimeoutSendingAsFailed(ctx, deadline.UnixMilli(), batchSize)
}

func (r *reminderRepository) ResyncFireTimes(ctx context.Context, streamID int64, newStart, now time.Time) error {
	return r.dao.ResyncFireTimes(ctx, streamID, newStart.UnixMilli(), now.UnixMilli())
}

func (r *reminderRepository) toEntity(o domain.ReminderObligation) dao.ReminderObligation {
	entity := dao.ReminderObligation{
		ID:           o.ID,
		UserID:       o.UserID,
		UserName:     o.UserName,
		Receiver:     o.Receiver,
		StreamID:     o.StreamID,
		LeadTime:     o.LeadTime.String(),
		FireTime:     o.FireTime.UnixMilli(),
		Status:       o.Status.String(),
		Attempts:     o.Attempts,
		CancelReason: o.CancelReason,
		Version:      o.Version,
	}
	if !o.SentTime.IsZero() {
		entity.SentTime = o.SentTime.UnixMilli()
	}
	return entity
}

func (r *reminderRepository) toDomain(o dao.ReminderObligation) domain.ReminderObligation {
	ob := domain.ReminderObligation{
		ID:           o.ID,
		UserID:       o.UserID,
		UserName:     o.UserName,
		Receiver:     o.Receiver,
		StreamID:     o.StreamID,
		LeadTime:     domain.LeadTime(o.LeadTime),
		FireTime:     time.UnixMilli(o.FireTime),
		Status:       domain.ObligationStatus(o.Status),
		Attempts:     o.Attempts,
		CancelReason: o.CancelReason,
		Version:      o.Version,
	}
	if o.SentTime > 0 {
		ob.SentTime = time.UnixMilli(o.SentTime)
	}
	return ob
}
