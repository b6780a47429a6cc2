package repository

import (
	"context"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/repository/dao"
)

// StreamRepository 直播仓储接口
type StreamRepository interface {
	// Create 创建直播
	Create(ctx context.Context, stream domain.Stream) (domain.Stream, error)

	// GetByID 根据ID获取直播
	GetByID(ctx context.Context, id int64) (domain.Stream, error)

	// Reschedule 改期，直播更新和提醒重算对调用方是原子的
	Reschedule(ctx context.Context, id int64, newStart time.Time, version int, now time.Time) error

	// CASStatus 条件更新直播状态
	CASStatus(ctx context.Context, id int64, from, to domain.StreamStatus) error

	// UpdateActualViewers 更新实际观看人数
	UpdateActualViewers(ctx context.Context, id, viewers int64) error
}

// streamRepository 直播仓储实现
type streamRepository struct {
	dao dao.StreamDAO
}

// NewStreamRepository 创建直播仓储实例
func NewStreamRepository(d dao.StreamDAO) StreamRepository {
	return &streamRepository{
		dao: d,
	}
}

func (r *streamRepository) Create(ctx context.Context, stream domain.Stream) (domain.Stream, error) {
	created, err := r.dao.Create(ctx, r.toEntity(stream))
	if err != nil {
		return domain.Stream{}, err
	}
	return r.toDomain(created), nil
}

func (r *streamRepository) GetByID(ctx context.Context, id int64) (domain.Stream, error) {
	stream, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Stream{}, err
	}
	return r.toDomain(stream), nil
}

func (r *streamRepository) Reschedule(ctx context.Context, id int64, newStart time.Time, version int, now time.Time) error {
	return r.dao.Reschedule(ctx, id, newStart.UnixMilli(), version, now.UnixMilli())
}

func (r *streamRepository) CASStatus(ctx context.Context, id int64, from, to domain.StreamStatus) error {
	return r.dao.CASStatus(ctx, id, from, to)
}

func (r *streamRepository) UpdateActualViewers(ctx context.Context, id, viewers int64) error {
	return r.dao.UpdateActualViewers(ctx, id, viewers)
}

func (r *streamRepository) toEntity(s domain.Stream) dao.Stream {
	return dao.Stream{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Artist:             s.Artist,
		Category:           s.Category,
		ScheduledStartTime: s.ScheduledStartTime.UnixMilli(),
		ExpectedViewers:    s.ExpectedViewers,
		ActualViewers:      s.ActualViewers,
		Featured:           s.Featured,
		Status:             s.Status.String(),
		Version:            s.Version,
	}
}

func (r *streamRepository) toDomain(s dao.Stream) domain.Stream {
	return domain.Stream{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Artist:             s.Artist,
		Category:           s.Category,
		ScheduledStartTime: time.UnixMilli(s.ScheduledStartTime),
		ExpectedViewers:    s.ExpectedViewers,
		ActualViewers:      s.ActualViewers,
		Featured:           s.Featured,
		Status:             domain.StreamStatus(s.Status),
		Version:            s.Version,
	}
}
