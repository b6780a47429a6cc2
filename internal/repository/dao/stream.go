package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"

	"github.com/ego-component/egorm"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type StreamDAO interface {
	// Create 创建直播记录
	Create(ctx context.Context, data Stream) (Stream, error)

	// GetByID 根据ID查询直播
	GetByID(ctx context.Context, id int64) (Stream, error)

	// Reschedule 改期。直播记录的版本CAS、Pending提醒的触发时间重算、
	// 重算后已过期提醒的取消，三者在同一个事务里完成，
	// 调用方看不到提醒引用旧开播时间的中间状态
	Reschedule(ctx context.Context, id int64, newStartTime int64, version int, now int64) error

	// CASStatus 条件更新状态，只有当前状态等于 from 时才会成功
	CASStatus(ctx context.Context, id int64, from, to domain.StreamStatus) error

	// UpdateActualViewers 更新实际观看人数
	UpdateActualViewers(ctx context.Context, id, viewers int64) error
}

// Stream 直播记录表
type Stream struct {
	ID                 int64  `gorm:"primaryKey;comment:'雪花算法ID'"`
	Title              string `gorm:"type:VARCHAR(256);NOT NULL;comment:'标题'"`
	Description        string `gorm:"type:TEXT;comment:'简介'"`
	Artist             string `gorm:"type:VARCHAR(128);NOT NULL;index:idx_artist;comment:'艺人'"`
	Category           string `gorm:"type:VARCHAR(64);NOT NULL;index:idx_category_status,priority:1;comment:'直播分类，决定提醒模板'"`
	ScheduledStartTime int64  `gorm:"NOT NULL;index:idx_start_time;comment:'计划开播时间，毫秒时间戳'"`
	ExpectedViewers    int64  `gorm:"comment:'预期观看人数'"`
	ActualViewers      int64  `gorm:"comment:'实际观看人数'"`
	Featured           bool   `gorm:"NOT NULL;DEFAULT:false;comment:'是否首页推荐'"`
	Status             string `gorm:"type:ENUM('SCHEDULED','LIVE','ENDED','CANCELED');DEFAULT:'SCHEDULED';index:idx_category_status,priority:2;comment:'生命周期状态'"`
	Version            int    `gorm:"type:INT;NOT NULL;DEFAULT:1;comment:'版本号，用于CAS操作'"`
	Ctime              int64
	Utime              int64
}

type streamDAO struct {
	db *egorm.Component
}

// NewStreamDAO 创建直播DAO实例
func NewStreamDAO(db *egorm.Component) StreamDAO {
	return &streamDAO{
		db: db,
	}
}

func (d *streamDAO) Create(ctx context.Context, data Stream) (Stream, error) {
	now := time.Now().UnixMilli()
	data.Ctime, data.Utime = now, now
	data.Version = 1

	err := d.db.WithContext(ctx).Create(&data).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return Stream{}, fmt.Errorf("%w", errs.ErrStreamDuplicate)
		}
		return Stream{}, err
	}
	return data, nil
}

func (d *streamDAO) GetByID(ctx context.Context, id int64) (Stream, error) {
	var stream Stream
	err := d.db.WithContext(ctx).First(&stream, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Stream{}, fmt.Errorf("%w: id=%d", errs.ErrStreamNotFound, id)
		}
		return Stream{}, err
	}
	return stream, nil
}

func (d *streamDAO) Reschedule(ctx context.Context, id int64, newStartTime int64, version int, now int64) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Stream{}).
			Where("id = ? AND version = ?", id, version).
			Updates(map[string]any{
				"scheduled_start_time": newStartTime,
				"version":              gorm.Expr("version + 1"),
				"utime":                now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected < 1 {
			return fmt.Errorf("并发竞争失败 %w, id %d", errs.ErrStreamVersionMismatch, id)
		}

		// 同一事务内重算该直播全部 Pending 提醒的触发时间
		if err := resyncPendingFireTimes(tx, id, newStartTime, now); err != nil {
			return err
		}

		// 重算后触发时间已经过去的提醒不能继续等着被发送，直接取消
		return cancelPendingFiredBefore(tx, id, now, domain.CancelReasonRescheduledToPast)
	})
}

func (d *streamDAO) CASStatus(ctx context.Context, id int64, from, to domain.StreamStatus) error {
	res := d.db.WithContext(ctx).Model(&Stream{}).
		Where("id = ? AND status = ?", id, from.String()).
		Updates(map[string]any{
			"status":  to.String(),
			"version": gorm.Expr("version + 1"),
			"utime":   time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("并发竞争失败 %w, id %d", errs.ErrStreamVersionMismatch, id)
	}
	return nil
}

func (d *streamDAO) UpdateActualViewers(ctx context.Context, id, viewers int64) error {
	return d.db.WithContext(ctx).Model(&Stream{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"actual_viewers": viewers,
			"utime":          time.Now().UnixMilli(),
		}).Error
}

// isUniqueConstraintError 检查是否是唯一索引冲突错误
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	me := new(mysql.MySQLError)
	if ok := errors.As(err, &me); ok {
		const uniqueIndexErrNo uint16 = 1062
		return me.Number == uniqueIndexErrNo
	}
	return false
}
