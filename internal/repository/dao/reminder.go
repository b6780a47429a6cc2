package dao

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"

	"github.com/ego-component/egorm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReminderDAO interface {
	// Create 创建单条提醒记录，唯一键冲突返回 ErrObligationDuplicate
	Create(ctx context.Context, data ReminderObligation) (ReminderObligation, error)

	// BatchCreate 批量创建提醒记录，唯一键冲突的行静默跳过，返回实际创建条数
	BatchCreate(ctx context.Context, datas []ReminderObligation) (int64, error)

	// GetByID 根据ID查询提醒
	GetByID(ctx context.Context, id int64) (ReminderObligation, error)

	// GetByKey 根据唯一键查询提醒
	GetByKey(ctx context.Context, userID, streamID int64, leadTime string) (ReminderObligation, error)

	// FindByStream 查询一个直播的全部提醒
	FindByStream(ctx context.Context, streamID int64) ([]ReminderObligation, error)

	// FindDue 查询宽限窗口内到期的 Pending 提醒，按触发时间升序
	FindDue(ctx context.Context, now, grace int64, limit int) ([]ReminderObligation, error)

	// Claim 认领，PENDING -> SENDING 的条件更新。
	// 0行生效说明别的实例抢先了，返回 ErrObligationVersionMismatch
	Claim(ctx context.Context, id int64, version int) error

	// MarkSent 发送成功，SENDING -> SENT
	MarkSent(ctx context.Context, id int64, attempts int8, sentTime int64) error

	// MarkFailed 发送失败，SENDING -> FAILED
	MarkFailed(ctx context.Context, id int64, attempts int8) error

	// Cancel 取消单条 Pending 提醒并记录原因
	Cancel(ctx context.Context, id int64, reason string) error

	// CancelAllPending 取消一个直播的全部 Pending 提醒，返回取消条数
	CancelAllPending(ctx context.Context, streamID int64, reason string) (int64, error)

	// MarkMissedWindowAsCanceled 把滑出宽限窗口仍然 Pending 的提醒取消掉，
	// 带上 MISSED_WINDOW 原因，保证可观测而不是静默丢弃
	MarkMissedWindowAsCanceled(ctx context.Context, deadline int64, batchSize int) (int64, error)

	// MarkTimeoutSendingAsFailed 认领后卡死的提醒兜底置为失败
	MarkTimeoutSendingAsFailed(ctx context.Context, deadline int64, batchSize int) (int64, error)

	// ResyncFireTimes 按新开播时间重算 Pending 提醒的触发时间，
	// 重算后已过期的取消。事件消费者做最终一致性收敛时使用
	ResyncFireTimes(ctx context.Context, streamID, newStartTime, now int64) error
}

// ReminderObligation 提醒记录表
type ReminderObligation struct {
	ID           int64  `gorm:"primaryKey;comment:'雪花算法ID'"`
	UserID       int64  `gorm:"NOT NULL;uniqueIndex:idx_user_stream_lead,priority:1;comment:'用户ID'"`
	UserName     string `gorm:"type:VARCHAR(128);NOT NULL;comment:'用户名，渲染提醒时使用'"`
	Receiver     string `gorm:"type:VARCHAR(256);NOT NULL;comment:'接收者(手机/邮箱/用户ID)'"`
	StreamID     int64  `gorm:"NOT NULL;uniqueIndex:idx_user_stream_lead,priority:2;index:idx_stream_status,priority:1;comment:'关联的直播ID'"`
	LeadTime     string `gorm:"type:ENUM('24H','1H','15MIN');NOT NULL;uniqueIndex:idx_user_stream_lead,priority:3;comment:'提前量'"`
	FireTime     int64  `gorm:"NOT NULL;index:idx_fire_time_status,priority:1;comment:'触发时间，毫秒时间戳，创建时由开播时间推导'"`
	Status       string `gorm:"type:ENUM('PENDING','SENDING','SENT','FAILED','CANCELED');DEFAULT:'PENDING';index:idx_fire_time_status,priority:2;index:idx_stream_status,priority:2;comment:'状态'"`
	Attempts     int8   `gorm:"NOT NULL;DEFAULT:0;comment:'已发送次数'"`
	CancelReason string `gorm:"type:VARCHAR(64);comment:'取消原因'"`
	SentTime     int64  `gorm:"comment:'发送成功时间'"`
	Version      int    `gorm:"type:INT;NOT NULL;DEFAULT:1;comment:'版本号，用于CAS操作'"`
	Ctime        int64
	Utime        int64
}

type reminderDAO struct {
	db *egorm.Component
}

// NewReminderDAO 创建提醒DAO实例
func NewReminderDAO(db *egorm.Component) ReminderDAO {
	return &reminderDAO{
		db: db,
	}
}

func (d *reminderDAO) Create(ctx context.Context, data ReminderObligation) (ReminderObligation, error) {
	now := time.Now().UnixMilli()
	data.Ctime, data.Utime = now, now
	data.Version = 1

	err := d.db.WithContext(ctx).Create(&data).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return ReminderObligation{}, fmt.Errorf("%w", errs.ErrObligationDuplicate)
		}
		return ReminderObligation{}, err
	}
	return data, nil
}

func (d *reminderDAO) BatchCreate(ctx context.Context, datas []ReminderObligation) (int64, error) {
	if len(datas) == 0 {
		return 0, nil
	}

	const batchSize = 100
	now := time.Now().UnixMilli()
	for i := range datas {
		datas[i].Ctime, datas[i].Utime = now, now
		datas[i].Version = 1
	}

	// 唯一键冲突直接跳过，重复创建是幂等的空操作
	res := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(datas, batchSize)
	return res.RowsAffected, res.Error
}

func (d *reminderDAO) GetByID(ctx context.Context, id int64) (ReminderObligation, error) {
	var ob ReminderObligation
	err := d.db.WithContext(ctx).First(&ob, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReminderObligation{}, fmt.Errorf("%w: id=%d", errs.ErrObligationNotFound, id)
		}
		return ReminderObligation{}, err
	}
	return ob, nil
}

func (d *reminderDAO) GetByKey(ctx context.Context, userID, streamID int64, leadTime string) (ReminderObligation, error) {
	var ob ReminderObligation
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND stream_id = ? AND lead_time = ?", userID, streamID, leadTime).
		First(&ob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReminderObligation{}, fmt.Errorf("%w: userID=%d, streamID=%d, leadTime=%s",
				errs.ErrObligationNotFound, userID, streamID, leadTime)
		}
		return ReminderObligation{}, err
	}
	return ob, nil
}

func (d *reminderDAO) FindByStream(ctx context.Context, streamID int64) ([]ReminderObligation, error) {
	var obs []ReminderObligation
	err := d.db.WithContext(ctx).Where("stream_id = ?", streamID).Find(&obs).Error
	if err != nil {
		return nil, fmt.Errorf("查询直播提醒列表失败: %w", err)
	}
	return obs, nil
}

func (d *reminderDAO) FindDue(ctx context.Context, now, grace int64, limit int) ([]ReminderObligation, error) {
	var res []ReminderObligation
	err := d.db.WithContext(ctx).
		Where("status = ? AND fire_time <= ? AND fire_time > ?",
			domain.ObligationStatusPending.String(), now, now-grace).
		Order("fire_time ASC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (d *reminderDAO) Claim(ctx context.Context, id int64, version int) error {
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("id = ? AND version = ? AND status = ?",
			id, version, domain.ObligationStatusPending.String()).
		Updates(map[string]any{
			"status":  domain.ObligationStatusSending.String(),
			"version": gorm.Expr("version + 1"),
			"utime":   time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("并发竞争失败 %w, id %d", errs.ErrObligationVersionMismatch, id)
	}
	return nil
}

func (d *reminderDAO) MarkSent(ctx context.Context, id int64, attempts int8, sentTime int64) error {
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("id = ? AND status = ?", id, domain.ObligationStatusSending.String()).
		Updates(map[string]any{
			"status":    domain.ObligationStatusSent.String(),
			"attempts":  attempts,
			"sent_time": sentTime,
			"version":   gorm.Expr("version + 1"),
			"utime":     time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("%w, id %d", errs.ErrObligationVersionMismatch, id)
	}
	return nil
}

func (d *reminderDAO) MarkFailed(ctx context.Context, id int64, attempts int8) error {
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("id = ? AND status = ?", id, domain.ObligationStatusSending.String()).
		Updates(map[string]any{
			"status":   domain.ObligationStatusFailed.String(),
			"attempts": attempts,
			"version":  gorm.Expr("version + 1"),
			"utime":    time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("%w, id %d", errs.ErrObligationVersionMismatch, id)
	}
	return nil
}

func (d *reminderDAO) Cancel(ctx context.Context, id int64, reason string) error {
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("id = ? AND status = ?", id, domain.ObligationStatusPending.String()).
		Updates(map[string]any{
			"status":        domain.ObligationStatusCanceled.String(),
			"cancel_reason": reason,
			"version":       gorm.Expr("version + 1"),
			"utime":         time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("%w, id %d", errs.ErrObligationVersionMismatch, id)
	}
	return nil
}

func (d *reminderDAO) CancelAllPending(ctx context.Context, streamID int64, reason string) (int64, error) {
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("stream_id = ? AND status = ?", streamID, domain.ObligationStatusPending.String()).
		Updates(map[string]any{
			"status":        domain.ObligationStatusCanceled.String(),
			"cancel_reason": reason,
			"version":       gorm.Expr("version + 1"),
			"utime":         time.Now().UnixMilli(),
		})
	return res.RowsAffected, res.Error
}

func (d *reminderDAO) MarkMissedWindowAsCanceled(ctx context.Context, deadline int64, batchSize int) (int64, error) {
	now := time.Now().UnixMilli()
	sub := d.db.Model(&ReminderObligation{}).
		Select("id").
		Limit(batchSize).
		Where("status = ? AND fire_time <= ?", domain.ObligationStatusPending.String(), deadline)
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("id IN (?)", sub).
		Updates(map[string]any{
			"status":        domain.ObligationStatusCanceled.String(),
			"cancel_reason": domain.CancelReasonMissedWindow,
			"version":       gorm.Expr("version + 1"),
			"utime":         now,
		})
	return res.RowsAffected, res.Error
}

func (d *reminderDAO) MarkTimeoutSendingAsFailed(ctx context.Context, deadline int64, batchSize int) (int64, error) {
	now := time.Now().UnixMilli()
	sub := d.db.Model(&ReminderObligation{}).
		Select("id").
		Limit(batchSize).
		Where("status = ? AND utime <= ?", domain.ObligationStatusSending.String(), deadline)
	res := d.db.WithContext(ctx).Model(&ReminderObligation{}).
		Where("id IN (?)", sub).
		Updates(map[string]any{
			"status":  domain.ObligationStatusFailed.String(),
			"version": gorm.Expr("version + 1"),
			"utime":   now,
		})
	return res.RowsAffected, res.Error
}

func (d *reminderDAO) ResyncFireTimes(ctx context.Context, streamID, newStartTime, now int64) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resyncPendingFireTimes(tx, streamID, newStartTime, now); err != nil {
			return err
		}
		return cancelPendingFiredBefore(tx, streamID, now, domain.CancelReasonRescheduledToPast)
	})
}

// resyncPendingFireTimes 对一个直播的全部 Pending 提醒重新套用
// 触发时间公式 fire_time = 开播时间 - 提前量
func resyncPendingFireTimes(tx *gorm.DB, streamID, newStartTime, now int64) error {
	var b strings.Builder
	args := make([]any, 0, 2*len(domain.AllLeadTimes())+1)
	args = append(args, newStartTime)
	b.WriteString("? - (CASE lead_time")
	for _, lt := range domain.AllLeadTimes() {
		b.WriteString(" WHEN ? THEN ?")
		args = append(args, lt.String(), lt.Duration().Milliseconds())
	}
	b.WriteString(" END)")

	return tx.Model(&ReminderObligation{}).
		Where("stream_id = ? AND status = ?", streamID, domain.ObligationStatusPending.String()).
		Updates(map[string]any{
			"fire_time": gorm.Expr(b.String(), args...),
			"version":   gorm.Expr("version + 1"),
			"utime":     now,
		}).Error
}

// cancelPendingFiredBefore 取消触发时间早于 deadline 的 Pending 提醒
func cancelPendingFiredBefore(tx *gorm.DB, streamID, deadline int64, reason string) error {
	return tx.Model(&ReminderObligation{}).
		Where("stream_id = ? AND status = ? AND fire_time <= ?",
			streamID, domain.ObligationStatusPending.String(), deadline).
		Updates(map[string]any{
			"status":        domain.ObligationStatusCanceled.String(),
			"cancel_reason": reason,
			"version":       gorm.Expr("version + 1"),
			"utime":         deadline,
		}).Error
}
