package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/errs"

	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

type ReminderTemplateDAO interface {
	// Create 创建模板
	Create(ctx context.Context, data ReminderTemplate) (ReminderTemplate, error)

	// GetByID 根据ID获取模板
	GetByID(ctx context.Context, id int64) (ReminderTemplate, error)

	// GetActiveByCategory 获取一个直播分类当前激活的模板
	GetActiveByCategory(ctx context.Context, category string) (ReminderTemplate, error)

	// Activate 激活指定模板，同分类的其他模板同时失效
	Activate(ctx context.Context, id int64) error
}

// ReminderTemplate 提醒模板表
type ReminderTemplate struct {
	ID       int64  `gorm:"primaryKey;autoIncrement;comment:'模板ID'"`
	Category string `gorm:"type:VARCHAR(64);NOT NULL;index:idx_category_active,priority:1;comment:'直播分类'"`
	Channel  string `gorm:"type:ENUM('SMS','EMAIL','IN_APP');NOT NULL;comment:'发送渠道'"`
	Name     string `gorm:"type:VARCHAR(128);NOT NULL;comment:'模板名称'"`
	Content  string `gorm:"type:TEXT;NOT NULL;comment:'模版变量使用${code}格式，也可以没有变量'"`
	Active   bool   `gorm:"NOT NULL;DEFAULT:false;index:idx_category_active,priority:2;comment:'是否激活'"`
	Ctime    int64
	Utime    int64
}

type reminderTemplateDAO struct {
	db *egorm.Component
}

// NewReminderTemplateDAO 创建模板DAO实例
func NewReminderTemplateDAO(db *egorm.Component) ReminderTemplateDAO {
	return &reminderTemplateDAO{
		db: db,
	}
}

func (d *reminderTemplateDAO) Create(ctx context.Context, data ReminderTemplate) (ReminderTemplate, error) {
	now := time.Now().UnixMilli()
	data.Ctime, data.Utime = now, now

	err := d.db.WithContext(ctx).Create(&data).Error
	if err != nil {
		return ReminderTemplate{}, err
	}
	return data, nil
}

func (d *reminderTemplateDAO) GetByID(ctx context.Context, id int64) (ReminderTemplate, error) {
	var tpl ReminderTemplate
	err := d.db.WithContext(ctx).First(&tpl, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReminderTemplate{}, fmt.Errorf("%w: id=%d", errs.ErrTemplateNotFound, id)
		}
		return ReminderTemplate{}, err
	}
	return tpl, nil
}

func (d *reminderTemplateDAO) GetActiveByCategory(ctx context.Context, category string) (ReminderTemplate, error) {
	var tpl ReminderTemplate
	err := d.db.WithContext(ctx).
		Where("category = ? AND active = ?", category, true).
		Order("utime DESC").
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReminderTemplate{}, fmt.Errorf("%w: category=%s", errs.ErrTemplateNotFound, category)
		}
		return ReminderTemplate{}, err
	}
	return tpl, nil
}

func (d *reminderTemplateDAO) Activate(ctx context.Context, id int64) error {
	now := time.Now().UnixMilli()
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tpl, err := d.getForUpdate(tx, id)
		if err != nil {
			return err
		}

		err = tx.Model(&ReminderTemplate{}).
			Where("category = ? AND active = ?", tpl.Category, true).
			Updates(map[string]any{
				"active": false,
				"utime":  now,
			}).Error
		if err != nil {
			return err
		}

		return tx.Model(&ReminderTemplate{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"active": true,
				"utime":  now,
			}).Error
	})
}

func (d *reminderTemplateDAO) getForUpdate(tx *gorm.DB, id int64) (ReminderTemplate, error) {
	var tpl ReminderTemplate
	err := tx.First(&tpl, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReminderTemplate{}, fmt.Errorf("%w: id=%d", errs.ErrTemplateNotFound, id)
		}
		return ReminderTemplate{}, err
	}
	return tpl, nil
}
