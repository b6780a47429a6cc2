package repository

import (
	"context"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/repository/dao"
)

// ReminderTemplateRepository 提醒模板仓储接口
type ReminderTemplateRepository interface {
	// Create 创建模板
	Create(ctx context.Context, tpl domain.ReminderTemplate) (domain.ReminderTemplate, error)

	// GetByID 根据ID获取模板
	GetByID(ctx context.Context, id int64) (domain.ReminderTemplate, error)

	// GetActiveByCategory 获取一个直播分类当前激活的模板
	GetActiveByCategory(ctx context.Context, category string) (domain.ReminderTemplate, error)

	// Activate 激活模板
	Activate(ctx context.Context, id int64) error
}

type reminderTemplateRepository struct {
	dao dao.ReminderTemplateDAO
}

// NewReminderTemplateRepository 创建模板仓储实例
func NewReminderTemplateRepository(d dao.ReminderTemplateDAO) ReminderTemplateRepository {
	return &reminderTemplateRepository{
		dao: d,
	}
}

func (r *reminderTemplateRepository) Create(ctx context.Context, tpl domain.ReminderTemplate) (domain.ReminderTemplate, error) {
	created, err := r.dao.Create(ctx, r.toEntity(tpl))
	if err != nil {
		return domain.ReminderTemplate{}, err
	}
	return r.toDomain(created), nil
}

func (r *reminderTemplateRepository) GetByID(ctx context.Context, id int64) (domain.ReminderTemplate, error) {
	tpl, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.ReminderTemplate{}, err
	}
	return r.toDomain(tpl), nil
}

func (r *reminderTemplateRepository) GetActiveByCategory(ctx context.Context, category string) (domain.ReminderTemplate, error) {
	tpl, err := r.dao.GetActiveByCategory(ctx, category)
	if err != nil {
		return domain.ReminderTemplate{}, err
	}
	return r.toDomain(tpl), nil
}

func (r *reminderTemplateRepository) Activate(ctx context.Context, id int64) error {
	return r.dao.Activate(ctx, id)
}

func (r *reminderTemplateRepository) toEntity(t domain.ReminderTemplate) dao.ReminderTemplate {
	return dao.ReminderTemplate{
		ID:       t.ID,
		Category: t.Category,
		Channel:  t.Channel.String(),
		Name:     t.Name,
		Content:  t.Content,
		Active:   t.Active,
	}
}

func (r *reminderTemplateRepository) toDomain(t dao.ReminderTemplate) domain.ReminderTemplate {
	return domain.ReminderTemplate{
		ID:       t.ID,
		Category: t.Category,
		Channel:  domain.Channel(t.Channel),
		Name:     t.Name,
		Content:  t.Content,
		Active:   t.Active,
	}
}
