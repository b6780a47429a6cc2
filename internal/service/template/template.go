package template

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/repository"

	ca "github.com/patrickmn/go-cache"
)

// 模版变量使用 ${code} 格式
var variablePattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

const (
	defaultCacheExpiration = time.Minute
	defaultCleanupInterval = 10 * time.Minute
)

//go:generate mockgen -source=./template.go -destination=./mocks/template.mock.go -package=templatemocks -typed Service
type Service interface {
	// CreateTemplate 创建模板，新模板默认未激活
	CreateTemplate(ctx context.Context, tpl domain.ReminderTemplate) (domain.ReminderTemplate, error)

	// ActivateTemplate 激活模板，同分类其他模板同时失效
	ActivateTemplate(ctx context.Context, id int64) error

	// GetTemplate 根据ID获取模板
	GetTemplate(ctx context.Context, id int64) (domain.ReminderTemplate, error)

	// Render 用指定直播分类当前激活的模板渲染提醒内容。
	// 模板缺失和变量缺失都是终态错误，调用方不应该重试
	Render(ctx context.Context, category string, vars map[string]string) (domain.RenderedReminder, error)
}

type templateService struct {
	repo  repository.ReminderTemplateRepository
	local *ca.Cache
}

// NewService 创建模板服务实例
func NewService(repo repository.ReminderTemplateRepository) Service {
	return &templateService{
		repo:  repo,
		local: ca.New(defaultCacheExpiration, defaultCleanupInterval),
	}
}

func (s *templateService) CreateTemplate(ctx context.Context, tpl domain.ReminderTemplate) (domain.ReminderTemplate, error) {
	if err := tpl.Validate(); err != nil {
		return domain.ReminderTemplate{}, err
	}
	// 新建模板必须走激活流程才能生效
	tpl.Active = false
	return s.repo.Create(ctx, tpl)
}

func (s *templateService) ActivateTemplate(ctx context.Context, id int64) error {
	err := s.repo.Activate(ctx, id)
	if err != nil {
		return err
	}
	tpl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// 激活后旧缓存立刻失效，避免继续用上一个激活版本渲染
	s.local.Delete(s.cacheKey(tpl.Category))
	return nil
}

func (s *templateService) GetTemplate(ctx context.Context, id int64) (domain.ReminderTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *templateService) Render(ctx context.Context, category string, vars map[string]string) (domain.RenderedReminder, error) {
	tpl, err := s.getActive(ctx, category)
	if err != nil {
		return domain.RenderedReminder{}, err
	}

	var missing []string
	content := variablePattern.ReplaceAllStringFunc(tpl.Content, func(placeholder string) string {
		name := variablePattern.FindStringSubmatch(placeholder)[1]
		val, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return placeholder
		}
		return val
	})
	if len(missing) > 0 {
		return domain.RenderedReminder{}, fmt.Errorf("%w: 模板 id=%d 缺少变量 %v", errs.ErrRenderFailed, tpl.ID, missing)
	}

	return domain.RenderedReminder{
		Channel:   tpl.Channel,
		Content:   content,
		Variables: vars,
	}, nil
}

func (s *templateService) getActive(ctx context.Context, category string) (domain.ReminderTemplate, error) {
	key := s.cacheKey(category)
	if v, ok := s.local.Get(key); ok {
		return v.(domain.ReminderTemplate), nil
	}
	tpl, err := s.repo.GetActiveByCategory(ctx, category)
	if err != nil {
		return domain.ReminderTemplate{}, err
	}
	s.local.Set(key, tpl, defaultCacheExpiration)
	return tpl, nil
}

func (s *templateService) cacheKey(category string) string {
	return fmt.Sprintf("reminder:tpl:active:%s", category)
}
