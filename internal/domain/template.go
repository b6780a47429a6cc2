package domain

import (
	"fmt"

	"gitee.com/flycash/live-reminder-platform/internal/errs"
)

// Channel 发送渠道
type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
	ChannelInApp Channel = "IN_APP"
)

func (c Channel) String() string {
	return string(c)
}

func (c Channel) IsValid() bool {
	return c == ChannelSMS || c == ChannelEmail || c == ChannelInApp
}

// ReminderTemplate 提醒模板，按直播分类归属，同一分类同一时刻只有一个激活版本
type ReminderTemplate struct {
	ID       int64   // 模板ID
	Category string  // 直播分类
	Channel  Channel // 发送渠道
	Name     string  // 模板名称
	Content  string  // 模版变量使用${code}格式，也可以没有变量
	Active   bool    // 是否激活
}

func (t *ReminderTemplate) Validate() error {
	if t.Category == "" {
		return fmt.Errorf("%w: Category = %q", errs.ErrInvalidParameter, t.Category)
	}

	if !t.Channel.IsValid() {
		return fmt.Errorf("%w: Channel = %q", errs.ErrInvalidParameter, t.Channel)
	}

	if t.Name == "" {
		return fmt.Errorf("%w: Name = %q", errs.ErrInvalidParameter, t.Name)
	}

	if t.Content == "" {
		return fmt.Errorf("%w: Content = %q", errs.ErrInvalidParameter, t.Content)
	}

	return nil
}

// RenderedReminder 渲染后的提醒内容
type RenderedReminder struct {
	Channel   Channel           // 发送渠道
	Content   string            // 渲染后的文案
	Variables map[string]string // 渲染时使用的变量，短信渠道透传给供应商模板
}
