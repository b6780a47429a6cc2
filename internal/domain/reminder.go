package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/errs"
)

// LeadTime 提前量，封闭集合，每种提前量绑定一个固定时长
type LeadTime string

const (
	LeadTimeTwentyFourHours LeadTime = "24H"   // 提前二十四小时
	LeadTimeOneHour         LeadTime = "1H"    // 提前一小时
	LeadTimeFifteenMinutes  LeadTime = "15MIN" // 提前十五分钟
)

func (l LeadTime) String() string {
	return string(l)
}

// Duration 提前量对应的时长
func (l LeadTime) Duration() time.Duration {
	switch l {
	case LeadTimeTwentyFourHours:
		return 24 * time.Hour
	case LeadTimeOneHour:
		return time.Hour
	case LeadTimeFifteenMinutes:
		return 15 * time.Minute
	default:
		return 0
	}
}

func (l LeadTime) IsValid() bool {
	return l.Duration() > 0
}

// FireTimeFor 计算触发时间，永远是 开播时间 - 提前量
func (l LeadTime) FireTimeFor(scheduledStart time.Time) time.Time {
	return scheduledStart.Add(-l.Duration())
}

// AllLeadTimes 按时长从大到小枚举全部提前量，仅用于确定性遍历
func AllLeadTimes() []LeadTime {
	return []LeadTime{LeadTimeTwentyFourHours, LeadTimeOneHour, LeadTimeFifteenMinutes}
}

// ObligationStatus 提醒状态
type ObligationStatus string

const (
	ObligationStatusPending  ObligationStatus = "PENDING"  // 待发送
	ObligationStatusSending  ObligationStatus = "SENDING"  // 已被某个分发器实例认领
	ObligationStatusSent     ObligationStatus = "SENT"     // 发送成功
	ObligationStatusFailed   ObligationStatus = "FAILED"   // 发送失败
	ObligationStatusCanceled ObligationStatus = "CANCELED" // 已取消
)

func (s ObligationStatus) String() string {
	return string(s)
}

// IsTerminal SENT/FAILED/CANCELED 不再流转
func (s ObligationStatus) IsTerminal() bool {
	return s == ObligationStatusSent || s == ObligationStatusFailed || s == ObligationStatusCanceled
}

// 取消原因，写进记录方便排查，不参与业务分支
const (
	CancelReasonMissedWindow       = "MISSED_WINDOW"        // 超出宽限窗口
	CancelReasonStreamCanceled     = "STREAM_CANCELED"      // 直播被取消
	CancelReasonStreamNotScheduled = "STREAM_NOT_SCHEDULED" // 发送时直播已不在排期状态
	CancelReasonRescheduledToPast  = "RESCHEDULED_TO_PAST"  // 改期后触发时间已经过去
)

// Subscriber 订阅者，订阅筛选策略由调用方决定
type Subscriber struct {
	UserID   int64  // 用户ID
	UserName string // 用户名，渲染提醒内容时使用
	Receiver string // 接收者(手机/邮箱/用户ID)
}

func (s Subscriber) Validate() error {
	if s.UserID <= 0 {
		return fmt.Errorf("%w: UserID = %d", errs.ErrInvalidParameter, s.UserID)
	}
	if s.Receiver == "" {
		return fmt.Errorf("%w: Receiver = %q", errs.ErrInvalidParameter, s.Receiver)
	}
	return nil
}

// ReminderObligation 提醒义务领域模型
// 唯一键是 (UserID, StreamID, LeadTime)，重复创建视为幂等
type ReminderObligation struct {
	ID           int64            // 唯一标识
	UserID       int64            // 用户ID
	UserName     string           // 用户名
	Receiver     string           // 接收者(手机/邮箱/用户ID)
	StreamID     int64            // 关联的直播，只引用不拥有
	LeadTime     LeadTime         // 提前量
	FireTime     time.Time        // 触发时间，创建时由开播时间推导
	Status       ObligationStatus // 状态
	Attempts     int8             // 已发送次数
	CancelReason string           // 取消原因
	SentTime     time.Time        // 发送成功时间
	Version      int              // 版本号，用于CAS操作
}

func (o *ReminderObligation) Validate() error {
	if o.UserID <= 0 {
		return fmt.Errorf("%w: UserID = %d", errs.ErrInvalidParameter, o.UserID)
	}

	if o.Receiver == "" {
		return fmt.Errorf("%w: Receiver = %q", errs.ErrInvalidParameter, o.Receiver)
	}

	if o.StreamID <= 0 {
		return fmt.Errorf("%w: StreamID = %d", errs.ErrInvalidParameter, o.StreamID)
	}

	if !o.LeadTime.IsValid() {
		return fmt.Errorf("%w: LeadTime = %q", errs.ErrInvalidParameter, o.LeadTime)
	}

	if o.FireTime.IsZero() {
		return fmt.Errorf("%w: FireTime 不能为零值", errs.ErrInvalidParameter)
	}

	return nil
}
