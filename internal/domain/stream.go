package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/errs"
)

// StreamStatus 直播生命周期状态
type StreamStatus string

const (
	StreamStatusScheduled StreamStatus = "SCHEDULED" // 已排期
	StreamStatusLive      StreamStatus = "LIVE"      // 直播中
	StreamStatusEnded     StreamStatus = "ENDED"     // 已结束
	StreamStatusCanceled  StreamStatus = "CANCELED"  // 已取消
)

func (s StreamStatus) String() string {
	return string(s)
}

// streamTransitions 状态机流转表，不在表里的流转一律拒绝
var streamTransitions = map[StreamStatus][]StreamStatus{
	StreamStatusScheduled: {StreamStatusLive, StreamStatusCanceled},
	StreamStatusLive:      {StreamStatusEnded},
}

// CanTransitionTo 判断能否从当前状态流转到目标状态
func (s StreamStatus) CanTransitionTo(to StreamStatus) bool {
	for _, allowed := range streamTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal 终态不再接受任何流转
func (s StreamStatus) IsTerminal() bool {
	return s == StreamStatusEnded || s == StreamStatusCanceled
}

func (s StreamStatus) IsValid() bool {
	switch s {
	case StreamStatusScheduled, StreamStatusLive, StreamStatusEnded, StreamStatusCanceled:
		return true
	default:
		return false
	}
}

// Stream 直播领域模型
type Stream struct {
	ID                 int64        // 直播唯一标识
	Title              string       // 标题
	Description        string       // 简介
	Artist             string       // 艺人
	Category           string       // 直播分类，决定提醒模板
	ScheduledStartTime time.Time    // 计划开播时间
	ExpectedViewers    int64        // 预期观看人数
	ActualViewers      int64        // 实际观看人数
	Featured           bool         // 是否首页推荐
	Status             StreamStatus // 生命周期状态
	Version            int          // 版本号，用于CAS操作
}

func (s *Stream) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("%w: Title = %q", errs.ErrInvalidParameter, s.Title)
	}

	if s.Artist == "" {
		return fmt.Errorf("%w: Artist = %q", errs.ErrInvalidParameter, s.Artist)
	}

	if s.Category == "" {
		return fmt.Errorf("%w: Category = %q", errs.ErrInvalidParameter, s.Category)
	}

	if s.ScheduledStartTime.IsZero() {
		return fmt.Errorf("%w: ScheduledStartTime 不能为零值", errs.ErrInvalidParameter)
	}

	if s.ExpectedViewers < 0 {
		return fmt.Errorf("%w: ExpectedViewers = %d", errs.ErrInvalidParameter, s.ExpectedViewers)
	}

	return nil
}
