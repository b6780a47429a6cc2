package stream

const (
	// RescheduledEventName 直播改期事件 topic
	RescheduledEventName = "live_stream_rescheduled_events"
	// CancelledEventName 直播取消事件 topic
	CancelledEventName = "live_stream_cancelled_events"
)

// RescheduledEvent 直播改期事件。时间戳都是毫秒
type RescheduledEvent struct {
	EventID      string `json:"eventId"`
	StreamID     int64  `json:"streamId"`
	OldStartTime int64  `json:"oldStartTime"`
	NewStartTime int64  `json:"newStartTime"`
}

// CancelledEvent 直播取消事件
type CancelledEvent struct {
	EventID  string `json:"eventId"`
	StreamID int64  `json:"streamId"`
}
