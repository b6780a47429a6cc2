package gateway

import (
	"context"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
)

type SendStatus string

const (
	SendStatusSucceeded SendStatus = "SUCCEEDED"
	SendStatusFailed    SendStatus = "FAILED"
)

// Message 投递网关的入参，IdempotencyKey 用提醒ID生成，
// 网关侧据此去重，同一条提醒重复投递不会触达用户两次
type Message struct {
	IdempotencyKey string
	Receiver       string
	Channel        domain.Channel
	Content        string
	Variables      map[string]string
}

// Receipt 网关回执
type Receipt struct {
	RequestID string
	Status    SendStatus
}

// Gateway 投递网关接口
//
//go:generate mockgen -source=./types.go -destination=./mocks/gateway.mock.go -package=gatewaymocks -typed Gateway
type Gateway interface {
	// Send 投递消息
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Selector 网关选择器接口
//
//go:generate mockgen -source=./types.go -destination=./mocks/selector.mock.go -package=gatewaymocks -typed Selector
type Selector interface {
	// Next 获取下一个网关，无可用网关时返回错误
	Next(ctx context.Context, msg Message) (Gateway, error)
}

// Builder 网关选择器的构造器
//
//go:generate mockgen -source=./types.go -destination=./mocks/builder.mock.go -package=gatewaymocks -typed Builder
type Builder interface {
	// Build 构造选择器，每轮投递各自构造，选择器内部可以带状态
	Build() (Selector, error)
}
