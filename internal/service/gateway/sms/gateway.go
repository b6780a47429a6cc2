package sms

import (
	"context"
	"fmt"

	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway"
	"gitee.com/flycash/live-reminder-platform/internal/service/gateway/sms/client"
)

// smsGateway 短信网关。SMS 有多个供应商 aliyun，腾讯云，
// 靠 client.Client 抽象屏蔽差异
type smsGateway struct {
	name string
	// signName 短信签名
	signName string
	// templateID 供应商侧审核通过的模板ID
	templateID string
	client     client.Client
}

// NewSMSGateway 创建短信网关
func NewSMSGateway(name, signName, templateID string, cli client.Client) gateway.Gateway {
	return &smsGateway{
		name:       name,
		signName:   signName,
		templateID: templateID,
		client:     cli,
	}
}

// Send 发送短信提醒
func (g *smsGateway) Send(_ context.Context, msg gateway.Message) (gateway.Receipt, error) {
	resp, err := g.client.Send(client.SendReq{
		PhoneNumbers:  []string{msg.Receiver},
		SignName:      g.signName,
		TemplateID:    g.templateID,
		TemplateParam: msg.Variables,
	})
	if err != nil {
		return gateway.Receipt{}, fmt.Errorf("%w: %w", errs.ErrSendReminderFailed, err)
	}

	for _, status := range resp.PhoneNumbers {
		if status.Code != client.OK {
			return gateway.Receipt{}, fmt.Errorf("%w: Code = %s, Message = %s", errs.ErrSendReminderFailed, status.Code, status.Message)
		}
	}

	return gateway.Receipt{
		RequestID: resp.RequestID,
		Status:    gateway.SendStatusSucceeded,
	}, nil
}
