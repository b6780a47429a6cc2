package client

import "github.com/pkg/errors"

const OK = "OK"

var (
	ErrInvalidParameter = errors.New("参数非法")
	ErrSendFailed       = errors.New("发送短信失败")
)

// Client 屏蔽不同云厂商短信 API 差异的客户端抽象
type Client interface {
	// Send 发送短信
	Send(req SendReq) (SendResp, error)
}

type SendReq struct {
	PhoneNumbers []string
	// SignName 短信签名
	SignName string
	// TemplateID 供应商侧的模板ID
	TemplateID string
	// TemplateParam 模板参数
	TemplateParam map[string]string
}

type SendResp struct {
	RequestID string
	// PhoneNumbers 每个手机号的发送状态
	PhoneNumbers map[string]SendRespStatus
}

type SendRespStatus struct {
	Code    string
	Message string
}
