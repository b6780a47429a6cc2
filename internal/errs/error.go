package errs

import (
	"errors"
)

// 定义统一的错误类型
var (
	ErrInvalidParameter = errors.New("参数错误")

	ErrStreamNotFound        = errors.New("直播记录不存在")
	ErrStreamDuplicate       = errors.New("直播记录主键冲突")
	ErrStreamVersionMismatch = errors.New("直播记录版本不匹配")
	ErrInvalidTransition     = errors.New("非法的直播状态流转")
	ErrInvalidStreamState    = errors.New("当前直播状态不允许该操作")

	ErrObligationNotFound        = errors.New("提醒记录不存在")
	ErrObligationDuplicate       = errors.New("提醒记录唯一键冲突")
	ErrObligationVersionMismatch = errors.New("提醒记录已被并发修改")

	ErrTemplateNotFound   = errors.New("提醒模板不存在")
	ErrRenderFailed       = errors.New("渲染提醒内容失败")
	ErrSendReminderFailed = errors.New("发送提醒失败")
	ErrNoAvailableGateway = errors.New("无可用发送网关")

	ErrIDGenerateFailed = errors.New("ID生成失败")
)
