// Package payment 支付相关功能
package payment

import "errors"

// 错误类别定义
// 所有网关返回的错误都会用 %w 包装以下哨兵错误，
// 调用方通过 errors.Is 区分错误类别
var (
	// ErrNotAuthorized 支付提供商尚未完成授权就尝试创建支付
	ErrNotAuthorized = errors.New("payment provider not authorized")

	// ErrAuthorization 授权校验失败（凭证无效或网络错误）
	ErrAuthorization = errors.New("authorization failed")

	// ErrPaymentCreation 支付创建失败（本地参数校验失败或远端登记失败）
	ErrPaymentCreation = errors.New("payment creation failed")

	// ErrPaymentGetting 支付状态查询失败
	ErrPaymentGetting = errors.New("payment getting failed")

	// ErrPaymentNotFound 远端网关不存在该支付记录
	// Payment.Update() 会吞掉该错误并保持原状态不变
	ErrPaymentNotFound = errors.New("payment not found")
)
