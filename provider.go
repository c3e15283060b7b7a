// Package payment 支付相关功能
// 提供多种支付网关的统一接口，包括Qiwi、YooMoney、PayOk、Lava、BetaTransfer、Aaio等
package payment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PaymentStatus 支付状态类型
type PaymentStatus string

// 支付状态常量定义
const (
	PaymentStatusWaiting  PaymentStatus = "Waiting"  // 已创建，等待支付
	PaymentStatusPaid     PaymentStatus = "Paid"     // 已支付
	PaymentStatusRejected PaymentStatus = "Rejected" // 已拒绝
	PaymentStatusExpired  PaymentStatus = "Expired"  // 已过期
)

// ChargeCommission 手续费承担方类型
type ChargeCommission string

// 手续费承担方常量定义
const (
	ChargeCommissionFromCustomer ChargeCommission = "FromCustomer" // 手续费由付款人承担，计入应付金额
	ChargeCommissionFromSeller   ChargeCommission = "FromSeller"   // 手续费由收款人承担，按原金额收款
)

// PaymentRequest 支付请求结构体
// 包含创建支付所需的通用参数，各提供商只使用自己关心的字段
type PaymentRequest struct {
	Amount      float64 // 金额（保留两位小数）
	Description string  // 支付备注（为空时默认为支付ID）
	PaymentId   string  // 支付ID（为空时使用uuid4生成）

	SuccessUrl string // 支付成功跳转URL（覆盖提供商默认值）
	FailUrl    string // 支付失败跳转URL（覆盖提供商默认值）
	ResultUrl  string // 支付结果回调URL（覆盖提供商默认值）
	PayerId    string // 付款人ID（部分网关的部分支付方式必填）
}

// Payment 支付结构体
// 表示一笔已在远端网关登记的支付
type Payment struct {
	Id          string        // 支付ID（创建后不变）
	Amount      float64       // 金额（不含手续费）
	Description string        // 支付备注
	Status      PaymentStatus // 支付状态（调用Update()更新）
	Income      *float64      // 实际到账金额（调用Update()更新，可能为空）
	PayUrl      string        // 支付URL（创建时生成一次，不会重新生成）

	provider PaymentProvider // 创建该支付的提供商
}

// PaymentProvider 支付提供商接口
// 定义所有支付提供商必须实现的方法
type PaymentProvider interface {
	// Authorize 校验凭证并记录授权状态
	// 必须在首次创建支付前调用成功，可重复调用以轮换凭证；
	// 轮换失败不会清除之前的授权状态
	// 返回:
	//   - error: 错误信息
	Authorize() error

	// Authorized 返回提供商是否已完成授权
	Authorized() bool

	// CreatePayment 创建支付并同步向远端网关登记发票
	// 参数:
	//   - r: 支付请求信息
	// 返回:
	//   - *Payment: 支付实例（创建失败时不会返回半成品实例）
	//   - error: 错误信息
	CreatePayment(r *PaymentRequest) (*Payment, error)

	// GetStatusAndIncome 查询支付状态和实际到账金额
	// 未映射的原始状态返回空字符串
	// 参数:
	//   - paymentId: 支付ID
	// 返回:
	//   - PaymentStatus: 支付状态
	//   - *float64: 实际到账金额（可能为空）
	//   - error: 错误信息
	GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error)
}

// newPayment 创建新的支付实例并填充默认值
// 提供商未授权时返回ErrNotAuthorized，不发起任何网络请求
func newPayment(pp PaymentProvider, r *PaymentRequest) (*Payment, error) {
	if !pp.Authorized() {
		return nil, fmt.Errorf("%w: you need to call Authorize() first: %T", ErrNotAuthorized, pp)
	}

	id := r.PaymentId
	if id == "" {
		id = uuid.NewString()
	}

	description := r.Description
	if description == "" {
		description = id
	}

	return &Payment{
		Id:          id,
		Amount:      roundAmount(r.Amount),
		Description: description,
		Status:      PaymentStatusWaiting,
		provider:    pp,
	}, nil
}

// Update 重新查询远端网关并更新支付状态和到账金额
// 远端记录不存在时不视为错误，状态和到账金额保持不变；
// 状态不会自动刷新，可以重复调用
// 返回:
//   - error: 错误信息
func (p *Payment) Update() error {
	status, income, err := p.provider.GetStatusAndIncome(p.Id)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil
		}
		return err
	}

	// 只有识别出的状态才会覆盖原状态
	if status != "" {
		p.Status = status
	}
	p.Income = income
	return nil
}
