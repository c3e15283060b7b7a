// Package payment 支付相关功能
package payment

import "fmt"

// dummyRemotePayment 虚拟支付提供商内部记录的远端支付状态
type dummyRemotePayment struct {
	status PaymentStatus // 远端状态
	income *float64      // 到账金额
}

// DummyPaymentProvider 虚拟支付提供商
// 用于测试和开发环境的模拟支付，支付记录保存在内存中
type DummyPaymentProvider struct {
	PayUrlPrefix string // 支付URL前缀

	authorized bool                           // 是否已完成授权
	payments   map[string]*dummyRemotePayment // 支付ID到远端状态的映射
}

// NewDummyPaymentProvider 创建新的虚拟支付提供商实例
// 返回:
//   - *DummyPaymentProvider: 虚拟支付提供商实例
//   - error: 错误信息
func NewDummyPaymentProvider() (*DummyPaymentProvider, error) {
	pp := &DummyPaymentProvider{
		PayUrlPrefix: "https://dummy.invalid/pay/",
		payments:     make(map[string]*dummyRemotePayment),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 虚拟授权，总是成功
// 返回:
//   - error: 错误信息
func (pp *DummyPaymentProvider) Authorize() error {
	pp.authorized = true
	return nil
}

// Authorized 返回是否已完成授权
func (pp *DummyPaymentProvider) Authorized() bool {
	return pp.authorized
}

// CreatePayment 创建虚拟支付并登记到内存中
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *DummyPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	pp.payments[payment.Id] = &dummyRemotePayment{status: PaymentStatusWaiting}
	payment.PayUrl = pp.PayUrlPrefix + payment.Id
	return payment, nil
}

// GetStatusAndIncome 查询虚拟支付状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *DummyPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	remote, ok := pp.payments[paymentId]
	if !ok {
		return "", nil, fmt.Errorf("%w: payment with id %s not found", ErrPaymentNotFound, paymentId)
	}
	return remote.status, remote.income, nil
}

// SetRemoteStatus 设置虚拟支付的远端状态，仅用于测试
// 参数:
//   - paymentId: 支付ID
//   - status: 支付状态
//   - income: 到账金额
func (pp *DummyPaymentProvider) SetRemoteStatus(paymentId string, status PaymentStatus, income *float64) {
	pp.payments[paymentId] = &dummyRemotePayment{status: status, income: income}
}

// ForgetPayment 删除虚拟支付的远端记录，仅用于测试
// 参数:
//   - paymentId: 支付ID
func (pp *DummyPaymentProvider) ForgetPayment(paymentId string) {
	delete(pp.payments, paymentId)
}
