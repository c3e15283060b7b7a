// Package payment 支付相关功能
package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// QiwiPaymentType Qiwi支付方式类型
type QiwiPaymentType string

// Qiwi支付方式常量定义
const (
	QiwiPaymentTypeWallet QiwiPaymentType = "qw"   // Qiwi钱包支付
	QiwiPaymentTypeCard   QiwiPaymentType = "card" // 银行卡支付
	QiwiPaymentTypeAll    QiwiPaymentType = ""     // 不限支付方式
)

// qiwiApiUrl Qiwi P2P账单API地址
const qiwiApiUrl = "https://api.qiwi.com/partner/bill/v1/bills/"

// qiwiStatusMap Qiwi原始状态到统一状态的映射表
// 未列出的原始状态视为未知，刷新时保持原状态不变
var qiwiStatusMap = map[string]PaymentStatus{
	"WAITING":  PaymentStatusWaiting,
	"PAID":     PaymentStatusPaid,
	"REJECTED": PaymentStatusRejected,
	"EXPIRED":  PaymentStatusExpired,
}

// QiwiPaymentProvider Qiwi支付提供商
// 对接Qiwi P2P账单API
type QiwiPaymentProvider struct {
	SecretKey          string          // 秘密密钥，来自 https://qiwi.com/p2p-admin/transfers/api
	ThemeCode          string          // 支付表单主题代码，来自 https://qiwi.com/p2p-admin/transfers/link
	ExpirationDuration time.Duration   // 账单有效期
	PaymentType        QiwiPaymentType // 支付方式过滤

	apiUrl     string       // API地址（测试时可替换）
	client     *http.Client // HTTP客户端
	authorized bool         // 是否已完成授权
}

// NewQiwiPaymentProvider 创建新的Qiwi支付提供商实例并校验凭证
// 参数:
//   - secretKey: 秘密密钥
//   - themeCode: 支付表单主题代码（可为空）
//   - expirationDuration: 账单有效期（为0时默认1小时）
//   - paymentType: 支付方式过滤
//
// 返回:
//   - *QiwiPaymentProvider: Qiwi支付提供商实例
//   - error: 错误信息
func NewQiwiPaymentProvider(secretKey string, themeCode string, expirationDuration time.Duration, paymentType QiwiPaymentType) (*QiwiPaymentProvider, error) {
	if expirationDuration == 0 {
		expirationDuration = time.Hour
	}

	pp := &QiwiPaymentProvider{
		SecretKey:          secretKey,
		ThemeCode:          themeCode,
		ExpirationDuration: expirationDuration,
		PaymentType:        paymentType,
		apiUrl:             qiwiApiUrl,
		client:             newHttpClient(),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 校验秘密密钥
// 只有Qiwi返回401时才视为凭证无效
// 返回:
//   - error: 错误信息
func (pp *QiwiPaymentProvider) Authorize() error {
	statusCode, _, err := sendRequest(pp.client, http.MethodGet, pp.apiUrl, pp.headers(), "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if statusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: secret key is invalid", ErrAuthorization)
	}

	pp.authorized = true
	return nil
}

// Authorized 返回是否已完成授权
func (pp *QiwiPaymentProvider) Authorized() bool {
	return pp.authorized
}

// qiwiBillRequest Qiwi账单创建请求结构体
type qiwiBillRequest struct {
	Amount             qiwiBillAmount   `json:"amount"`                       // 金额
	Comment            string           `json:"comment"`                      // 支付备注
	ExpirationDateTime string           `json:"expirationDateTime,omitempty"` // 账单过期时间
	CustomFields       qiwiCustomFields `json:"customFields"`                 // 自定义字段
}

// qiwiBillAmount Qiwi金额结构体
type qiwiBillAmount struct {
	Currency string  `json:"currency"` // 货币类型
	Value    float64 `json:"value"`    // 金额数值
}

// qiwiCustomFields Qiwi自定义字段结构体
type qiwiCustomFields struct {
	ThemeCode        string `json:"themeCode,omitempty"`        // 表单主题代码
	PaySourcesFilter string `json:"paySourcesFilter,omitempty"` // 支付方式过滤
}

// qiwiBillResponse Qiwi账单响应结构体
type qiwiBillResponse struct {
	PayUrl string         `json:"payUrl"` // 支付URL
	Status qiwiBillStatus `json:"status"` // 账单状态
	Amount struct {
		// 创建时Qiwi返回数字，查询时返回字符串
		Value interface{} `json:"value"` // 金额数值
	} `json:"amount"`
}

// qiwiBillStatus Qiwi账单状态结构体
type qiwiBillStatus struct {
	Value string `json:"value"` // 原始状态值
}

// CreatePayment 创建Qiwi支付
// 向Qiwi登记新账单并获取支付URL
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *QiwiPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	// 构建账单创建请求
	billReq := qiwiBillRequest{
		Amount: qiwiBillAmount{
			Currency: "RUB",
			Value:    payment.Amount,
		},
		Comment:            payment.Description,
		ExpirationDateTime: time.Now().Add(pp.ExpirationDuration).Format("2006-01-02T15:04:05-07:00"),
		CustomFields: qiwiCustomFields{
			ThemeCode:        pp.ThemeCode,
			PaySourcesFilter: string(pp.PaymentType),
		},
	}

	b, err := json.Marshal(billReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}

	// 账单由客户端指定ID，使用PUT登记
	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPut, pp.apiUrl+payment.Id, pp.headers(), string(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrPaymentCreation, respBytes)
	}

	var billResp qiwiBillResponse
	if err = json.Unmarshal(respBytes, &billResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}

	payment.PayUrl = billResp.PayUrl
	return payment, nil
}

// GetStatusAndIncome 查询Qiwi账单状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *QiwiPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, pp.apiUrl+paymentId, pp.headers(), "")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode == http.StatusNotFound {
		return "", nil, fmt.Errorf("%w: payment with id %s not found", ErrPaymentNotFound, paymentId)
	}
	if statusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	var billResp qiwiBillResponse
	if err = json.Unmarshal(respBytes, &billResp); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}

	status := qiwiStatusMap[billResp.Status.Value]

	// 金额缺失时到账金额按0处理
	income := 0.0
	if value := parseFloat(billResp.Amount.Value); value != nil {
		income = *value
	}
	return status, &income, nil
}

// headers Qiwi请求头
// 返回:
//   - map[string]string: 请求头
func (pp *QiwiPaymentProvider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + pp.SecretKey,
		"Content-Type":  "application/json",
		"Accept":        "application/json",
	}
}
