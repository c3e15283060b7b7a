// Package payment 支付相关功能
package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pay/gopay"
)

// lavaBaseUrl Lava API基础地址
const lavaBaseUrl = "https://api.lava.ru"

// lavaStatusMap Lava原始状态到统一状态的映射表
var lavaStatusMap = map[string]PaymentStatus{
	"success": PaymentStatusPaid,
	"pending": PaymentStatusWaiting,
	"cancel":  PaymentStatusRejected,
}

// LavaPaymentProvider Lava支付提供商
// 对接Lava发票API
type LavaPaymentProvider struct {
	Token              string           // 秘密密钥，来自 https://lava.ru/dashboard/settings/api
	WalletTo           string           // 收款账户号（例如R40510054）
	ExpirationDuration time.Duration    // 发票有效期
	ChargeCommission   ChargeCommission // 手续费承担方
	SuccessUrl         string           // 支付成功跳转URL
	FailUrl            string           // 支付失败跳转URL

	baseUrl    string       // API基础地址（测试时可替换）
	client     *http.Client // HTTP客户端
	authorized bool         // 是否已完成授权
}

// NewLavaPaymentProvider 创建新的Lava支付提供商实例并校验凭证
// 参数:
//   - token: 秘密密钥
//   - walletTo: 收款账户号
//   - expirationDuration: 发票有效期（为0时默认1小时）
//   - chargeCommission: 手续费承担方（为空时默认收款人承担）
//   - successUrl: 支付成功跳转URL（可为空）
//   - failUrl: 支付失败跳转URL（可为空）
//
// 返回:
//   - *LavaPaymentProvider: Lava支付提供商实例
//   - error: 错误信息
func NewLavaPaymentProvider(token string, walletTo string, expirationDuration time.Duration, chargeCommission ChargeCommission, successUrl string, failUrl string) (*LavaPaymentProvider, error) {
	if expirationDuration == 0 {
		expirationDuration = time.Hour
	}
	if chargeCommission == "" {
		chargeCommission = ChargeCommissionFromSeller
	}

	pp := &LavaPaymentProvider{
		Token:              token,
		WalletTo:           walletTo,
		ExpirationDuration: expirationDuration,
		ChargeCommission:   chargeCommission,
		SuccessUrl:         successUrl,
		FailUrl:            failUrl,
		baseUrl:            lavaBaseUrl,
		client:             newHttpClient(),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 通过ping接口校验秘密密钥
// 返回:
//   - error: 错误信息
func (pp *LavaPaymentProvider) Authorize() error {
	_, respBytes, err := sendRequest(pp.client, http.MethodGet, pp.baseUrl+"/test/ping", pp.headers(), "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}

	var pingResp struct {
		Status  bool   `json:"status"`  // 是否成功
		Message string `json:"message"` // 失败原因
	}
	if err = json.Unmarshal(respBytes, &pingResp); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if !pingResp.Status {
		return fmt.Errorf("%w: %s", ErrAuthorization, pingResp.Message)
	}

	pp.authorized = true
	return nil
}

// Authorized 返回是否已完成授权
func (pp *LavaPaymentProvider) Authorized() bool {
	return pp.authorized
}

// CreatePayment 创建Lava支付
// 向Lava登记新发票并获取支付URL
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *LavaPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	successUrl := r.SuccessUrl
	if successUrl == "" {
		successUrl = pp.SuccessUrl
	}
	failUrl := r.FailUrl
	if failUrl == "" {
		failUrl = pp.FailUrl
	}

	// 手续费由付款人承担时设置subtract标记
	subtract := "0"
	if pp.ChargeCommission == ChargeCommissionFromCustomer {
		subtract = "1"
	}

	// 构建发票创建表单
	bm := make(gopay.BodyMap)
	bm.Set("wallet_to", pp.WalletTo).
		Set("sum", priceFloat64ToString(payment.Amount)).
		Set("order_id", payment.Id).
		Set("success_url", successUrl).
		Set("fail_url", failUrl).
		Set("expire", strconv.Itoa(int(pp.ExpirationDuration.Minutes()))).
		Set("subtract", subtract).
		Set("comment", payment.Description)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/invoice/create", pp.headers(), bm.EncodeURLParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}

	var createResp struct {
		Status string `json:"status"` // 响应状态
		Url    string `json:"url"`    // 支付URL
	}
	if err = json.Unmarshal(respBytes, &createResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	if statusCode != http.StatusOK || createResp.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrPaymentCreation, respBytes)
	}

	payment.PayUrl = createResp.Url
	return payment, nil
}

// GetStatusAndIncome 查询Lava发票状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *LavaPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	bm := make(gopay.BodyMap)
	bm.Set("order_id", paymentId)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/invoice/info", pp.headers(), bm.EncodeURLParams())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}

	var infoResp struct {
		Status  string                 `json:"status"`  // 响应状态
		Invoice map[string]interface{} `json:"invoice"` // 发票信息
	}
	if err = json.Unmarshal(respBytes, &infoResp); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode != http.StatusOK || infoResp.Status != "success" {
		return "", nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	// 发票信息缺失时视为记录不存在
	if len(infoResp.Invoice) == 0 {
		return "", nil, fmt.Errorf("%w: payment with id %s not found", ErrPaymentNotFound, paymentId)
	}

	rawStatus, _ := infoResp.Invoice["status"].(string)
	status := lavaStatusMap[rawStatus]
	income := parseFloat(infoResp.Invoice["sum"])
	return status, income, nil
}

// headers Lava请求头
// 返回:
//   - map[string]string: 请求头
func (pp *LavaPaymentProvider) headers() map[string]string {
	return map[string]string{
		"Authorization": pp.Token,
		"Content-Type":  "application/x-www-form-urlencoded",
		"Accept":        "application/json",
	}
}
