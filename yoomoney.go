// Package payment 支付相关功能
package payment

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-pay/gopay"
	"github.com/shopspring/decimal"
)

// YooMoneyPaymentType YooMoney支付方式类型
type YooMoneyPaymentType string

// YooMoney支付方式常量定义
const (
	YooMoneyPaymentTypeWallet YooMoneyPaymentType = "PC" // YooMoney钱包支付
	YooMoneyPaymentTypeCard   YooMoneyPaymentType = "AC" // 银行卡支付
	YooMoneyPaymentTypePhone  YooMoneyPaymentType = "MC" // 话费余额支付
)

// yooMoneyBaseUrl YooMoney API基础地址
const yooMoneyBaseUrl = "https://yoomoney.ru"

// yooMoneyStatusMap YooMoney原始状态到统一状态的映射表
var yooMoneyStatusMap = map[string]PaymentStatus{
	"success":     PaymentStatusPaid,
	"refused":     PaymentStatusRejected,
	"in_progress": PaymentStatusWaiting,
}

// YooMoneyPaymentProvider YooMoney支付提供商
// 对接YooMoney quickpay表单和API
type YooMoneyPaymentProvider struct {
	AccessToken      string              // OAuth访问令牌，通过GetYooMoneyAccessToken获取
	PaymentType      YooMoneyPaymentType // 支付方式
	ChargeCommission ChargeCommission    // 手续费承担方
	SuccessUrl       string              // 支付成功跳转URL

	accountId  string       // 收款钱包号，授权时从账户信息获取
	baseUrl    string       // API基础地址（测试时可替换）
	client     *http.Client // HTTP客户端
	authorized bool         // 是否已完成授权
}

// NewYooMoneyPaymentProvider 创建新的YooMoney支付提供商实例并校验凭证
// 参数:
//   - accessToken: OAuth访问令牌
//   - paymentType: 支付方式（为空时默认银行卡）
//   - chargeCommission: 手续费承担方（为空时默认收款人承担）
//   - successUrl: 支付成功跳转URL（可为空）
//
// 返回:
//   - *YooMoneyPaymentProvider: YooMoney支付提供商实例
//   - error: 错误信息
func NewYooMoneyPaymentProvider(accessToken string, paymentType YooMoneyPaymentType, chargeCommission ChargeCommission, successUrl string) (*YooMoneyPaymentProvider, error) {
	if paymentType == "" {
		paymentType = YooMoneyPaymentTypeCard
	}
	if chargeCommission == "" {
		chargeCommission = ChargeCommissionFromSeller
	}

	pp := &YooMoneyPaymentProvider{
		AccessToken:      accessToken,
		PaymentType:      paymentType,
		ChargeCommission: chargeCommission,
		SuccessUrl:       successUrl,
		baseUrl:          yooMoneyBaseUrl,
		client:           newHttpClient(),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 校验访问令牌并获取收款钱包号
// 返回:
//   - error: 错误信息
func (pp *YooMoneyPaymentProvider) Authorize() error {
	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, pp.baseUrl+"/api/account-info", pp.headers(), "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("%w: access token is invalid", ErrAuthorization)
	}

	var info struct {
		Account string `json:"account"` // 钱包号
	}
	if err = json.Unmarshal(respBytes, &info); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}

	pp.accountId = info.Account
	pp.authorized = true
	return nil
}

// Authorized 返回是否已完成授权
func (pp *YooMoneyPaymentProvider) Authorized() bool {
	return pp.authorized
}

// CreatePayment 创建YooMoney支付
// 提交quickpay表单，支付URL为重定向后的最终地址
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *YooMoneyPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	successUrl := r.SuccessUrl
	if successUrl == "" {
		successUrl = pp.SuccessUrl
	}

	// 构建quickpay表单参数
	bm := make(gopay.BodyMap)
	bm.Set("receiver", pp.accountId).
		Set("quickpay-form", "shop").
		Set("targets", payment.Id).
		Set("paymentType", string(pp.PaymentType)).
		Set("sum", priceFloat64ToString(pp.sumWithCommission(payment.Amount))).
		Set("formcomment", payment.Description).
		Set("short-dest", payment.Description).
		Set("label", payment.Id).
		Set("successURL", successUrl)

	// 需要读取重定向后的最终URL，不能复用sendRequest
	req, err := http.NewRequest(http.MethodPost, pp.baseUrl+"/quickpay/confirm.xml", strings.NewReader(bm.EncodeURLParams()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	for key, value := range pp.headers() {
		req.Header.Set(key, value)
	}

	resp, err := pp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			return
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrPaymentCreation, respBytes)
	}

	payment.PayUrl = resp.Request.URL.String()
	return payment, nil
}

// GetStatusAndIncome 在操作历史中按label查询支付状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *YooMoneyPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	bm := make(gopay.BodyMap)
	bm.Set("label", paymentId)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/api/operation-history", pp.headers(), bm.EncodeURLParams())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	var history struct {
		Operations []map[string]interface{} `json:"operations"` // 操作记录
	}
	if err = json.Unmarshal(respBytes, &history); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}

	// 新创建的支付在操作历史中出现前视为不存在
	if len(history.Operations) == 0 {
		return "", nil, fmt.Errorf("%w: payment with id %s not found", ErrPaymentNotFound, paymentId)
	}

	operation := history.Operations[0]
	rawStatus, _ := operation["status"].(string)
	status := yooMoneyStatusMap[rawStatus]
	income := parseFloat(operation["amount"])
	return status, income, nil
}

// sumWithCommission 计算含手续费的应付金额
// 仅当手续费由付款人承担时生效，不修改Payment.Amount
// 参考 https://yoomoney.ru/docs/payment-buttons/using-api/forms#calculating-commissions
// 参数:
//   - amount: 原金额
//
// 返回:
//   - float64: 应付金额
func (pp *YooMoneyPaymentProvider) sumWithCommission(amount float64) float64 {
	if pp.ChargeCommission != ChargeCommissionFromCustomer {
		return amount
	}

	sum := decimal.NewFromFloat(amount)
	switch pp.PaymentType {
	case YooMoneyPaymentTypeWallet:
		// 钱包支付手续费1%，直接外加
		sum = sum.Mul(decimal.NewFromFloat(1.01))
	case YooMoneyPaymentTypeCard:
		// 银行卡手续费3%，反向求总额
		sum = sum.Div(decimal.NewFromFloat(0.97))
	}

	result, _ := sum.Float64()
	return result
}

// headers YooMoney请求头
// 返回:
//   - map[string]string: 请求头
func (pp *YooMoneyPaymentProvider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + pp.AccessToken,
		"Content-Type":  "application/x-www-form-urlencoded",
		"Accept":        "application/json",
	}
}

// GetYooMoneyAuthorizeUrl 生成YooMoney OAuth授权URL
// 用户访问该URL并授权后会被重定向到 redirectUri?code=YOUR_CODE，
// 拿到code后调用GetYooMoneyAccessToken换取访问令牌
// 参数:
//   - clientId: 应用ID，来自 https://yoomoney.ru/myservices/new
//   - redirectUri: 创建应用时指定的回调地址
//   - instanceName: 应用内授权实例ID（可为空）
//
// 返回:
//   - string: 授权URL
func GetYooMoneyAuthorizeUrl(clientId string, redirectUri string, instanceName string) string {
	bm := make(gopay.BodyMap)
	bm.Set("client_id", clientId).
		Set("response_type", "code").
		Set("redirect_uri", redirectUri).
		Set("scope", "account-info operation-history")
	if instanceName != "" {
		bm.Set("instance_name", instanceName)
	}

	return yooMoneyBaseUrl + "/oauth/authorize?" + bm.EncodeURLParams()
}

// GetYooMoneyAccessToken 用授权码换取YooMoney访问令牌
// 只需调用一次，令牌用于NewYooMoneyPaymentProvider
// 参数:
//   - clientId: 应用ID
//   - code: 授权码，来自授权后的重定向地址
//   - redirectUri: 创建应用时指定的回调地址
//
// 返回:
//   - string: 访问令牌
//   - error: 错误信息
func GetYooMoneyAccessToken(clientId string, code string, redirectUri string) (string, error) {
	bm := make(gopay.BodyMap)
	bm.Set("code", code).
		Set("client_id", clientId).
		Set("grant_type", "authorization_code").
		Set("redirect_uri", redirectUri)

	statusCode, respBytes, err := sendRequest(newHttpClient(), http.MethodPost, yooMoneyBaseUrl+"/oauth/token", formHeaders(), bm.EncodeURLParams())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if statusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrAuthorization, respBytes)
	}

	var token struct {
		AccessToken string `json:"access_token"` // 访问令牌
	}
	if err = json.Unmarshal(respBytes, &token); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthorization)
	}
	return token.AccessToken, nil
}
