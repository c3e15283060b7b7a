// Package payment 支付相关功能
package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-pay/gopay"
)

// PayOkPaymentType PayOk支付方式类型
type PayOkPaymentType string

// PayOk支付方式常量定义
const (
	PayOkPaymentTypeCard         PayOkPaymentType = "cd"  // 银行卡支付
	PayOkPaymentTypeSbp          PayOkPaymentType = "sbp" // SBP快速支付
	PayOkPaymentTypeQiwi         PayOkPaymentType = "qw"  // QIWI钱包
	PayOkPaymentTypeYooMoney     PayOkPaymentType = "ym"  // YooMoney钱包
	PayOkPaymentTypeWebMoney     PayOkPaymentType = "wm"  // WebMoney
	PayOkPaymentTypePayeer       PayOkPaymentType = "pr"  // Payeer
	PayOkPaymentTypePerfectMoney PayOkPaymentType = "pm"  // Perfect Money
	PayOkPaymentTypeAdvcash      PayOkPaymentType = "ad"  // Advcash
	PayOkPaymentTypeBeeline      PayOkPaymentType = "bl"  // Beeline话费
	PayOkPaymentTypeMegafon      PayOkPaymentType = "mg"  // Megafon话费
	PayOkPaymentTypeTele2        PayOkPaymentType = "tl"  // Tele2话费
	PayOkPaymentTypeMts          PayOkPaymentType = "mt"  // MTS话费
	PayOkPaymentTypeQiwiMobile   PayOkPaymentType = "qm"  // QIWI Mobile
	PayOkPaymentTypeBitcoin      PayOkPaymentType = "bt"  // Bitcoin
	PayOkPaymentTypeLitecoin     PayOkPaymentType = "lt"  // Litecoin
	PayOkPaymentTypeDogecoin     PayOkPaymentType = "dg"  // Dogecoin
	PayOkPaymentTypeDash         PayOkPaymentType = "ds"  // Dash
	PayOkPaymentTypeZcash        PayOkPaymentType = "zc"  // ZCash
)

// PayOkCurrency PayOk货币类型
type PayOkCurrency string

// PayOk货币常量定义
const (
	PayOkCurrencyRub  PayOkCurrency = "RUB"  // 俄罗斯卢布
	PayOkCurrencyUah  PayOkCurrency = "UAH"  // 乌克兰格里夫纳
	PayOkCurrencyUsd  PayOkCurrency = "USD"  // 美元
	PayOkCurrencyEur  PayOkCurrency = "EUR"  // 欧元
	PayOkCurrencyRub2 PayOkCurrency = "RUB2" // 俄罗斯卢布（备用通道）
)

// payOkBaseUrl PayOk API基础地址
const payOkBaseUrl = "https://payok.io"

// payOkStatusMap PayOk原始状态到统一状态的映射表
var payOkStatusMap = map[string]PaymentStatus{
	"0": PaymentStatusWaiting,
	"1": PaymentStatusPaid,
}

// PayOk授权失败时响应中的错误标记
const (
	payOkUnknownShopMarker = "Такой магазин не зарегистрирован." // 商店未注册
	payOkBadSignMarker     = "Неверная подпись."                 // 签名错误
)

// PayOkPaymentProvider PayOk支付提供商
// 支付链接由客户端签名后直接拼接，无需远端登记
type PayOkPaymentProvider struct {
	ApiKey        string           // API密钥，来自 https://payok.io/cabinet/api.php （需要Balance和Transactions权限）
	ApiId         int              // API密钥ID
	ShopId        int              // 商店ID，来自 https://payok.io/cabinet/main.php
	ShopSecretKey string           // 商店秘密密钥
	PaymentType   PayOkPaymentType // 支付方式
	Currency      PayOkCurrency    // 货币类型
	SuccessUrl    string           // 支付成功跳转URL

	baseUrl    string       // API基础地址（测试时可替换）
	client     *http.Client // HTTP客户端
	authorized bool         // 是否已完成授权
}

// NewPayOkPaymentProvider 创建新的PayOk支付提供商实例并校验凭证
// 参数:
//   - apiKey: API密钥
//   - apiId: API密钥ID
//   - shopId: 商店ID
//   - shopSecretKey: 商店秘密密钥
//   - paymentType: 支付方式（为空时默认银行卡）
//   - currency: 货币类型（为空时默认卢布）
//   - successUrl: 支付成功跳转URL（可为空）
//
// 返回:
//   - *PayOkPaymentProvider: PayOk支付提供商实例
//   - error: 错误信息
func NewPayOkPaymentProvider(apiKey string, apiId int, shopId int, shopSecretKey string, paymentType PayOkPaymentType, currency PayOkCurrency, successUrl string) (*PayOkPaymentProvider, error) {
	if paymentType == "" {
		paymentType = PayOkPaymentTypeCard
	}
	if currency == "" {
		currency = PayOkCurrencyRub
	}

	pp := &PayOkPaymentProvider{
		ApiKey:        apiKey,
		ApiId:         apiId,
		ShopId:        shopId,
		ShopSecretKey: shopSecretKey,
		PaymentType:   paymentType,
		Currency:      currency,
		SuccessUrl:    successUrl,
		baseUrl:       payOkBaseUrl,
		client:        newHttpClient(),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 校验API密钥、商店ID和商店秘密密钥
// 先查询余额校验API凭证，再发送签名的测试表单校验商店凭证
// 返回:
//   - error: 错误信息
func (pp *PayOkPaymentProvider) Authorize() error {
	// 余额接口校验API_ID和API_KEY
	bm := make(gopay.BodyMap)
	bm.Set("API_ID", strconv.Itoa(pp.ApiId)).
		Set("API_KEY", pp.ApiKey)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/api/balance", formHeaders(), bm.EncodeURLParams())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrAuthorization, respBytes)
	}

	var balanceResp struct {
		Status string `json:"status"` // 响应状态
	}
	if err = json.Unmarshal(respBytes, &balanceResp); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if balanceResp.Status == "error" {
		return fmt.Errorf("%w: %s", ErrAuthorization, respBytes)
	}

	// 签名的测试表单校验商店ID和秘密密钥
	testBm := make(gopay.BodyMap)
	testBm.Set("amount", "1").
		Set("payment", "test").
		Set("shop", strconv.Itoa(pp.ShopId)).
		Set("desc", "test").
		Set("currency", "RUB").
		Set("sign", pp.paySign("1", "test", "RUB", "test"))

	statusCode, respBytes, err = sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/pay", formHeaders(), testBm.EncodeURLParams())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrAuthorization, respBytes)
	}
	if strings.Contains(string(respBytes), payOkUnknownShopMarker) {
		return fmt.Errorf("%w: invalid shop id", ErrAuthorization)
	}
	if strings.Contains(string(respBytes), payOkBadSignMarker) {
		return fmt.Errorf("%w: invalid shop secret key", ErrAuthorization)
	}

	pp.authorized = true
	return nil
}

// Authorized 返回是否已完成授权
func (pp *PayOkPaymentProvider) Authorized() bool {
	return pp.authorized
}

// CreatePayment 创建PayOk支付
// 支付链接在本地拼接并签名，不发起网络请求
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *PayOkPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	successUrl := r.SuccessUrl
	if successUrl == "" {
		successUrl = pp.SuccessUrl
	}

	amountString := getPriceString(payment.Amount)

	// 构建支付链接参数
	bm := make(gopay.BodyMap)
	bm.Set("amount", amountString).
		Set("payment", payment.Id).
		Set("shop", strconv.Itoa(pp.ShopId)).
		Set("desc", payment.Description).
		Set("currency", string(pp.Currency)).
		Set("success_url", successUrl).
		Set("method", string(pp.PaymentType)).
		Set("sign", pp.paySign(amountString, payment.Id, string(pp.Currency), payment.Description))

	payment.PayUrl = pp.baseUrl + "/pay?" + bm.EncodeURLParams()
	return payment, nil
}

// GetStatusAndIncome 查询PayOk交易状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *PayOkPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	bm := make(gopay.BodyMap)
	bm.Set("API_ID", strconv.Itoa(pp.ApiId)).
		Set("API_KEY", pp.ApiKey).
		Set("shop", strconv.Itoa(pp.ShopId)).
		Set("payment", paymentId)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/api/transaction", formHeaders(), bm.EncodeURLParams())
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	var transactionResp map[string]interface{}
	if err = json.Unmarshal(respBytes, &transactionResp); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}

	// PayOk对不存在的交易返回非success状态
	if transactionResp["status"] != "success" {
		return "", nil, fmt.Errorf("%w: payment with id %s not found", ErrPaymentNotFound, paymentId)
	}

	// 交易记录在"1"键下
	transaction, ok := transactionResp["1"].(map[string]interface{})
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed transaction response: %s", ErrPaymentGetting, respBytes)
	}

	rawStatus, _ := transaction["transaction_status"].(string)
	status := payOkStatusMap[rawStatus]
	income := parseFloat(transaction["amount_profit"])
	return status, income, nil
}

// PayOkBalance PayOk余额信息结构体
type PayOkBalance struct {
	Balance    float64 // 主余额
	RefBalance float64 // 推荐奖励余额
}

// Balance 查询PayOk账户余额
// 返回:
//   - *PayOkBalance: 余额信息
//   - error: 错误信息
func (pp *PayOkPaymentProvider) Balance() (*PayOkBalance, error) {
	bm := make(gopay.BodyMap)
	bm.Set("API_ID", strconv.Itoa(pp.ApiId)).
		Set("API_KEY", pp.ApiKey)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, pp.baseUrl+"/api/balance", formHeaders(), bm.EncodeURLParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	var balanceResp map[string]interface{}
	if err = json.Unmarshal(respBytes, &balanceResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if balanceResp["status"] == "error" {
		return nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	balance := &PayOkBalance{}
	if value := parseFloat(balanceResp["balance"]); value != nil {
		balance.Balance = *value
	}
	if value := parseFloat(balanceResp["ref_balance"]); value != nil {
		balance.RefBalance = *value
	}
	return balance, nil
}

// paySign 计算支付链接签名
// 按amount|payment|shop|currency|desc|secret顺序用竖线连接后取MD5
// 参数:
//   - amount: 金额字符串
//   - paymentId: 支付ID
//   - currency: 货币类型
//   - description: 支付备注
//
// 返回:
//   - string: 签名
func (pp *PayOkPaymentProvider) paySign(amount string, paymentId string, currency string, description string) string {
	signString := strings.Join([]string{
		amount,
		paymentId,
		strconv.Itoa(pp.ShopId),
		currency,
		description,
		pp.ShopSecretKey,
	}, "|")
	return getMd5Hash(signString)
}
