// Package payment 支付相关功能
package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-pay/gopay"
)

// AaioCurrency Aaio货币类型
type AaioCurrency string

// Aaio货币常量定义
const (
	AaioCurrencyRub AaioCurrency = "RUB" // 俄罗斯卢布
	AaioCurrencyUah AaioCurrency = "UAH" // 乌克兰格里夫纳
	AaioCurrencyEur AaioCurrency = "EUR" // 欧元
	AaioCurrencyUsd AaioCurrency = "USD" // 美元
)

// AaioPaymentType Aaio支付方式类型
type AaioPaymentType string

// Aaio支付方式常量定义
const (
	AaioPaymentTypeCardsRu       AaioPaymentType = "cards_ru"       // 俄罗斯银行卡
	AaioPaymentTypeCardsUa       AaioPaymentType = "cards_ua"       // 乌克兰银行卡
	AaioPaymentTypeCardsKz       AaioPaymentType = "cards_kz"       // 哈萨克斯坦银行卡
	AaioPaymentTypeSbp           AaioPaymentType = "sbp"            // SBP快速支付
	AaioPaymentTypeQiwi          AaioPaymentType = "qiwi"           // QIWI钱包
	AaioPaymentTypePerfectMoney  AaioPaymentType = "perfectmoney"   // Perfect Money
	AaioPaymentTypeYooMoney      AaioPaymentType = "yoomoney"       // YooMoney钱包
	AaioPaymentTypeAdvCash       AaioPaymentType = "advcash"        // AdvCash
	AaioPaymentTypePayeer        AaioPaymentType = "payeer"         // Payeer
	AaioPaymentTypeSkins         AaioPaymentType = "skins"          // 游戏饰品
	AaioPaymentTypeBeelineRu     AaioPaymentType = "beeline_ru"     // Beeline话费
	AaioPaymentTypeTele2         AaioPaymentType = "tele2"          // Tele2话费
	AaioPaymentTypeMegafonRu     AaioPaymentType = "megafon_ru"     // Megafon话费
	AaioPaymentTypeMtsRu         AaioPaymentType = "mts_ru"         // MTS话费
	AaioPaymentTypeYota          AaioPaymentType = "yota"           // Yota话费
	AaioPaymentTypeBitcoin       AaioPaymentType = "bitcoin"        // 比特币
	AaioPaymentTypeBitcoinCash   AaioPaymentType = "bitcoincash"    // 比特币现金
	AaioPaymentTypeEthereum      AaioPaymentType = "ethereum"       // 以太坊
	AaioPaymentTypeTetherTrc20   AaioPaymentType = "tether_trc20"   // USDT TRC20
	AaioPaymentTypeTetherErc20   AaioPaymentType = "tether_erc20"   // USDT ERC20
	AaioPaymentTypeTetherTon     AaioPaymentType = "tether_ton"     // USDT TON
	AaioPaymentTypeTetherPolygon AaioPaymentType = "tether_polygon" // USDT Polygon
	AaioPaymentTypeTetherBsc     AaioPaymentType = "tether_bsc"     // USDT BSC
	AaioPaymentTypeUsdCoinTrc20  AaioPaymentType = "usdcoin_trc20"  // USDC TRC20
	AaioPaymentTypeUsdCoinErc20  AaioPaymentType = "usdcoin_erc20"  // USDC ERC20
	AaioPaymentTypeUsdCoinBsc    AaioPaymentType = "usdcoin_bsc"    // USDC BSC
	AaioPaymentTypeBnbBsc        AaioPaymentType = "bnb_bsc"        // BNB BSC
	AaioPaymentTypeNotCoin       AaioPaymentType = "notcoin"        // Notcoin
	AaioPaymentTypeTron          AaioPaymentType = "tron"           // TRON
	AaioPaymentTypeLitecoin      AaioPaymentType = "litecoin"       // 莱特币
	AaioPaymentTypeDogecoin      AaioPaymentType = "dogecoin"       // 狗狗币
	AaioPaymentTypeDaiErc20      AaioPaymentType = "dai_erc20"      // DAI ERC20
	AaioPaymentTypeDaiBsc        AaioPaymentType = "dai_bsc"        // DAI BSC
	AaioPaymentTypeDash          AaioPaymentType = "dash"           // 达世币
	AaioPaymentTypeMonero        AaioPaymentType = "monero"         // 门罗币
	AaioPaymentTypeCoupon        AaioPaymentType = "coupon"         // Aaio优惠券
	AaioPaymentTypeBalance       AaioPaymentType = "balance"        // Aaio余额
)

// aaioBaseUrl Aaio API基础地址
const aaioBaseUrl = "https://aaio.so"

// aaioStatusMap Aaio原始状态到统一状态的映射表
var aaioStatusMap = map[string]PaymentStatus{
	"success":    PaymentStatusPaid,
	"in_process": PaymentStatusWaiting,
	"expired":    PaymentStatusExpired,
	"hold":       PaymentStatusWaiting,
}

// AaioBalance Aaio账户余额信息
type AaioBalance struct {
	Balance         float64 `json:"balance"`  // 可用余额
	ReferralBalance float64 `json:"referral"` // 推荐余额
	HoldBalance     float64 `json:"hold"`     // 冻结余额
}

// AaioPaymentProvider Aaio支付提供商
// 对接Aaio商户API
type AaioPaymentProvider struct {
	ApiKey      string          // API密钥
	Secret1     string          // 商户一号密钥（签名用）
	MerchantId  string          // 商户ID
	PaymentType AaioPaymentType // 支付方式
	Currency    AaioCurrency    // 货币类型

	baseUrl    string       // API基础地址（测试时可替换）
	client     *http.Client // HTTP客户端
	authorized bool         // 是否已完成授权
}

// NewAaioPaymentProvider 创建新的Aaio支付提供商实例并校验凭证
// 参数:
//   - apiKey: API密钥
//   - secret1: 商户一号密钥
//   - merchantId: 商户ID
//   - paymentType: 支付方式（为空时默认俄罗斯银行卡）
//   - currency: 货币类型（为空时默认卢布）
//
// 返回:
//   - *AaioPaymentProvider: Aaio支付提供商实例
//   - error: 错误信息
func NewAaioPaymentProvider(apiKey string, secret1 string, merchantId string, paymentType AaioPaymentType, currency AaioCurrency) (*AaioPaymentProvider, error) {
	if paymentType == "" {
		paymentType = AaioPaymentTypeCardsRu
	}
	if currency == "" {
		currency = AaioCurrencyRub
	}

	pp := &AaioPaymentProvider{
		ApiKey:      apiKey,
		Secret1:     secret1,
		MerchantId:  merchantId,
		PaymentType: paymentType,
		Currency:    currency,
		baseUrl:     aaioBaseUrl,
		client:      newHttpClient(),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 通过商户支付方式接口校验API密钥和商户ID
// 返回:
//   - error: 错误信息
func (pp *AaioPaymentProvider) Authorize() error {
	methodsUrl := pp.baseUrl + "/api/methods-pay?merchant_id=" + url.QueryEscape(pp.MerchantId)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, methodsUrl, pp.headers(), "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthorization, err)
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrAuthorization, respBytes)
	}

	pp.authorized = true
	return nil
}

// Authorized 返回是否已完成授权
func (pp *AaioPaymentProvider) Authorized() bool {
	return pp.authorized
}

// CreatePayment 创建Aaio支付
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *AaioPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	if pp.MerchantId == "" {
		return nil, fmt.Errorf("%w: you must specify merchant id", ErrPaymentCreation)
	}
	if pp.Currency == "" {
		return nil, fmt.Errorf("%w: you must specify currency", ErrPaymentCreation)
	}

	amount := getPriceString(payment.Amount)
	sign := pp.paySign(amount, payment.Id)

	// 构建支付链接请求表单
	bm := make(gopay.BodyMap)
	bm.Set("merchant_id", pp.MerchantId).
		Set("amount", amount).
		Set("order_id", payment.Id).
		Set("sign", sign).
		Set("currency", string(pp.Currency)).
		Set("desc", payment.Description).
		Set("method", string(pp.PaymentType))

	payUrl := pp.baseUrl + "/merchant/get_pay_url"
	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, payUrl, pp.headers(), bm.EncodeURLParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrPaymentCreation, respBytes)
	}

	var createResp struct {
		Type string `json:"type"` // 响应类型
		Url  string `json:"url"`  // 支付URL
	}
	if err = json.Unmarshal(respBytes, &createResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	if createResp.Type != "success" {
		return nil, fmt.Errorf("%w: %s", ErrPaymentCreation, respBytes)
	}

	payment.PayUrl = createResp.Url
	return payment, nil
}

// GetStatusAndIncome 查询Aaio支付状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *AaioPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	infoUrl := pp.baseUrl + "/api/info-pay?order_id=" + url.QueryEscape(paymentId) +
		"&merchant_id=" + url.QueryEscape(pp.MerchantId)

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, infoUrl, pp.headers(), "")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode == http.StatusNotFound {
		return "", nil, fmt.Errorf("%w: payment with id %s not found", ErrPaymentNotFound, paymentId)
	}
	if statusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	var infoResp struct {
		Status string      `json:"status"` // 原始状态
		Profit interface{} `json:"profit"` // 到账金额
	}
	if err = json.Unmarshal(respBytes, &infoResp); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}

	status := aaioStatusMap[infoResp.Status]
	income := parseFloat(infoResp.Profit)
	return status, income, nil
}

// Balance 查询Aaio账户余额
// 返回:
//   - *AaioBalance: 账户余额信息
//   - error: 错误信息
func (pp *AaioPaymentProvider) Balance() (*AaioBalance, error) {
	balanceUrl := pp.baseUrl + "/api/balance"

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, balanceUrl, pp.headers(), "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrPaymentGetting, respBytes)
	}

	var balance AaioBalance
	if err = json.Unmarshal(respBytes, &balance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}
	return &balance, nil
}

// paySign 计算支付签名
// 签名为商户ID、金额、货币、一号密钥和订单ID用冒号连接后的SHA256摘要
// 参数:
//   - amount: 金额字符串
//   - paymentId: 支付ID
//
// 返回:
//   - string: 签名
func (pp *AaioPaymentProvider) paySign(amount string, paymentId string) string {
	return getSha256Hash(strings.Join([]string{pp.MerchantId, amount, string(pp.Currency), pp.Secret1, paymentId}, ":"))
}

// headers 构建Aaio请求头
func (pp *AaioPaymentProvider) headers() map[string]string {
	return map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/x-www-form-urlencoded",
		"X-Api-Key":    pp.ApiKey,
	}
}
