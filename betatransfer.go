// Package payment 支付相关功能
package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-pay/gopay"
	"github.com/shopspring/decimal"
)

// BetaTransferCurrency BetaTransfer货币类型
type BetaTransferCurrency string

// BetaTransfer货币常量定义
const (
	BetaTransferCurrencyRub BetaTransferCurrency = "RUB" // 俄罗斯卢布
	BetaTransferCurrencyUah BetaTransferCurrency = "UAH" // 乌克兰格里夫纳
	BetaTransferCurrencyUsd BetaTransferCurrency = "USD" // 美元
	BetaTransferCurrencyKzt BetaTransferCurrency = "KZT" // 哈萨克斯坦坚戈
	BetaTransferCurrencyUzs BetaTransferCurrency = "UZS" // 乌兹别克斯坦苏姆
	BetaTransferCurrencyByn BetaTransferCurrency = "BYN" // 白俄罗斯卢布
)

// BetaTransferLocale 支付页面语言类型
type BetaTransferLocale string

// 支付页面语言常量定义
const (
	BetaTransferLocaleRussian   BetaTransferLocale = "ru" // 俄语
	BetaTransferLocaleEnglish   BetaTransferLocale = "en" // 英语
	BetaTransferLocaleUkrainian BetaTransferLocale = "uk" // 乌克兰语
)

// BetaTransferPaymentType BetaTransfer支付方式类型
type BetaTransferPaymentType string

// BetaTransfer支付方式常量定义
const (
	BetaTransferPaymentTypeUsdtTrc20  BetaTransferPaymentType = "USDT_TRC20"   // USDT TRC20
	BetaTransferPaymentTypeUsdtErc20  BetaTransferPaymentType = "USDT_ERC20"   // USDT ERC20
	BetaTransferPaymentTypeEth        BetaTransferPaymentType = "ETH"          // 以太坊
	BetaTransferPaymentTypeBtc        BetaTransferPaymentType = "BTC"          // 比特币
	BetaTransferPaymentTypeCrypto     BetaTransferPaymentType = "CRYPTO"       // 通用加密货币
	BetaTransferPaymentTypeKztCardUsd BetaTransferPaymentType = "KZT_CARD_USD" // 哈萨克斯坦银行卡（美元结算）
	BetaTransferPaymentTypeKztCard    BetaTransferPaymentType = "KZT_CARD"     // 哈萨克斯坦银行卡
	BetaTransferPaymentTypeUzsCard    BetaTransferPaymentType = "UZS_CARD"     // 乌兹别克斯坦银行卡
	BetaTransferPaymentTypeRubP2R     BetaTransferPaymentType = "RUB_P2R"      // 俄罗斯P2R转账
	BetaTransferPaymentTypeRubSbp     BetaTransferPaymentType = "RUB_SBP"      // 俄罗斯SBP快速支付
	BetaTransferPaymentTypeRubCard    BetaTransferPaymentType = "RUB_CARD"     // 俄罗斯银行卡
	BetaTransferPaymentTypeYooMoney   BetaTransferPaymentType = "YOOMONEY"     // YooMoney钱包
	BetaTransferPaymentTypeSberPay    BetaTransferPaymentType = "SBER_PAY"     // Sber Pay
	BetaTransferPaymentTypeRubIban    BetaTransferPaymentType = "RUB_IBAN"     // 俄罗斯IBAN转账
	BetaTransferPaymentTypeUahCard    BetaTransferPaymentType = "UAH_CARD"     // 乌克兰银行卡
	BetaTransferPaymentTypeBynCard    BetaTransferPaymentType = "BYN_CARD"     // 白俄罗斯银行卡
	BetaTransferPaymentTypeBynCard2   BetaTransferPaymentType = "BYN_CARD2"    // 白俄罗斯银行卡（备用通道）
)

// BetaTransferGateway BetaTransfer网关描述结构体
// 每种支付方式对应一个具体网关及其手续费和金额限制
type BetaTransferGateway struct {
	Name                string               // 网关名称（paymentSystem参数）
	Currency            BetaTransferCurrency // 货币类型
	CommissionInPercent float64              // 手续费百分比
	MinAmount           float64              // 最小金额（0表示不限）
	MaxAmount           float64              // 最大金额（0表示不限）
}

// betaTransferGateways 支付方式到网关描述的映射表
var betaTransferGateways = map[BetaTransferPaymentType]BetaTransferGateway{
	BetaTransferPaymentTypeUsdtTrc20:  {Name: "USDT_TRC20", Currency: BetaTransferCurrencyUsd, CommissionInPercent: 2, MinAmount: 5, MaxAmount: 5000},
	BetaTransferPaymentTypeUsdtErc20:  {Name: "USDT_ERC20", Currency: BetaTransferCurrencyUsd, CommissionInPercent: 2, MinAmount: 30, MaxAmount: 5000},
	BetaTransferPaymentTypeEth:        {Name: "ETH", Currency: BetaTransferCurrencyUsd, CommissionInPercent: 0, MinAmount: 22, MaxAmount: 5000},
	BetaTransferPaymentTypeBtc:        {Name: "BTC", Currency: BetaTransferCurrencyUsd, CommissionInPercent: 0, MinAmount: 20, MaxAmount: 500},
	BetaTransferPaymentTypeCrypto:     {Name: "CRYPTO", Currency: BetaTransferCurrencyUsd, CommissionInPercent: 2, MinAmount: 5, MaxAmount: 5000},
	BetaTransferPaymentTypeKztCardUsd: {Name: "P2R_KZT", Currency: BetaTransferCurrencyUsd, CommissionInPercent: 12, MinAmount: 12, MaxAmount: 1000},
	BetaTransferPaymentTypeKztCard:    {Name: "P2R_KZT", Currency: BetaTransferCurrencyKzt, CommissionInPercent: 12},
	BetaTransferPaymentTypeUzsCard:    {Name: "Card6", Currency: BetaTransferCurrencyUzs, CommissionInPercent: 12, MinAmount: 100000},
	BetaTransferPaymentTypeRubP2R:     {Name: "P2R", Currency: BetaTransferCurrencyRub, CommissionInPercent: 9.5, MinAmount: 1500, MaxAmount: 50000},
	BetaTransferPaymentTypeRubSbp:     {Name: "Card4", Currency: BetaTransferCurrencyRub, CommissionInPercent: 9, MinAmount: 500, MaxAmount: 10000},
	BetaTransferPaymentTypeRubCard:    {Name: "Card", Currency: BetaTransferCurrencyRub, CommissionInPercent: 12, MinAmount: 100, MaxAmount: 75000},
	BetaTransferPaymentTypeYooMoney:   {Name: "YooMoney", Currency: BetaTransferCurrencyRub, CommissionInPercent: 14, MinAmount: 1000, MaxAmount: 50000},
	BetaTransferPaymentTypeSberPay:    {Name: "Card5", Currency: BetaTransferCurrencyRub, CommissionInPercent: 10, MinAmount: 500, MaxAmount: 100000},
	BetaTransferPaymentTypeRubIban:    {Name: "Card9", Currency: BetaTransferCurrencyRub, CommissionInPercent: 9, MinAmount: 300, MaxAmount: 100000},
	BetaTransferPaymentTypeUahCard:    {Name: "Card1", Currency: BetaTransferCurrencyUah, CommissionInPercent: 9.5, MinAmount: 350, MaxAmount: 10000},
	BetaTransferPaymentTypeBynCard:    {Name: "Card2", Currency: BetaTransferCurrencyByn, CommissionInPercent: 12, MinAmount: 30, MaxAmount: 10000},
	BetaTransferPaymentTypeBynCard2:   {Name: "Card3", Currency: BetaTransferCurrencyByn, CommissionInPercent: 12, MinAmount: 30, MaxAmount: 5000},
}

// betaTransferBaseUrl BetaTransfer API基础地址
const betaTransferBaseUrl = "https://merchant.betatransfer.io/api"

// betaTransferStatusMap BetaTransfer原始状态到统一状态的映射表
var betaTransferStatusMap = map[string]PaymentStatus{
	"success":                      PaymentStatusPaid,
	"cancel":                       PaymentStatusRejected,
	"processing":                   PaymentStatusWaiting,
	"error":                        PaymentStatusRejected,
	"pending":                      PaymentStatusWaiting,
	"checkPayment":                 PaymentStatusWaiting,
	"not_paid":                     PaymentStatusWaiting,
	"not_paid_timeout":             PaymentStatusExpired,
	"not_paid_unavailable_country": PaymentStatusRejected,
	"hold_payment":                 PaymentStatusWaiting,
	"new":                          PaymentStatusWaiting,
	"entered_card_data":            PaymentStatusWaiting,
	"partial_payment":              PaymentStatusWaiting,
	"awaiting_confirmation":        PaymentStatusWaiting,
}

// BetaTransferPaymentProvider BetaTransfer支付提供商
// 对接BetaTransfer商户API
type BetaTransferPaymentProvider struct {
	PublicKey        string                  // 公开API密钥
	PrivateKey       string                  // 私有API密钥（签名用）
	PaymentType      BetaTransferPaymentType // 支付方式
	ResultUrl        string                  // 支付结果回调URL
	SuccessUrl       string                  // 支付成功跳转URL
	FailUrl          string                  // 支付失败跳转URL
	Locale           BetaTransferLocale      // 支付页面语言
	ChargeCommission ChargeCommission        // 手续费承担方
	SkipValidation   bool                    // 跳过本地参数校验

	baseUrl    string       // API基础地址（测试时可替换）
	client     *http.Client // HTTP客户端
	authorized bool         // 是否已完成授权
}

// NewBetaTransferPaymentProvider 创建新的BetaTransfer支付提供商实例并校验凭证
// 跳转URL默认值可在创建后通过字段设置，也可在每次支付请求中传入
// 参数:
//   - publicKey: 公开API密钥
//   - privateKey: 私有API密钥
//   - paymentType: 支付方式（为空时默认俄罗斯P2R）
//   - locale: 支付页面语言（为空时默认俄语）
//   - chargeCommission: 手续费承担方（为空时默认收款人承担）
//
// 返回:
//   - *BetaTransferPaymentProvider: BetaTransfer支付提供商实例
//   - error: 错误信息
func NewBetaTransferPaymentProvider(publicKey string, privateKey string, paymentType BetaTransferPaymentType, locale BetaTransferLocale, chargeCommission ChargeCommission) (*BetaTransferPaymentProvider, error) {
	if paymentType == "" {
		paymentType = BetaTransferPaymentTypeRubP2R
	}
	if locale == "" {
		locale = BetaTransferLocaleRussian
	}
	if chargeCommission == "" {
		chargeCommission = ChargeCommissionFromSeller
	}

	pp := &BetaTransferPaymentProvider{
		PublicKey:        publicKey,
		PrivateKey:       privateKey,
		PaymentType:      paymentType,
		Locale:           locale,
		ChargeCommission: chargeCommission,
		baseUrl:          betaTransferBaseUrl,
		client:           newHttpClient(),
	}

	if err := pp.Authorize(); err != nil {
		return nil, err
	}
	return pp, nil
}

// Authorize 通过账户信息接口校验API密钥对
// 返回:
//   - error: 错误信息
func (pp *BetaTransferPaymentProvider) Authorize() error {
	// 签名为按序连接的参数值加私钥后取MD5
	sign := getMd5Hash(pp.PublicKey + pp.PrivateKey)
	accountInfoUrl := pp.baseUrl + "/account-info?token=" + url.QueryEscape(pp.PublicKey) + "&sign=" + sign

	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, accountInfoUrl, formHeaders(), "")
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
func (pp *BetaTransferPaymentProvider) Authorized() bool {
	return pp.authorized
}

// CreatePayment 创建BetaTransfer支付
// 先做本地参数校验，再向BetaTransfer登记支付
// 参数:
//   - r: 支付请求信息
//
// 返回:
//   - *Payment: 支付实例
//   - error: 错误信息
func (pp *BetaTransferPaymentProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	payment, err := newPayment(pp, r)
	if err != nil {
		return nil, err
	}

	resultUrl := r.ResultUrl
	if resultUrl == "" {
		resultUrl = pp.ResultUrl
	}
	successUrl := r.SuccessUrl
	if successUrl == "" {
		successUrl = pp.SuccessUrl
	}
	failUrl := r.FailUrl
	if failUrl == "" {
		failUrl = pp.FailUrl
	}

	// 本地校验失败时不发起网络请求
	if err = pp.validateParams(payment.Amount, successUrl, failUrl); err != nil {
		return nil, err
	}

	gateway := betaTransferGateways[pp.PaymentType]

	// 构建支付登记表单
	bm := make(gopay.BodyMap)
	bm.Set("amount", priceFloat64ToString(pp.amountWithCommission(payment.Amount))).
		Set("currency", string(gateway.Currency)).
		Set("orderId", payment.Id).
		Set("paymentSystem", gateway.Name).
		Set("urlResult", resultUrl).
		Set("urlSuccess", successUrl).
		Set("urlFail", failUrl).
		Set("locale", string(pp.Locale)).
		Set("fullCallback", "1").
		Set("payerId", r.PayerId)

	paymentUrl := pp.baseUrl + "/payment?token=" + url.QueryEscape(pp.PublicKey)
	statusCode, respBytes, err := sendRequest(pp.client, http.MethodPost, paymentUrl, formHeaders(), bm.EncodeURLParams())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	if statusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrPaymentCreation, respBytes)
	}

	var createResp struct {
		Url string `json:"url"` // 支付URL
	}
	if err = json.Unmarshal(respBytes, &createResp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}

	payment.PayUrl = createResp.Url
	return payment, nil
}

// GetStatusAndIncome 查询BetaTransfer支付状态和到账金额
// 参数:
//   - paymentId: 支付ID
//
// 返回:
//   - PaymentStatus: 支付状态
//   - *float64: 到账金额
//   - error: 错误信息
func (pp *BetaTransferPaymentProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	bm := make(gopay.BodyMap)
	bm.Set("orderId", paymentId).
		Set("sign", getMd5Hash(paymentId+pp.PrivateKey))

	// BetaTransfer的查询接口使用带表单体的GET请求
	infoUrl := pp.baseUrl + "/info?token=" + url.QueryEscape(pp.PublicKey)
	statusCode, respBytes, err := sendRequest(pp.client, http.MethodGet, infoUrl, formHeaders(), bm.EncodeURLParams())
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
		Status        string      `json:"status"`        // 原始状态
		BalanceAmount interface{} `json:"balanceAmount"` // 到账金额
	}
	if err = json.Unmarshal(respBytes, &infoResp); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrPaymentGetting, err)
	}

	status := betaTransferStatusMap[infoResp.Status]
	income := parseFloat(infoResp.BalanceAmount)
	return status, income, nil
}

// validateParams 本地校验支付参数
// 校验跳转URL、支付方式和含手续费金额是否在网关限额内
// 参数:
//   - amount: 原金额
//   - successUrl: 支付成功跳转URL
//   - failUrl: 支付失败跳转URL
//
// 返回:
//   - error: 错误信息
func (pp *BetaTransferPaymentProvider) validateParams(amount float64, successUrl string, failUrl string) error {
	// 支付方式和语言缺失时无法构造请求，跳过校验也不放行
	if pp.PaymentType == "" || pp.Locale == "" {
		return fmt.Errorf("%w: you must specify payment type and locale", ErrPaymentCreation)
	}

	if pp.SkipValidation {
		return nil
	}

	if successUrl == "" || failUrl == "" {
		return fmt.Errorf("%w: you must specify success and fail urls", ErrPaymentCreation)
	}

	gateway, ok := betaTransferGateways[pp.PaymentType]
	if !ok {
		return fmt.Errorf("%w: unknown payment type %s", ErrPaymentCreation, pp.PaymentType)
	}

	// 限额校验使用含手续费的金额
	amountWithCommission := pp.amountWithCommission(amount)
	invalidMin := gateway.MinAmount > 0 && amountWithCommission < gateway.MinAmount
	invalidMax := gateway.MaxAmount > 0 && amountWithCommission > gateway.MaxAmount
	if invalidMin || invalidMax {
		return fmt.Errorf("%w: amount for %s (%s) must be between %g and %g %s",
			ErrPaymentCreation, pp.PaymentType, gateway.Name, gateway.MinAmount, gateway.MaxAmount, gateway.Currency)
	}
	return nil
}

// amountWithCommission 计算含手续费的应付金额
// 仅当手续费由付款人承担时按网关百分比外加，保留两位小数
// 参数:
//   - amount: 原金额
//
// 返回:
//   - float64: 应付金额
func (pp *BetaTransferPaymentProvider) amountWithCommission(amount float64) float64 {
	gateway, ok := betaTransferGateways[pp.PaymentType]
	if pp.ChargeCommission != ChargeCommissionFromCustomer || !ok {
		return amount
	}

	sum := decimal.NewFromFloat(amount)
	fee := sum.Mul(decimal.NewFromFloat(gateway.CommissionInPercent)).Div(decimal.NewFromInt(100))
	result, _ := sum.Add(fee).Round(2).Float64()
	return result
}
