package payment

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAaioProvider 创建已授权的Aaio支付提供商
func newTestAaioProvider() *AaioPaymentProvider {
	return &AaioPaymentProvider{
		ApiKey:      "test-api-key",
		Secret1:     "test-secret1",
		MerchantId:  "merchant-1",
		PaymentType: AaioPaymentTypeCardsRu,
		Currency:    AaioCurrencyRub,
		baseUrl:     aaioBaseUrl,
		client:      newHttpClient(),
		authorized:  true,
	}
}

func TestAaioAuthorize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/methods-pay", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "merchant-1", r.URL.Query().Get("merchant_id"))
		_, _ = w.Write([]byte(`{"type":"success","list":{}}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()
	pp.authorized = false

	require.NoError(t, pp.Authorize())
	assert.True(t, pp.Authorized())
}

func TestAaioAuthorizeInvalidKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","message":"Неверный API ключ"}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()
	pp.authorized = false

	err := pp.Authorize()
	assert.ErrorIs(t, err, ErrAuthorization)
	assert.False(t, pp.Authorized())
}

func TestAaioPaySign(t *testing.T) {
	pp := newTestAaioProvider()

	want := getSha256Hash("merchant-1:100:RUB:test-secret1:order-1")
	assert.Equal(t, want, pp.paySign("100", "order-1"))
}

func TestAaioCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/merchant/get_pay_url", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "merchant-1", r.FormValue("merchant_id"))
		assert.Equal(t, "100", r.FormValue("amount"))
		assert.Equal(t, "order-1", r.FormValue("order_id"))
		assert.Equal(t, "RUB", r.FormValue("currency"))
		assert.Equal(t, "cards_ru", r.FormValue("method"))

		wantSign := getSha256Hash("merchant-1:100:RUB:test-secret1:order-1")
		assert.Equal(t, wantSign, r.FormValue("sign"))

		_, _ = w.Write([]byte(`{"type":"success","url":"https://aaio.so/merchant/pay/abc"}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100, PaymentId: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://aaio.so/merchant/pay/abc", payment.PayUrl)
}

func TestAaioCreatePaymentRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"error","message":"Неверная подпись"}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100})
	assert.Nil(t, payment)
	assert.ErrorIs(t, err, ErrPaymentCreation)
}

func TestAaioCreatePaymentMissingMerchant(t *testing.T) {
	pp := newTestAaioProvider()
	pp.MerchantId = ""

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100})
	assert.Nil(t, payment)
	assert.ErrorIs(t, err, ErrPaymentCreation)
	assert.Contains(t, err.Error(), "merchant id")
}

func TestAaioGetStatusAndIncome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/info-pay", r.URL.Path)
		assert.Equal(t, "order-1", r.URL.Query().Get("order_id"))
		assert.Equal(t, "merchant-1", r.URL.Query().Get("merchant_id"))
		_, _ = w.Write([]byte(`{"type":"success","status":"success","amount":100,"profit":95.5}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()

	status, income, err := pp.GetStatusAndIncome("order-1")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, status)
	require.NotNil(t, income)
	assert.Equal(t, 95.5, *income)
}

func TestAaioGetStatusAndIncomeHold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"success","status":"hold","amount":100}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()

	status, income, err := pp.GetStatusAndIncome("order-1")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusWaiting, status)
	assert.Nil(t, income)
}

func TestAaioGetStatusAndIncomeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()

	_, _, err := pp.GetStatusAndIncome("missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestAaioBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/balance", r.URL.Path)
		_, _ = w.Write([]byte(`{"type":"success","balance":50.5,"referral":1.0,"hold":2.0}`))
	}))
	defer server.Close()

	pp := newTestAaioProvider()
	pp.baseUrl = server.URL
	pp.client = server.Client()

	balance, err := pp.Balance()
	require.NoError(t, err)
	assert.Equal(t, 50.5, balance.Balance)
	assert.Equal(t, 1.0, balance.ReferralBalance)
	assert.Equal(t, 2.0, balance.HoldBalance)
}
