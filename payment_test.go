package payment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingProvider 查询总是失败的支付提供商，用于测试错误透传
type failingProvider struct {
	err error
}

func (fp *failingProvider) Authorize() error { return nil }
func (fp *failingProvider) Authorized() bool { return true }
func (fp *failingProvider) CreatePayment(r *PaymentRequest) (*Payment, error) {
	return newPayment(fp, r)
}
func (fp *failingProvider) GetStatusAndIncome(paymentId string) (PaymentStatus, *float64, error) {
	return "", nil, fp.err
}

func TestCreatePaymentNotAuthorized(t *testing.T) {
	// 未授权的提供商不应发起任何网络请求
	providers := []PaymentProvider{
		&QiwiPaymentProvider{},
		&YooMoneyPaymentProvider{},
		&PayOkPaymentProvider{},
		&LavaPaymentProvider{},
		&BetaTransferPaymentProvider{},
		&AaioPaymentProvider{},
		&DummyPaymentProvider{},
	}

	for _, pp := range providers {
		payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100})
		assert.Nil(t, payment)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	}
}

func TestCreatePaymentDefaults(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)
	require.True(t, pp.Authorized())

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100.456})
	require.NoError(t, err)

	assert.NotEmpty(t, payment.Id)
	assert.Equal(t, payment.Id, payment.Description)
	assert.Equal(t, 100.46, payment.Amount)
	assert.Equal(t, PaymentStatusWaiting, payment.Status)
	assert.Nil(t, payment.Income)
	assert.Equal(t, pp.PayUrlPrefix+payment.Id, payment.PayUrl)
}

func TestCreatePaymentExplicitIdAndDescription(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)

	payment, err := pp.CreatePayment(&PaymentRequest{
		Amount:      50,
		PaymentId:   "order-1",
		Description: "order description",
	})
	require.NoError(t, err)

	assert.Equal(t, "order-1", payment.Id)
	assert.Equal(t, "order description", payment.Description)
}

func TestCreatePaymentUniqueIds(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)

	first, err := pp.CreatePayment(&PaymentRequest{Amount: 10})
	require.NoError(t, err)
	second, err := pp.CreatePayment(&PaymentRequest{Amount: 10})
	require.NoError(t, err)

	assert.NotEqual(t, first.Id, second.Id)
}

func TestUpdateTransitionsStatusAndIncome(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100})
	require.NoError(t, err)

	income := 95.5
	pp.SetRemoteStatus(payment.Id, PaymentStatusPaid, &income)

	require.NoError(t, payment.Update())
	assert.Equal(t, PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.Income)
	assert.Equal(t, 95.5, *payment.Income)

	// 重复刷新不改变结果
	require.NoError(t, payment.Update())
	assert.Equal(t, PaymentStatusPaid, payment.Status)
}

func TestUpdateNotFoundKeepsState(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100})
	require.NoError(t, err)

	income := 42.0
	pp.SetRemoteStatus(payment.Id, PaymentStatusPaid, &income)
	require.NoError(t, payment.Update())

	// 远端记录消失时刷新不报错也不改状态
	pp.ForgetPayment(payment.Id)
	require.NoError(t, payment.Update())
	assert.Equal(t, PaymentStatusPaid, payment.Status)
	require.NotNil(t, payment.Income)
	assert.Equal(t, 42.0, *payment.Income)
}

func TestUpdateUnknownStatusKeepsPrevious(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)

	payment, err := pp.CreatePayment(&PaymentRequest{Amount: 100})
	require.NoError(t, err)

	// 未识别的状态不覆盖原状态，但到账金额照常更新
	income := 10.0
	pp.SetRemoteStatus(payment.Id, "", &income)

	require.NoError(t, payment.Update())
	assert.Equal(t, PaymentStatusWaiting, payment.Status)
	require.NotNil(t, payment.Income)
	assert.Equal(t, 10.0, *payment.Income)
}

func TestUpdatePropagatesErrors(t *testing.T) {
	gettingErr := errors.New("gateway exploded")
	fp := &failingProvider{err: gettingErr}

	payment, err := fp.CreatePayment(&PaymentRequest{Amount: 100})
	require.NoError(t, err)

	err = payment.Update()
	assert.ErrorIs(t, err, gettingErr)
	assert.Equal(t, PaymentStatusWaiting, payment.Status)
}

func TestReauthorizeFailureKeepsAuthorized(t *testing.T) {
	pp, err := NewDummyPaymentProvider()
	require.NoError(t, err)
	require.True(t, pp.Authorized())

	// 虚拟提供商授权总是成功，轮换后仍保持授权状态
	require.NoError(t, pp.Authorize())
	assert.True(t, pp.Authorized())
}
