package payment

import (
	"os"
	"strconv"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain 加载.env中的凭证，没有.env时静默跳过
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}

// skipWithoutEnv 缺少凭证时跳过依赖真实网关的测试
func skipWithoutEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if os.Getenv(key) == "" {
			t.Skipf("%s is not set", key)
		}
	}
}

func TestQiwiLiveAuthorize(t *testing.T) {
	skipWithoutEnv(t, "QIWI_SECRET_KEY")

	pp, err := NewQiwiPaymentProvider(os.Getenv("QIWI_SECRET_KEY"), os.Getenv("QIWI_THEME_CODE"), 0, QiwiPaymentTypeAll)
	require.NoError(t, err)
	assert.True(t, pp.Authorized())
}

func TestYooMoneyLiveAuthorize(t *testing.T) {
	skipWithoutEnv(t, "YOOMONEY_ACCESS_TOKEN")

	pp, err := NewYooMoneyPaymentProvider(os.Getenv("YOOMONEY_ACCESS_TOKEN"), "", "", "")
	require.NoError(t, err)
	assert.True(t, pp.Authorized())
	assert.NotEmpty(t, pp.accountId)
}

func TestPayOkLiveAuthorize(t *testing.T) {
	skipWithoutEnv(t, "PAYOK_API_KEY", "PAYOK_API_ID", "PAYOK_SHOP_ID", "PAYOK_SHOP_SECRET_KEY")

	apiId, err := strconv.Atoi(os.Getenv("PAYOK_API_ID"))
	require.NoError(t, err)
	shopId, err := strconv.Atoi(os.Getenv("PAYOK_SHOP_ID"))
	require.NoError(t, err)

	pp, err := NewPayOkPaymentProvider(os.Getenv("PAYOK_API_KEY"), apiId, shopId, os.Getenv("PAYOK_SHOP_SECRET_KEY"), "", "", "")
	require.NoError(t, err)
	assert.True(t, pp.Authorized())
}

func TestLavaLiveAuthorize(t *testing.T) {
	skipWithoutEnv(t, "LAVA_TOKEN", "LAVA_WALLET_TO")

	pp, err := NewLavaPaymentProvider(os.Getenv("LAVA_TOKEN"), os.Getenv("LAVA_WALLET_TO"), 0, "", "", "")
	require.NoError(t, err)
	assert.True(t, pp.Authorized())
}

func TestBetaTransferLiveAuthorize(t *testing.T) {
	skipWithoutEnv(t, "BETATRANSFER_PUBLIC_KEY", "BETATRANSFER_PRIVATE_KEY")

	pp, err := NewBetaTransferPaymentProvider(
		os.Getenv("BETATRANSFER_PUBLIC_KEY"),
		os.Getenv("BETATRANSFER_PRIVATE_KEY"),
		"", "", "",
	)
	require.NoError(t, err)
	assert.True(t, pp.Authorized())
}

func TestAaioLiveAuthorize(t *testing.T) {
	skipWithoutEnv(t, "AAIO_API_KEY", "AAIO_SECRET_1", "AAIO_MERCHANT_ID")

	pp, err := NewAaioPaymentProvider(
		os.Getenv("AAIO_API_KEY"),
		os.Getenv("AAIO_SECRET_1"),
		os.Getenv("AAIO_MERCHANT_ID"),
		"", "",
	)
	require.NoError(t, err)
	assert.True(t, pp.Authorized())
}
