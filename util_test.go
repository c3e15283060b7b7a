package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPriceString(t *testing.T) {
	assert.Equal(t, "100", getPriceString(100.0))
	assert.Equal(t, "100.5", getPriceString(100.50))
	assert.Equal(t, "0.1", getPriceString(0.10))
	assert.Equal(t, "99.99", getPriceString(99.99))
}

func TestPriceFloat64ToString(t *testing.T) {
	assert.Equal(t, "100.00", priceFloat64ToString(100.0))
	assert.Equal(t, "100.50", priceFloat64ToString(100.5))
	assert.Equal(t, "0.10", priceFloat64ToString(0.1))
}

func TestRoundAmount(t *testing.T) {
	assert.Equal(t, 100.46, roundAmount(100.456))
	assert.Equal(t, 100.45, roundAmount(100.454))
	assert.Equal(t, 100.0, roundAmount(100))
	assert.Equal(t, 0.1, roundAmount(0.1))
}

func TestGetMd5Hash(t *testing.T) {
	assert.Equal(t, "098f6bcd4621d373cade4e832627b4f6", getMd5Hash("test"))
}

func TestGetSha256Hash(t *testing.T) {
	assert.Equal(t, "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08", getSha256Hash("test"))
}

func TestParseFloat(t *testing.T) {
	value := parseFloat(float64(100.5))
	require.NotNil(t, value)
	assert.Equal(t, 100.5, *value)

	value = parseFloat("42.25")
	require.NotNil(t, value)
	assert.Equal(t, 42.25, *value)

	assert.Nil(t, parseFloat("not a number"))
	assert.Nil(t, parseFloat(nil))
	assert.Nil(t, parseFloat(true))
}
