// Package payment 支付相关功能
package payment

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// defaultTimeout 单次网络请求的超时时间
// 远端网关不可信，必须限制等待时间
const defaultTimeout = 10 * time.Second

// newHttpClient 创建带超时的HTTP客户端
// 返回:
//   - *http.Client: HTTP客户端
func newHttpClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// sendRequest 发送HTTP请求并返回状态码和响应体
// 参数:
//   - client: HTTP客户端
//   - method: 请求方法
//   - rawUrl: 请求URL
//   - headers: 请求头
//   - body: 请求体（为空时不发送）
//
// 返回:
//   - int: HTTP状态码
//   - []byte: 响应体
//   - error: 错误信息
func sendRequest(client *http.Client, method string, rawUrl string, headers map[string]string, body string) (int, []byte, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	// 创建请求
	req, err := http.NewRequest(method, rawUrl, reader)
	if err != nil {
		return 0, nil, err
	}

	// 设置请求头
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// 执行请求
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	// 确保响应体被关闭
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			return
		}
	}(resp.Body)

	// 读取响应体
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBytes, nil
}

// formHeaders 表单请求通用请求头
// 返回:
//   - map[string]string: 请求头
func formHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	}
}

// getPriceString 将价格浮点数转换为字符串
// 去除末尾的零和小数点
// 参数:
//   - price: 价格浮点数
//
// 返回:
//   - string: 格式化后的价格字符串
func getPriceString(price float64) string {
	priceString := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", price), "0"), ".")
	return priceString
}

// priceFloat64ToString 将浮点数价格转换为字符串
// 保留两位小数
// 参数:
//   - price: 浮点数价格
//
// 返回:
//   - string: 价格字符串
func priceFloat64ToString(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// roundAmount 将金额四舍五入到两位小数
// 参数:
//   - amount: 金额
//
// 返回:
//   - float64: 保留两位小数的金额
func roundAmount(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

// getMd5Hash 计算字符串的MD5十六进制摘要
// 用于PayOk和BetaTransfer的请求签名
// 参数:
//   - s: 待计算字符串
//
// 返回:
//   - string: 十六进制摘要
func getMd5Hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// getSha256Hash 计算字符串的SHA256十六进制摘要
// 用于Aaio的请求签名
// 参数:
//   - s: 待计算字符串
//
// 返回:
//   - string: 十六进制摘要
func getSha256Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// parseFloat 将JSON中的数值或字符串转换为浮点数指针
// 各网关返回金额的类型不统一，可能是数字也可能是字符串
// 参数:
//   - value: JSON反序列化得到的任意值
//
// 返回:
//   - *float64: 浮点数指针（无法解析时为nil）
func parseFloat(value interface{}) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}
