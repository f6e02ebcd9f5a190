package debito

import (
	"errors"
	"strings"
)

// 支付方式
const (
	MethodMpesa = "mpesa"
	MethodEmola = "emola"
)

var (
	ErrInvalidPhone   = errors.New("número de telefone inválido")
	ErrInvalidMethod  = errors.New("método de pagamento inválido")
	ErrMethodMismatch = errors.New("o número não corresponde ao método de pagamento")
)

// NormalizePhone 去掉空格和国家码前缀，返回 9 位本地号码
func NormalizePhone(phone string) string {
	cleaned := strings.ReplaceAll(phone, " ", "")
	cleaned = strings.TrimPrefix(cleaned, "+258")
	cleaned = strings.TrimPrefix(cleaned, "258")
	return cleaned
}

// ValidatePhone 校验莫桑比克手机号与支付方式匹配
// mpesa: 84/85 开头；emola: 86/87 开头；都是 9 位数字
// 在任何网络调用之前执行，失败属于字段级校验错误
func ValidatePhone(phone, method string) error {
	number := NormalizePhone(phone)

	if len(number) != 9 {
		return ErrInvalidPhone
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return ErrInvalidPhone
		}
	}

	prefix := number[:2]
	switch method {
	case MethodMpesa:
		if prefix != "84" && prefix != "85" {
			return ErrMethodMismatch
		}
	case MethodEmola:
		if prefix != "86" && prefix != "87" {
			return ErrMethodMismatch
		}
	default:
		return ErrInvalidMethod
	}

	return nil
}
