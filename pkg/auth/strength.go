package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 6
	minCriteria       = 3
	passwordSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// 强度建议，顺序固定
const (
	AdviceLength = "密码长度至少6位"
	AdviceUpper  = "至少包含一个大写字母"
	AdviceLower  = "至少包含一个小写字母"
	AdviceDigit  = "至少包含一个数字"
	AdviceSymbol = "至少包含一个特殊字符(" + passwordSymbols + ")"
)

// PasswordStrength 检查密码强度
// 强密码要求长度不少于6，且大写、小写、数字、特殊字符至少满足三项。
// advice 按长度、大写、小写、数字、特殊字符的顺序列出全部未满足项。
func PasswordStrength(plaintext string) (bool, string) {
	var upper, lower, digit, symbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	longEnough := utf8.RuneCountInString(plaintext) >= minPasswordLength

	var advice []string
	if !longEnough {
		advice = append(advice, AdviceLength)
	}
	met := 0
	for _, c := range []struct {
		ok     bool
		advice string
	}{
		{upper, AdviceUpper},
		{lower, AdviceLower},
		{digit, AdviceDigit},
		{symbol, AdviceSymbol},
	} {
		if c.ok {
			met++
			continue
		}
		advice = append(advice, c.advice)
	}

	return longEnough && met >= minCriteria, strings.Join(advice, "；")
}
