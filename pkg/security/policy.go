package security

import (
	"strings"
	"unicode"
)

const MinPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password":  {},
	"password1": {},
	"12345678":  {},
	"123456789": {},
	"qwertyui":  {},
	"qwerty123": {},
	"iloveyou":  {},
	"letmein1":  {},
	"welcome1":  {},
	"admin123":  {},
}

// PasswordPolicyViolations lists every rule the candidate breaks; an empty
// result means the password is acceptable.
func PasswordPolicyViolations(password string, personal ...string) []string {
	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "password must contain at least 8 characters")
	}
	if password != "" && isAllDigits(password) {
		problems = append(problems, "password cannot be entirely numeric")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		problems = append(problems, "password is too common")
	}
	lowered := strings.ToLower(password)
	for _, attr := range personal {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if len(attr) >= 3 && strings.Contains(lowered, attr) {
			problems = append(problems, "password is too similar to personal information")
			break
		}
	}
	return problems
}

func isAllDigits(value string) bool {
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
