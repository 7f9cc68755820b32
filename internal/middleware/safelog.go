package middleware

import "strings"

// MaskToken прячет токен в логах: видны только первые 4 символа.
func MaskToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
