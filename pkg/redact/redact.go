// redact маскирует чувствительные значения сессии перед записью в лог.
package redact

import "strings"

// Email маскирует e-mail: первые два символа локальной части + "***", домен как есть.
// Строка без ровно одного '@' маскируется целиком.
//
//	"owner@example.org" -> "ow***@example.org"
//	"ab@ex.com"         -> "***@ex.com"
//	"no-at"             -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token оставляет от bearer-токена только последние 4 символа, чтобы
// различать токены в логах. Короткие и пустые токены не раскрываются.
func Token(tok string) string {
	switch {
	case tok == "":
		return "-"
	case len(tok) <= 8:
		return "[REDACTED]"
	default:
		return "***" + tok[len(tok)-4:]
	}
}
