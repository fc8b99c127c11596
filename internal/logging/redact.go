package logging

import (
	"regexp"
	"strings"
)

// Field names whose values never reach the log.
var sensitiveFields = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"cookie",
	"session",
	"authorization",
	"cdkey",
}

var secretPatterns = []*regexp.Regexp{
	// JSON bodies such as {"username":"a","password":"b"}
	regexp.MustCompile(`(?i)("(?:password|passwd|token|cdkey|secret)"\s*:\s*)"[^"]*"`),
	// query strings and form bodies
	regexp.MustCompile(`(?i)\b((?:password|passwd|token|cdkey|secret)=)[^&\s]+`),
	regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._-]{8,}`),
	regexp.MustCompile(`(?i)((?:session|sessionid)=)[^;\s]+`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive values in s, keeping the key so the log stays readable.
func Redact(s string) string {
	result := s
	for i, pattern := range secretPatterns {
		if i == 0 {
			result = pattern.ReplaceAllString(result, `${1}"`+RedactedValue+`"`)
			continue
		}
		result = pattern.ReplaceAllString(result, "${1}"+RedactedValue)
	}
	return result
}

// RedactMap redacts sensitive fields in a map.
func RedactMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case IsSensitiveField(k):
			result[k] = RedactedValue
		default:
			switch val := v.(type) {
			case map[string]any:
				result[k] = RedactMap(val)
			case string:
				result[k] = Redact(val)
			default:
				result[k] = v
			}
		}
	}
	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
