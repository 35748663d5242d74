// Package logging provides logging utilities including sensitive data
// filtering. Operators paste evidence narratives and payloads into commands;
// this package keeps credentials that slip in with them out of the log files.
package logging

import (
	"regexp"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns contains compiled regular expressions for detecting
// sensitive values in free-form text. Tuned to minimize false positives
// while catching real secrets.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	// Anthropic / OpenAI style API keys (sk-...)
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

	// GitHub tokens (ghp_, gho_, ghu_, ghs_, ghr_)
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.-]{20,}`),

	// Generic secret assignments (secret, password, token with values)
	regexp.MustCompile(`(?i)(secret|password|passwd|credential|token|api[_-]?key)\s*[:=]\s*["']?[^\s"']{8,}["']?`),

	// SSH private keys
	regexp.MustCompile(`-----BEGIN[A-Z\s]+PRIVATE KEY-----`),
}

// SensitiveDataHook is a zerolog hook that flags log events whose message
// carries secret-looking content. Zerolog does not allow rewriting the
// message in a hook, so call-site filtering with FilterSensitiveValue is
// the primary defense; the hook marks anything that slips through.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData checks if a string contains any sensitive data patterns.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces any matches of sensitive patterns with
// [REDACTED]. Use when logging operator-supplied text.
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}
