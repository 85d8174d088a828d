// Package redact strips secrets from error text before it is logged: queue
// URLs and receipt handles, database and Redis credentials, AWS keys, host
// names, and SQL echoed back by failed migrations.
package redact

import "regexp"

// Placeholders substituted for redacted values.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedQueuePlaceholder      = "[REDACTED_QUEUE_URL]"
	RedactedReceiptPlaceholder    = "[REDACTED_RECEIPT]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules are applied in order; earlier rules consume text later ones would
// otherwise split.
var rules = []rule{
	// SQS queue URLs carry the AWS account ID
	{regexp.MustCompile(`https?://sqs\.[a-z0-9-]+\.amazonaws\.com/\d{12}/[\w.-]+`), RedactedQueuePlaceholder},

	// Receipt handles grant delete access to an in-flight message
	{regexp.MustCompile(`(?i)(receipt[_ ]?handle)(['"\s:=]+)[A-Za-z0-9+/=_-]{16,}`), RedactedReceiptPlaceholder},

	// userinfo of postgres:// and redis:// URLs
	{regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss)://[^@\s]+@`), RedactedCredentialPlaceholder},

	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},

	// AWS access key IDs and secrets passed through config errors
	{regexp.MustCompile(`(AKIA|ASIA)[A-Z0-9]{16}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(?i)(secret[_-]?access[_-]?key|access[_-]?key[_-]?id|api[_-]?key|token|secret)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},

	// Statements echoed by goose when a migration fails
	{regexp.MustCompile(`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE|INDEX)(?:[\s\w,*()='"<>]+)?`), RedactedSQLPlaceholder},

	// Internal DNS names from dial errors
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
}

// String redacts sensitive values in input.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive values in err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
