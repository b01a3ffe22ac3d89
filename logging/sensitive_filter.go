package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive data in log output
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns match secrets inside free-form strings.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`hf_[A-Za-z0-9]{20,}`),                   // Hugging Face access tokens
	regexp.MustCompile(`api_org_[A-Za-z0-9]{20,}`),              // Hugging Face org tokens
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{8,}=*`),  // Authorization headers
	regexp.MustCompile(`(ghp|gho)_[A-Za-z0-9]{36}`),             // GitHub tokens
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),          // GitHub fine-grained tokens
	regexp.MustCompile(`(?i)(token|secret|password)\s*[:=]\s*[^\s,;&\[]{8,}`),
}

// sensitiveFieldNames mark field and variable names whose values are always redacted.
var sensitiveFieldNames = []string{
	"HF_TOKEN",
	"HUGGING_FACE_HUB_TOKEN",
	"CREDENTIAL",
	"AUTHORIZATION",
	"PASSWORD",
	"SECRET",
	"TOKEN",
}

// RedactSensitiveData replaces every detected secret in value.
//
// Example:
//
//	RedactSensitiveData("using hf_abcdefghijklmnopqrstuvwx")
//	// "using [REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// RedactField redacts fieldValue entirely when fieldName is sensitive, and
// scans it for secrets otherwise.
func RedactField(fieldName, fieldValue string) string {
	if IsSensitiveField(fieldName) {
		return RedactedPlaceholder
	}
	return RedactSensitiveData(fieldValue)
}

// IsSensitiveField reports whether a field name indicates a secret.
//
//	IsSensitiveField("hf_token")   // true
//	IsSensitiveField("variant")    // false
func IsSensitiveField(fieldName string) bool {
	upper := strings.ToUpper(fieldName)
	for _, name := range sensitiveFieldNames {
		if strings.Contains(upper, name) {
			return true
		}
	}
	return false
}

// ContainsSensitiveData reports whether value contains a detectable secret.
func ContainsSensitiveData(value string) bool {
	if value == "" {
		return false
	}
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}
