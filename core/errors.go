package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pre-flight and asset stages of a run.
// Use errors.Is to test for them; the typed errors below wrap them.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrAssetUnavailable     = errors.New("asset unavailable")
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Is reports every ConfigError as ErrInvalidConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Error codes for configuration errors
const (
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeUnsupportedVariant   = "UNSUPPORTED_VARIANT"
	ErrCodeImageRequiresVariant = "IMAGE_REQUIRES_VARIANT"
	ErrCodeVariantRequiresImage = "VARIANT_REQUIRES_IMAGE"
	ErrCodeInvalidLoRA          = "INVALID_LORA"
	ErrCodeInvalidPrecision     = "INVALID_PRECISION"
)

// ErrUnsupportedVariant returns an error for a model variant token that does not map
// to any known variant.
func ErrUnsupportedVariant(token string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnsupportedVariant,
		Message: fmt.Sprintf("unsupported model variant %q", token),
		Action:  "Please choose 'schnell', 'dev' or 'kontext'",
	}
}

// ErrImageRequiresVariant returns an error for an input image supplied to a variant
// that cannot consume one.
func ErrImageRequiresVariant(variant Variant) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeImageRequiresVariant,
		Message: fmt.Sprintf("image input requires the image-conditioned variant (selected %s)", variant),
		Action:  "Use --model kontext",
	}
}

// ErrVariantRequiresImage returns an error for the image-conditioned variant selected
// without an input image.
func ErrVariantRequiresImage(variant Variant) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeVariantRequiresImage,
		Message: fmt.Sprintf("%s variant requires an input image", variant),
		Action:  "Pass --init-image-path",
	}
}

// ErrInvalidLoRA returns an error for an unusable LoRA reference.
func ErrInvalidLoRA(ref string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidLoRA,
		Message: fmt.Sprintf("invalid LoRA reference %q: %s", ref, reason),
		Action:  "Pass a local .safetensors path or a Hub repository id (owner/name)",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}

// AssetUnavailableError reports a weight set that could not be made available locally.
// It wraps the network or filesystem cause and matches ErrAssetUnavailable.
type AssetUnavailableError struct {
	// Asset is the asset name (repository id or LoRA reference)
	Asset string
	// File is the file within the asset that failed, if known
	File string
	// Cause is the underlying error
	Cause error
}

func (e *AssetUnavailableError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("asset unavailable: %s (%s): %v", e.Asset, e.File, e.Cause)
	}
	return fmt.Sprintf("asset unavailable: %s: %v", e.Asset, e.Cause)
}

func (e *AssetUnavailableError) Unwrap() error {
	return e.Cause
}

// Is matches ErrAssetUnavailable.
func (e *AssetUnavailableError) Is(target error) bool {
	return target == ErrAssetUnavailable
}

// HTTPStatusError is returned by downloads that receive an unexpected status code.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d %s (%s)", e.StatusCode, e.Status, e.URL)
}

// Retryable reports whether retrying the request could succeed.
// Client errors (auth, not found) are permanent.
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
