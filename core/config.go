package core

import (
	"fmt"
	"os"
	"strings"
)

// RunConfiguration is the fully resolved configuration of one generation run.
// It is built once by ResolveRunConfiguration and not modified afterwards.
type RunConfiguration struct {
	Variant   Variant
	Precision Precision
	Quantize  bool

	// LoRA is a local weights path or a Hub repository id; empty when unused.
	// Whether it is local is decided during asset acquisition.
	LoRA string

	// Credential is the Hub access token; empty when none is available.
	// It authorizes both the variant weights and a Hub-hosted LoRA.
	Credential string

	// InitImagePath is the conditioning image; set only for VariantImageConditioned.
	InitImagePath string
}

// HasCredential reports whether a credential was resolved.
func (c RunConfiguration) HasCredential() bool {
	return c.Credential != ""
}

// Float16 reports whether weights should be loaded at half precision.
func (c RunConfiguration) Float16() bool {
	return c.Precision == PrecisionHalf
}

// ResolveInput holds the raw operator inputs for ResolveRunConfiguration.
type ResolveInput struct {
	// VariantToken selects the model variant (case-insensitive)
	VariantToken string
	// Credential is an explicitly supplied Hub token (optional)
	Credential string
	// CredentialFile is read when a gated variant has no explicit credential
	CredentialFile string
	// LoRA is a local path or Hub repository id (optional)
	LoRA string
	// InitImagePath is the conditioning image path (optional)
	InitImagePath string
	// Float16 selects half precision
	Float16 bool
	// Quantize enables weight quantization
	Quantize bool
}

// ResolveRunConfiguration maps operator inputs to a RunConfiguration.
//
// Validation:
//   - unknown variant token: ErrUnsupportedVariant
//   - input image with a variant that cannot consume it: ErrImageRequiresVariant
//   - image-conditioned variant without an input image: ErrVariantRequiresImage
//
// An explicit credential is kept for every variant, since a private Hub LoRA
// needs it even when the base weights are public. Only a gated variant without
// an explicit credential falls back to CredentialFile. A missing, unreadable or
// malformed file is not an error: the run proceeds without a credential and a
// warning is returned for the operator.
//
// All returned errors match ErrInvalidConfiguration.
func ResolveRunConfiguration(in ResolveInput) (RunConfiguration, []string, error) {
	variant, ok := ParseVariant(in.VariantToken)
	if !ok {
		return RunConfiguration{}, nil, ErrUnsupportedVariant(in.VariantToken)
	}

	initImage := strings.TrimSpace(in.InitImagePath)
	if initImage != "" && !variant.AcceptsImage() {
		return RunConfiguration{}, nil, ErrImageRequiresVariant(variant)
	}
	if initImage == "" && variant.AcceptsImage() {
		return RunConfiguration{}, nil, ErrVariantRequiresImage(variant)
	}

	lora := strings.TrimSpace(in.LoRA)
	if in.LoRA != "" && lora == "" {
		return RunConfiguration{}, nil, ErrInvalidLoRA(in.LoRA, "empty reference")
	}

	cfg := RunConfiguration{
		Variant:       variant,
		Precision:     PrecisionFull,
		Quantize:      in.Quantize,
		LoRA:          lora,
		Credential:    strings.TrimSpace(in.Credential),
		InitImagePath: initImage,
	}
	if in.Float16 {
		cfg.Precision = PrecisionHalf
	}

	var warnings []string
	if variant.RequiresCredential() && cfg.Credential == "" {
		token, err := ReadCredentialFile(in.CredentialFile)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf(
				"Hugging Face token is not provided and %s could not be used (%v); continuing without a token",
				in.CredentialFile, err))
		} else {
			cfg.Credential = token
			warnings = append(warnings, fmt.Sprintf(
				"Hugging Face token is not provided. Using default token from %s", in.CredentialFile))
		}
	}

	return cfg, warnings, nil
}

// ReadCredentialFile reads a Hub token from path.
// The token is the file's trimmed content; it must be a single non-empty word.
func ReadCredentialFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no credential file configured")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("credential file is empty")
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return "", fmt.Errorf("credential file is malformed")
	}
	return token, nil
}
