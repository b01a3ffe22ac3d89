package core

import "strings"

// Variant identifies a model variant of the generation engine.
type Variant int

const (
	// VariantBase is the fast, ungated text-to-image model (FLUX.1 schnell).
	VariantBase Variant = iota + 1
	// VariantGuided is the guidance-distilled, gated text-to-image model (FLUX.1 dev).
	VariantGuided
	// VariantImageConditioned is the gated image-to-image model (FLUX.1 Kontext dev).
	VariantImageConditioned
)

// String returns the canonical variant name.
func (v Variant) String() string {
	switch v {
	case VariantBase:
		return "base"
	case VariantGuided:
		return "guided"
	case VariantImageConditioned:
		return "image-conditioned"
	default:
		return "unknown"
	}
}

// Token returns the CLI token that selects the variant.
func (v Variant) Token() string {
	switch v {
	case VariantBase:
		return "schnell"
	case VariantGuided:
		return "dev"
	case VariantImageConditioned:
		return "kontext"
	default:
		return ""
	}
}

// RequiresCredential reports whether the variant's weights are gated on the Hub.
func (v Variant) RequiresCredential() bool {
	return v == VariantGuided || v == VariantImageConditioned
}

// ShiftSigmas reports whether the variant's scheduler shifts sigmas for resolution.
func (v Variant) ShiftSigmas() bool {
	return v == VariantGuided || v == VariantImageConditioned
}

// AcceptsImage reports whether the variant can be conditioned on an input image.
func (v Variant) AcceptsImage() bool {
	return v == VariantImageConditioned
}

// ParseVariant maps a case-insensitive token to a Variant.
// Both CLI tokens (schnell, dev, kontext) and canonical names are accepted.
// This is a pure function with no side effects.
func ParseVariant(token string) (Variant, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "schnell", "base":
		return VariantBase, true
	case "dev", "guided":
		return VariantGuided, true
	case "kontext", "imageconditioned", "image-conditioned":
		return VariantImageConditioned, true
	default:
		return 0, false
	}
}

// Precision is the floating point precision weights are loaded with.
type Precision string

const (
	PrecisionFull Precision = "full"
	PrecisionHalf Precision = "half"
)
