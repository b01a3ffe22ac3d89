package fluxruntime

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"flux_cli/core"
)

// Text encoder budgets. The pooled CLIP embedding sees at most ClipTokenLimit
// tokens; the T5 sequence length depends on the variant.
const (
	ClipTokenLimit       = 77
	T5TokenLimitBase     = 256
	T5TokenLimitGuided   = 512
	charsPerSubwordToken = 4
)

// T5TokenLimit returns the T5 sequence length used by variant.
func T5TokenLimit(v core.Variant) int {
	if v == core.VariantBase {
		return T5TokenLimitBase
	}
	return T5TokenLimitGuided
}

// ValidatePrompt rejects prompts the tokenizers cannot consume: blank, invalid
// UTF-8, containing NUL, or longer than MaxPromptLength bytes.
func ValidatePrompt(prompt string) error {
	switch {
	case strings.TrimSpace(prompt) == "":
		return fmt.Errorf("%w: prompt cannot be empty", ErrInvalidPrompt)
	case !utf8.ValidString(prompt):
		return fmt.Errorf("%w: prompt is not valid UTF-8", ErrInvalidPrompt)
	case strings.ContainsRune(prompt, '\x00'):
		return fmt.Errorf("%w: prompt contains null bytes", ErrInvalidPrompt)
	case len(prompt) > MaxPromptLength:
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d",
			ErrInvalidPrompt, len(prompt), MaxPromptLength)
	}
	return nil
}

// SanitizePrompt collapses whitespace runs (newlines, tabs) to single spaces and
// drops other control characters. NUL is kept so ValidatePrompt can reject it.
func SanitizePrompt(prompt string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r != '\x00' && unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, prompt)
	return strings.Join(strings.Fields(cleaned), " ")
}

// EstimateTokens approximates the subword token count of prompt. Each
// punctuation or symbol rune is one token and each run of letters or digits
// costs one token per charsPerSubwordToken runes, rounded up.
func EstimateTokens(prompt string) int {
	var tokens, run int
	flush := func() {
		tokens += (run + charsPerSubwordToken - 1) / charsPerSubwordToken
		run = 0
	}
	for _, r := range prompt {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			run++
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens++
		}
	}
	flush()
	return tokens
}

// PromptWarnings describes how the text encoders of variant will truncate prompt.
// It returns nil when the prompt fits both budgets.
func PromptWarnings(prompt string, v core.Variant) []string {
	estimate := EstimateTokens(prompt)

	var warnings []string
	if estimate > ClipTokenLimit {
		warnings = append(warnings, fmt.Sprintf(
			"prompt is about %d tokens; the CLIP encoder only sees the first %d",
			estimate, ClipTokenLimit))
	}
	if limit := T5TokenLimit(v); estimate > limit {
		warnings = append(warnings, fmt.Sprintf(
			"prompt is about %d tokens; the %s variant truncates it to %d T5 tokens",
			estimate, v.Token(), limit))
	}
	return warnings
}
