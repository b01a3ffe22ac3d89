package fluxruntime

import (
	"flux_cli/core"
)

// Defaults holds default generation settings, used for CLI flag defaults.
type Defaults struct {
	Prompt   string
	Width    int
	Height   int
	Steps    int
	Guidance float64
	Output   string
	Model    string
}

// Default configuration values
const (
	DefaultPrompt   = "A cat is sitting on a tree"
	DefaultWidth    = 512
	DefaultHeight   = 512
	DefaultSteps    = 4
	DefaultGuidance = 3.5
	DefaultOutput   = "output_image.png"
	DefaultModel    = "schnell"
)

// LoadDefaults loads generation defaults from FLUX_* environment variables.
// Out-of-range values fall back to the built-in defaults.
func LoadDefaults() Defaults {
	return Defaults{
		Prompt:   core.GetEnvOrDefault("FLUX_PROMPT", DefaultPrompt),
		Width:    parseDimension(core.ParseIntEnv("FLUX_WIDTH", DefaultWidth), DefaultWidth),
		Height:   parseDimension(core.ParseIntEnv("FLUX_HEIGHT", DefaultHeight), DefaultHeight),
		Steps:    parseSteps(core.ParseIntEnv("FLUX_STEPS", DefaultSteps)),
		Guidance: parseGuidance(core.ParseFloat64Env("FLUX_GUIDANCE", DefaultGuidance)),
		Output:   core.GetEnvOrDefault("FLUX_OUTPUT", DefaultOutput),
		Model:    core.GetEnvOrDefault("FLUX_MODEL", DefaultModel),
	}
}

func parseDimension(v, fallback int) int {
	if validateDimension("dimension", v) != nil {
		return fallback
	}
	return v
}

func parseSteps(v int) int {
	if v < MinSteps || v > MaxSteps {
		return DefaultSteps
	}
	return v
}

func parseGuidance(v float64) float64 {
	if v < MinGuidance || v > MaxGuidance {
		return DefaultGuidance
	}
	return v
}
