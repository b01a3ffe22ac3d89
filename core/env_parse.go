package core

import (
	"os"
	"strconv"
	"strings"
)

// lookupEnv returns the trimmed value of key parsed by parse, or fallback when
// the variable is unset, blank or rejected by parse.
func lookupEnv[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

// GetEnvOrDefault returns the value of an environment variable or a default value.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FirstEnv returns the first non-empty value among keys, or "" when none is set.
// Used where several variables name the same setting (HF_TOKEN, HUGGING_FACE_HUB_TOKEN).
func FirstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// ParseIntEnv reads key as a base-10 integer.
func ParseIntEnv(key string, defaultValue int) int {
	return lookupEnv(key, defaultValue, strconv.Atoi)
}

// ParseFloat64Env reads key as a float64.
func ParseFloat64Env(key string, defaultValue float64) float64 {
	return lookupEnv(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseBoolEnv reads key as a switch: true/1/yes/on or false/0/no/off, any case.
func ParseBoolEnv(key string, defaultValue bool) bool {
	return lookupEnv(key, defaultValue, parseSwitch)
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}
