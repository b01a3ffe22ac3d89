package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCredentialFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		token string
		want  Variant
		ok    bool
	}{
		{"schnell", VariantBase, true},
		{"SCHNELL", VariantBase, true},
		{"dev", VariantGuided, true},
		{"Dev", VariantGuided, true},
		{"kontext", VariantImageConditioned, true},
		{"base", VariantBase, true},
		{"guided", VariantGuided, true},
		{"imageConditioned", VariantImageConditioned, true},
		{"turbo", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseVariant(tt.token)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseVariant(%q) = (%v, %v), want (%v, %v)", tt.token, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestVariantProperties(t *testing.T) {
	tests := []struct {
		variant     Variant
		token       string
		gated       bool
		shiftSigmas bool
		repo        string
	}{
		{VariantBase, "schnell", false, false, RepoSchnell},
		{VariantGuided, "dev", true, true, RepoDev},
		{VariantImageConditioned, "kontext", true, true, RepoKontext},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := tt.variant.Token(); got != tt.token {
				t.Errorf("Token() = %q, want %q", got, tt.token)
			}
			if got := tt.variant.RequiresCredential(); got != tt.gated {
				t.Errorf("RequiresCredential() = %v, want %v", got, tt.gated)
			}
			if got := tt.variant.ShiftSigmas(); got != tt.shiftSigmas {
				t.Errorf("ShiftSigmas() = %v, want %v", got, tt.shiftSigmas)
			}
			if got := tt.variant.HubRepo(); got != tt.repo {
				t.Errorf("HubRepo() = %q, want %q", got, tt.repo)
			}
		})
	}
}

func TestResolveRunConfiguration_Validation(t *testing.T) {
	tests := []struct {
		name     string
		in       ResolveInput
		wantCode string
	}{
		{
			name:     "unknown variant",
			in:       ResolveInput{VariantToken: "turbo"},
			wantCode: ErrCodeUnsupportedVariant,
		},
		{
			name:     "image with base variant",
			in:       ResolveInput{VariantToken: "schnell", InitImagePath: "in.png"},
			wantCode: ErrCodeImageRequiresVariant,
		},
		{
			name:     "image with guided variant",
			in:       ResolveInput{VariantToken: "dev", Credential: "hf_x", InitImagePath: "in.png"},
			wantCode: ErrCodeImageRequiresVariant,
		},
		{
			name:     "image-conditioned without image",
			in:       ResolveInput{VariantToken: "kontext", Credential: "hf_x"},
			wantCode: ErrCodeVariantRequiresImage,
		},
		{
			name:     "blank lora",
			in:       ResolveInput{VariantToken: "schnell", LoRA: "   "},
			wantCode: ErrCodeInvalidLoRA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ResolveRunConfiguration(tt.in)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("error = %v, want ErrInvalidConfiguration", err)
			}
			if code := GetErrorCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestResolveRunConfiguration_Success(t *testing.T) {
	// The missing credential file would warn if it were read
	cfg, warnings, err := ResolveRunConfiguration(ResolveInput{
		VariantToken:   "Kontext",
		Credential:     " hf_explicit ",
		CredentialFile: filepath.Join(t.TempDir(), "missing"),
		LoRA:           "someone/lora",
		InitImagePath:  "in.png",
		Float16:        true,
		Quantize:       true,
	})
	if err != nil {
		t.Fatalf("ResolveRunConfiguration failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	want := RunConfiguration{
		Variant:       VariantImageConditioned,
		Precision:     PrecisionHalf,
		Quantize:      true,
		LoRA:          "someone/lora",
		Credential:    "hf_explicit",
		InitImagePath: "in.png",
	}
	if cfg != want {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}
	if !cfg.Float16() {
		t.Error("Float16() = false, want true")
	}
}

func TestResolveRunConfiguration_Credential(t *testing.T) {
	tests := []struct {
		name           string
		variant        string
		credential     string
		fileContent    *string
		wantCredential string
		wantWarning    string
	}{
		{
			name:           "base variant keeps an explicit credential",
			variant:        "schnell",
			credential:     "hf_for_private_lora",
			wantCredential: "hf_for_private_lora",
		},
		{
			name:           "base variant does not read the credential file",
			variant:        "schnell",
			fileContent:    strPtr("hf_from_file\n"),
			wantCredential: "",
		},
		{
			name:           "explicit credential",
			variant:        "dev",
			credential:     "hf_explicit",
			wantCredential: "hf_explicit",
		},
		{
			name:           "falls back to credential file",
			variant:        "dev",
			fileContent:    strPtr("hf_from_file\n"),
			wantCredential: "hf_from_file",
			wantWarning:    "Using default token from",
		},
		{
			name:           "missing credential file is not fatal",
			variant:        "dev",
			wantCredential: "",
			wantWarning:    "continuing without a token",
		},
		{
			name:           "empty credential file is not fatal",
			variant:        "dev",
			fileContent:    strPtr("  \n"),
			wantCredential: "",
			wantWarning:    "continuing without a token",
		},
		{
			name:           "malformed credential file is not fatal",
			variant:        "dev",
			fileContent:    strPtr("hf_a hf_b"),
			wantCredential: "",
			wantWarning:    "continuing without a token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			credentialFile := filepath.Join(t.TempDir(), "token")
			if tt.fileContent != nil {
				credentialFile = writeCredentialFile(t, *tt.fileContent)
			}

			cfg, warnings, err := ResolveRunConfiguration(ResolveInput{
				VariantToken:   tt.variant,
				Credential:     tt.credential,
				CredentialFile: credentialFile,
			})
			if err != nil {
				t.Fatalf("ResolveRunConfiguration failed: %v", err)
			}

			if cfg.Credential != tt.wantCredential {
				t.Errorf("Credential = %q, want %q", cfg.Credential, tt.wantCredential)
			}
			if cfg.HasCredential() != (tt.wantCredential != "") {
				t.Errorf("HasCredential() = %v", cfg.HasCredential())
			}

			if tt.wantWarning == "" {
				if len(warnings) != 0 {
					t.Errorf("warnings = %v, want none", warnings)
				}
				return
			}
			if len(warnings) != 1 || !strings.Contains(warnings[0], tt.wantWarning) {
				t.Errorf("warnings = %v, want one containing %q", warnings, tt.wantWarning)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
