package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// sha256 of "hello world"
const helloWorldSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestComputeSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ComputeSHA256(path)
	if err != nil {
		t.Fatalf("ComputeSHA256 failed: %v", err)
	}
	if got != helloWorldSHA256 {
		t.Errorf("ComputeSHA256() = %s, want %s", got, helloWorldSHA256)
	}

	if _, err := ComputeSHA256(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := ComputeSHA256(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		expected string
		want     bool
		wantErr  bool
	}{
		{"matching lowercase", helloWorldSHA256, true, false},
		{"matching uppercase", strings.ToUpper(helloWorldSHA256), true, false},
		{"mismatch", strings.Repeat("0", 64), false, false},
		{"empty", "", false, true},
		{"too short", "abc", false, true},
		{"not hex", strings.Repeat("z", 64), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyChecksum(path, tt.expected)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyChecksum() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifyChecksum() = %v, want %v", got, tt.want)
			}
		})
	}
}
