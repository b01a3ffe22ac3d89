package core

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetDataDirectory_PlatformAppropriate(t *testing.T) {
	t.Setenv("FLUX_HOME", "")
	dir := GetDataDirectory()

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(dir, AppName) {
			t.Errorf("Windows path %q should contain %q", dir, AppName)
		}
	default:
		if !strings.HasSuffix(dir, ".flux") {
			t.Errorf("Unix path %q should end with .flux", dir)
		}
	}
}

func TestGetDataDirectory_Override(t *testing.T) {
	override := t.TempDir()
	t.Setenv("FLUX_HOME", override)

	if got := GetDataDirectory(); got != override {
		t.Errorf("GetDataDirectory() = %q, want %q", got, override)
	}
	if got := GetDataFilePath("history.db"); got != filepath.Join(override, "history.db") {
		t.Errorf("GetDataFilePath() = %q", got)
	}
}

func TestHubDirectories(t *testing.T) {
	hfHome := t.TempDir()
	t.Setenv("HF_HOME", hfHome)
	t.Setenv("FLUX_CACHE_DIR", "")

	if got := DefaultCredentialFile(); got != filepath.Join(hfHome, "token") {
		t.Errorf("DefaultCredentialFile() = %q", got)
	}
	if got := DefaultModelCacheDirectory(); got != filepath.Join(hfHome, "flux") {
		t.Errorf("DefaultModelCacheDirectory() = %q", got)
	}

	t.Setenv("FLUX_CACHE_DIR", "/srv/weights")
	if got := DefaultModelCacheDirectory(); got != "/srv/weights" {
		t.Errorf("DefaultModelCacheDirectory() = %q, want /srv/weights", got)
	}
}

func TestDefaultCredentialFile_HomeLayout(t *testing.T) {
	t.Setenv("HF_HOME", "")
	got := DefaultCredentialFile()
	want := filepath.Join(".cache", "huggingface", "token")
	if !strings.HasSuffix(got, want) {
		t.Errorf("DefaultCredentialFile() = %q, should end with %q", got, want)
	}
}
