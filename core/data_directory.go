package core

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the application name used in data directory paths.
const AppName = "flux"

// GetDataDirectory returns the platform-specific data directory for run history and logs.
// FLUX_HOME overrides the default.
//
// Paths by platform:
//   - Windows: %APPDATA%/flux
//   - Linux/macOS: ~/.flux
//
// Does not create the directory; db.Open and the log writer create what they need.
func GetDataDirectory() string {
	if dir := os.Getenv("FLUX_HOME"); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return AppName
			}
			return filepath.Join(home, "AppData", "Roaming", AppName)
		}
		return filepath.Join(appData, AppName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return ".flux"
		}
		return filepath.Join(home, ".flux")
	}
}

// GetDataFilePath returns the full path for a file within the data directory.
// Example: GetDataFilePath("history.db") -> "/home/user/.flux/history.db"
func GetDataFilePath(filename string) string {
	return filepath.Join(GetDataDirectory(), filename)
}

// GetHubCacheDirectory returns the root of the Hugging Face cache.
// HF_HOME overrides the default ~/.cache/huggingface.
func GetHubCacheDirectory() string {
	if dir := os.Getenv("HF_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cache", "huggingface")
	}
	return filepath.Join(home, ".cache", "huggingface")
}

// DefaultCredentialFile is where a Hub token saved by `huggingface-cli login` lives.
func DefaultCredentialFile() string {
	return filepath.Join(GetHubCacheDirectory(), "token")
}

// DefaultModelCacheDirectory is where downloaded weights are stored unless --cache-dir is given.
func DefaultModelCacheDirectory() string {
	if dir := os.Getenv("FLUX_CACHE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(GetHubCacheDirectory(), "flux")
}
