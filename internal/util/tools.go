package util

import (
	"fmt"
	"os"
	"os/exec"
)

// ResolveTool returns the resolved path of an external tool. If customPath
// is set it must exist and be executable; otherwise PATH is searched.
// Returns an empty string if the tool is not found.
func ResolveTool(name, customPath string) string {
	if customPath != "" {
		if _, err := exec.LookPath(customPath); err == nil {
			return customPath
		}
		return ""
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// CheckTools verifies that every named tool can be found in PATH and
// returns the names of the missing ones.
func CheckTools(names ...string) []string {
	var missing []string
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// CheckScript verifies that the lifecycle script exists and is a regular file.
func CheckScript(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("lifecycle script not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("lifecycle script %s is a directory", path)
	}
	return nil
}
