package env

import (
	"os"
	"path/filepath"
)

// (default: %USERPROFILE%/.infra on Windows, $HOME/.infra on Linux, overridden by INFRA_HOME)
var InfraDir string = GetInfraDir()

/**
 * Get infra working directory path
 * @returns {string} Returns infra directory path
 */
func GetInfraDir() string {
	if dir := os.Getenv("INFRA_HOME"); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".infra")
}
