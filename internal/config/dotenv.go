package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

/**
 * Find the nearest .env file walking up from a directory
 * @param {string} start - Start directory, empty means the working directory
 * @returns {string} Path of the file, empty if none exists up to the filesystem root
 */
func FindDotEnv(start string) string {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

/**
 * Load the nearest .env file into the process environment
 * @param {string} start - Start directory of the search, empty means the working directory
 * @returns {string} Path of the loaded file, empty if none was found
 * @returns {error} Error if the file cannot be parsed
 * @description
 * - Variables already present in the environment are never overridden
 */
func LoadDotEnv(start string) (string, error) {
	path := FindDotEnv(start)
	if path == "" {
		return "", nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return "", err
		}
	}
	return path, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
