package utils

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

/**
 * Parse the version reported by a tool's "version" subcommand
 * @param {string} output - Command output, e.g. "ngrok version 3.5.0"
 * @returns {*version.Version} First token that parses as a version
 * @returns {error} Error if no token is a version
 * @example
 * ver, _ := ParseToolVersion("ngrok version 3.5.0") // 3.5.0
 */
func ParseToolVersion(output string) (*version.Version, error) {
	for _, field := range strings.Fields(output) {
		field = strings.TrimPrefix(strings.TrimSpace(field), "v")
		if field == "" || field[0] < '0' || field[0] > '9' {
			continue
		}
		if ver, err := version.NewVersion(field); err == nil {
			return ver, nil
		}
	}
	return nil, fmt.Errorf("no version found in %q", strings.TrimSpace(output))
}
