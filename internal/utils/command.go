package utils

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

/**
 * Expand command and argument templates
 * @param {string} command - Command template
 * @param {[]string} args - Argument templates
 * @param {interface{}} data - Template data, e.g. struct{ Port int }
 * @returns {string} Expanded command
 * @returns {[]string} Expanded arguments, empty results are dropped
 * @returns {error} Template parse or execution error
 */
func GetCommandLine(command string, args []string, data interface{}) (string, []string, error) {
	cmdTemplate, err := template.New("command").Option("missingkey=error").Parse(command)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse command template: %w", err)
	}

	var cmdBuf bytes.Buffer
	if err := cmdTemplate.Execute(&cmdBuf, data); err != nil {
		return "", nil, fmt.Errorf("failed to execute command template: %w", err)
	}

	var processedArgs []string
	for _, arg := range args {
		argTemplate, err := template.New("arg").Option("missingkey=error").Parse(arg)
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse arg template '%s': %w", arg, err)
		}

		var argBuf bytes.Buffer
		if err := argTemplate.Execute(&argBuf, data); err != nil {
			return "", nil, fmt.Errorf("failed to execute arg template '%s': %w", arg, err)
		}
		if s := strings.TrimSpace(argBuf.String()); s != "" {
			processedArgs = append(processedArgs, s)
		}
	}

	return cmdBuf.String(), processedArgs, nil
}
