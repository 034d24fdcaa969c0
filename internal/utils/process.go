package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path2ProcessName turns an executable path into the name shown in process lists.
func Path2ProcessName(path string) string {
	name := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	return strings.TrimSuffix(strings.TrimSuffix(name, ".exe"), ".EXE")
}

/**
 * Find a process by PID and verify its name
 * @param {string} processName - Expected process name, with or without .exe
 * @param {int} pid - Process ID
 * @returns {*os.Process} The process when the name matches
 * @returns {error} Error if the process is gone or is another program
 */
func FindProcess(processName string, pid int) (*os.Process, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid PID %d", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}

	name, err := GetProcessName(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to get process name for PID %d: %w", pid, err)
	}

	// 比较进程名（不区分大小写）
	if strings.EqualFold(Path2ProcessName(name), Path2ProcessName(processName)) {
		return proc, nil
	}
	return nil, fmt.Errorf("process name mismatch: expected '%s', got '%s'", processName, name)
}

// KillProcess 根据进程名和PID杀死进程，PID被其他程序复用时不会误杀
func KillProcess(processName string, pid int) error {
	if _, err := FindProcess(processName, pid); err != nil {
		return err
	}
	return terminateProcess(pid, processName)
}

/**
 * Kill every process with the given name
 * @param {string} processName - Process name, e.g. "ngrok"
 * @returns {error} Returns error if process enumeration fails
 * @description
 * - Never kills the calling process
 * - Unix: SIGTERM first, SIGKILL if the process is still alive
 * - Windows: taskkill /F /IM <name>.exe
 */
func KillSpecifiedProcess(processName string) error {
	return killSpecifiedProcess(Path2ProcessName(processName))
}
