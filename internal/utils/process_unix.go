//go:build unix

package utils

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"infra-cli/internal/logger"
)

// SetNewPG 设置进程属性，使子进程在父进程退出后继续运行
func SetNewPG(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// KillProcessByPID 根据PID杀死进程
func KillProcessByPID(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// IsProcessRunning 检查进程是否正在运行
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid PID %d", pid)
	}
	err := syscall.Kill(pid, syscall.Signal(0))
	if err == nil || errors.Is(err, syscall.EPERM) {
		return true, nil
	}
	return false, nil
}

// GetProcessName 根据PID获取进程名
func GetProcessName(pid int) (string, error) {
	output, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "comm=").Output()
	if err != nil {
		return "", fmt.Errorf("process %d not found: %w", pid, err)
	}
	name := strings.TrimSpace(string(output))
	if name == "" {
		return "", fmt.Errorf("process %d not found", pid)
	}
	return Path2ProcessName(name), nil
}

func terminateProcess(pid int, processName string) error {
	return killProcessGracefully(pid, processName)
}

func killSpecifiedProcess(processName string) error {
	logger.Debugf("Looking for process: %s", processName)
	for _, pid := range FindProcesses(processName) {
		if err := killProcessGracefully(pid, processName); err != nil {
			logger.Warnf("Failed to kill process %s (PID: %d): %v", processName, pid, err)
		} else {
			logger.Infof("Successfully killed process %s (PID: %d)", processName, pid)
		}
	}
	return nil
}

/**
 * Kill process gracefully with SIGTERM first, then SIGKILL if needed
 * @param {int} pid - Process ID to kill
 * @param {string} procName - Process name for logging
 * @returns {error} Returns error if process killing fails, nil on success
 */
func killProcessGracefully(pid int, procName string) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %s (PID: %d): %w", procName, pid, err)
	}

	logger.Debugf("Attempting graceful termination of process %s (PID: %d)", procName, pid)
	if err = process.Signal(syscall.SIGTERM); err == nil {
		for i := 0; i < 10; i++ {
			if err := process.Signal(syscall.Signal(0)); err != nil {
				logger.Debugf("Process %s (PID: %d) terminated gracefully", procName, pid)
				return nil
			}
			time.Sleep(100 * time.Millisecond)
		}
	}

	logger.Debugf("Graceful termination failed, force killing process %s (PID: %d)", procName, pid)
	if err = process.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill process %s (PID: %d): %w", procName, pid, err)
	}
	return nil
}

// FindProcesses lists the PIDs whose executable name matches, excluding the caller.
func FindProcesses(processName string) []int {
	var pids []int

	// 使用兼容Linux和Darwin的ps命令格式，command字段避免命令名被截断
	output, err := exec.Command("ps", "-e", "-o", "pid,command").Output()
	if err != nil {
		logger.Warnf("Failed to list processes for %s: %v", processName, err)
		return pids
	}
	return parseProcessList(string(output), processName, os.Getpid())
}

func parseProcessList(output, processName string, selfPid int) []int {
	var pids []int
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] == "PID" {
			continue
		}
		if !strings.EqualFold(Path2ProcessName(fields[1]), processName) {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil || pid == selfPid {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
