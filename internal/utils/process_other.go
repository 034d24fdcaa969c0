//go:build !unix && !windows

package utils

import (
	"errors"
	"os/exec"
)

var errUnsupported = errors.New("process control is not supported on this platform")

// SetNewPG 默认实现，用于不支持的构建目标
func SetNewPG(cmd *exec.Cmd) {}

func KillProcessByPID(pid int) error {
	return errUnsupported
}

func IsProcessRunning(pid int) (bool, error) {
	return false, errUnsupported
}

func GetProcessName(pid int) (string, error) {
	return "", errUnsupported
}

func terminateProcess(pid int, processName string) error {
	return errUnsupported
}

func killSpecifiedProcess(processName string) error {
	return errUnsupported
}
