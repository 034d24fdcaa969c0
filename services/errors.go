package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when the user declines the review prompt.
var ErrCancelled = errors.New("cancelled by user")

// UnsupportedPlatformError means no download exists for the (os, arch) pair.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform: %s/%s", e.OS, e.Arch)
}

// DownloadError wraps a failed fetch or extraction of the agent archive.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// InstallError means no usable executable could be obtained.
type InstallError struct {
	Binary string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("failed to install %s: %v", e.Binary, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// LaunchCrashError means the agent exited before its status API answered.
type LaunchCrashError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *LaunchCrashError) Error() string {
	return fmt.Sprintf("tunnel process exited with code %d before becoming ready%s",
		e.ExitCode, formatOutput(e.Stdout, e.Stderr))
}

// LaunchTimeoutError means the agent never became ready. The process has been killed.
type LaunchTimeoutError struct {
	Attempts int
	Stdout   string
	Stderr   string
}

func (e *LaunchTimeoutError) Error() string {
	return fmt.Sprintf("tunnel process did not become ready after %d attempts%s",
		e.Attempts, formatOutput(e.Stdout, e.Stderr))
}

// NoActiveTunnelError means the status API answered with zero mappings.
type NoActiveTunnelError struct {
	Port int
}

func (e *NoActiveTunnelError) Error() string {
	if e.Port > 0 {
		return fmt.Sprintf("no active tunnels found, make sure a service is listening on port %d", e.Port)
	}
	return "no active tunnels found"
}

// BackendRequestError is any failed call to the provisioning backend.
type BackendRequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *BackendRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *BackendRequestError) Unwrap() error { return e.Err }

func formatOutput(stdout, stderr string) string {
	var b strings.Builder
	if s := strings.TrimSpace(stdout); s != "" {
		b.WriteString("\nstdout:\n")
		b.WriteString(s)
	}
	if s := strings.TrimSpace(stderr); s != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(s)
	}
	return b.String()
}
