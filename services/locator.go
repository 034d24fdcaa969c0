package services

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"infra-cli/internal/logger"
	"infra-cli/internal/models"
	"infra-cli/internal/utils"
)

// CommandRunner runs a short-lived command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// PackageInstaller installs the agent when no usable copy exists.
type PackageInstaller interface {
	ExecutablePath() string
	Install(ctx context.Context, downloadURL string) (string, error)
}

// ExecutableLocator finds a usable agent executable.
type ExecutableLocator struct {
	binary       string
	platform     PlatformTarget
	installer    PackageInstaller
	lookPath     func(string) (string, error)
	run          CommandRunner
	probeTimeout time.Duration
}

func NewExecutableLocator(binary string, installer PackageInstaller) *ExecutableLocator {
	return &ExecutableLocator{
		binary:       binary,
		platform:     CurrentPlatform(),
		installer:    installer,
		lookPath:     exec.LookPath,
		run:          runCommand,
		probeTimeout: 10 * time.Second,
	}
}

/**
 * Resolve the agent executable
 * @param {context.Context} ctx - Bounds the version probe and the download
 * @returns {models.ExecutableReference} Path and where it came from
 * @returns {error} *InstallError when no copy exists and the download fails
 * @description
 * - A system install wins when "<binary> version" succeeds
 * - A previously downloaded copy is used without validation
 * - Otherwise the platform download is installed
 */
func (l *ExecutableLocator) Resolve(ctx context.Context) (models.ExecutableReference, error) {
	if path, err := l.lookPath(l.binary); err == nil {
		probeCtx, cancel := context.WithTimeout(ctx, l.probeTimeout)
		output, err := l.run(probeCtx, path, "version")
		cancel()
		if err == nil {
			if ver, verr := utils.ParseToolVersion(string(output)); verr == nil {
				logger.Infof("Using system %s %s at %s", l.binary, ver, path)
			} else {
				logger.Infof("Using system %s at %s", l.binary, path)
			}
			recordExecutableSource(models.SourceSystem)
			return models.ExecutableReference{Path: path, Source: models.SourceSystem}, nil
		}
		logger.Warnf("System %s at %s is not usable: %v, output: %s",
			l.binary, path, err, strings.TrimSpace(string(output)))
	}

	local := l.installer.ExecutablePath()
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		logger.Infof("Using local %s at %s", l.binary, local)
		recordExecutableSource(models.SourceLocal)
		return models.ExecutableReference{Path: local, Source: models.SourceLocal}, nil
	}

	url, err := ResolveDownloadURL(l.platform.OS, l.platform.Arch)
	if err != nil {
		return models.ExecutableReference{}, &InstallError{Binary: l.binary, Err: err}
	}
	path, err := l.installer.Install(ctx, url)
	if err != nil {
		return models.ExecutableReference{}, &InstallError{Binary: l.binary, Err: err}
	}
	recordExecutableSource(models.SourceDownloaded)
	return models.ExecutableReference{Path: path, Source: models.SourceDownloaded}, nil
}
