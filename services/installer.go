package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"infra-cli/internal/logger"
	"infra-cli/internal/utils"

	"github.com/creativeprojects/go-selfupdate"
)

/**
 * Installer downloads the tunnel agent into a fixed directory
 * @property {string} InstallDir - Directory holding the executable
 * @property {string} Binary - Executable name without extension
 * @property {PlatformTarget} Platform - Target of the download
 * @property {*http.Client} Client - HTTP client, nil uses http.DefaultClient
 * @description
 * - The directory is assumed to be used by a single invocation at a time
 */
type Installer struct {
	InstallDir string
	Binary     string
	Platform   PlatformTarget
	Client     *http.Client
}

func NewInstaller(installDir, binary string) *Installer {
	return &Installer{
		InstallDir: installDir,
		Binary:     binary,
		Platform:   CurrentPlatform(),
	}
}

// ExecutablePath is where Install places the agent.
func (in *Installer) ExecutablePath() string {
	return filepath.Join(in.InstallDir, ExecutableName(in.Binary, in.Platform.OS))
}

/**
 * Download and install the agent
 * @param {context.Context} ctx - Cancels the download
 * @param {string} downloadURL - Archive URL (.zip or .tgz)
 * @returns {string} Path of the installed executable
 * @returns {error} *DownloadError on any failure
 * @description
 * - Streams the archive into the install directory
 * - Extracts the agent executable and renames it over any previous copy
 * - Sets the executable bit except on Windows
 * - Always removes the archive, so a failed run needs no cleanup
 */
func (in *Installer) Install(ctx context.Context, downloadURL string) (string, error) {
	if err := os.MkdirAll(in.InstallDir, 0755); err != nil {
		return "", &DownloadError{URL: downloadURL, Err: err}
	}

	archiveName, err := archiveFileName(downloadURL)
	if err != nil {
		return "", &DownloadError{URL: downloadURL, Err: err}
	}
	archive := filepath.Join(in.InstallDir, archiveName)
	defer os.Remove(archive)

	logger.Infof("Downloading %s to %s", downloadURL, archive)
	if err := utils.GetFile(ctx, in.Client, downloadURL, nil, archive); err != nil {
		return "", &DownloadError{URL: downloadURL, Err: err}
	}

	f, err := os.Open(archive)
	if err != nil {
		return "", &DownloadError{URL: downloadURL, Err: err}
	}
	defer f.Close()

	exe, err := selfupdate.DecompressCommand(f, downloadURL, in.Binary, in.Platform.OS, in.Platform.Arch)
	if err != nil {
		return "", &DownloadError{URL: downloadURL, Err: fmt.Errorf("failed to extract %s: %w", in.Binary, err)}
	}

	target := in.ExecutablePath()
	if err := utils.SaveExecutable(exe, target); err != nil {
		return "", &DownloadError{URL: downloadURL, Err: fmt.Errorf("failed to write %s: %w", target, err)}
	}
	logger.Infof("Installed %s", target)
	return target, nil
}

func archiveFileName(downloadURL string) (string, error) {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in URL '%s'", downloadURL)
	}
	return name, nil
}
