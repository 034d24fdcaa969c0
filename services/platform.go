package services

import (
	"runtime"
	"strings"
)

// PlatformTarget identifies a download of the tunnel agent.
type PlatformTarget struct {
	OS   string
	Arch string
}

const ngrokStableBase = "https://bin.equinox.io/c/bNyj1mQVY4c/ngrok-v3-stable-"

// downloadTable is the only place that knows agent download locations.
var downloadTable = map[PlatformTarget]string{
	{"windows", "amd64"}: ngrokStableBase + "windows-amd64.zip",
	{"windows", "arm64"}: ngrokStableBase + "windows-arm64.zip",
	{"windows", "386"}:   ngrokStableBase + "windows-386.zip",
	{"darwin", "arm64"}:  ngrokStableBase + "darwin-arm64.zip",
	{"darwin", "amd64"}:  ngrokStableBase + "darwin-amd64.zip",
	{"linux", "amd64"}:   ngrokStableBase + "linux-amd64.tgz",
	{"linux", "386"}:     ngrokStableBase + "linux-386.tgz",
	{"linux", "arm64"}:   "https://bin.ngrok.com/ngrok-v3-stable-linux-arm64.zip",
}

var archAliases = map[string]string{
	"x86_64":  "amd64",
	"amd64":   "amd64",
	"x64":     "amd64",
	"aarch64": "arm64",
	"arm64":   "arm64",
	"x86":     "386",
	"i386":    "386",
	"i686":    "386",
	"386":     "386",
}

var osAliases = map[string]string{
	"windows": "windows",
	"darwin":  "darwin",
	"macos":   "darwin",
	"linux":   "linux",
}

// NormalizePlatform maps uname-style and Go-style spellings onto Go names.
func NormalizePlatform(osName, arch string) PlatformTarget {
	o := strings.ToLower(strings.TrimSpace(osName))
	a := strings.ToLower(strings.TrimSpace(arch))
	if v, ok := osAliases[o]; ok {
		o = v
	}
	if v, ok := archAliases[a]; ok {
		a = v
	}
	return PlatformTarget{OS: o, Arch: a}
}

// CurrentPlatform returns the platform this binary runs on.
func CurrentPlatform() PlatformTarget {
	return NormalizePlatform(runtime.GOOS, runtime.GOARCH)
}

/**
 * Resolve the agent download URL for a platform
 * @param {string} osName - Operating system, e.g. "linux", "Darwin", "Windows"
 * @param {string} arch - Architecture, e.g. "amd64", "x86_64", "aarch64"
 * @returns {string} Download URL
 * @returns {error} *UnsupportedPlatformError naming the pair when no entry exists
 */
func ResolveDownloadURL(osName, arch string) (string, error) {
	target := NormalizePlatform(osName, arch)
	if url, ok := downloadTable[target]; ok {
		return url, nil
	}
	return "", &UnsupportedPlatformError{OS: osName, Arch: arch}
}

// ExecutableName returns the agent file name on the given OS.
func ExecutableName(binary, osName string) string {
	if NormalizePlatform(osName, "").OS == "windows" && !strings.HasSuffix(strings.ToLower(binary), ".exe") {
		return binary + ".exe"
	}
	return binary
}

// SupportedPlatforms lists every entry of the download table.
func SupportedPlatforms() []PlatformTarget {
	targets := make([]PlatformTarget, 0, len(downloadTable))
	for t := range downloadTable {
		targets = append(targets, t)
	}
	return targets
}
