package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"infra-cli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstaller struct {
	path     string
	calls    int
	lastURL  string
	err      error
	contents string
}

func (f *fakeInstaller) ExecutablePath() string { return f.path }

func (f *fakeInstaller) Install(ctx context.Context, url string) (string, error) {
	f.calls++
	f.lastURL = url
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(f.path, []byte(f.contents), 0755); err != nil {
		return "", err
	}
	return f.path, nil
}

func newTestLocator(inst PackageInstaller) *ExecutableLocator {
	l := NewExecutableLocator("ngrok", inst)
	l.platform = PlatformTarget{OS: "linux", Arch: "amd64"}
	return l
}

func TestLocatorPrefersResponsiveSystemBinary(t *testing.T) {
	inst := &fakeInstaller{path: filepath.Join(t.TempDir(), "ngrok")}
	l := newTestLocator(inst)
	l.lookPath = func(string) (string, error) { return "/usr/local/bin/ngrok", nil }
	var probed []string
	l.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		probed = append(probed, name+" "+args[0])
		return []byte("ngrok version 3.5.0\n"), nil
	}

	ref, err := l.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ExecutableReference{Path: "/usr/local/bin/ngrok", Source: models.SourceSystem}, ref)
	assert.Equal(t, []string{"/usr/local/bin/ngrok version"}, probed)
	assert.Zero(t, inst.calls, "download must not be attempted")
}

func TestLocatorFallsBackToLocalCopy(t *testing.T) {
	local := filepath.Join(t.TempDir(), "ngrok")
	require.NoError(t, os.WriteFile(local, []byte("bin"), 0755))
	inst := &fakeInstaller{path: local}
	l := newTestLocator(inst)
	l.lookPath = func(string) (string, error) { return "/usr/bin/ngrok", nil }
	l.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("segfault"), errors.New("exit status 139")
	}

	ref, err := l.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ExecutableReference{Path: local, Source: models.SourceLocal}, ref)
	assert.Zero(t, inst.calls)
}

func TestLocatorDownloadsWhenNothingExists(t *testing.T) {
	inst := &fakeInstaller{path: filepath.Join(t.TempDir(), "ngrok"), contents: "bin"}
	l := newTestLocator(inst)
	l.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	ref, err := l.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SourceDownloaded, ref.Source)
	assert.Equal(t, 1, inst.calls)
	assert.Equal(t, downloadTable[PlatformTarget{"linux", "amd64"}], inst.lastURL)
}

func TestLocatorWrapsDownloadFailure(t *testing.T) {
	inst := &fakeInstaller{
		path: filepath.Join(t.TempDir(), "ngrok"),
		err:  &DownloadError{URL: "https://example.invalid/ngrok.tgz", Err: errors.New("connection refused")},
	}
	l := newTestLocator(inst)
	l.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := l.Resolve(context.Background())
	var installErr *InstallError
	require.True(t, errors.As(err, &installErr))
	var dlErr *DownloadError
	assert.True(t, errors.As(err, &dlErr))
}

func TestLocatorUnsupportedPlatform(t *testing.T) {
	inst := &fakeInstaller{path: filepath.Join(t.TempDir(), "ngrok")}
	l := newTestLocator(inst)
	l.platform = PlatformTarget{OS: "plan9", Arch: "mips"}
	l.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := l.Resolve(context.Background())
	var platformErr *UnsupportedPlatformError
	require.True(t, errors.As(err, &platformErr))
	assert.Zero(t, inst.calls)
}
