package services

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"infra-cli/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is re-executed as a child
// process by the tests below.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	switch args[1] {
	case "crash":
		fmt.Fprintln(os.Stdout, "starting agent")
		fmt.Fprintln(os.Stderr, "ERR_NGROK_105: authentication failed")
		os.Exit(3)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperSpec(t *testing.T, mode string) LaunchSpec {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	return LaunchSpec{
		Title:       "helper " + mode,
		ProcessName: filepath.Base(os.Args[0]),
		Command:     os.Args[0],
		Args:        []string{"-test.run=TestHelperProcess", "--", mode},
	}
}

func waitDone(t *testing.T, proc ManagedProcess) {
	t.Helper()
	select {
	case <-proc.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not exit")
	}
}

func TestProcessCapturesOutputAndExitCode(t *testing.T) {
	proc, err := processLauncher{}.Launch(helperSpec(t, "crash"))
	require.NoError(t, err)
	assert.Greater(t, proc.Pid(), 0)

	waitDone(t, proc)
	assert.Equal(t, 3, proc.GetExitCode())
	stdout, stderr := proc.Output()
	assert.Contains(t, stdout, "starting agent")
	assert.Contains(t, stderr, "ERR_NGROK_105")

	detail := proc.(*ProcessInstance).GetDetail()
	assert.Equal(t, models.StatusError, detail.Status)
	assert.Equal(t, "exited with code 3", detail.LastExitReason)
}

func TestProcessDetachedWritesLogFile(t *testing.T) {
	spec := helperSpec(t, "crash")
	spec.LogPath = filepath.Join(t.TempDir(), "logs", "tunnel.log")

	proc, err := processLauncher{}.Launch(spec)
	require.NoError(t, err)
	waitDone(t, proc)

	stdout, stderr := proc.Output()
	assert.Contains(t, stdout, "starting agent")
	assert.Contains(t, stdout, "ERR_NGROK_105")
	assert.Empty(t, stderr)
}

func TestProcessStop(t *testing.T) {
	proc, err := processLauncher{}.Launch(helperSpec(t, "sleep"))
	require.NoError(t, err)

	require.NoError(t, proc.StopProcess())
	waitDone(t, proc)
	assert.Equal(t, models.StatusStopped, proc.(*ProcessInstance).GetDetail().Status)

	// a second stop is a no-op
	assert.NoError(t, proc.StopProcess())
}

func TestLaunchMissingExecutable(t *testing.T) {
	_, err := processLauncher{}.Launch(LaunchSpec{
		Title:   "missing",
		Command: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	assert.Error(t, err)
}
