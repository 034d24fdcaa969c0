package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"infra-cli/internal/clock"
	"infra-cli/internal/config"
	"infra-cli/internal/env"
	"infra-cli/internal/logger"
	"infra-cli/internal/models"
	"infra-cli/internal/utils"
)

/**
 * Tunnel supervisor settings
 * @property {string} Binary - Agent executable name
 * @property {[]string} Args - Launch argument templates over {{.Port}}
 * @property {int} Port - Default local port
 * @property {string} Authtoken - Default auth token
 * @property {bool} RequireAuthtoken - Abort when token configuration fails
 * @property {bool} KillExisting - Kill every process named Binary before launching
 * @property {time.Duration} PollInterval - Delay between readiness polls
 * @property {int} MaxAttempts - Readiness polls before timing out
 * @property {time.Duration} KillSettle - Delay after terminating a stale instance
 * @property {time.Duration} EndpointSettle - Delay after an on-demand launch
 * @property {string} LogFile - Output of detached agents
 * @property {string} CacheFile - Record of the launched agent
 * @property {bool} DetachOnDemand - Agents launched by PublicAddress outlive this process
 */
type TunnelOptions struct {
	Binary           string
	Args             []string
	InstallDir       string
	StatusURL        string
	Port             int
	Authtoken        string
	RequireAuthtoken bool
	KillExisting     bool
	PollInterval     time.Duration
	MaxAttempts      int
	KillSettle       time.Duration
	EndpointSettle   time.Duration
	LogFile          string
	CacheFile        string
	DetachOnDemand   bool
}

// OptionsFromConfig maps the tunnel section of the configuration.
func OptionsFromConfig(cfg *config.TunnelConfig) TunnelOptions {
	return TunnelOptions{
		Binary:           cfg.Binary,
		Args:             cfg.Args,
		InstallDir:       cfg.InstallDir,
		StatusURL:        cfg.StatusURL,
		Port:             cfg.Port,
		Authtoken:        cfg.Authtoken,
		RequireAuthtoken: cfg.RequireAuthtoken,
		KillExisting:     cfg.KillExisting,
		PollInterval:     cfg.PollInterval,
		MaxAttempts:      cfg.MaxAttempts,
		KillSettle:       cfg.KillSettle,
		EndpointSettle:   cfg.EndpointSettle,
		LogFile:          cfg.LogFile,
		CacheFile:        filepath.Join(env.InfraDir, "cache", "tunnels", cfg.Binary+".json"),
	}
}

// LaunchRequest parameterizes one launch.
type LaunchRequest struct {
	Port      int
	Authtoken string
	// Detached agents write to the log file and outlive this process.
	Detached bool
}

type executableResolver interface {
	Resolve(ctx context.Context) (models.ExecutableReference, error)
}

// TunnelManager supervises exactly one tunnel agent process.
type TunnelManager struct {
	opts       TunnelOptions
	locator    executableResolver
	status     StatusReader
	launcher   Launcher
	run        CommandRunner
	clock      clock.Clock
	killByPID  func(processName string, pid int) error
	killByName func(processName string) error
	isPortOpen func(port int) bool

	state  models.TunnelState
	tunnel *models.Tunnel
	proc   ManagedProcess
	mutex  sync.Mutex
}

var tunnelManager *TunnelManager

/**
 * Get singleton instance of TunnelManager built from the loaded configuration
 * @returns {*TunnelManager} Returns the singleton TunnelManager instance
 */
func GetTunnelManager() *TunnelManager {
	if tunnelManager != nil {
		return tunnelManager
	}
	tunnelManager = NewTunnelManager(OptionsFromConfig(&config.App().Tunnel))
	return tunnelManager
}

func NewTunnelManager(opts TunnelOptions) *TunnelManager {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 30
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if len(opts.Args) == 0 {
		opts.Args = []string{"http", "{{.Port}}"}
	}
	return &TunnelManager{
		opts:       opts,
		locator:    NewExecutableLocator(opts.Binary, NewInstaller(opts.InstallDir, opts.Binary)),
		status:     NewStatusClient(opts.StatusURL, 5*time.Second),
		launcher:   processLauncher{},
		run:        runCommand,
		clock:      clock.Real(),
		killByPID:  utils.KillProcess,
		killByName: utils.KillSpecifiedProcess,
		isPortOpen: utils.IsPortListening,
		state:      models.TunnelIdle,
	}
}

func (tm *TunnelManager) Options() TunnelOptions {
	return tm.opts
}

// State returns the current supervisor state.
func (tm *TunnelManager) State() models.TunnelState {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	return tm.state
}

// Current returns a copy of the managed tunnel, nil when none is running.
func (tm *TunnelManager) Current() *models.Tunnel {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	if tm.tunnel == nil {
		return nil
	}
	t := *tm.tunnel
	return &t
}

// Snapshot reads the agent status API.
func (tm *TunnelManager) Snapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error) {
	return tm.status.Snapshot(ctx)
}

func (tm *TunnelManager) setState(state models.TunnelState) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()
	tm.state = state
}

/**
 * Launch the tunnel agent and wait until it is ready
 * @param {context.Context} ctx - Cancelling it stops the agent
 * @param {LaunchRequest} req - Local port, auth token and detach mode
 * @returns {*models.Tunnel} The running tunnel
 * @returns {error} *InstallError, *LaunchCrashError, *LaunchTimeoutError or ctx.Err()
 * @description
 * - Terminates the instance recorded by a previous run, and every process with the
 *   agent's name only when KillExisting is set
 * - Configures the auth token, a failure is logged unless RequireAuthtoken is set
 * - Polls the status API every PollInterval, at most MaxAttempts times
 * - Kills the agent on timeout; there is no automatic retry
 */
func (tm *TunnelManager) Launch(ctx context.Context, req LaunchRequest) (*models.Tunnel, error) {
	tm.mutex.Lock()
	switch tm.state {
	case models.TunnelReady:
		if tm.tunnel != nil {
			t := *tm.tunnel
			tm.mutex.Unlock()
			return &t, nil
		}
	case models.TunnelStarting:
		tm.mutex.Unlock()
		return nil, errors.New("tunnel launch already in progress")
	}
	tm.mutex.Unlock()

	if req.Port <= 0 {
		req.Port = tm.opts.Port
	}

	exe, err := tm.locator.Resolve(ctx)
	if err != nil {
		recordLaunch("install_failed", 0)
		return nil, err
	}
	processName := utils.Path2ProcessName(exe.Path)

	if err := tm.terminateStale(ctx, processName); err != nil {
		return nil, err
	}
	if err := tm.configureAuthtoken(ctx, exe.Path, req.Authtoken); err != nil {
		recordLaunch("authtoken_failed", 0)
		return nil, err
	}
	if !tm.isPortOpen(req.Port) {
		logger.Warnf("Nothing is listening on local port %d yet", req.Port)
	}

	_, args, err := utils.GetCommandLine("", tm.opts.Args, struct{ Port int }{Port: req.Port})
	if err != nil {
		return nil, err
	}
	spec := LaunchSpec{
		Title:       fmt.Sprintf("tunnel :%d", req.Port),
		ProcessName: processName,
		Command:     exe.Path,
		Args:        args,
	}
	if req.Detached {
		spec.LogPath = tm.opts.LogFile
	}

	tm.setState(models.TunnelStarting)
	started := tm.clock.Now()
	proc, err := tm.launcher.Launch(spec)
	if err != nil {
		tm.setState(models.TunnelCrashed)
		recordLaunch("start_failed", 0)
		return nil, fmt.Errorf("failed to start %s: %w", exe.Path, err)
	}

	record := &models.Tunnel{
		Pid:         proc.Pid(),
		ProcessName: processName,
		Executable:  exe.Path,
		LocalPort:   req.Port,
		Authtoken:   req.Authtoken != "",
		Status:      models.StatusRunning,
		Detached:    req.Detached,
		CreatedTime: time.Now(),
	}
	if err := tm.saveRecord(record); err != nil {
		logger.Warnf("Failed to save tunnel record: %v", err)
	}

	if err := tm.waitReady(ctx, proc); err != nil {
		var crash *LaunchCrashError
		var timeout *LaunchTimeoutError
		switch {
		case errors.As(err, &crash):
			tm.setState(models.TunnelCrashed)
			recordLaunch("crashed", 0)
		case errors.As(err, &timeout):
			if stopErr := proc.StopProcess(); stopErr != nil {
				logger.Errorf("Failed to stop unresponsive tunnel (PID: %d): %v", record.Pid, stopErr)
			}
			tm.setState(models.TunnelTimedOut)
			recordLaunch("timed_out", 0)
		default:
			proc.StopProcess()
			tm.setState(models.TunnelIdle)
			recordLaunch("cancelled", 0)
		}
		tm.removeRecord()
		logger.Errorf("Tunnel launch failed: %v", err)
		return nil, err
	}

	tm.mutex.Lock()
	tm.state = models.TunnelReady
	tm.proc = proc
	tm.tunnel = record
	t := *record
	tm.mutex.Unlock()

	recordLaunch("ready", tm.clock.Now().Sub(started).Seconds())
	logger.Infof("Tunnel ready (PID: %d, port: %d, executable: %s)", record.Pid, record.LocalPort, exe.Path)
	return &t, nil
}

func (tm *TunnelManager) waitReady(ctx context.Context, proc ManagedProcess) error {
	for attempt := 1; attempt <= tm.opts.MaxAttempts; attempt++ {
		select {
		case <-proc.Done():
			stdout, stderr := proc.Output()
			return &LaunchCrashError{ExitCode: proc.GetExitCode(), Stdout: stdout, Stderr: stderr}
		default:
		}

		recordStatusPoll()
		if _, err := tm.status.Snapshot(ctx); err == nil {
			return nil
		} else {
			logger.Debugf("Tunnel not ready (attempt %d/%d): %v", attempt, tm.opts.MaxAttempts, err)
		}

		if attempt < tm.opts.MaxAttempts {
			if err := tm.clock.Sleep(ctx, tm.opts.PollInterval); err != nil {
				return err
			}
		}
	}
	stdout, stderr := proc.Output()
	return &LaunchTimeoutError{Attempts: tm.opts.MaxAttempts, Stdout: stdout, Stderr: stderr}
}

// configureAuthtoken 设置agent认证token
func (tm *TunnelManager) configureAuthtoken(ctx context.Context, exe, token string) error {
	if token == "" {
		return nil
	}
	output, err := tm.run(ctx, exe, "authtoken", token)
	if err == nil {
		logger.Infof("Auth token configured for %s", exe)
		return nil
	}
	msg := strings.TrimSpace(string(output))
	if tm.opts.RequireAuthtoken {
		return fmt.Errorf("failed to configure auth token: %w: %s", err, msg)
	}
	logger.Warnf("Failed to configure auth token, continuing: %v: %s", err, msg)
	return nil
}

/**
 * Terminate agents left over from earlier runs
 * @description
 * - The recorded PID is killed only when it still runs the agent executable
 * - Name-based cleanup runs only in KillExisting mode
 * - Waits KillSettle when anything was terminated
 */
func (tm *TunnelManager) terminateStale(ctx context.Context, processName string) error {
	terminated := false
	if rec, err := tm.loadRecord(); err == nil && rec.Pid > 0 {
		if err := tm.killByPID(rec.ProcessName, rec.Pid); err == nil {
			logger.Infof("Terminated previous tunnel (PID: %d, NAME: %s)", rec.Pid, rec.ProcessName)
			terminated = true
		} else {
			logger.Debugf("Previous tunnel (PID: %d) is gone: %v", rec.Pid, err)
		}
		tm.removeRecord()
	}
	if tm.opts.KillExisting {
		if err := tm.killByName(processName); err != nil {
			logger.Warnf("Failed to kill existing %s processes: %v", processName, err)
		}
		terminated = true
	}
	if terminated && tm.opts.KillSettle > 0 {
		return tm.clock.Sleep(ctx, tm.opts.KillSettle)
	}
	return nil
}

/**
 * Stop the tunnel launched by this manager
 * @returns {error} Error if the process could not be killed
 * @description
 * - Never touches processes this manager did not start
 */
func (tm *TunnelManager) Terminate() error {
	tm.mutex.Lock()
	proc := tm.proc
	tm.proc = nil
	tm.tunnel = nil
	tm.state = models.TunnelIdle
	tm.mutex.Unlock()

	if proc == nil {
		return nil
	}
	err := proc.StopProcess()
	tm.removeRecord()
	return err
}

/**
 * Stop the tunnel recorded by an earlier invocation
 * @param {bool} all - Also kill every process with the agent's name
 * @returns {*models.Tunnel} The recorded tunnel, nil if there was none
 * @returns {error} Error if the recorded process could not be killed
 */
func (tm *TunnelManager) StopRecorded(all bool) (*models.Tunnel, error) {
	rec, err := tm.loadRecord()
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	var stopErr error
	if rec != nil && rec.Pid > 0 {
		if stopErr = tm.killByPID(rec.ProcessName, rec.Pid); stopErr == nil {
			logger.Infof("Stopped tunnel (PID: %d, NAME: %s)", rec.Pid, rec.ProcessName)
		}
		tm.removeRecord()
	}
	if all {
		if err := tm.killByName(tm.opts.Binary); err != nil {
			return rec, err
		}
		return rec, nil
	}
	return rec, stopErr
}

// Recorded returns the tunnel record left by the last launch.
func (tm *TunnelManager) Recorded() (*models.Tunnel, error) {
	return tm.loadRecord()
}

// PublicAddress returns the public address, launching the agent when it is not running.
func (tm *TunnelManager) PublicAddress(ctx context.Context) (string, error) {
	reader := NewEndpointReader(tm.status, tm, tm.clock, tm.opts.EndpointSettle,
		LaunchRequest{Port: tm.opts.Port, Authtoken: tm.opts.Authtoken, Detached: tm.opts.DetachOnDemand})
	addr, err := reader.PublicAddress(ctx)
	if err != nil {
		return "", err
	}
	tm.mutex.Lock()
	if tm.tunnel != nil {
		tm.tunnel.PublicURL = addr
		rec := *tm.tunnel
		tm.mutex.Unlock()
		tm.saveRecord(&rec)
	} else {
		tm.mutex.Unlock()
	}
	return addr, nil
}

/**
 * Save tunnel record to cache file
 * @param {*models.Tunnel} tun - Tunnel to save
 * @returns {error} Returns error if save operation fails, nil on success
 */
func (tm *TunnelManager) saveRecord(tun *models.Tunnel) error {
	if tm.opts.CacheFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(tm.opts.CacheFile), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(tun, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize tunnel info: %w", err)
	}
	if err := os.WriteFile(tm.opts.CacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write tunnel info file: %w", err)
	}
	return nil
}

func (tm *TunnelManager) loadRecord() (*models.Tunnel, error) {
	if tm.opts.CacheFile == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(tm.opts.CacheFile)
	if err != nil {
		return nil, err
	}
	var tun models.Tunnel
	if err := json.Unmarshal(data, &tun); err != nil {
		return nil, fmt.Errorf("invalid tunnel record %s: %w", tm.opts.CacheFile, err)
	}
	return &tun, nil
}

func (tm *TunnelManager) removeRecord() {
	if tm.opts.CacheFile == "" {
		return
	}
	if err := os.Remove(tm.opts.CacheFile); err != nil && !os.IsNotExist(err) {
		logger.Errorf("Failed to delete cache file: %v", err)
	}
}
