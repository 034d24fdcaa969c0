package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"infra-cli/internal/logger"
	"infra-cli/internal/models"
	"infra-cli/internal/utils"
)

// outputLimit bounds the diagnostic output kept per stream.
const outputLimit = 64 * 1024

// outputBuffer keeps the last outputLimit bytes written to it.
type outputBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - outputLimit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

/**
 * ProcessInstance 进程实例信息
 * @property {string} Title - 进程标题，用于显示
 * @property {string} ProcessName - 进程列表显示的进程名，processName+pid可以确定一个进程身份，防误杀
 * @property {string} Command - 执行命令
 * @property {[]string} Args - 命令参数
 * @property {string} LogPath - 非空时输出写入该文件，进程脱离当前进程组
 * @property {models.RunStatus} Status - 进程状态: running/exited/stopped/error
 */
type ProcessInstance struct {
	Title          string           //显示用的名字
	ProcessName    string           //进程名，用于查找进程
	Command        string           //进程启动命令
	Args           []string         //进程参数
	WorkDir        string           //工作目录
	LogPath        string           //输出文件，detached模式使用
	Status         models.RunStatus //状态
	ExitCode       int              //退出码
	StartTime      time.Time        //启动时间
	LastExitTime   time.Time        //最后一次退出的时间
	LastExitReason string           //最后一次退出的原因
	cmd            *exec.Cmd
	stdout         outputBuffer
	stderr         outputBuffer
	logFile        *os.File
	done           chan struct{}
	mutex          sync.Mutex
}

func NewProcessInstance(title, procName, command string, args []string) *ProcessInstance {
	return &ProcessInstance{
		Title:       title,
		ProcessName: procName,
		Command:     command,
		Args:        args,
		Status:      models.StatusExited,
		ExitCode:    -1,
	}
}

func (pi *ProcessInstance) Pid() int {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.pid()
}

func (pi *ProcessInstance) pid() int {
	if pi.cmd == nil || pi.cmd.Process == nil {
		return 0
	}
	return pi.cmd.Process.Pid
}

func (pi *ProcessInstance) GetDetail() models.ProcessDetail {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return models.ProcessDetail{
		Title:          pi.Title,
		ProcessName:    pi.ProcessName,
		Command:        pi.Command,
		Args:           pi.Args,
		Pid:            pi.pid(),
		Status:         pi.Status,
		ExitCode:       pi.ExitCode,
		StartTime:      pi.StartTime,
		LastExitTime:   pi.LastExitTime,
		LastExitReason: pi.LastExitReason,
	}
}

/**
 * StartProcess 启动进程
 * @returns {error} 返回错误信息
 * @description
 * - 捕获stdout/stderr，或写入LogPath指定的文件
 * - 启动协程等待进程退出并记录退出码
 */
func (pi *ProcessInstance) StartProcess() error {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()

	if pi.Status == models.StatusRunning {
		return nil
	}
	logger.Infof("Executing command: %s %s", pi.Command, strings.Join(pi.Args, " "))

	cmd := exec.Command(pi.Command, pi.Args...)
	if pi.WorkDir != "" {
		cmd.Dir = pi.WorkDir
	}

	if pi.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(pi.LogPath), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(pi.LogPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open process log: %w", err)
		}
		pi.logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
		// 设置进程属性，使子进程在父进程退出后继续运行
		utils.SetNewPG(cmd)
	} else {
		cmd.Stdout = &pi.stdout
		cmd.Stderr = &pi.stderr
	}

	if err := cmd.Start(); err != nil {
		pi.Status = models.StatusError
		pi.LastExitReason = fmt.Sprintf("start failed: %v", err)
		pi.closeLog()
		logger.Errorf("Failed to start process '%s', error: %v", pi.Title, err)
		return err
	}

	pi.cmd = cmd
	pi.done = make(chan struct{})
	pi.Status = models.StatusRunning
	pi.StartTime = time.Now()
	logger.Infof("Process '%s' started (PID: %d)", pi.Title, pi.pid())

	go pi.watchProcess(cmd, pi.done)
	return nil
}

// watchProcess 等待进程退出并记录退出原因
func (pi *ProcessInstance) watchProcess(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	defer close(done)

	pi.LastExitTime = time.Now()
	if cmd.ProcessState != nil {
		pi.ExitCode = cmd.ProcessState.ExitCode()
	}
	pi.closeLog()
	if pi.Status == models.StatusStopped {
		logger.Infof("Process '%s' (PID: %d) stopped by user", pi.Title, cmd.Process.Pid)
		return
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		pi.LastExitReason = "exited normally"
		pi.Status = models.StatusExited
	case errors.As(err, &exitErr):
		pi.LastExitReason = fmt.Sprintf("exited with code %d", pi.ExitCode)
		pi.Status = models.StatusError
	default:
		pi.LastExitReason = fmt.Sprintf("exited with error: %v", err)
		pi.Status = models.StatusError
	}
	logger.Infof("Process '%s' (PID: %d) %s", pi.Title, cmd.Process.Pid, pi.LastExitReason)
}

func (pi *ProcessInstance) closeLog() {
	if pi.logFile != nil {
		pi.logFile.Close()
		pi.logFile = nil
	}
}

// Done is closed once the process has exited. Nil before StartProcess.
func (pi *ProcessInstance) Done() <-chan struct{} {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.done
}

func (pi *ProcessInstance) GetExitCode() int {
	pi.mutex.Lock()
	defer pi.mutex.Unlock()
	return pi.ExitCode
}

/**
 * Output 返回进程输出
 * @returns {string} stdout, or the log file content in detached mode
 * @returns {string} stderr, empty in detached mode
 */
func (pi *ProcessInstance) Output() (string, string) {
	if pi.LogPath != "" {
		data, err := readTail(pi.LogPath, outputLimit)
		if err != nil {
			return "", ""
		}
		return string(data), ""
	}
	return pi.stdout.String(), pi.stderr.String()
}

func readTail(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > limit {
		if _, err := f.Seek(info.Size()-limit, io.SeekStart); err != nil {
			return nil, err
		}
	}
	return io.ReadAll(f)
}

/**
 * StopProcess 停止进程
 * @returns {error} 返回错误信息
 * @description
 * - 只终止本实例启动的进程
 * - 等待退出协程完成，最多5秒
 */
func (pi *ProcessInstance) StopProcess() error {
	pi.mutex.Lock()
	if pi.Status != models.StatusRunning || pi.cmd == nil {
		pi.mutex.Unlock()
		return nil
	}
	pi.Status = models.StatusStopped
	pi.LastExitTime = time.Now()
	pi.LastExitReason = "stopped by user"
	proc := pi.cmd.Process
	done := pi.done
	pi.mutex.Unlock()

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		logger.Errorf("Failed to kill process '%s' (PID: %d, NAME: %s): %v",
			pi.Title, proc.Pid, pi.ProcessName, err)
		return err
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("process '%s' (PID: %d) did not exit after kill", pi.Title, proc.Pid)
	}
	logger.Infof("Process '%s' (PID: %d, NAME: %s) stopped", pi.Title, proc.Pid, pi.ProcessName)
	return nil
}

// LaunchSpec describes one agent launch.
type LaunchSpec struct {
	Title       string
	ProcessName string
	Command     string
	Args        []string
	LogPath     string
}

// ManagedProcess is the supervisor's handle on a launched agent.
type ManagedProcess interface {
	Pid() int
	Done() <-chan struct{}
	GetExitCode() int
	Output() (stdout string, stderr string)
	StopProcess() error
}

// Launcher starts agent processes.
type Launcher interface {
	Launch(spec LaunchSpec) (ManagedProcess, error)
}

type processLauncher struct{}

func (processLauncher) Launch(spec LaunchSpec) (ManagedProcess, error) {
	pi := NewProcessInstance(spec.Title, spec.ProcessName, spec.Command, spec.Args)
	pi.LogPath = spec.LogPath
	if err := pi.StartProcess(); err != nil {
		return nil, err
	}
	return pi, nil
}
