package sandbox

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	appErr "vexoj/pkg/errors"
)

const metaFileName = "meta.txt"

// IsolateBackend drives the isolate(1) sandbox in cgroup mode.
type IsolateBackend struct {
	binary string
}

// NewIsolateBackend creates a backend invoking the given isolate binary.
// An empty binary defaults to "isolate" on PATH.
func NewIsolateBackend(binary string) *IsolateBackend {
	if binary == "" {
		binary = "isolate"
	}
	return &IsolateBackend{binary: binary}
}

func (b *IsolateBackend) Init(ctx context.Context, boxID int) (*Box, error) {
	cmd := exec.CommandContext(ctx, b.binary, "--cg", "-b", strconv.Itoa(boxID), "--init")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.BoxInitFailed, "isolate init box %d: %s", boxID, strings.TrimSpace(string(output)))
	}
	workDir := strings.TrimSpace(string(output))
	return &Box{
		ID:      boxID,
		WorkDir: workDir,
		Dir:     filepath.Join(workDir, "box"),
	}, nil
}

func (b *IsolateBackend) Cleanup(ctx context.Context, boxID int) error {
	cmd := exec.CommandContext(ctx, b.binary, "--cg", "-b", strconv.Itoa(boxID), "--cleanup")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return appErr.Wrapf(err, appErr.BoxCleanupFailed, "isolate cleanup box %d: %s", boxID, strings.TrimSpace(string(output)))
	}
	return nil
}

func (b *IsolateBackend) Run(ctx context.Context, box *Box, spec RunSpec) (*Meta, error) {
	metaPath := filepath.Join(box.WorkDir, metaFileName)
	cmd := exec.CommandContext(ctx, b.binary, b.runArgs(box.ID, metaPath, spec)...)

	if spec.StdinPath != "" {
		stdin, err := os.Open(spec.StdinPath)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.ProcessStartFailed, "open stdin %s", spec.StdinPath)
		}
		defer stdin.Close()
		cmd.Stdin = stdin
	}
	if spec.StdoutPath != "" {
		stdout, err := os.Create(spec.StdoutPath)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.ProcessStartFailed, "create stdout %s", spec.StdoutPath)
		}
		defer stdout.Close()
		cmd.Stdout = stdout
	}
	if spec.StderrPath != "" {
		stderr, err := os.Create(spec.StderrPath)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.ProcessStartFailed, "create stderr %s", spec.StderrPath)
		}
		defer stderr.Close()
		cmd.Stderr = stderr
	}

	// A non-zero exit is the normal signal for a failed run; the metadata
	// file is authoritative either way.
	runErr := cmd.Run()
	meta, metaErr := ParseMetaFile(metaPath)
	if metaErr != nil {
		if runErr != nil {
			return nil, appErr.Wrapf(runErr, appErr.SandboxError, "isolate run box %d", box.ID)
		}
		return nil, metaErr
	}
	return meta, nil
}

func (b *IsolateBackend) Start(ctx context.Context, box *Box, spec RunSpec) (Process, error) {
	metaPath := filepath.Join(box.WorkDir, metaFileName)
	cmd := exec.CommandContext(ctx, b.binary, b.runArgs(box.ID, metaPath, spec)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.ProcessStartFailed)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.ProcessStartFailed)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.ProcessStartFailed)
	}

	if err := cmd.Start(); err != nil {
		return nil, appErr.Wrapf(err, appErr.ProcessStartFailed, "isolate start box %d", box.ID)
	}

	return &isolateProcess{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		metaPath: metaPath,
	}, nil
}

func (b *IsolateBackend) runArgs(boxID int, metaPath string, spec RunSpec) []string {
	args := []string{"--cg", "-b", strconv.Itoa(boxID), "-M", metaPath}

	if spec.TimeLimitSec > 0 {
		args = append(args, "--time="+formatSeconds(spec.TimeLimitSec))
	}
	if spec.ExtraTimeSec > 0 {
		args = append(args, "--extra-time="+formatSeconds(spec.ExtraTimeSec))
	}
	if spec.WallTimeSec > 0 {
		args = append(args, "--wall-time="+formatSeconds(spec.WallTimeSec))
	}
	if spec.MemoryLimitKB > 0 {
		args = append(args, "--mem="+strconv.FormatInt(spec.MemoryLimitKB, 10))
	}
	if spec.MaxProcesses > 0 {
		args = append(args, "--processes="+strconv.Itoa(spec.MaxProcesses))
	}
	for _, env := range spec.Env {
		args = append(args, "-E", env)
	}

	args = append(args, "--run", "--")
	args = append(args, spec.Argv...)
	return args
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

type isolateProcess struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   io.Reader
	stderr   io.Reader
	metaPath string
}

func (p *isolateProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *isolateProcess) Stdout() io.Reader     { return p.stdout }
func (p *isolateProcess) Stderr() io.Reader     { return p.stderr }

func (p *isolateProcess) Wait() (*Meta, error) {
	// A non-zero exit is expected for failed runs; the metadata file
	// carries the real outcome.
	_ = p.cmd.Wait()
	return ParseMetaFile(p.metaPath)
}

// Kill terminates the whole process group. Killing only the direct child
// would leave sandboxed descendants running until their wall clock limit.
func (p *isolateProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-p.cmd.Process.Pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		return appErr.Wrap(err, appErr.ProcessKillFailed)
	}
	return nil
}

var _ Backend = (*IsolateBackend)(nil)
