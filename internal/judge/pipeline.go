package judge

import (
	"context"
	"os"
	"path/filepath"

	"vexoj/internal/sandbox"
	appErr "vexoj/pkg/errors"
)

// Compilation runs under fixed limits regardless of the problem's
// run limits.
const (
	compileWallTimeSec  = 30
	compileMemoryKB     = 512 * 1024
	compileMaxProcesses = 64
)

const (
	stdinFileName   = "stdin.txt"
	stdoutFileName  = "stdout.txt"
	stderrFileName  = "stderr.txt"
	compileErrsName = "compile.err"
)

var sandboxEnv = []string{
	"HOME=/tmp",
	"PATH=/usr/local/bin:/usr/bin:/bin",
}

// Limits are the per-test resource limits declared by the problem.
type Limits struct {
	TimeLimitMs   int
	MemoryLimitMB int
}

// CompileResult is the outcome of a compile step.
type CompileResult struct {
	OK       bool
	Stderr   string
	TimeMs   int64
	MemoryKB int64
	Status   sandbox.Status
}

// Pipeline performs the compile and run steps inside a leased box.
type Pipeline struct {
	backend sandbox.Backend
}

func NewPipeline(backend sandbox.Backend) *Pipeline {
	return &Pipeline{backend: backend}
}

// WriteSource places the submission source into the box under the
// language's source file name.
func (p *Pipeline) WriteSource(box *sandbox.Box, lang Language, code string) error {
	path := filepath.Join(box.Dir, lang.SourceFile)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return appErr.Wrapf(err, appErr.SourceWriteFailed, "write %s", path)
	}
	return nil
}

// Compile compiles the source already written into the box. Languages
// without a compile step succeed immediately.
func (p *Pipeline) Compile(ctx context.Context, box *sandbox.Box, lang Language) (CompileResult, error) {
	if !lang.NeedsCompile() {
		return CompileResult{OK: true, Status: sandbox.StatusOK}, nil
	}

	argv, err := lang.CompileArgv()
	if err != nil {
		return CompileResult{}, err
	}

	stderrPath := filepath.Join(box.WorkDir, compileErrsName)
	spec := sandbox.RunSpec{
		Argv:          argv,
		Env:           sandboxEnv,
		StderrPath:    stderrPath,
		WallTimeSec:   compileWallTimeSec,
		MemoryLimitKB: compileMemoryKB,
		MaxProcesses:  compileMaxProcesses,
	}

	meta, err := p.backend.Run(ctx, box, spec)
	if err != nil {
		return CompileResult{}, err
	}

	stderr := readFileCapped(stderrPath)
	status := meta.Classify()
	return CompileResult{
		OK:       status == sandbox.StatusOK && meta.ExitCode == 0,
		Stderr:   stderr,
		TimeMs:   int64(meta.TimeSec * 1000),
		MemoryKB: meta.MemoryKB(),
		Status:   status,
	}, nil
}

// RunCase executes the compiled program against one input under the
// problem limits and collects its outputs.
func (p *Pipeline) RunCase(ctx context.Context, box *sandbox.Box, lang Language, input string, limits Limits) (sandbox.ExecutionResult, error) {
	argv, err := lang.RunArgv()
	if err != nil {
		return sandbox.ExecutionResult{}, err
	}

	stdinPath := filepath.Join(box.WorkDir, stdinFileName)
	if err := os.WriteFile(stdinPath, []byte(input), 0644); err != nil {
		return sandbox.ExecutionResult{}, appErr.Wrapf(err, appErr.SourceWriteFailed, "write %s", stdinPath)
	}

	stdoutPath := filepath.Join(box.WorkDir, stdoutFileName)
	stderrPath := filepath.Join(box.WorkDir, stderrFileName)

	spec := RunSpecForLimits(argv, limits)
	spec.StdinPath = stdinPath
	spec.StdoutPath = stdoutPath
	spec.StderrPath = stderrPath
	spec.MaxProcesses = lang.MaxProcesses()

	meta, err := p.backend.Run(ctx, box, spec)
	if err != nil {
		return sandbox.ExecutionResult{}, err
	}

	return sandbox.ResultFromMeta(meta, readFileCapped(stdoutPath), readFileCapped(stderrPath)), nil
}

// RunSpecForLimits converts problem limits into a sandbox run spec.
// The wall clock allowance is twice the CPU limit plus one second, with
// half a second of extra time so isolate reports a clean timeout status.
func RunSpecForLimits(argv []string, limits Limits) sandbox.RunSpec {
	timeSec := float64(limits.TimeLimitMs) / 1000
	return sandbox.RunSpec{
		Argv:          argv,
		Env:           sandboxEnv,
		TimeLimitSec:  timeSec,
		ExtraTimeSec:  0.5,
		WallTimeSec:   timeSec*2 + 1,
		MemoryLimitKB: int64(limits.MemoryLimitMB) * 1024,
	}
}

// Output size fed back to callers is capped to keep events small.
const maxOutputBytes = 256 * 1024

func readFileCapped(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(data) > maxOutputBytes {
		data = data[:maxOutputBytes]
	}
	return string(data)
}
