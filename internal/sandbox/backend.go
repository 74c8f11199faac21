package sandbox

import (
	"context"
	"io"
)

// Box is an initialized sandbox compartment.
type Box struct {
	// ID is the isolate box id, stable for the lifetime of the pool.
	ID int
	// WorkDir is the isolate working directory for this box.
	WorkDir string
	// Dir is the writable box root visible to the sandboxed program.
	Dir string
}

// RunSpec describes one sandboxed execution.
type RunSpec struct {
	// Argv is the program and its arguments, resolved inside the box.
	Argv []string

	// Env holds KEY=VALUE entries passed into the sandbox.
	Env []string

	// Host paths for stream redirection. Empty stdin reads from /dev/null;
	// empty stdout/stderr are discarded. Ignored by Start, which pipes
	// all three streams to the caller.
	StdinPath  string
	StdoutPath string
	StderrPath string

	// Limits. Zero values mean no explicit limit is passed.
	TimeLimitSec  float64
	ExtraTimeSec  float64
	WallTimeSec   float64
	MemoryLimitKB int64
	MaxProcesses  int
}

// Process is a sandboxed program started with piped streams.
type Process interface {
	// Stdin is the pipe feeding the program's standard input.
	Stdin() io.WriteCloser
	// Stdout streams the program's standard output.
	Stdout() io.Reader
	// Stderr streams the program's standard error.
	Stderr() io.Reader

	// Wait blocks until the program exits and returns its run metadata.
	Wait() (*Meta, error)

	// Kill forcibly terminates the program and its descendants.
	// Wait still returns afterwards.
	Kill() error
}

// Backend abstracts the sandbox implementation so the pool and the judge
// pipeline can be tested without a privileged isolate install.
type Backend interface {
	// Init creates the box compartment and returns its directories.
	Init(ctx context.Context, boxID int) (*Box, error)

	// Cleanup tears the box compartment down. Safe to call on a box
	// that was never initialized.
	Cleanup(ctx context.Context, boxID int) error

	// Run executes a program to completion with file-redirected streams.
	Run(ctx context.Context, box *Box, spec RunSpec) (*Meta, error)

	// Start launches a program with piped streams for interactive use.
	Start(ctx context.Context, box *Box, spec RunSpec) (Process, error)
}
