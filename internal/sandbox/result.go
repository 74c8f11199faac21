package sandbox

// Status is the normalized outcome of a sandboxed execution.
type Status string

const (
	StatusOK       Status = "OK"
	StatusTimeout  Status = "TIME_LIMIT_EXCEEDED"
	StatusMemout   Status = "MEMORY_LIMIT_EXCEEDED"
	StatusRuntime  Status = "RUNTIME_ERROR"
	StatusInternal Status = "INTERNAL_ERROR"
)

// ExecutionResult is the normalized outcome of one sandboxed run.
type ExecutionResult struct {
	// Success is true only when the status is OK and the exit code is zero.
	Success bool `json:"success"`

	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`

	// TimeMs is CPU time in milliseconds.
	TimeMs int64 `json:"timeMs"`
	// MemoryKB is peak memory in kilobytes.
	MemoryKB int64 `json:"memoryKB"`

	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// ResultFromMeta builds an ExecutionResult from parsed run metadata and
// the collected output streams.
func ResultFromMeta(meta *Meta, stdout, stderr string) ExecutionResult {
	status := meta.Classify()
	return ExecutionResult{
		Success:  status == StatusOK && meta.ExitCode == 0,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: meta.ExitCode,
		TimeMs:   int64(meta.TimeSec * 1000),
		MemoryKB: meta.MemoryKB(),
		Status:   status,
		Message:  meta.Message,
	}
}

// InternalResult builds an INTERNAL_ERROR result carrying a message.
// Used when the sandbox itself fails before producing metadata.
func InternalResult(msg string) ExecutionResult {
	return ExecutionResult{
		Success:  false,
		ExitCode: -1,
		Status:   StatusInternal,
		Message:  msg,
	}
}
