package judge_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vexoj/internal/judge"
	"vexoj/internal/sandbox"
	appErr "vexoj/pkg/errors"
)

type scriptedRun struct {
	meta   sandbox.Meta
	stdout string
}

// scriptedBackend plays back pre-programmed run results. Compile steps
// are recognized by the absence of a stdin redirection.
type scriptedBackend struct {
	t *testing.T

	root        string
	compileMeta sandbox.Meta
	compileErr  string
	runs        []scriptedRun
	runCalls    int

	// runErr is returned from the run call with index runErrAt.
	runErr   error
	runErrAt int

	cleanups int
}

func newScriptedBackend(t *testing.T) *scriptedBackend {
	return &scriptedBackend{t: t, root: t.TempDir()}
}

func (b *scriptedBackend) Init(ctx context.Context, boxID int) (*sandbox.Box, error) {
	workDir := filepath.Join(b.root, fmt.Sprintf("box-%d", boxID))
	dir := filepath.Join(workDir, "box")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &sandbox.Box{ID: boxID, WorkDir: workDir, Dir: dir}, nil
}

func (b *scriptedBackend) Cleanup(ctx context.Context, boxID int) error {
	b.cleanups++
	return nil
}

func (b *scriptedBackend) Run(ctx context.Context, box *sandbox.Box, spec sandbox.RunSpec) (*sandbox.Meta, error) {
	if spec.StdinPath == "" {
		if spec.StderrPath != "" && b.compileErr != "" {
			if err := os.WriteFile(spec.StderrPath, []byte(b.compileErr), 0644); err != nil {
				b.t.Fatalf("write compile stderr: %v", err)
			}
		}
		meta := b.compileMeta
		return &meta, nil
	}

	if b.runErr != nil && b.runCalls == b.runErrAt {
		b.runCalls++
		return nil, b.runErr
	}
	if b.runCalls >= len(b.runs) {
		b.t.Fatalf("unexpected run call %d", b.runCalls)
	}
	run := b.runs[b.runCalls]
	b.runCalls++
	if spec.StdoutPath != "" {
		if err := os.WriteFile(spec.StdoutPath, []byte(run.stdout), 0644); err != nil {
			b.t.Fatalf("write stdout: %v", err)
		}
	}
	meta := run.meta
	return &meta, nil
}

func (b *scriptedBackend) Start(ctx context.Context, box *sandbox.Box, spec sandbox.RunSpec) (sandbox.Process, error) {
	return nil, errors.New("not supported")
}

func testLanguages() *judge.Registry {
	return judge.NewRegistry([]judge.Language{
		{ID: "python", Name: "Python 3", SourceFile: "main.py", RunCmd: "/usr/bin/python3 {src}"},
		{ID: "cpp", Name: "C++17", SourceFile: "main.cpp", BinaryFile: "main",
			CompileCmd: "/usr/bin/g++ -O2 -o {bin} {src}", RunCmd: "./{bin}"},
	})
}

func newTestOrchestrator(t *testing.T, backend sandbox.Backend) *judge.Orchestrator {
	pool, err := sandbox.NewPool(backend, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return judge.NewOrchestrator(pool, judge.NewPipeline(backend), testLanguages())
}

func TestJudgeAllAccepted(t *testing.T) {
	backend := newScriptedBackend(t)
	backend.runs = []scriptedRun{
		{meta: sandbox.Meta{TimeSec: 0.1, MaxRSSKB: 1000}, stdout: "1\n"},
		{meta: sandbox.Meta{TimeSec: 0.3, MaxRSSKB: 4000}, stdout: "2\n"},
		{meta: sandbox.Meta{TimeSec: 0.2, MaxRSSKB: 2000}, stdout: "3\n"},
	}
	orch := newTestOrchestrator(t, backend)

	var progress []judge.Progress
	outcome, err := orch.Judge(context.Background(), judge.Request{
		Language: "python",
		Code:     "print(input())",
		Limits:   judge.Limits{TimeLimitMs: 1000, MemoryLimitMB: 256},
		Tests: []judge.TestCase{
			{ID: 1, Input: "1\n", Expected: "1\n"},
			{ID: 2, Input: "2\n", Expected: "2\n"},
			{ID: 3, Input: "3\n", Expected: "3\n"},
		},
	}, func(p judge.Progress) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}

	if outcome.Verdict != judge.VerdictAccepted {
		t.Fatalf("verdict = %s, want ACCEPTED", outcome.Verdict)
	}
	if outcome.Score != 100 {
		t.Fatalf("score = %d, want 100", outcome.Score)
	}
	// Aggregates are maxima over the executed cases.
	if outcome.TimeMs != 300 {
		t.Fatalf("time = %d, want 300", outcome.TimeMs)
	}
	if outcome.MemoryKB != 4000 {
		t.Fatalf("memory = %d, want 4000", outcome.MemoryKB)
	}
	if len(progress) != 3 {
		t.Fatalf("progress events = %d, want 3", len(progress))
	}
	if progress[2].Percent != 100 {
		t.Fatalf("final percent = %d, want 100", progress[2].Percent)
	}
}

func TestJudgeFailFast(t *testing.T) {
	backend := newScriptedBackend(t)
	backend.runs = []scriptedRun{
		{meta: sandbox.Meta{TimeSec: 0.1}, stdout: "1\n"},
		{meta: sandbox.Meta{TimeSec: 0.1}, stdout: "not two\n"},
	}
	orch := newTestOrchestrator(t, backend)

	var progress []judge.Progress
	outcome, err := orch.Judge(context.Background(), judge.Request{
		Language: "python",
		Code:     "print(input())",
		Limits:   judge.Limits{TimeLimitMs: 1000, MemoryLimitMB: 256},
		Tests: []judge.TestCase{
			{ID: 1, Input: "1\n", Expected: "1\n"},
			{ID: 2, Input: "2\n", Expected: "2\n"},
			{ID: 3, Input: "3\n", Expected: "3\n"},
		},
	}, func(p judge.Progress) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}

	if outcome.Verdict != judge.VerdictWrongAnswer {
		t.Fatalf("verdict = %s, want WRONG_ANSWER", outcome.Verdict)
	}
	// One accepted case out of three declared.
	if outcome.Score != 33 {
		t.Fatalf("score = %d, want 33", outcome.Score)
	}
	if backend.runCalls != 2 {
		t.Fatalf("executed %d cases, want 2", backend.runCalls)
	}
	if len(progress) != 2 {
		t.Fatalf("progress events = %d, want 2", len(progress))
	}
	if progress[1].Verdict != judge.VerdictWrongAnswer {
		t.Fatalf("last progress verdict = %s", progress[1].Verdict)
	}
	if progress[1].Percent != 66 {
		t.Fatalf("last progress percent = %d, want 66", progress[1].Percent)
	}
}

func TestJudgeTimeLimit(t *testing.T) {
	backend := newScriptedBackend(t)
	backend.runs = []scriptedRun{
		{meta: sandbox.Meta{Status: "TO", TimeSec: 1.5}},
	}
	orch := newTestOrchestrator(t, backend)

	outcome, err := orch.Judge(context.Background(), judge.Request{
		Language: "python",
		Code:     "while True: pass",
		Limits:   judge.Limits{TimeLimitMs: 1000, MemoryLimitMB: 256},
		Tests:    []judge.TestCase{{ID: 1, Input: "", Expected: ""}},
	}, nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if outcome.Verdict != judge.VerdictTimeLimit {
		t.Fatalf("verdict = %s, want TIME_LIMIT_EXCEEDED", outcome.Verdict)
	}
	if outcome.Score != 0 {
		t.Fatalf("score = %d, want 0", outcome.Score)
	}
}

func TestJudgeCompileError(t *testing.T) {
	backend := newScriptedBackend(t)
	backend.compileMeta = sandbox.Meta{Status: "RE", ExitCode: 1}
	backend.compileErr = "main.cpp:1: error: expected ';'"
	orch := newTestOrchestrator(t, backend)

	outcome, err := orch.Judge(context.Background(), judge.Request{
		Language: "cpp",
		Code:     "int main() { return 0 }",
		Limits:   judge.Limits{TimeLimitMs: 1000, MemoryLimitMB: 256},
		Tests:    []judge.TestCase{{ID: 1, Input: "", Expected: ""}},
	}, nil)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}

	if outcome.Verdict != judge.VerdictCompileError {
		t.Fatalf("verdict = %s, want COMPILE_ERROR", outcome.Verdict)
	}
	if outcome.Score != 0 {
		t.Fatalf("score = %d, want 0", outcome.Score)
	}
	if outcome.CompileOutput != "main.cpp:1: error: expected ';'" {
		t.Fatalf("compile output = %q", outcome.CompileOutput)
	}
	if backend.runCalls != 0 {
		t.Fatalf("executed %d cases after compile failure", backend.runCalls)
	}
}

func TestJudgeRunFailureReleasesBox(t *testing.T) {
	backend := newScriptedBackend(t)
	backend.runs = []scriptedRun{
		{meta: sandbox.Meta{TimeSec: 0.1}, stdout: "1\n"},
	}
	backend.runErr = errors.New("sandbox wedged")
	backend.runErrAt = 1

	pool, err := sandbox.NewPool(backend, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	orch := judge.NewOrchestrator(pool, judge.NewPipeline(backend), testLanguages())

	_, err = orch.Judge(context.Background(), judge.Request{
		Language: "python",
		Code:     "print(input())",
		Limits:   judge.Limits{TimeLimitMs: 1000, MemoryLimitMB: 256},
		Tests: []judge.TestCase{
			{ID: 1, Input: "1\n", Expected: "1\n"},
			{ID: 2, Input: "2\n", Expected: "2\n"},
			{ID: 3, Input: "3\n", Expected: "3\n"},
		},
	}, nil)
	if err == nil {
		t.Fatal("expected error from failing run")
	}

	if backend.cleanups == 0 {
		t.Fatal("box not cleaned up on the error path")
	}

	// The single box must be back in the pool after the failure.
	leaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	lease, err := pool.Lease(leaseCtx)
	if err != nil {
		t.Fatalf("box not returned to the pool: %v", err)
	}
	lease.Release()
}

func TestJudgeNoTests(t *testing.T) {
	backend := newScriptedBackend(t)
	orch := newTestOrchestrator(t, backend)

	_, err := orch.Judge(context.Background(), judge.Request{
		Language: "python",
		Code:     "pass",
	}, nil)
	if err == nil {
		t.Fatal("expected error for empty test set")
	}
	if appErr.GetCode(err) != appErr.NoTestCases {
		t.Fatalf("error code = %d, want %d", appErr.GetCode(err), appErr.NoTestCases)
	}
}

func TestJudgeUnknownLanguage(t *testing.T) {
	backend := newScriptedBackend(t)
	orch := newTestOrchestrator(t, backend)

	_, err := orch.Judge(context.Background(), judge.Request{
		Language: "brainfuck",
		Code:     "+",
		Tests:    []judge.TestCase{{ID: 1}},
	}, nil)
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("error code = %d, want %d", appErr.GetCode(err), appErr.LanguageNotSupported)
	}
}
