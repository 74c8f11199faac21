package judge

import (
	"context"

	"go.uber.org/zap"

	"vexoj/internal/sandbox"
	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// Verdict is the judging outcome for a test case or a whole submission.
type Verdict string

const (
	VerdictAccepted      Verdict = "ACCEPTED"
	VerdictWrongAnswer   Verdict = "WRONG_ANSWER"
	VerdictTimeLimit     Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictMemoryLimit   Verdict = "MEMORY_LIMIT_EXCEEDED"
	VerdictRuntimeError  Verdict = "RUNTIME_ERROR"
	VerdictCompileError  Verdict = "COMPILE_ERROR"
	VerdictInternalError Verdict = "INTERNAL_ERROR"
)

// TestCase is one input/answer pair.
type TestCase struct {
	ID       int
	Input    string
	Expected string
}

// Request is a full judging request for one submission.
type Request struct {
	Language string
	Code     string
	Limits   Limits
	Tests    []TestCase
}

// Progress reports the result of one executed test case.
type Progress struct {
	TestcaseID int
	Verdict    Verdict
	TimeMs     int64
	MemoryKB   int64
	// Score is the running prefix score after this case.
	Score int
	// Percent is how much of the test set has executed, 0 to 100.
	Percent int
}

// Outcome is the final judging result for a submission.
type Outcome struct {
	Verdict  Verdict
	Score    int
	TimeMs   int64
	MemoryKB int64
	// CompileOutput carries compiler diagnostics on COMPILE_ERROR.
	CompileOutput string
}

// Orchestrator drives a submission through compile and test execution.
type Orchestrator struct {
	pool     *sandbox.Pool
	pipeline *Pipeline
	langs    *Registry
}

func NewOrchestrator(pool *sandbox.Pool, pipeline *Pipeline, langs *Registry) *Orchestrator {
	return &Orchestrator{pool: pool, pipeline: pipeline, langs: langs}
}

// Judge runs the submission against its test set. Execution stops at
// the first non-accepted case; the score is the accepted prefix over
// the declared total. onProgress, when non-nil, is called after every
// executed case.
func (o *Orchestrator) Judge(ctx context.Context, req Request, onProgress func(Progress)) (Outcome, error) {
	if len(req.Tests) == 0 {
		return Outcome{}, appErr.New(appErr.NoTestCases)
	}

	lang, err := o.langs.Get(req.Language)
	if err != nil {
		return Outcome{}, err
	}

	lease, err := o.pool.Lease(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer lease.Release()
	box := lease.Box()

	if err := o.pipeline.WriteSource(box, lang, req.Code); err != nil {
		return Outcome{}, err
	}

	compiled, err := o.pipeline.Compile(ctx, box, lang)
	if err != nil {
		return Outcome{}, err
	}
	if !compiled.OK {
		logger.Info(ctx, "compilation failed",
			zap.String("language", lang.ID), zap.String("status", string(compiled.Status)))
		return Outcome{
			Verdict:       VerdictCompileError,
			Score:         0,
			CompileOutput: compiled.Stderr,
		}, nil
	}

	total := len(req.Tests)
	accepted := 0
	outcome := Outcome{Verdict: VerdictAccepted}

	for i, tc := range req.Tests {
		result, err := o.pipeline.RunCase(ctx, box, lang, tc.Input, req.Limits)
		if err != nil {
			return Outcome{}, err
		}

		verdict := o.caseVerdict(result, tc.Expected)
		if result.TimeMs > outcome.TimeMs {
			outcome.TimeMs = result.TimeMs
		}
		if result.MemoryKB > outcome.MemoryKB {
			outcome.MemoryKB = result.MemoryKB
		}

		if verdict == VerdictAccepted {
			accepted++
		}
		outcome.Score = accepted * 100 / total

		if onProgress != nil {
			onProgress(Progress{
				TestcaseID: tc.ID,
				Verdict:    verdict,
				TimeMs:     result.TimeMs,
				MemoryKB:   result.MemoryKB,
				Score:      outcome.Score,
				Percent:    (i + 1) * 100 / total,
			})
		}

		if verdict != VerdictAccepted {
			outcome.Verdict = verdict
			break
		}
	}

	return outcome, nil
}

func (o *Orchestrator) caseVerdict(result sandbox.ExecutionResult, expected string) Verdict {
	switch result.Status {
	case sandbox.StatusTimeout:
		return VerdictTimeLimit
	case sandbox.StatusMemout:
		return VerdictMemoryLimit
	case sandbox.StatusRuntime:
		return VerdictRuntimeError
	case sandbox.StatusInternal:
		return VerdictInternalError
	}
	if !result.Success {
		return VerdictRuntimeError
	}
	if OutputsMatch(expected, result.Stdout) {
		return VerdictAccepted
	}
	return VerdictWrongAnswer
}
