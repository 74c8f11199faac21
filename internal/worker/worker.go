package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vexoj/internal/judge"
	"vexoj/internal/queue"
	"vexoj/internal/sandbox"
	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// TestSource provides test cases for judge jobs.
type TestSource interface {
	LoadTests(ctx context.Context, problemID, dataVersion string) ([]judge.TestCase, error)
}

// Config tunes the worker loop.
type Config struct {
	// Concurrency bounds in-flight jobs across both queues.
	Concurrency int `yaml:"concurrency"`
	// PollInterval paces queue polling when both queues are empty.
	PollInterval time.Duration `yaml:"pollInterval"`
}

func (c *Config) setDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
}

// Worker consumes judge and execute jobs and publishes their event
// streams. Every job ends with exactly one terminal event, including
// on panic, so stream readers always unblock.
type Worker struct {
	queue        *queue.Queue
	orchestrator *judge.Orchestrator
	pipeline     *judge.Pipeline
	pool         *sandbox.Pool
	langs        *judge.Registry
	tests        TestSource

	cfg   Config
	slots chan struct{}
}

func New(q *queue.Queue, orch *judge.Orchestrator, pipeline *judge.Pipeline, pool *sandbox.Pool, langs *judge.Registry, tests TestSource, cfg Config) *Worker {
	cfg.setDefaults()
	return &Worker{
		queue:        q,
		orchestrator: orch,
		pipeline:     pipeline,
		pool:         pool,
		langs:        langs,
		tests:        tests,
		cfg:          cfg,
		slots:        make(chan struct{}, cfg.Concurrency),
	}
}

// Run polls both queues until the context is cancelled. In-flight jobs
// finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info(ctx, "worker started", zap.Int("concurrency", w.cfg.Concurrency))

	for {
		job, err := w.nextJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn(ctx, "dequeue failed", zap.Error(err))
			if !w.sleep(ctx) {
				break
			}
			continue
		}
		if job == nil {
			if !w.sleep(ctx) {
				break
			}
			continue
		}

		select {
		case w.slots <- struct{}{}:
		case <-ctx.Done():
			// Shutting down with a job in hand: put a terminal error on
			// its stream rather than losing it silently.
			w.publishFailure(context.Background(), job, "worker shutting down")
			return w.drain()
		}

		go func(job *queue.Job) {
			defer func() { <-w.slots }()
			w.handle(ctx, job)
		}(job)
	}

	return w.drain()
}

func (w *Worker) drain() error {
	for i := 0; i < cap(w.slots); i++ {
		w.slots <- struct{}{}
	}
	return nil
}

func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-time.After(w.cfg.PollInterval):
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Worker) nextJob(ctx context.Context) (*queue.Job, error) {
	job, err := w.queue.Dequeue(ctx, queue.KindExecute)
	if err != nil || job != nil {
		return job, err
	}
	return w.queue.Dequeue(ctx, queue.KindJudge)
}

func (w *Worker) handle(ctx context.Context, job *queue.Job) {
	jobCtx := logger.WithJobID(ctx, job.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error(jobCtx, "job handler panicked",
				zap.String("kind", string(job.Kind)), zap.Any("panic", r))
			w.publishFailure(context.Background(), job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	switch job.Kind {
	case queue.KindJudge:
		w.handleJudge(jobCtx, job)
	case queue.KindExecute:
		w.handleExecute(jobCtx, job)
	}
}

// publishFailure puts a kind-appropriate terminal event on the stream.
func (w *Worker) publishFailure(ctx context.Context, job *queue.Job, msg string) {
	var event queue.Event
	switch job.Kind {
	case queue.KindJudge:
		event = queue.JudgeComplete{Result: string(judge.VerdictInternalError), Error: msg}
	default:
		event = queue.ExecError{Message: msg}
	}
	if err := w.queue.Publish(ctx, job.Kind, job.ID, event); err != nil {
		logger.Error(ctx, "publish failure event failed",
			zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (w *Worker) handleJudge(ctx context.Context, job *queue.Job) {
	tests, err := w.tests.LoadTests(ctx, job.ProblemID, job.DataVersion)
	if err != nil {
		logger.Error(ctx, "load tests failed",
			zap.String("problem_id", job.ProblemID), zap.Error(err))
		w.publishFailure(ctx, job, err.Error())
		return
	}

	req := judge.Request{
		Language: job.Language,
		Code:     job.Code,
		Limits: judge.Limits{
			TimeLimitMs:   job.TimeLimitMs,
			MemoryLimitMB: job.MemoryLimitMB,
		},
		Tests: tests,
	}

	outcome, err := w.orchestrator.Judge(ctx, req, func(p judge.Progress) {
		event := queue.JudgeProgress{
			TestcaseID: p.TestcaseID,
			Result:     string(p.Verdict),
			Time:       p.TimeMs,
			Memory:     p.MemoryKB,
			Score:      p.Score,
			Progress:   p.Percent,
		}
		if err := w.queue.Publish(ctx, job.Kind, job.ID, event); err != nil {
			logger.Warn(ctx, "publish progress failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Error(ctx, "judging failed", zap.Error(err))
		w.publishFailure(ctx, job, err.Error())
		return
	}

	complete := queue.JudgeComplete{
		Result: string(outcome.Verdict),
		Score:  outcome.Score,
		Time:   outcome.TimeMs,
		Memory: outcome.MemoryKB,
	}
	if outcome.Verdict == judge.VerdictCompileError {
		complete.Error = outcome.CompileOutput
	}
	if err := w.queue.Publish(ctx, job.Kind, job.ID, complete); err != nil {
		logger.Error(ctx, "publish complete failed", zap.Error(err))
	}
}

func (w *Worker) handleExecute(ctx context.Context, job *queue.Job) {
	defer func() {
		if err := w.queue.ClearCommands(context.Background(), job.ID); err != nil {
			logger.Warn(ctx, "clear commands failed", zap.Error(err))
		}
	}()

	lang, err := w.langs.Get(job.Language)
	if err != nil {
		w.publishFailure(ctx, job, err.Error())
		return
	}

	lease, err := w.pool.Lease(ctx)
	if err != nil {
		w.publishFailure(ctx, job, err.Error())
		return
	}
	defer lease.Release()
	box := lease.Box()

	if err := w.pipeline.WriteSource(box, lang, job.Code); err != nil {
		w.publishFailure(ctx, job, err.Error())
		return
	}
	compiled, err := w.pipeline.Compile(ctx, box, lang)
	if err != nil {
		w.publishFailure(ctx, job, err.Error())
		return
	}
	if !compiled.OK {
		w.publishFailure(ctx, job, compiled.Stderr)
		return
	}

	argv, err := lang.RunArgv()
	if err != nil {
		w.publishFailure(ctx, job, err.Error())
		return
	}
	spec := judge.RunSpecForLimits(argv, judge.Limits{
		TimeLimitMs:   job.TimeLimitMs,
		MemoryLimitMB: job.MemoryLimitMB,
	})
	spec.MaxProcesses = lang.MaxProcesses()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	proc, err := w.pool.Backend().Start(runCtx, box, spec)
	if err != nil {
		w.publishFailure(ctx, job, err.Error())
		return
	}

	if err := w.queue.Publish(ctx, job.Kind, job.ID, queue.ExecReady{}); err != nil {
		logger.Warn(ctx, "publish ready failed", zap.Error(err))
	}

	stdinCh := make(chan string, 16)
	go w.pumpCommands(runCtx, job.ID, stdinCh, cancelRun)

	meta, err := judge.RunInteractive(runCtx, proc, stdinCh, judge.StreamCallbacks{
		OnStdout: func(chunk string) {
			if err := w.queue.Publish(ctx, job.Kind, job.ID, queue.ExecStdout{Data: chunk}); err != nil {
				logger.Warn(ctx, "publish stdout failed", zap.Error(err))
			}
		},
		OnStderr: func(chunk string) {
			if err := w.queue.Publish(ctx, job.Kind, job.ID, queue.ExecStderr{Data: chunk}); err != nil {
				logger.Warn(ctx, "publish stderr failed", zap.Error(err))
			}
		},
	})
	if err != nil {
		// A killed run may leave no metadata behind; still report a
		// clean completion so the session can settle.
		if runCtx.Err() != nil {
			complete := queue.ExecComplete{ExitCode: -1}
			if pubErr := w.queue.Publish(context.Background(), job.Kind, job.ID, complete); pubErr != nil {
				logger.Error(ctx, "publish complete failed", zap.Error(pubErr))
			}
			return
		}
		w.publishFailure(ctx, job, err.Error())
		return
	}

	result := sandbox.ResultFromMeta(meta, "", "")
	complete := queue.ExecComplete{
		ExitCode: result.ExitCode,
		Time:     result.TimeMs,
		Memory:   result.MemoryKB,
	}
	if err := w.queue.Publish(ctx, job.Kind, job.ID, complete); err != nil {
		logger.Error(ctx, "publish complete failed", zap.Error(err))
	}
}

// pumpCommands relays gateway commands to the running process: stdin
// chunks go to the input channel, kill cancels the run context.
func (w *Worker) pumpCommands(ctx context.Context, jobID string, stdinCh chan<- string, cancel context.CancelFunc) {
	defer close(stdinCh)
	ticker := time.NewTicker(pollCommandInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			cmd, err := w.queue.PollCommand(ctx, jobID)
			if err != nil {
				if appErr.Is(err, appErr.UnknownCommandType) {
					logger.Warn(ctx, "dropping unknown command", zap.Error(err))
					continue
				}
				if ctx.Err() != nil {
					return
				}
				logger.Warn(ctx, "poll command failed", zap.Error(err))
				break
			}
			if cmd == nil {
				break
			}
			switch cmd.Type {
			case queue.CommandStdin:
				select {
				case stdinCh <- cmd.Data:
				case <-ctx.Done():
					return
				}
			case queue.CommandKill:
				cancel()
				return
			}
		}
	}
}

const pollCommandInterval = 50 * time.Millisecond
