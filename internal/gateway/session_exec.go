package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vexoj/internal/queue"
	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// JobService is the queue surface sessions depend on.
type JobService interface {
	Enqueue(ctx context.Context, job *queue.Job) error
	SendStdin(ctx context.Context, jobID, data string) error
	SendKill(ctx context.Context, jobID string) error
	Stream(ctx context.Context, kind queue.Kind, jobID string) <-chan queue.Event
}

// Default and maximum limits applied to interactive executions.
const (
	defaultTimeLimitMs   = 2000
	maxTimeLimitMs       = 10000
	defaultMemoryLimitMB = 256
	maxMemoryLimitMB     = 512
)

type sessionState int

const (
	stateNew sessionState = iota
	stateInitialized
	stateRunning
	stateDone
)

// ExecSession runs one interactive execution over a WebSocket. INIT
// queues the job and starts relaying its event stream; STDIN and KILL
// are forwarded to the worker through the command channel.
type ExecSession struct {
	jobs     JobService
	problems ProblemSource
	send     Sender

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state sessionState
	jobID string
}

func NewExecSession(ctx context.Context, jobs JobService, problems ProblemSource, send Sender) *ExecSession {
	sctx, cancel := context.WithCancel(ctx)
	return &ExecSession{
		jobs:     jobs,
		problems: problems,
		send:     send,
		ctx:      sctx,
		cancel:   cancel,
	}
}

// Close releases session resources. A job still running keeps running;
// its events simply have no reader left and age out with the log.
func (s *ExecSession) Close() {
	s.cancel()
}

// HandleMessage processes one client message.
func (s *ExecSession) HandleMessage(env Envelope) {
	switch env.Type {
	case MsgInit:
		s.handleInit(env)
	case MsgStdin:
		s.handleStdin(env)
	case MsgKill:
		s.handleKill()
	default:
		s.sendError(appErr.Newf(appErr.MalformedMessage, "unexpected message %q", env.Type))
	}
}

func (s *ExecSession) handleInit(env Envelope) {
	s.mu.Lock()
	if s.state != stateNew {
		s.mu.Unlock()
		logger.Debug(s.ctx, "ignoring duplicate INIT", zap.String("job_id", s.jobID))
		return
	}

	var init ExecInit
	if err := DecodePayload(env, &init); err != nil {
		s.mu.Unlock()
		s.sendError(err)
		return
	}
	if init.Language == "" || init.Code == "" {
		s.mu.Unlock()
		s.sendError(appErr.ValidationError("init", "language and code are required"))
		return
	}

	var timeLimitMs, memoryLimitMB int
	if init.ProblemID != "" {
		prob, err := s.problems.Get(s.ctx, init.ProblemID)
		if err != nil {
			s.mu.Unlock()
			s.sendError(err)
			return
		}
		timeLimitMs = prob.TimeLimitMs
		memoryLimitMB = prob.MemoryLimitMB
	}

	job := &queue.Job{
		ID:            uuid.NewString(),
		Kind:          queue.KindExecute,
		ProblemID:     init.ProblemID,
		Language:      init.Language,
		Code:          init.Code,
		TimeLimitMs:   clampLimit(timeLimitMs, defaultTimeLimitMs, maxTimeLimitMs),
		MemoryLimitMB: clampLimit(memoryLimitMB, defaultMemoryLimitMB, maxMemoryLimitMB),
	}

	if err := s.jobs.Enqueue(s.ctx, job); err != nil {
		s.mu.Unlock()
		s.sendError(err)
		return
	}
	s.jobID = job.ID
	s.state = stateInitialized
	s.mu.Unlock()

	go s.relay()
}

func (s *ExecSession) handleStdin(env Envelope) {
	s.mu.Lock()
	running := s.state == stateRunning
	jobID := s.jobID
	s.mu.Unlock()

	if !running {
		s.sendError(appErr.New(appErr.SessionNotRunning))
		return
	}

	var payload DataPayload
	if err := DecodePayload(env, &payload); err != nil {
		s.sendError(err)
		return
	}
	if err := s.jobs.SendStdin(s.ctx, jobID, payload.Data); err != nil {
		s.sendError(err)
	}
}

func (s *ExecSession) handleKill() {
	s.mu.Lock()
	active := s.state == stateInitialized || s.state == stateRunning
	jobID := s.jobID
	s.mu.Unlock()

	if !active {
		s.sendError(appErr.New(appErr.SessionNotRunning))
		return
	}
	if err := s.jobs.SendKill(s.ctx, jobID); err != nil {
		s.sendError(err)
	}
}

func (s *ExecSession) relay() {
	for event := range s.jobs.Stream(s.ctx, queue.KindExecute, s.jobID) {
		switch e := event.(type) {
		case queue.ExecReady:
			s.mu.Lock()
			if s.state == stateInitialized {
				s.state = stateRunning
			}
			s.mu.Unlock()
			s.sendEvent(MsgReady, nil)
		case queue.ExecStdout:
			s.sendEvent(MsgStdout, DataPayload{Data: e.Data})
		case queue.ExecStderr:
			s.sendEvent(MsgStderr, DataPayload{Data: e.Data})
		case queue.ExecComplete:
			s.finish()
			s.sendEvent(MsgComplete, e)
		case queue.ExecError:
			s.finish()
			s.sendEvent(MsgError, ErrorPayload{Message: e.Message})
		}
	}
}

func (s *ExecSession) finish() {
	s.mu.Lock()
	s.state = stateDone
	s.mu.Unlock()
}

func (s *ExecSession) sendEvent(msgType string, payload interface{}) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		logger.Error(s.ctx, "encode envelope failed", zap.Error(err))
		return
	}
	s.send.Send(env)
}

func (s *ExecSession) sendError(err error) {
	logger.Debug(s.ctx, "session error", zap.Error(err))
	s.sendEvent(MsgError, ErrorPayload{Message: err.Error()})
}

func clampLimit(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
