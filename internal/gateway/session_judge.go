package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vexoj/internal/problem"
	"vexoj/internal/queue"
	"vexoj/internal/submission"
	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// SubmissionStore is the persistence surface judge sessions use.
type SubmissionStore interface {
	Create(ctx context.Context, s *submission.Snapshot) error
	UpdateResult(ctx context.Context, id, status string, score int, timeMs, memoryKB int64) error
}

// ProblemSource resolves problem limits and data versions.
type ProblemSource interface {
	Get(ctx context.Context, id string) (*problem.Problem, error)
}

// Notifier fans submission lifecycle changes out to list watchers.
type Notifier interface {
	SubmissionCreated(ctx context.Context, s *submission.Snapshot)
	SubmissionUpdated(ctx context.Context, s *submission.Snapshot)
}

// JudgeDeps bundles the collaborators of a judge session.
type JudgeDeps struct {
	Jobs        JobService
	Tokens      TokenVerifier
	Submissions SubmissionStore
	Problems    ProblemSource
	Notifier    Notifier
}

// JudgeSession accepts one authenticated submission over a WebSocket
// and relays its judging progress. The INIT payload carries the bearer
// token; a second INIT is ignored.
type JudgeSession struct {
	deps JudgeDeps
	send Sender

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    sessionState
	snapshot *submission.Snapshot
}

func NewJudgeSession(ctx context.Context, deps JudgeDeps, send Sender) *JudgeSession {
	sctx, cancel := context.WithCancel(ctx)
	return &JudgeSession{
		deps:   deps,
		send:   send,
		ctx:    sctx,
		cancel: cancel,
	}
}

// Close releases session resources. Judging continues server-side; the
// result still lands in the database and the broadcast channel.
func (s *JudgeSession) Close() {
	s.cancel()
}

// HandleMessage processes one client message.
func (s *JudgeSession) HandleMessage(env Envelope) {
	switch env.Type {
	case MsgInit:
		s.handleInit(env)
	default:
		s.sendError(appErr.Newf(appErr.MalformedMessage, "unexpected message %q", env.Type))
	}
}

func (s *JudgeSession) handleInit(env Envelope) {
	s.mu.Lock()
	if s.state != stateNew {
		s.mu.Unlock()
		logger.Debug(s.ctx, "ignoring duplicate INIT")
		return
	}
	s.mu.Unlock()

	var init JudgeInit
	if err := DecodePayload(env, &init); err != nil {
		s.sendError(err)
		return
	}

	userID, err := s.deps.Tokens.Verify(init.Token)
	if err != nil {
		s.sendError(err)
		return
	}
	if init.ProblemID == "" || init.Language == "" || init.Code == "" {
		s.sendError(appErr.ValidationError("init", "problemId, language and code are required"))
		return
	}

	prob, err := s.deps.Problems.Get(s.ctx, init.ProblemID)
	if err != nil {
		s.sendError(err)
		return
	}

	snap := &submission.Snapshot{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: prob.ID,
		ContestID: init.ContestID,
		Language:  init.Language,
		Status:    submission.StatusPending,
	}
	if err := s.deps.Submissions.Create(s.ctx, snap); err != nil {
		s.sendError(err)
		return
	}
	s.deps.Notifier.SubmissionCreated(s.ctx, snap)

	job := &queue.Job{
		ID:            snap.ID,
		Kind:          queue.KindJudge,
		SubmissionID:  snap.ID,
		Language:      init.Language,
		Code:          init.Code,
		TimeLimitMs:   prob.TimeLimitMs,
		MemoryLimitMB: prob.MemoryLimitMB,
		ProblemID:     prob.ID,
		DataVersion:   prob.DataVersion,
	}
	if err := s.deps.Jobs.Enqueue(s.ctx, job); err != nil {
		s.sendError(err)
		return
	}

	s.mu.Lock()
	s.snapshot = snap
	s.state = stateInitialized
	s.mu.Unlock()

	s.sendEvent(MsgCreated, CreatedPayload{SubmissionID: snap.ID})
	go s.relay()
}

func (s *JudgeSession) relay() {
	snap := s.snapshot

	for event := range s.deps.Jobs.Stream(s.ctx, queue.KindJudge, snap.ID) {
		switch e := event.(type) {
		case queue.JudgeProgress:
			s.markJudging(e)
			s.sendEvent(MsgProgress, e)
		case queue.JudgeComplete:
			s.complete(e)
			s.sendEvent(MsgComplete, e)
		}
	}
}

// markJudging moves the submission into JUDGING on the first progress
// event and keeps the running score visible to watchers.
func (s *JudgeSession) markJudging(e queue.JudgeProgress) {
	s.mu.Lock()
	snap := s.snapshot
	first := s.state == stateInitialized
	if first {
		s.state = stateRunning
	}
	snap.Status = submission.StatusJudging
	snap.Score = e.Score
	s.mu.Unlock()

	if err := s.deps.Submissions.UpdateResult(s.ctx, snap.ID, snap.Status, snap.Score, e.Time, e.Memory); err != nil {
		logger.Warn(s.ctx, "update submission progress failed",
			zap.String("submission_id", snap.ID), zap.Error(err))
	}
	if first {
		s.deps.Notifier.SubmissionUpdated(s.ctx, snap)
	}
}

func (s *JudgeSession) complete(e queue.JudgeComplete) {
	s.mu.Lock()
	snap := s.snapshot
	s.state = stateDone
	snap.Status = e.Result
	snap.Score = e.Score
	snap.TimeMs = e.Time
	snap.MemoryKB = e.Memory
	s.mu.Unlock()

	if err := s.deps.Submissions.UpdateResult(s.ctx, snap.ID, snap.Status, snap.Score, snap.TimeMs, snap.MemoryKB); err != nil {
		logger.Error(s.ctx, "update submission result failed",
			zap.String("submission_id", snap.ID), zap.Error(err))
	}
	s.deps.Notifier.SubmissionUpdated(s.ctx, snap)
}

func (s *JudgeSession) sendEvent(msgType string, payload interface{}) {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		logger.Error(s.ctx, "encode envelope failed", zap.Error(err))
		return
	}
	s.send.Send(env)
}

func (s *JudgeSession) sendError(err error) {
	logger.Debug(s.ctx, "session error", zap.Error(err))
	s.sendEvent(MsgError, ErrorPayload{Message: err.Error()})
}
