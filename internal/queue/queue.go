package queue

import (
	"context"

	"vexoj/internal/common/cache"
	appErr "vexoj/pkg/errors"
)

// Queue is the Redis-backed job queue and event stream transport.
// Jobs move through plain lists: producers push at the head, workers
// pop at the tail, so each queue is FIFO. Delivery is at-least-once;
// consumers must tolerate replays.
type Queue struct {
	cache cache.Cache
}

func New(c cache.Cache) *Queue {
	return &Queue{cache: c}
}

// Enqueue places a job at the head of its kind's queue.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	raw, err := EncodeJob(job)
	if err != nil {
		return err
	}
	if err := q.cache.LPush(ctx, queueKey(job.Kind), raw); err != nil {
		return appErr.Wrap(err, appErr.QueueError)
	}
	return nil
}

// Dequeue pops the oldest job of the given kind. Returns nil without
// error when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context, kind Kind) (*Job, error) {
	raw, err := q.cache.RPop(ctx, queueKey(kind))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.QueueError)
	}
	if raw == "" {
		return nil, nil
	}
	return DecodeJob(raw)
}

// Depth reports the number of queued jobs of the given kind.
func (q *Queue) Depth(ctx context.Context, kind Kind) (int64, error) {
	n, err := q.cache.LLen(ctx, queueKey(kind))
	if err != nil {
		return 0, appErr.Wrap(err, appErr.QueueError)
	}
	return n, nil
}

// SendStdin queues an input chunk for a running execute job.
func (q *Queue) SendStdin(ctx context.Context, jobID, data string) error {
	return q.sendCommand(ctx, jobID, Command{Type: CommandStdin, Data: data})
}

// SendKill requests termination of a running execute job.
func (q *Queue) SendKill(ctx context.Context, jobID string) error {
	return q.sendCommand(ctx, jobID, Command{Type: CommandKill})
}

func (q *Queue) sendCommand(ctx context.Context, jobID string, cmd Command) error {
	raw, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := q.cache.RPush(ctx, commandsKey(jobID), raw); err != nil {
		return appErr.Wrap(err, appErr.CommandFailed)
	}
	return nil
}

// PollCommand pops the next pending command for a job. Returns nil
// without error when none is pending.
func (q *Queue) PollCommand(ctx context.Context, jobID string) (*Command, error) {
	raw, err := q.cache.LPop(ctx, commandsKey(jobID))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CommandFailed)
	}
	if raw == "" {
		return nil, nil
	}
	cmd, err := DecodeCommand(raw)
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ClearCommands drops any leftover commands for a finished job.
func (q *Queue) ClearCommands(ctx context.Context, jobID string) error {
	return q.cache.Del(ctx, commandsKey(jobID))
}
