package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// pollInterval paces event log polling when no new entries are found.
const pollInterval = 50 * time.Millisecond

// eventLogTTL bounds how long a log with no reader can linger. The
// reader deletes the log at the terminal event; the TTL covers jobs
// whose reader disconnected before that.
const eventLogTTL = time.Hour

// Publish appends an event to a job's log. Events are only ever
// appended; readers track their own cursor.
func (q *Queue) Publish(ctx context.Context, kind Kind, jobID string, event Event) error {
	raw, err := EncodeEvent(event)
	if err != nil {
		return err
	}
	key := eventsKey(kind, jobID)
	if err := q.cache.RPush(ctx, key, raw); err != nil {
		return appErr.Wrap(err, appErr.QueueError)
	}
	if err := q.cache.Expire(ctx, key, eventLogTTL); err != nil {
		logger.Warn(ctx, "event log expire failed",
			zap.String("job_id", jobID), zap.Error(err))
	}
	return nil
}

// Stream tails a job's event log from the beginning. The returned
// channel closes after the terminal event, which also deletes the log,
// or when the context is cancelled. Decode failures on individual
// entries are logged and skipped so one bad entry cannot wedge the
// stream.
func (q *Queue) Stream(ctx context.Context, kind Kind, jobID string) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		defer close(out)

		key := eventsKey(kind, jobID)
		var cursor int64

		for {
			entries, err := q.cache.LRange(ctx, key, cursor, -1)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn(ctx, "event log read failed",
					zap.String("job_id", jobID), zap.Error(err))
				entries = nil
			}

			for _, raw := range entries {
				cursor++
				event, err := DecodeEvent(kind, raw)
				if err != nil {
					logger.Warn(ctx, "skipping undecodable event",
						zap.String("job_id", jobID), zap.Error(err))
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}

				if event.Terminal() {
					if err := q.cache.Del(context.Background(), key); err != nil {
						logger.Warn(ctx, "event log delete failed",
							zap.String("job_id", jobID), zap.Error(err))
					}
					return
				}
			}

			select {
			case <-time.After(pollInterval):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
