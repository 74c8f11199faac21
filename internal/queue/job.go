package queue

import (
	"encoding/json"

	appErr "vexoj/pkg/errors"
)

// Kind selects which job queue and event namespace a job belongs to.
type Kind string

const (
	// KindJudge is a full judging run against a problem's test set.
	KindJudge Kind = "judge"
	// KindExecute is an interactive one-off execution.
	KindExecute Kind = "execute"
)

// Valid reports whether the kind is one of the known queues.
func (k Kind) Valid() bool {
	return k == KindJudge || k == KindExecute
}

// Job is one unit of work placed on a queue. Judge jobs reference a
// problem whose test data the worker fetches from object storage;
// execute jobs carry everything inline.
type Job struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	SubmissionID string `json:"submissionId,omitempty"`

	Language string `json:"language"`
	Code     string `json:"code"`

	TimeLimitMs   int `json:"timeLimitMs"`
	MemoryLimitMB int `json:"memoryLimitMb"`

	ProblemID   string `json:"problemId,omitempty"`
	DataVersion string `json:"dataVersion,omitempty"`
}

// EncodeJob serializes a job for the queue.
func EncodeJob(job *Job) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", appErr.Wrap(err, appErr.JobEncodeFailed)
	}
	return string(data), nil
}

// DecodeJob deserializes a job popped from the queue.
func DecodeJob(raw string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, appErr.Wrap(err, appErr.JobDecodeFailed)
	}
	if !job.Kind.Valid() {
		return nil, appErr.Newf(appErr.JobDecodeFailed, "unknown job kind %q", job.Kind)
	}
	return &job, nil
}

// Redis key layout. Queues are lists pushed at the head and popped at
// the tail; event logs are per-job append-only lists.
func queueKey(kind Kind) string {
	return "queue:" + string(kind)
}

func eventsKey(kind Kind, jobID string) string {
	return "events:" + string(kind) + ":" + jobID
}

func commandsKey(jobID string) string {
	return "commands:execute:" + jobID
}
