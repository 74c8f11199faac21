package queue

import (
	"encoding/json"

	appErr "vexoj/pkg/errors"
)

// Event is one entry in a job's event log.
type Event interface {
	// EventType is the wire discriminator.
	EventType() string
	// Terminal marks the last event of a job; the stream closes after it.
	Terminal() bool
}

// Judge job events.

const (
	EventJudgeProgress = "progress"
	EventJudgeComplete = "complete"
)

// JudgeProgress reports one executed test case.
type JudgeProgress struct {
	TestcaseID int    `json:"testcaseId"`
	Result     string `json:"result"`
	Time       int64  `json:"time"`
	Memory     int64  `json:"memory"`
	Score      int    `json:"score"`
	Progress   int    `json:"progress"`
}

func (JudgeProgress) EventType() string { return EventJudgeProgress }
func (JudgeProgress) Terminal() bool    { return false }

// JudgeComplete is the final verdict for a judge job.
type JudgeComplete struct {
	Result string `json:"result"`
	Score  int    `json:"score"`
	Time   int64  `json:"time"`
	Memory int64  `json:"memory"`
	// Error is set when judging aborted before producing a verdict.
	Error string `json:"error,omitempty"`
}

func (JudgeComplete) EventType() string { return EventJudgeComplete }
func (JudgeComplete) Terminal() bool    { return true }

// Execute job events.

const (
	EventExecReady    = "ready"
	EventExecStdout   = "stdout"
	EventExecStderr   = "stderr"
	EventExecComplete = "complete"
	EventExecError    = "error"
)

// ExecReady signals that the program is running and accepts stdin.
type ExecReady struct{}

func (ExecReady) EventType() string { return EventExecReady }
func (ExecReady) Terminal() bool    { return false }

// ExecStdout carries a chunk of program output.
type ExecStdout struct {
	Data string `json:"data"`
}

func (ExecStdout) EventType() string { return EventExecStdout }
func (ExecStdout) Terminal() bool    { return false }

// ExecStderr carries a chunk of program error output.
type ExecStderr struct {
	Data string `json:"data"`
}

func (ExecStderr) EventType() string { return EventExecStderr }
func (ExecStderr) Terminal() bool    { return false }

// ExecComplete reports normal process exit.
type ExecComplete struct {
	ExitCode int   `json:"exitCode"`
	Time     int64 `json:"time"`
	Memory   int64 `json:"memory"`
}

func (ExecComplete) EventType() string { return EventExecComplete }
func (ExecComplete) Terminal() bool    { return true }

// ExecError reports a failed execution.
type ExecError struct {
	Message string `json:"message"`
}

func (ExecError) EventType() string { return EventExecError }
func (ExecError) Terminal() bool    { return true }

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent serializes an event into its wire envelope.
func EncodeEvent(event Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", appErr.Wrap(err, appErr.EventEncodeFailed)
	}
	raw, err := json.Marshal(envelope{Type: event.EventType(), Data: data})
	if err != nil {
		return "", appErr.Wrap(err, appErr.EventEncodeFailed)
	}
	return string(raw), nil
}

// DecodeEvent deserializes an event for the given job kind. Unknown
// types are an error so protocol drift fails loudly instead of being
// silently dropped.
func DecodeEvent(kind Kind, raw string) (Event, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, appErr.Wrap(err, appErr.EventDecodeFailed)
	}

	switch kind {
	case KindJudge:
		return decodeJudgeEvent(env)
	case KindExecute:
		return decodeExecEvent(env)
	default:
		return nil, appErr.Newf(appErr.EventDecodeFailed, "unknown job kind %q", kind)
	}
}

func decodeJudgeEvent(env envelope) (Event, error) {
	switch env.Type {
	case EventJudgeProgress:
		var e JudgeProgress
		return e, unmarshalData(env.Data, &e)
	case EventJudgeComplete:
		var e JudgeComplete
		return e, unmarshalData(env.Data, &e)
	default:
		return nil, appErr.Newf(appErr.UnknownEventType, "unknown judge event %q", env.Type)
	}
}

func decodeExecEvent(env envelope) (Event, error) {
	switch env.Type {
	case EventExecReady:
		var e ExecReady
		return e, unmarshalData(env.Data, &e)
	case EventExecStdout:
		var e ExecStdout
		return e, unmarshalData(env.Data, &e)
	case EventExecStderr:
		var e ExecStderr
		return e, unmarshalData(env.Data, &e)
	case EventExecComplete:
		var e ExecComplete
		return e, unmarshalData(env.Data, &e)
	case EventExecError:
		var e ExecError
		return e, unmarshalData(env.Data, &e)
	default:
		return nil, appErr.Newf(appErr.UnknownEventType, "unknown execute event %q", env.Type)
	}
}

func unmarshalData(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return appErr.Wrap(err, appErr.EventDecodeFailed)
	}
	return nil
}
