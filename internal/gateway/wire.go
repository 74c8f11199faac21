package gateway

import (
	"encoding/json"

	"vexoj/internal/submission"
	appErr "vexoj/pkg/errors"
)

// Envelope is the framing for every WebSocket message in both
// directions: a type discriminator plus a type-specific payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client to server message types.
const (
	MsgInit  = "INIT"
	MsgStdin = "STDIN"
	MsgKill  = "KILL"
)

// Server to client message types.
const (
	MsgReady    = "READY"
	MsgStdout   = "STDOUT"
	MsgStderr   = "STDERR"
	MsgComplete = "COMPLETE"
	MsgError    = "ERROR"
	MsgCreated  = "CREATED"
	MsgProgress = "PROGRESS"
)

// ExecInit opens an interactive execution session. Limits are never
// client-supplied: an empty problemId runs with the defaults, otherwise
// the problem's own limits apply.
type ExecInit struct {
	ProblemID string `json:"problemId,omitempty"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

// JudgeInit submits code for judging. The bearer token travels inside
// the payload because browser WebSocket clients cannot set headers.
type JudgeInit struct {
	Token     string `json:"token"`
	ProblemID string `json:"problemId"`
	ContestID string `json:"contestId,omitempty"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

// DataPayload carries a chunk of program input or output.
type DataPayload struct {
	Data string `json:"data"`
}

// CreatedPayload acknowledges a judge submission.
type CreatedPayload struct {
	SubmissionID string `json:"submissionId"`
}

// ErrorPayload reports a session-level failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Broadcast message types for the submission watch channel.
const (
	BroadcastNew    = "NEW"
	BroadcastUpdate = "UPDATE"
)

// BroadcastMessage is a submission lifecycle notification fanned out to
// list watchers. Watchers get no backlog, only events from connect on.
type BroadcastMessage struct {
	Type       string               `json:"type"`
	Submission *submission.Snapshot `json:"submission"`
}

// NewEnvelope builds an envelope around a payload.
func NewEnvelope(msgType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, appErr.Wrap(err, appErr.SessionError)
	}
	return Envelope{Type: msgType, Data: data}, nil
}

// DecodePayload unmarshals an envelope payload into dst.
func DecodePayload(env Envelope, dst interface{}) error {
	if len(env.Data) == 0 {
		return appErr.New(appErr.MalformedMessage).WithMessage("missing payload")
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return appErr.Wrap(err, appErr.MalformedMessage)
	}
	return nil
}
