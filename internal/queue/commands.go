package queue

import (
	"encoding/json"

	appErr "vexoj/pkg/errors"
)

// Commands flow out-of-band from the gateway to the worker holding an
// interactive execution, on a per-job list separate from the event log.

const (
	CommandStdin = "stdin"
	CommandKill  = "kill"
)

// Command is one control message for a running execute job.
type Command struct {
	Type string `json:"type"`
	// Data carries the input text for stdin commands.
	Data string `json:"data,omitempty"`
}

// EncodeCommand serializes a command.
func EncodeCommand(cmd Command) (string, error) {
	raw, err := json.Marshal(cmd)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CommandFailed)
	}
	return string(raw), nil
}

// DecodeCommand deserializes a command popped from the channel.
func DecodeCommand(raw string) (Command, error) {
	var cmd Command
	if err := json.Unmarshal([]byte(raw), &cmd); err != nil {
		return Command{}, appErr.Wrap(err, appErr.CommandFailed)
	}
	switch cmd.Type {
	case CommandStdin, CommandKill:
		return cmd, nil
	default:
		return Command{}, appErr.Newf(appErr.UnknownCommandType, "unknown command %q", cmd.Type)
	}
}
