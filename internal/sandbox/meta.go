package sandbox

import (
	"os"
	"strconv"
	"strings"

	appErr "vexoj/pkg/errors"
)

// Raw status strings written by isolate into the metadata file.
const (
	metaStatusTimeout  = "TO"
	metaStatusSignaled = "SG"
	metaStatusRuntime  = "RE"
	metaStatusInternal = "XX"
)

const sigKill = 9

// Meta holds the parsed contents of an isolate metadata file.
// A zero Status means the program exited normally.
type Meta struct {
	Status      string
	ExitCode    int
	ExitSignal  int
	TimeSec     float64
	WallTimeSec float64
	CgMemKB     int64
	MaxRSSKB    int64
	Message     string
}

// ParseMeta parses the newline-delimited key:value metadata format.
// Unknown keys are ignored; malformed lines are skipped.
func ParseMeta(content string) *Meta {
	meta := &Meta{}
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		switch key {
		case "status":
			meta.Status = value
		case "exitcode":
			if v, err := strconv.Atoi(value); err == nil {
				meta.ExitCode = v
			}
		case "exitsig":
			if v, err := strconv.Atoi(value); err == nil {
				meta.ExitSignal = v
			}
		case "time":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				meta.TimeSec = v
			}
		case "time-wall":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				meta.WallTimeSec = v
			}
		case "cg-mem":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				meta.CgMemKB = v
			}
		case "max-rss":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				meta.MaxRSSKB = v
			}
		case "message":
			meta.Message = value
		}
	}
	return meta
}

// ParseMetaFile reads and parses an isolate metadata file.
func ParseMetaFile(path string) (*Meta, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.MetaParseFailed, "read meta file %s", path)
	}
	return ParseMeta(string(content)), nil
}

// MemoryKB reports peak memory usage, preferring the control-group
// counter over max-rss when both are present.
func (m *Meta) MemoryKB() int64 {
	if m.CgMemKB > 0 {
		return m.CgMemKB
	}
	return m.MaxRSSKB
}

// Classify maps the raw isolate status to a normalized Status.
// A kill by SIGKILL under a signal exit is reported as a memory limit hit:
// the cgroup OOM killer is the only in-sandbox sender of that signal.
func (m *Meta) Classify() Status {
	switch m.Status {
	case metaStatusTimeout:
		return StatusTimeout
	case metaStatusSignaled:
		if m.ExitSignal == sigKill {
			return StatusMemout
		}
		return StatusRuntime
	case metaStatusRuntime:
		return StatusRuntime
	case metaStatusInternal:
		return StatusInternal
	case "":
		if m.ExitCode == 0 {
			return StatusOK
		}
		return StatusRuntime
	default:
		return StatusInternal
	}
}
