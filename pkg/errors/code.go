package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 20000-20999: Sandbox & execution errors
// 21000-21999: Judge module errors
// 22000-22999: Queue & event stream errors
// 23000-23999: Session & gateway errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	ServiceUnavailable  ErrorCode = 10005
	Timeout             ErrorCode = 10006

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Storage errors (10300-10399)
	StorageError    ErrorCode = 10300
	DataPackMissing ErrorCode = 10301
	DataPackInvalid ErrorCode = 10302

	// Validation errors (10400-10499)
	ValidationFailed ErrorCode = 10400

	// ========== Sandbox & Execution Errors (20000-20999) ==========

	SandboxError        ErrorCode = 20000
	BoxInitFailed       ErrorCode = 20001
	BoxCleanupFailed    ErrorCode = 20002
	BoxPoolExhausted    ErrorCode = 20003
	BoxReleased         ErrorCode = 20004
	MetaParseFailed     ErrorCode = 20100
	ProcessStartFailed  ErrorCode = 20200
	ProcessKillFailed   ErrorCode = 20201
	SourceWriteFailed   ErrorCode = 20300
	OutputCollectFailed ErrorCode = 20301

	// ========== Judge Module Errors (21000-21999) ==========

	JudgeSystemError     ErrorCode = 21000
	LanguageNotSupported ErrorCode = 21001
	CompileFailed        ErrorCode = 21002
	NoTestCases          ErrorCode = 21003
	WorkerPoolFull       ErrorCode = 21100

	// ========== Queue & Event Stream Errors (22000-22999) ==========

	QueueError         ErrorCode = 22000
	JobEncodeFailed    ErrorCode = 22001
	JobDecodeFailed    ErrorCode = 22002
	EventEncodeFailed  ErrorCode = 22100
	EventDecodeFailed  ErrorCode = 22101
	UnknownEventType   ErrorCode = 22102
	CommandFailed      ErrorCode = 22200
	UnknownCommandType ErrorCode = 22201

	// ========== Session & Gateway Errors (23000-23999) ==========

	SessionError        ErrorCode = 23000
	MalformedMessage    ErrorCode = 23001
	DuplicateInit       ErrorCode = 23002
	SessionNotRunning   ErrorCode = 23003
	TokenInvalid        ErrorCode = 23100
	TokenExpired        ErrorCode = 23101
	SubmissionNotFound  ErrorCode = 23200
	SubmissionSaveError ErrorCode = 23201
	BroadcastError      ErrorCode = 23300
)

var codeMessages = map[ErrorCode]string{
	Success:             "success",
	InternalServerError: "internal server error",
	InvalidParams:       "invalid parameters",
	NotFound:            "resource not found",
	Unauthorized:        "unauthorized",
	ServiceUnavailable:  "service unavailable",
	Timeout:             "operation timed out",

	DatabaseError:  "database error",
	RecordNotFound: "record not found",
	CacheError:     "cache error",

	StorageError:    "object storage error",
	DataPackMissing: "test data pack not found",
	DataPackInvalid: "test data pack is invalid",

	ValidationFailed: "validation failed",

	SandboxError:        "sandbox error",
	BoxInitFailed:       "sandbox box init failed",
	BoxCleanupFailed:    "sandbox box cleanup failed",
	BoxPoolExhausted:    "sandbox box pool exhausted",
	BoxReleased:         "sandbox box already released",
	MetaParseFailed:     "sandbox metadata parse failed",
	ProcessStartFailed:  "process start failed",
	ProcessKillFailed:   "process kill failed",
	SourceWriteFailed:   "source write failed",
	OutputCollectFailed: "output collect failed",

	JudgeSystemError:     "judge system error",
	LanguageNotSupported: "language not supported",
	CompileFailed:        "compilation failed",
	NoTestCases:          "no test cases",
	WorkerPoolFull:       "worker pool is full",

	QueueError:         "queue error",
	JobEncodeFailed:    "job encode failed",
	JobDecodeFailed:    "job decode failed",
	EventEncodeFailed:  "event encode failed",
	EventDecodeFailed:  "event decode failed",
	UnknownEventType:   "unknown event type",
	CommandFailed:      "command channel error",
	UnknownCommandType: "unknown command type",

	SessionError:        "session error",
	MalformedMessage:    "malformed message",
	DuplicateInit:       "session already initialized",
	SessionNotRunning:   "session is not running",
	TokenInvalid:        "token is invalid",
	TokenExpired:        "token has expired",
	SubmissionNotFound:  "submission not found",
	SubmissionSaveError: "submission save failed",
	BroadcastError:      "broadcast failed",
}

// Message returns the default message for the error code.
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "unknown error"
}
