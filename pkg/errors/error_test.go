package errors

import (
	stderrors "errors"
	"testing"
)

func TestNewUsesCodeMessage(t *testing.T) {
	err := New(NoTestCases)
	if err.Error() != "no test cases" {
		t.Fatalf("message = %q", err.Error())
	}
	if GetCode(err) != NoTestCases {
		t.Fatalf("code = %d", GetCode(err))
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, StorageError)
	if GetCode(err) != StorageError {
		t.Fatalf("code = %d", GetCode(err))
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("wrapped error lost its cause")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, StorageError) != nil {
		t.Fatal("wrapping nil must return nil")
	}
	if Wrapf(nil, StorageError, "x") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestWrapRecodesOwnError(t *testing.T) {
	inner := New(CacheError)
	err := Wrap(inner, QueueError)
	if GetCode(err) != QueueError {
		t.Fatalf("code = %d, want %d", GetCode(err), QueueError)
	}
}

func TestGetCodeForeignError(t *testing.T) {
	if GetCode(stderrors.New("plain")) != InternalServerError {
		t.Fatal("foreign errors must map to InternalServerError")
	}
	if GetCode(nil) != Success {
		t.Fatal("nil must map to Success")
	}
}

func TestIs(t *testing.T) {
	err := New(TokenExpired)
	if !Is(err, TokenExpired) {
		t.Fatal("Is should match the code")
	}
	if Is(err, TokenInvalid) {
		t.Fatal("Is matched the wrong code")
	}
	if Is(nil, TokenExpired) {
		t.Fatal("Is matched nil")
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidationError("language", "required")
	if err.Details["field"] != "language" || err.Details["reason"] != "required" {
		t.Fatalf("details = %v", err.Details)
	}
}

func TestSandboxFailurePreservesSandboxCode(t *testing.T) {
	inner := New(BoxInitFailed)
	if got := SandboxFailure(inner); got.Code != BoxInitFailed {
		t.Fatalf("code = %d, want %d", got.Code, BoxInitFailed)
	}
	plain := stderrors.New("boom")
	if got := SandboxFailure(plain); got.Code != SandboxError {
		t.Fatalf("code = %d, want %d", got.Code, SandboxError)
	}
}
