package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestContextFields(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithJobID(ctx, "job-9")
	ctx = WithSubmissionID(ctx, "sub-3")

	fields := extractFieldsFromContext(ctx)
	want := []zap.Field{
		zap.String("trace_id", "t-1"),
		zap.String("job_id", "job-9"),
		zap.String("submission_id", "sub-3"),
	}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields, want %d", len(fields), len(want))
	}
	for i := range want {
		if !fields[i].Equals(want[i]) {
			t.Fatalf("field %d = %+v, want %+v", i, fields[i], want[i])
		}
	}
}

func TestContextFieldsEmpty(t *testing.T) {
	if fields := extractFieldsFromContext(context.Background()); len(fields) != 0 {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}
