package ctxutil

import (
	"context"
	"testing"
)

func TestTraceDataRoundTripAndDefault(t *testing.T) {
	if GetTraceData(context.Background()) != nil {
		t.Fatalf("empty context should carry no trace data")
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t-1", RequestID: "r-1"})
	if td := GetTraceData(ctx); td == nil || td.TraceID != "t-1" || td.RequestID != "r-1" {
		t.Fatalf("trace data: %+v", td)
	}

	if Default(nil) == nil {
		t.Fatalf("Default(nil) returned nil")
	}
	if Default(ctx) != ctx {
		t.Fatalf("Default should keep a non-nil context")
	}
}
