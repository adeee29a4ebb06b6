package services_test

import (
	"context"
	"testing"

	"resplice/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTaskID(ctx, "task-1")
	ctx = services.WithStage(ctx, "splice")
	ctx = services.WithStrategy(ctx, "cumulative")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.TaskIDFromContext(ctx); !ok || id != "task-1" {
		t.Fatalf("unexpected task id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "splice" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if strategy, ok := services.StrategyFromContext(ctx); !ok || strategy != "cumulative" {
		t.Fatalf("unexpected strategy: %v %v", strategy, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	ctx = services.WithTaskID(ctx, "")
	if _, ok := services.TaskIDFromContext(ctx); ok {
		t.Fatal("expected no task id value")
	}
}
