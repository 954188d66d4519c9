package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/castforge/castforge/internal/workflow"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour)
}

func TestRedisStoreSaveLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := newTestRedisStore(t)

	wfCtx := workflow.New(workflow.NewID(), workflow.Standard)
	wfCtx.PhaseStatus["render_video"] = workflow.Running
	cp := FromContext(wfCtx)

	if err := store.Save(ctx, cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx, cp.WorkflowID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !ok {
		t.Fatal("Load() ok = false, want true")
	}
	if got.PhaseStatus["render_video"] != workflow.Pending {
		t.Fatalf("PhaseStatus[render_video] = %v, want Pending", got.PhaseStatus["render_video"])
	}
}

func TestRedisStoreLoadMissingReturnsNotFound(t *testing.T) {
	store := newTestRedisStore(t)

	_, ok, err := store.Load(context.Background(), workflow.ID("does-not-exist"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if ok {
		t.Fatal("Load() ok = true, want false for missing checkpoint")
	}
}
