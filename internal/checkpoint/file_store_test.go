package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

func TestFileStoreSaveLoadRoundTrips(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	wfCtx := workflow.New(workflow.NewID(), workflow.Standard)
	wfCtx.PhaseStatus["fetch_script"] = workflow.Running
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
	if got.PhaseStatus["fetch_script"] != workflow.Pending {
		t.Fatalf("PhaseStatus[fetch_script] = %v, want Pending", got.PhaseStatus["fetch_script"])
	}

	if _, err := os.Stat(filepath.Join(store.Dir, string(cp.WorkflowID)+".json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("temp file was left behind: %v", err)
	}
}

func TestFileStoreLoadMissingReturnsNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	_, ok, err := store.Load(context.Background(), workflow.ID("does-not-exist"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if ok {
		t.Fatal("Load() ok = true, want false for missing checkpoint")
	}
}

func TestFileStoreOverwritesPreviousCheckpoint(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	id := workflow.NewID()
	first := FromContext(workflow.New(id, workflow.Standard))
	first.PhaseStatus["fetch_script"] = workflow.Pending
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := first
	second.PhaseStatus = map[phase.ID]workflow.Status{}
	for k, v := range first.PhaseStatus {
		second.PhaseStatus[k] = v
	}
	second.PhaseStatus["fetch_script"] = workflow.Succeeded
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v, %v", got, ok, err)
	}
	if got.PhaseStatus["fetch_script"] != workflow.Succeeded {
		t.Fatalf("PhaseStatus[fetch_script] = %v, want Succeeded (overwrite should win)", got.PhaseStatus["fetch_script"])
	}
}
