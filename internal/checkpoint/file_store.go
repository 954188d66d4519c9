package checkpoint

import (
	"context"
	"os"
	"path/filepath"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/workflow"
)

// FileStore persists checkpoints as one JSON file per workflow under Dir,
// named "<workflow_id>.json". Writes land first in a sibling ".tmp" file
// and are then moved into place with os.Rename, so a reader never observes
// a partially written checkpoint — a crash mid-write leaves the previous
// checkpoint (or nothing) rather than a corrupt one.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.FailedToWithDetails("create checkpoint directory", "checkpoint", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) path(id workflow.ID) string {
	return filepath.Join(s.Dir, string(id)+".json")
}

func (s *FileStore) Save(_ context.Context, cp Checkpoint) error {
	data, err := marshalCheckpoint(cp)
	if err != nil {
		return err
	}

	target := s.path(cp.WorkflowID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperrors.CheckpointError("save", string(cp.WorkflowID), err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return apperrors.CheckpointError("save", string(cp.WorkflowID), err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, id workflow.ID) (Checkpoint, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, apperrors.CheckpointError("load", string(id), err)
	}
	cp, err := unmarshalCheckpoint(data)
	if err != nil {
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}
