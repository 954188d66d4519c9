package checkpoint

import (
	"context"

	"github.com/castforge/castforge/internal/workflow"
)

// Store persists and recovers Checkpoints, keyed by workflow ID.
type Store interface {
	Save(ctx context.Context, cp Checkpoint) error
	// Load returns (checkpoint, true, nil) if one exists, (zero, false, nil)
	// if none exists, or (zero, false, err) on a read/parse failure.
	Load(ctx context.Context, id workflow.ID) (Checkpoint, bool, error)
}

// Serialize converts a Checkpoint to JSON bytes.
func Serialize(cp Checkpoint) ([]byte, error) {
	return marshalCheckpoint(cp)
}

// Deserialize reconstructs a Checkpoint from JSON bytes.
func Deserialize(data []byte) (Checkpoint, error) {
	return unmarshalCheckpoint(data)
}
