package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/workflow"
)

// RedisStore persists checkpoints as string values under "checkpoint:<id>"
// keys. A SET naturally replaces the prior value atomically from the
// client's perspective, so no separate rename step is needed the way
// FileStore needs one.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration // zero means no expiry
}

// NewRedisStore wraps an existing redis client. ttl, if non-zero, expires
// stale checkpoints so an abandoned workflow doesn't linger forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func redisKey(id workflow.ID) string {
	return "checkpoint:" + string(id)
}

func (s *RedisStore) Save(ctx context.Context, cp Checkpoint) error {
	data, err := marshalCheckpoint(cp)
	if err != nil {
		return err
	}
	if err := s.Client.Set(ctx, redisKey(cp.WorkflowID), data, s.TTL).Err(); err != nil {
		return apperrors.CheckpointError("save", string(cp.WorkflowID), err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id workflow.ID) (Checkpoint, bool, error) {
	data, err := s.Client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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
