package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentcore/runtime"
)

// RedisStore persists checkpoints in Redis, one string key per task, relying
// on Redis's native key TTL for expiry instead of a client-side timer.
// ListTasks is backed by a secondary set per (agentId, contextId) pair so a
// listing filtered by both agentId and contextId doesn't require a full key
// scan; any other filter falls back to a scan.
type RedisStore struct {
	rdb       *redis.Client
	keyPrefix string
}

// RedisStoreOptions configures RedisStore.
type RedisStoreOptions struct {
	Client    *redis.Client
	KeyPrefix string // defaults to "agentcore:checkpoint:"
}

// NewRedisStore constructs a Store backed by rdb.
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("checkpoint: redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "agentcore:checkpoint:"
	}
	return &RedisStore{rdb: opts.Client, keyPrefix: prefix}, nil
}

func (s *RedisStore) stateKey(taskID agentcore.TaskID) string {
	return s.keyPrefix + "state:" + string(taskID)
}

func (s *RedisStore) indexKey(agentID agentcore.AgentID, contextID agentcore.ContextID) string {
	return s.keyPrefix + "index:" + string(agentID) + ":" + string(contextID)
}

func (s *RedisStore) Save(ctx context.Context, state PersistedLoopState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal state: %w", err)
	}

	var ttl time.Duration
	if existing, err := s.rdb.TTL(ctx, s.stateKey(state.TaskID)).Result(); err == nil && existing > 0 {
		ttl = existing
	}
	if err := s.rdb.Set(ctx, s.stateKey(state.TaskID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("checkpoint: save state: %w", err)
	}
	if err := s.rdb.SAdd(ctx, s.indexKey(state.AgentID, state.ContextID), string(state.TaskID)).Err(); err != nil {
		return fmt.Errorf("checkpoint: update index: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, taskID agentcore.TaskID) (PersistedLoopState, error) {
	raw, err := s.rdb.Get(ctx, s.stateKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PersistedLoopState{}, ErrNotFound
	}
	if err != nil {
		return PersistedLoopState{}, fmt.Errorf("checkpoint: load state: %w", err)
	}
	var state PersistedLoopState
	if err := json.Unmarshal(raw, &state); err != nil {
		return PersistedLoopState{}, fmt.Errorf("checkpoint: unmarshal state: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Exists(ctx context.Context, taskID agentcore.TaskID) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.stateKey(taskID)).Result()
	if err != nil {
		return false, fmt.Errorf("checkpoint: exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID agentcore.TaskID) error {
	state, err := s.Load(ctx, taskID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := s.rdb.Del(ctx, s.stateKey(taskID)).Err(); err != nil {
		return fmt.Errorf("checkpoint: delete state: %w", err)
	}
	if err == nil {
		_ = s.rdb.SRem(ctx, s.indexKey(state.AgentID, state.ContextID), string(taskID)).Err()
	}
	return nil
}

// ListTasks scans the index set for the filter's (agentId, contextId) pair
// when both are given; otherwise it falls back to a key-pattern scan, which
// is O(keyspace) and intended for operational tooling rather than hot paths.
func (s *RedisStore) ListTasks(ctx context.Context, filter ListFilter) ([]agentcore.TaskID, error) {
	if filter.AgentID != nil && filter.ContextID != nil {
		ids, err := s.rdb.SMembers(ctx, s.indexKey(*filter.AgentID, *filter.ContextID)).Result()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: list tasks: %w", err)
		}
		return s.filterByActivity(ctx, ids, filter)
	}

	var ids []string
	iter := s.rdb.Scan(ctx, 0, s.keyPrefix+"state:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ids = append(ids, key[len(s.keyPrefix+"state:"):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: scan tasks: %w", err)
	}
	return s.filterByActivity(ctx, ids, filter)
}

func (s *RedisStore) filterByActivity(ctx context.Context, ids []string, filter ListFilter) ([]agentcore.TaskID, error) {
	var out []agentcore.TaskID
	for _, id := range ids {
		taskID := agentcore.TaskID(id)
		state, err := s.Load(ctx, taskID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.AgentID != nil && state.AgentID != *filter.AgentID {
			continue
		}
		if filter.ContextID != nil && state.ContextID != *filter.ContextID {
			continue
		}
		if filter.CompletedAfter != nil && !state.LastActivityAt.After(*filter.CompletedAfter) {
			continue
		}
		out = append(out, taskID)
	}
	return out, nil
}

func (s *RedisStore) SetTTL(ctx context.Context, taskID agentcore.TaskID, ttl time.Duration) error {
	ok, err := s.rdb.Expire(ctx, s.stateKey(taskID), ttl).Result()
	if err != nil {
		return fmt.Errorf("checkpoint: set ttl: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
