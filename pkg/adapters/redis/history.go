package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/xstack/internal/dto"
	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// History implements ports.RunHistory using Redis, so several servers can share
// their recent runs. Results are stored as JSON; error values come back as messages.
type History struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	limit  int64
}

type HistoryOption func(*History)

// WithHistoryPrefix sets the key prefix (default "xstack:").
func WithHistoryPrefix(prefix string) HistoryOption {
	return func(h *History) {
		h.prefix = prefix
	}
}

// WithHistoryTTL sets the expiration of stored runs (0 = no expiration).
func WithHistoryTTL(ttl time.Duration) HistoryOption {
	return func(h *History) {
		h.ttl = ttl
	}
}

// WithHistoryLimit caps the number of retained runs, evicting the oldest (0 = unbounded).
func WithHistoryLimit(n int) HistoryOption {
	return func(h *History) {
		h.limit = int64(n)
	}
}

// NewHistory creates a run history from an existing client.
func NewHistory(client *backend.Client, opts ...HistoryOption) *History {
	h := &History{
		client: client,
		prefix: "xstack:",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ ports.RunHistory = (*History)(nil)

func (h *History) key(runID string) string {
	return h.prefix + "result:" + runID
}

func (h *History) indexKey() string {
	return h.prefix + "results"
}

func (h *History) seqKey() string {
	return h.prefix + "results:seq"
}

// Save persists the result and indexes it as the most recent run.
func (h *History) Save(ctx context.Context, result *domain.RunResult) error {
	if result == nil || result.RunID == "" {
		return fmt.Errorf("redis: run id is required")
	}
	data, err := json.Marshal(dto.FromResult(result))
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// A counter keeps insertion order exact where timestamps could tie.
	seq, err := h.client.Incr(ctx, h.seqKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	pipe := h.client.Pipeline()
	pipe.Set(ctx, h.key(result.RunID), data, h.ttl)
	pipe.ZAdd(ctx, h.indexKey(), backend.Z{Score: float64(seq), Member: result.RunID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}

	if h.limit > 0 {
		return h.evict(ctx)
	}
	return nil
}

// evict drops everything older than the newest limit runs.
func (h *History) evict(ctx context.Context) error {
	stale, err := h.client.ZRange(ctx, h.indexKey(), 0, -h.limit-1).Result()
	if err != nil {
		return fmt.Errorf("failed to evict runs: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	pipe := h.client.Pipeline()
	members := make([]any, len(stale))
	for i, id := range stale {
		pipe.Del(ctx, h.key(id))
		members[i] = id
	}
	pipe.ZRem(ctx, h.indexKey(), members...)
	_, err = pipe.Exec(ctx)
	return err
}

// Get retrieves a run by ID.
func (h *History) Get(ctx context.Context, runID string) (*domain.RunResult, error) {
	val, err := h.client.Get(ctx, h.key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ports.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var run dto.Run
	if err := json.Unmarshal(val, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return run.ToResult(), nil
}

// List returns the retained run IDs, most recent first.
// Index entries whose result has expired are pruned on the way.
func (h *History) List(ctx context.Context) ([]string, error) {
	ids, err := h.client.ZRevRange(ctx, h.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if h.ttl == 0 || len(ids) == 0 {
		return ids, nil
	}

	pipe := h.client.Pipeline()
	exists := make([]*backend.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, h.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	live := ids[:0]
	var expired []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
		} else {
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		if err := h.client.ZRem(ctx, h.indexKey(), expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired runs: %w", err)
		}
	}
	return live, nil
}
