package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/appointmint/apptbot/internal/model"
	"github.com/redis/go-redis/v9"
)

// ConversationsRepository keeps per-recipient dialog state in Redis. Keys
// expire after the configured TTL so abandoned conversations fall back to
// the idle stage on their own.
type ConversationsRepository interface {
	Get(ctx context.Context, recipient string) (model.State, error)
	Put(ctx context.Context, recipient string, st model.State) error
	Clear(ctx context.Context, recipient string) error
}

type ConversationsRepositoryImpl struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewConversationsRepository(rdb *redis.Client, ttl time.Duration) *ConversationsRepositoryImpl {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ConversationsRepositoryImpl{rdb: rdb, ttl: ttl}
}

var _ ConversationsRepository = (*ConversationsRepositoryImpl)(nil)

func stateKey(recipient string) string {
	return "conv:" + recipient
}

// Get returns the stored state. A missing key or an unreadable value both
// count as idle; only transport errors are reported.
func (r *ConversationsRepositoryImpl) Get(ctx context.Context, recipient string) (model.State, error) {
	idle := model.State{Stage: model.StageIdle}

	raw, err := r.rdb.Get(ctx, stateKey(recipient)).Bytes()
	if err == redis.Nil {
		return idle, nil
	}
	if err != nil {
		return idle, fmt.Errorf("conversation state get: %w", err)
	}

	var st model.State
	if err := json.Unmarshal(raw, &st); err != nil || !st.Stage.Valid() {
		return idle, nil
	}
	return st, nil
}

func (r *ConversationsRepositoryImpl) Put(ctx context.Context, recipient string, st model.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, stateKey(recipient), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("conversation state put: %w", err)
	}
	return nil
}

func (r *ConversationsRepositoryImpl) Clear(ctx context.Context, recipient string) error {
	if err := r.rdb.Del(ctx, stateKey(recipient)).Err(); err != nil {
		return fmt.Errorf("conversation state clear: %w", err)
	}
	return nil
}
