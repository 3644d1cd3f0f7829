package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultHistoryLimit = 10
	DefaultHistoryTTL   = 24 * time.Hour
)

// HistoryStore keeps the recent turns of each conversation.
type HistoryStore interface {
	Load(ctx context.Context, conversationID string) ([]Message, error)
	Append(ctx context.Context, conversationID string, msgs ...Message) error
}

// RedisHistory stores each conversation as a capped Redis list.
type RedisHistory struct {
	rdb    *redis.Client
	prefix string
	limit  int
	ttl    time.Duration
}

func NewRedisHistory(rdb *redis.Client, limit int, ttl time.Duration) *RedisHistory {
	if rdb == nil {
		panic("nil redis client")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &RedisHistory{rdb: rdb, prefix: "chat:history:", limit: limit, ttl: ttl}
}

func (h *RedisHistory) key(id string) string { return h.prefix + id }

func (h *RedisHistory) Load(ctx context.Context, conversationID string) ([]Message, error) {
	raw, err := h.rdb.LRange(ctx, h.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (h *RedisHistory) Append(ctx context.Context, conversationID string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([]any, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}
	key := h.key(conversationID)
	_, err := h.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, vals...)
		p.LTrim(ctx, key, int64(-h.limit), -1)
		p.Expire(ctx, key, h.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

type memoryConversation struct {
	msgs    []Message
	touched time.Time
}

// MemoryHistory is the in-process fallback used when Redis is not
// reachable. Conversations idle longer than the TTL are dropped lazily.
type MemoryHistory struct {
	mu    sync.Mutex
	convs map[string]*memoryConversation
	limit int
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryHistory(limit int, ttl time.Duration) *MemoryHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if ttl <= 0 {
		ttl = DefaultHistoryTTL
	}
	return &MemoryHistory{
		convs: make(map[string]*memoryConversation),
		limit: limit,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (h *MemoryHistory) Load(_ context.Context, conversationID string) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evictLocked()
	c, ok := h.convs[conversationID]
	if !ok {
		return nil, nil
	}
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out, nil
}

func (h *MemoryHistory) Append(_ context.Context, conversationID string, msgs ...Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.evictLocked()
	c, ok := h.convs[conversationID]
	if !ok {
		c = &memoryConversation{}
		h.convs[conversationID] = c
	}
	c.msgs = append(c.msgs, msgs...)
	if over := len(c.msgs) - h.limit; over > 0 {
		c.msgs = append([]Message(nil), c.msgs[over:]...)
	}
	c.touched = h.now()
	return nil
}

func (h *MemoryHistory) evictLocked() {
	cutoff := h.now().Add(-h.ttl)
	for id, c := range h.convs {
		if c.touched.Before(cutoff) {
			delete(h.convs, id)
		}
	}
}
