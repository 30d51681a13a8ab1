package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"contactguard/internal/constants"
)

const defaultShards = 32

type memoryShard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// MemoryStore is the in-process Store. Keys are spread over shards by FNV-1a
// so unrelated identities rarely contend on the same lock.
type MemoryStore struct {
	shards []*memoryShard
}

func NewMemoryStore(shards int) *MemoryStore {
	if shards < 1 {
		shards = defaultShards
	}
	s := &MemoryStore{shards: make([]*memoryShard, shards)}
	for i := range s.shards {
		s.shards[i] = &memoryShard{windows: make(map[string][]time.Time)}
	}
	return s
}

func (s *MemoryStore) Name() string {
	return constants.StoreMemory
}

func (s *MemoryStore) shardFor(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) Admit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	if limit < 1 {
		limit = 1
	}

	shard := s.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	log := evict(shard.windows[key], now, window)

	if len(log) >= limit {
		shard.windows[key] = log
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: retryAfterSeconds(log[0], now, window),
			Store:             s.Name(),
		}, nil
	}

	log = append(log, now)
	shard.windows[key] = log

	return Decision{
		Allowed:   true,
		Remaining: limit - len(log),
		Store:     s.Name(),
	}, nil
}

// Sweep drops expired timestamps from every key and forgets keys left empty.
// It returns the number of keys removed.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for key, log := range shard.windows {
			log = evict(log, now, window)
			if len(log) == 0 {
				delete(shard.windows, key)
				removed++
				continue
			}
			shard.windows[key] = log
		}
		shard.mu.Unlock()
	}
	return removed
}

// Len reports the number of identities currently tracked.
func (s *MemoryStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += len(shard.windows)
		shard.mu.Unlock()
	}
	return total
}

// StartSweeper runs Sweep every interval until ctx is done. onSweep, when
// set, receives the number of keys removed and the number still tracked.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval, window time.Duration, onSweep func(removed, tracked int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := s.Sweep(now, window)
			if onSweep != nil {
				onSweep(removed, s.Len())
			}
		}
	}
}

// evict returns log without the entries that have left the window. The log
// is ordered, so the kept entries are a suffix.
func evict(log []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(log) && now.Sub(log[i]) >= window {
		i++
	}
	if i == 0 {
		return log
	}
	n := copy(log, log[i:])
	return log[:n]
}
