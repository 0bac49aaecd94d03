package orphans

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type setStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SPopN(ctx context.Context, key string, count int64) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	OrphanSetKey(provider string) string
}

// Store keeps orphans in Redis, one set per provider.
type Store struct {
	redis setStore
	now   func() time.Time
}

func NewStore(redis setStore) (*Store, error) {
	if redis == nil {
		return nil, errors.New("redis client required")
	}
	return &Store{redis: redis, now: time.Now}, nil
}

// Record adds the orphan to its provider's set. A zero FailedAt is stamped with
// the current time.
func (s *Store) Record(ctx context.Context, o Orphan) error {
	if o.FailedAt.IsZero() {
		o.FailedAt = s.now().UTC()
	}
	member, err := Encode(o)
	if err != nil {
		return err
	}
	if err := s.redis.SAdd(ctx, s.redis.OrphanSetKey(o.Provider), member); err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}
	return nil
}

// Drain removes and returns up to limit orphans recorded for provider. Members
// that cannot be decoded are dropped and counted in skipped.
func (s *Store) Drain(ctx context.Context, provider string, limit int) (orphans []Orphan, skipped int, err error) {
	if limit <= 0 {
		return nil, 0, nil
	}
	members, err := s.redis.SPopN(ctx, s.redis.OrphanSetKey(provider), int64(limit))
	if err != nil {
		return nil, 0, fmt.Errorf("drain orphans: %w", err)
	}
	orphans = make([]Orphan, 0, len(members))
	for _, member := range members {
		o, decodeErr := Decode(member)
		if decodeErr != nil {
			skipped++
			continue
		}
		orphans = append(orphans, o)
	}
	return orphans, skipped, nil
}

// Requeue puts orphans back into their providers' sets so the next run retries them.
func (s *Store) Requeue(ctx context.Context, orphans ...Orphan) error {
	byKey := map[string][]string{}
	for _, o := range orphans {
		member, err := Encode(o)
		if err != nil {
			return err
		}
		key := s.redis.OrphanSetKey(o.Provider)
		byKey[key] = append(byKey[key], member)
	}
	for key, members := range byKey {
		if err := s.redis.SAdd(ctx, key, members...); err != nil {
			return fmt.Errorf("requeue orphans: %w", err)
		}
	}
	return nil
}

// Pending returns how many orphans of provider wait for cleanup.
func (s *Store) Pending(ctx context.Context, provider string) (int64, error) {
	return s.redis.SCard(ctx, s.redis.OrphanSetKey(provider))
}
