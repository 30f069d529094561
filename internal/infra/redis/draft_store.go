package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"code-session-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKey  = "editor:session"
	draftPrefix = "editor:draft:"
)

// DraftStore persists drafts in Redis, one JSON record per identity plus a
// single session-metadata key. There is no versioning scheme; a record
// layout change needs a migration or a store wipe.
type DraftStore struct {
	client    *redis.Client
	retention time.Duration
	clock     func() time.Time
}

func NewDraftStore(client *redis.Client, retention time.Duration) *DraftStore {
	return &DraftStore{
		client:    client,
		retention: retention,
		clock:     time.Now,
	}
}

// NewDraftStoreWithClock is test-only for deterministic timestamps.
func NewDraftStoreWithClock(client *redis.Client, retention time.Duration, clock func() time.Time) *DraftStore {
	s := NewDraftStore(client, retention)
	s.clock = clock
	return s
}

// Init returns the per-browser-profile session identifier, creating and
// persisting one on first call. SETNX makes concurrent Inits agree on a
// single identifier. The stale sweep runs here, once per initialization;
// its failure is logged, never fatal.
func (s *DraftStore) Init(ctx context.Context) (string, error) {
	candidate := uuid.NewString()
	if err := s.client.SetNX(ctx, sessionKey, candidate, 0).Err(); err != nil {
		return "", err
	}
	id, err := s.client.Get(ctx, sessionKey).Result()
	if err != nil {
		return "", err
	}

	if err := s.SweepStale(ctx); err != nil {
		log.Printf("draft store: stale sweep failed: %v", err)
	}
	return id, nil
}

// Get returns the draft for the identity, or (nil, nil) when none exists.
// Read failures and corrupt records degrade to a miss; the editor treats
// both the same as "never saved".
func (s *DraftStore) Get(ctx context.Context, id domain.DraftIdentity) (*domain.DraftRecord, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		log.Printf("draft store: read failed for %s: %v", id.Key(), err)
		return nil, nil
	}
	var rec domain.DraftRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Printf("draft store: corrupt record for %s: %v", id.Key(), err)
		return nil, nil
	}
	return &rec, nil
}

// Put overwrites the identity's record; no merge with prior content.
func (s *DraftStore) Put(ctx context.Context, id domain.DraftIdentity, code string) error {
	rec := domain.DraftRecord{
		Identity: id,
		Code:     code,
		Language: id.Language,
		SavedAt:  s.clock(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(id), raw, 0).Err()
}

func (s *DraftStore) Delete(ctx context.Context, id domain.DraftIdentity) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// SweepStale scans the draft keyspace and removes records whose SavedAt is
// past the retention window.
func (s *DraftStore) SweepStale(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-s.retention)

	iter := s.client.Scan(ctx, 0, draftPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var rec domain.DraftRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			// Unreadable records count as stale.
			_ = s.client.Del(ctx, key).Err()
			continue
		}
		if rec.SavedAt.Before(cutoff) {
			_ = s.client.Del(ctx, key).Err()
		}
	}
	return iter.Err()
}

func (s *DraftStore) key(id domain.DraftIdentity) string {
	return draftPrefix + id.Key()
}
