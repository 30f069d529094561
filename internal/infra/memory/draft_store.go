package memory

import (
	"context"
	"sync"
	"time"

	"code-session-service/internal/domain"
	"github.com/google/uuid"
)

// DraftStore is an in-memory implementation of app.DraftStore, used in
// tests and redis-less runs. Overwrite semantics: at most one record per
// identity.
type DraftStore struct {
	retention time.Duration
	clock     func() time.Time

	mu        sync.RWMutex
	sessionID string
	drafts    map[string]domain.DraftRecord
}

func NewDraftStore(retention time.Duration) *DraftStore {
	return &DraftStore{
		retention: retention,
		clock:     time.Now,
		drafts:    make(map[string]domain.DraftRecord),
	}
}

// NewDraftStoreWithClock is test-only for deterministic timestamps.
func NewDraftStoreWithClock(retention time.Duration, clock func() time.Time) *DraftStore {
	s := NewDraftStore(retention)
	s.clock = clock
	return s
}

// Init returns the store's session identifier, creating it on first call.
// Repeated calls return the same identifier. Stale records are swept here,
// not on a timer.
func (s *DraftStore) Init(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.sessionID == "" {
		s.sessionID = uuid.NewString()
	}
	id := s.sessionID
	s.mu.Unlock()

	_ = s.SweepStale(ctx)
	return id, nil
}

func (s *DraftStore) Get(_ context.Context, id domain.DraftIdentity) (*domain.DraftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.drafts[id.Key()]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *DraftStore) Put(_ context.Context, id domain.DraftIdentity, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[id.Key()] = domain.DraftRecord{
		Identity: id,
		Code:     code,
		Language: id.Language,
		SavedAt:  s.clock(),
	}
	return nil
}

func (s *DraftStore) Delete(_ context.Context, id domain.DraftIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id.Key())
	return nil
}

// SweepStale drops records older than the retention window.
func (s *DraftStore) SweepStale(_ context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.drafts {
		if rec.SavedAt.Before(cutoff) {
			delete(s.drafts, key)
		}
	}
	return nil
}

// Len returns the number of stored drafts.
func (s *DraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
