package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryVerifierStore keeps PKCE verifiers in process memory with the same
// observable semantics as the SQL store: duplicate state conflicts, consume
// is exactly-once, expired rows stay until purged. Intended for hosts
// without a persistence client and for collaborator tests.
type MemoryVerifierStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]CodeVerifier
	now     func() time.Time
}

type MemoryVerifierOption func(*MemoryVerifierStore)

func WithMemoryVerifierClock(now func() time.Time) MemoryVerifierOption {
	return func(s *MemoryVerifierStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryVerifierStore(ttl time.Duration, opts ...MemoryVerifierOption) *MemoryVerifierStore {
	if ttl <= 0 {
		ttl = DefaultConfig().Verifier.TTL
	}
	store := &MemoryVerifierStore{
		ttl:     ttl,
		entries: map[string]CodeVerifier{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(store)
	}
	return store
}

func (s *MemoryVerifierStore) Store(_ context.Context, state string, verifier string) (CodeVerifier, error) {
	if s == nil {
		return CodeVerifier{}, fmt.Errorf("core: verifier store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return CodeVerifier{}, fmt.Errorf("core: oauth state is required")
	}
	if strings.TrimSpace(verifier) == "" {
		return CodeVerifier{}, fmt.Errorf("core: code verifier is required")
	}

	record := CodeVerifier{
		ID:        uuid.NewString(),
		State:     state,
		Verifier:  verifier,
		ExpiresAt: s.now().Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[state]; exists {
		return CodeVerifier{}, NewConflictError("core: a code verifier already exists for this state")
	}
	s.entries[state] = record

	return record, nil
}

func (s *MemoryVerifierStore) Consume(_ context.Context, state string) (CodeVerifier, error) {
	if s == nil {
		return CodeVerifier{}, fmt.Errorf("core: verifier store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return CodeVerifier{}, fmt.Errorf("core: oauth state is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.entries[state]
	if !ok {
		return CodeVerifier{}, NewNotFoundError("core: code verifier not found")
	}
	// Expired rows read as absent but stay for the sweeper, matching the
	// SQL store's delete predicate.
	if record.Expired(s.now()) {
		return CodeVerifier{}, NewNotFoundError("core: code verifier not found")
	}
	delete(s.entries, state)

	return record, nil
}

func (s *MemoryVerifierStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	if s == nil {
		return 0, fmt.Errorf("core: verifier store is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for state, record := range s.entries {
		if record.Expired(now) {
			delete(s.entries, state)
			purged++
		}
	}
	return purged, nil
}

var _ VerifierStore = (*MemoryVerifierStore)(nil)
