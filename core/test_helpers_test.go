package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type memoryTokenStore struct {
	mu        sync.Mutex
	byConv    map[string]CustomerToken
	now       func() time.Time
	upsertErr error
	purgeErr  error
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{
		byConv: map[string]CustomerToken{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *memoryTokenStore) Upsert(_ context.Context, in UpsertCustomerTokenInput) (CustomerToken, error) {
	if s.upsertErr != nil {
		return CustomerToken{}, s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.byConv[in.ConversationID]; ok {
		existing.AccessToken = in.AccessToken
		existing.ExpiresAt = in.ExpiresAt
		existing.UpdatedAt = now
		s.byConv[in.ConversationID] = existing
		return existing, nil
	}

	token := CustomerToken{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		AccessToken:    in.AccessToken,
		ExpiresAt:      in.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.byConv[in.ConversationID] = token
	return token, nil
}

func (s *memoryTokenStore) Get(_ context.Context, conversationID string) (CustomerToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.byConv[conversationID]
	if !ok || token.Expired(s.now()) {
		return CustomerToken{}, NewNotFoundError("core: customer token not found")
	}
	return token, nil
}

func (s *memoryTokenStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	if s.purgeErr != nil {
		return 0, s.purgeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, token := range s.byConv {
		if token.Expired(now) {
			delete(s.byConv, id)
			purged++
		}
	}
	return purged, nil
}

type memorySessionStore struct {
	mu          sync.Mutex
	byID        map[string]Session
	deleteErrOn string
	purgeErr    error
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{byID: map[string]Session{}}
}

func (s *memorySessionStore) Store(_ context.Context, session Session) (Session, error) {
	if err := session.Validate(); err != nil {
		return Session{}, NewBadInputError(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[session.ID] = session.Clone()
	return session.Clone(), nil
}

func (s *memorySessionStore) Load(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byID[id]
	if !ok {
		return Session{}, NewNotFoundError("core: session not found")
	}
	return session.Clone(), nil
}

func (s *memorySessionStore) Delete(_ context.Context, id string) error {
	if s.deleteErrOn != "" && id == s.deleteErrOn {
		return NewStorageFaultError("core: session delete failed", fmt.Errorf("forced failure"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *memorySessionStore) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return fmt.Errorf("core: delete session %q: %w", id, err)
		}
	}
	return nil
}

func (s *memorySessionStore) FindByShop(_ context.Context, shop string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Session{}
	for _, session := range s.byID {
		if session.Shop == shop {
			out = append(out, session.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memorySessionStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	if s.purgeErr != nil {
		return 0, s.purgeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, session := range s.byID {
		if session.Expired(now) {
			delete(s.byID, id)
			purged++
		}
	}
	return purged, nil
}

type memoryConversationStore struct {
	mu            sync.Mutex
	conversations map[string]Conversation
	messages      map[string][]Message
	urls          map[string]CustomerAccountURL
	ensureCalls   []string
	now           func() time.Time
}

func newMemoryConversationStore() *memoryConversationStore {
	return &memoryConversationStore{
		conversations: map[string]Conversation{},
		messages:      map[string][]Message{},
		urls:          map[string]CustomerAccountURL{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *memoryConversationStore) Ensure(_ context.Context, conversationID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureCalls = append(s.ensureCalls, conversationID)
	now := s.now()
	if existing, ok := s.conversations[conversationID]; ok {
		existing.UpdatedAt = now
		s.conversations[conversationID] = existing
		return existing, nil
	}
	conversation := Conversation{ID: conversationID, CreatedAt: now, UpdatedAt: now}
	s.conversations[conversationID] = conversation
	return conversation, nil
}

func (s *memoryConversationStore) AppendMessage(ctx context.Context, in AppendMessageInput) (Message, error) {
	if _, err := s.Ensure(ctx, in.ConversationID); err != nil {
		return Message{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	message := Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		Role:           in.Role,
		Content:        in.Content,
		CreatedAt:      s.now(),
	}
	s.messages[in.ConversationID] = append(s.messages[in.ConversationID], message)
	return message, nil
}

func (s *memoryConversationStore) History(_ context.Context, conversationID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.messages[conversationID]
	out := make([]Message, len(items))
	copy(out, items)
	return out, nil
}

func (s *memoryConversationStore) SetAccountURL(ctx context.Context, conversationID string, url string) (CustomerAccountURL, error) {
	if _, err := s.Ensure(ctx, conversationID); err != nil {
		return CustomerAccountURL{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record := CustomerAccountURL{ConversationID: conversationID, URL: url, UpdatedAt: s.now()}
	s.urls[conversationID] = record
	return record, nil
}

func (s *memoryConversationStore) GetAccountURL(_ context.Context, conversationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.urls[conversationID]
	if !ok {
		return "", NewNotFoundError("core: customer account url not found")
	}
	return record.URL, nil
}

func (s *memoryConversationStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	delete(s.urls, conversationID)
	return nil
}

type stubShopValidator struct {
	err   error
	calls []string
}

func (v *stubShopValidator) ValidateShopDomain(shop string) error {
	v.calls = append(v.calls, shop)
	return v.err
}

type stubRetentionRunner struct {
	stats RetentionStats
	err   error
	calls int
}

func (r *stubRetentionRunner) RunOnce(context.Context) (RetentionStats, error) {
	r.calls++
	return r.stats, r.err
}

type stubJobDelivery struct {
	msg      *JobExecutionMessage
	acked    bool
	nacked   bool
	lastNack JobNackOptions
	ackErr   error
	nackErr  error
}

func (d *stubJobDelivery) Message() *JobExecutionMessage { return d.msg }

func (d *stubJobDelivery) Ack(context.Context) error {
	d.acked = true
	return d.ackErr
}

func (d *stubJobDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.nacked = true
	d.lastNack = opts
	return d.nackErr
}

type stubJobDequeuer struct {
	deliveries []JobDelivery
	err        error
}

func (q *stubJobDequeuer) Dequeue(context.Context) (JobDelivery, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.deliveries) == 0 {
		return nil, fmt.Errorf("core: job queue drained")
	}
	next := q.deliveries[0]
	q.deliveries = q.deliveries[1:]
	return next, nil
}
