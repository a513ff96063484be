package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// UpsertCustomerTokenInput carries a token write. An existing row for the
// conversation is replaced in place, keeping its id and createdAt.
type UpsertCustomerTokenInput struct {
	ConversationID string
	AccessToken    string
	ExpiresAt      time.Time
}

type AppendMessageInput struct {
	ConversationID string
	Role           MessageRole
	Content        string
}

// VerifierStore holds single-use PKCE verifiers keyed by OAuth state.
type VerifierStore interface {
	Store(ctx context.Context, state string, verifier string) (CodeVerifier, error)
	Consume(ctx context.Context, state string) (CodeVerifier, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenStore holds at most one access token per conversation. Get filters
// expired rows without deleting them.
type TokenStore interface {
	Upsert(ctx context.Context, in UpsertCustomerTokenInput) (CustomerToken, error)
	Get(ctx context.Context, conversationID string) (CustomerToken, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore keeps auth sessions keyed by opaque id with a secondary
// lookup by shop.
type SessionStore interface {
	Store(ctx context.Context, session Session) (Session, error)
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
	FindByShop(ctx context.Context, shop string) ([]Session, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ConversationStore owns conversations, their append-only message history,
// and the account-URL binding.
type ConversationStore interface {
	Ensure(ctx context.Context, conversationID string) (Conversation, error)
	AppendMessage(ctx context.Context, in AppendMessageInput) (Message, error)
	History(ctx context.Context, conversationID string) ([]Message, error)
	SetAccountURL(ctx context.Context, conversationID string, url string) (CustomerAccountURL, error)
	GetAccountURL(ctx context.Context, conversationID string) (string, error)
	Delete(ctx context.Context, conversationID string) error
}

type StoreProvider interface {
	VerifierStore() VerifierStore
	TokenStore() TokenStore
	SessionStore() SessionStore
	ConversationStore() ConversationStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// ShopDomainValidator rejects shops that do not normalize to a canonical
// shop domain. Stored values are never rewritten, only validated.
type ShopDomainValidator interface {
	ValidateShopDomain(shop string) error
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type CommandMessage interface {
	Type() string
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg any) error
}

// RetentionStats summarizes one sweep pass over expirable rows.
type RetentionStats struct {
	VerifiersPurged int64
	TokensPurged    int64
	SessionsPurged  int64
}

func (s RetentionStats) Total() int64 {
	return s.VerifiersPurged + s.TokensPurged + s.SessionsPurged
}

// RetentionRunner is the sweep surface exposed to job consumers and hosts.
type RetentionRunner interface {
	RunOnce(ctx context.Context) (RetentionStats, error)
}

// StorageService is the full operation surface of the agent storage core.
// Hosts that only need behavior can accept this instead of *Service.
type StorageService interface {
	StoreVerifier(ctx context.Context, state string, verifier string) (CodeVerifier, error)
	ConsumeVerifier(ctx context.Context, state string) (CodeVerifier, error)
	UpsertCustomerToken(ctx context.Context, in UpsertCustomerTokenInput) (CustomerToken, error)
	CustomerToken(ctx context.Context, conversationID string) (CustomerToken, error)
	StoreSession(ctx context.Context, session Session) (Session, error)
	LoadSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessions(ctx context.Context, ids []string) error
	SessionsByShop(ctx context.Context, shop string) ([]Session, error)
	EnsureConversation(ctx context.Context, conversationID string) (Conversation, error)
	AppendMessage(ctx context.Context, in AppendMessageInput) (Message, error)
	ConversationHistory(ctx context.Context, conversationID string) ([]Message, error)
	SetAccountURL(ctx context.Context, conversationID string, url string) (CustomerAccountURL, error)
	AccountURL(ctx context.Context, conversationID string) (string, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	RunRetentionSweep(ctx context.Context) (RetentionStats, error)
}
