package shopagent_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	shopagent "github.com/daily-harvest/dh-shop-agent"
	"github.com/daily-harvest/dh-shop-agent/core"
	agentmigrations "github.com/daily-harvest/dh-shop-agent/migrations"
	agentquery "github.com/daily-harvest/dh-shop-agent/query"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestDownstreamComposition_DrivesCredentialFlowWithoutOwningStoreInternals(t *testing.T) {
	client, cleanup := newDownstreamSQLiteClient(t)
	defer cleanup()

	svc, err := shopagent.NewService(
		shopagent.DefaultConfig(),
		shopagent.WithPersistenceClient(client),
		shopagent.WithRepositoryFactory(shopagent.SQLStoreFactory()),
		shopagent.WithShopDomainValidator(shopagent.MyshopifyDomainValidator()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := shopagent.NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	ctx := context.Background()
	const (
		conversationID = "conv_downstream_1"
		oauthState     = "state_downstream_1"
		plantedSecret  = "pkce-verifier-downstream"
	)

	if _, err := svc.EnsureConversation(ctx, conversationID); err != nil {
		t.Fatalf("ensure conversation: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, core.AppendMessageInput{
		ConversationID: conversationID,
		Role:           core.MessageRoleUser,
		Content:        "show me my subscription orders",
	}); err != nil {
		t.Fatalf("append user message: %v", err)
	}
	if _, err := svc.StoreVerifier(ctx, oauthState, plantedSecret); err != nil {
		t.Fatalf("store verifier: %v", err)
	}

	expires := time.Now().UTC().Add(time.Hour)
	input := checkoutAuthInput{
		ConversationID: conversationID,
		State:          oauthState,
		AccountURL:     "https://shopify.com/authentication/100200300",
		Session: core.Session{
			ID:          "sess_downstream_1",
			Shop:        "demo.myshopify.com",
			State:       oauthState,
			IsOnline:    true,
			Scope:       "read_orders,read_customers",
			AccessToken: "shpat_session_token",
			Expires:     &expires,
		},
	}

	flow := checkoutAuthFlow{runtime: svc}
	var exchangedVerifier string
	token, err := flow.CompleteAuthorization(ctx, input,
		func(_ context.Context, verifier string) (string, time.Time, error) {
			exchangedVerifier = verifier
			return "shcat_customer_token", time.Now().UTC().Add(30 * time.Minute), nil
		},
	)
	if err != nil {
		t.Fatalf("complete authorization through runtime primitive: %v", err)
	}
	if exchangedVerifier != plantedSecret {
		t.Fatalf("expected exchange to receive planted verifier, got %q", exchangedVerifier)
	}
	if token.ConversationID != conversationID || token.AccessToken != "shcat_customer_token" {
		t.Fatalf("unexpected customer token: %#v", token)
	}

	// The verifier is single-use: a replayed callback must not mint a second
	// token.
	if _, err := flow.CompleteAuthorization(ctx, input,
		func(context.Context, string) (string, time.Time, error) {
			t.Fatalf("exchange must not run for a replayed state")
			return "", time.Time{}, nil
		},
	); !core.IsNotFound(err) {
		t.Fatalf("expected not-found on replayed state, got %v", err)
	}

	queries := facade.Queries()

	fetched, err := queries.GetCustomerToken.Query(ctx, agentquery.GetCustomerTokenMessage{
		ConversationID: conversationID,
	})
	if err != nil {
		t.Fatalf("get customer token: %v", err)
	}
	if fetched.ID != token.ID || fetched.AccessToken != token.AccessToken {
		t.Fatalf("expected persisted token %#v, got %#v", token, fetched)
	}

	session, err := queries.LoadSession.Query(ctx, agentquery.LoadSessionMessage{ID: input.Session.ID})
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Shop != input.Session.Shop || session.AccessToken != input.Session.AccessToken {
		t.Fatalf("unexpected persisted session: %#v", session)
	}

	byShop, err := queries.SessionsByShop.Query(ctx, agentquery.SessionsByShopMessage{Shop: input.Session.Shop})
	if err != nil {
		t.Fatalf("sessions by shop: %v", err)
	}
	if len(byShop) != 1 || byShop[0].ID != input.Session.ID {
		t.Fatalf("expected one session for shop, got %#v", byShop)
	}

	history, err := queries.ConversationHistory.Query(ctx, agentquery.ConversationHistoryMessage{
		ConversationID: conversationID,
	})
	if err != nil {
		t.Fatalf("conversation history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two history messages, got %d", len(history))
	}
	if history[0].Role != core.MessageRoleUser || history[1].Role != core.MessageRoleAssistant {
		t.Fatalf("expected user then assistant ordering, got %#v", history)
	}

	accountURL, err := queries.AccountURL.Query(ctx, agentquery.AccountURLMessage{
		ConversationID: conversationID,
	})
	if err != nil {
		t.Fatalf("account url: %v", err)
	}
	if accountURL != input.AccountURL {
		t.Fatalf("expected account url %q, got %q", input.AccountURL, accountURL)
	}

	// The configured domain validator fences writes; foreign hosts never
	// reach the session store.
	_, err = svc.StoreSession(ctx, core.Session{
		ID:   "sess_downstream_rejected",
		Shop: "checkout.example.com",
	})
	if !core.IsBadInput(err) {
		t.Fatalf("expected bad-input for foreign shop domain, got %v", err)
	}
	if _, err := svc.LoadSession(ctx, "sess_downstream_rejected"); !core.IsNotFound(err) {
		t.Fatalf("expected rejected session to stay unpersisted, got %v", err)
	}
}

type checkoutAuthRuntime interface {
	ConsumeVerifier(ctx context.Context, state string) (core.CodeVerifier, error)
	StoreSession(ctx context.Context, session core.Session) (core.Session, error)
	UpsertCustomerToken(ctx context.Context, in core.UpsertCustomerTokenInput) (core.CustomerToken, error)
	SetAccountURL(ctx context.Context, conversationID string, url string) (core.CustomerAccountURL, error)
	AppendMessage(ctx context.Context, in core.AppendMessageInput) (core.Message, error)
}

type checkoutAuthInput struct {
	ConversationID string
	State          string
	AccountURL     string
	Session        core.Session
}

type tokenExchangeFunc func(ctx context.Context, verifier string) (accessToken string, expiresAt time.Time, err error)

// checkoutAuthFlow is the downstream host's side of the OAuth callback: it
// recovers the verifier, exchanges it out-of-band, and persists the outcome
// through the runtime without touching store internals.
type checkoutAuthFlow struct {
	runtime checkoutAuthRuntime
}

func (f checkoutAuthFlow) CompleteAuthorization(
	ctx context.Context,
	in checkoutAuthInput,
	exchange tokenExchangeFunc,
) (core.CustomerToken, error) {
	if f.runtime == nil {
		return core.CustomerToken{}, fmt.Errorf("runtime is required")
	}
	if exchange == nil {
		return core.CustomerToken{}, fmt.Errorf("token exchange is required")
	}

	record, err := f.runtime.ConsumeVerifier(ctx, in.State)
	if err != nil {
		return core.CustomerToken{}, err
	}
	accessToken, expiresAt, err := exchange(ctx, record.Verifier)
	if err != nil {
		return core.CustomerToken{}, err
	}

	if _, err := f.runtime.StoreSession(ctx, in.Session); err != nil {
		return core.CustomerToken{}, err
	}
	token, err := f.runtime.UpsertCustomerToken(ctx, core.UpsertCustomerTokenInput{
		ConversationID: in.ConversationID,
		AccessToken:    accessToken,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return core.CustomerToken{}, err
	}
	if _, err := f.runtime.SetAccountURL(ctx, in.ConversationID, in.AccountURL); err != nil {
		return core.CustomerToken{}, err
	}
	if _, err := f.runtime.AppendMessage(ctx, core.AppendMessageInput{
		ConversationID: in.ConversationID,
		Role:           core.MessageRoleAssistant,
		Content:        "you're signed in, pulling up your orders",
	}); err != nil {
		return core.CustomerToken{}, err
	}
	return token, nil
}

type downstreamPersistenceConfig struct {
	driver string
	server string
}

func (c downstreamPersistenceConfig) GetDebug() bool {
	return false
}

func (c downstreamPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c downstreamPersistenceConfig) GetServer() string {
	return c.server
}

func (c downstreamPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c downstreamPersistenceConfig) GetOtelIdentifier() string {
	return "dh-shop-agent-tests"
}

func newDownstreamSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:agent-composition-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := downstreamPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = agentmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != agentmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, agentmigrations.WithValidationTargets(agentmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
