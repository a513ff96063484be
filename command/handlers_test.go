package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/daily-harvest/dh-shop-agent/core"
	gocmd "github.com/goliatone/go-command"
)

func TestStoreVerifierCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.CodeVerifier{ID: "ver_1", State: "st_1", Verifier: "secret"}
	called := false

	svc := stubMutatingService{
		storeVerifierFn: func(_ context.Context, state string, verifier string) (core.CodeVerifier, error) {
			called = true
			if state != "st_1" || verifier != "secret" {
				t.Fatalf("unexpected verifier payload: %q %q", state, verifier)
			}
			return expected, nil
		},
	}

	cmd := NewStoreVerifierCommand(svc)
	collector := gocmd.NewResult[core.CodeVerifier]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, StoreVerifierMessage{State: "st_1", Verifier: "secret"})
	if err != nil {
		t.Fatalf("execute store verifier: %v", err)
	}
	if !called {
		t.Fatalf("expected store verifier invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.State != expected.State {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("consume verifier", func(t *testing.T) {
		expected := core.CodeVerifier{ID: "ver_1", State: "st_1", Verifier: "secret"}
		called := false
		svc := stubMutatingService{
			consumeVerifierFn: func(_ context.Context, state string) (core.CodeVerifier, error) {
				called = true
				if state != "st_1" {
					t.Fatalf("unexpected consume state %q", state)
				}
				return expected, nil
			},
		}
		cmd := NewConsumeVerifierCommand(svc)
		collector := gocmd.NewResult[core.CodeVerifier]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, ConsumeVerifierMessage{State: "st_1"}); err != nil {
			t.Fatalf("execute consume verifier: %v", err)
		}
		if !called {
			t.Fatalf("expected consume verifier invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected consume verifier result")
		}
		if stored.Verifier != expected.Verifier {
			t.Fatalf("unexpected verifier result: %#v", stored)
		}
	})

	t.Run("upsert customer token", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(time.Hour)
		called := false
		svc := stubMutatingService{
			upsertCustomerTokenFn: func(_ context.Context, in core.UpsertCustomerTokenInput) (core.CustomerToken, error) {
				called = true
				if in.ConversationID != "conv_1" || in.AccessToken != "tok" {
					t.Fatalf("unexpected token input: %#v", in)
				}
				return core.CustomerToken{ID: "tok_1", ConversationID: in.ConversationID}, nil
			},
		}
		cmd := NewUpsertCustomerTokenCommand(svc)
		collector := gocmd.NewResult[core.CustomerToken]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, UpsertCustomerTokenMessage{Input: core.UpsertCustomerTokenInput{
			ConversationID: "conv_1",
			AccessToken:    "tok",
			ExpiresAt:      expiresAt,
		}}); err != nil {
			t.Fatalf("execute upsert token: %v", err)
		}
		if !called {
			t.Fatalf("expected upsert token invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected upsert token result")
		}
		if stored.ID != "tok_1" {
			t.Fatalf("unexpected token result: %#v", stored)
		}
	})

	t.Run("session commands", func(t *testing.T) {
		session := core.Session{ID: "sess_1", Shop: "demo.myshopify.com"}
		calledStore := false
		calledDelete := false
		calledDeleteMany := false
		svc := stubMutatingService{
			storeSessionFn: func(_ context.Context, in core.Session) (core.Session, error) {
				calledStore = true
				if in.ID != session.ID {
					t.Fatalf("unexpected session id %q", in.ID)
				}
				return in, nil
			},
			deleteSessionFn: func(_ context.Context, id string) error {
				calledDelete = true
				if id != session.ID {
					t.Fatalf("unexpected delete id %q", id)
				}
				return nil
			},
			deleteSessionsFn: func(_ context.Context, ids []string) error {
				calledDeleteMany = true
				if len(ids) != 2 {
					t.Fatalf("unexpected delete ids %v", ids)
				}
				return nil
			},
		}

		storeCollector := gocmd.NewResult[core.Session]()
		storeCtx := gocmd.ContextWithResult(context.Background(), storeCollector)
		if err := NewStoreSessionCommand(svc).Execute(storeCtx, StoreSessionMessage{Session: session}); err != nil {
			t.Fatalf("execute store session: %v", err)
		}
		if !calledStore {
			t.Fatalf("expected store session invocation")
		}
		if _, ok := storeCollector.Load(); !ok {
			t.Fatalf("expected store session result")
		}

		if err := NewDeleteSessionCommand(svc).Execute(context.Background(), DeleteSessionMessage{ID: session.ID}); err != nil {
			t.Fatalf("execute delete session: %v", err)
		}
		if !calledDelete {
			t.Fatalf("expected delete session invocation")
		}

		if err := NewDeleteSessionsCommand(svc).Execute(context.Background(), DeleteSessionsMessage{IDs: []string{"sess_1", "sess_2"}}); err != nil {
			t.Fatalf("execute delete sessions: %v", err)
		}
		if !calledDeleteMany {
			t.Fatalf("expected delete sessions invocation")
		}
	})

	t.Run("conversation commands", func(t *testing.T) {
		calledEnsure := false
		calledAppend := false
		calledSetURL := false
		calledDelete := false
		svc := stubMutatingService{
			ensureConversationFn: func(_ context.Context, conversationID string) (core.Conversation, error) {
				calledEnsure = true
				if conversationID != "conv_1" {
					t.Fatalf("unexpected ensure id %q", conversationID)
				}
				return core.Conversation{ID: conversationID}, nil
			},
			appendMessageFn: func(_ context.Context, in core.AppendMessageInput) (core.Message, error) {
				calledAppend = true
				if in.Role != core.MessageRoleUser {
					t.Fatalf("unexpected role %q", in.Role)
				}
				return core.Message{ID: "msg_1", ConversationID: in.ConversationID, Role: in.Role, Content: in.Content}, nil
			},
			setAccountURLFn: func(_ context.Context, conversationID string, url string) (core.CustomerAccountURL, error) {
				calledSetURL = true
				if url != "https://shopify.com/authentication/1" {
					t.Fatalf("unexpected account url %q", url)
				}
				return core.CustomerAccountURL{ConversationID: conversationID, URL: url}, nil
			},
			deleteConversationFn: func(_ context.Context, conversationID string) error {
				calledDelete = true
				if conversationID != "conv_1" {
					t.Fatalf("unexpected delete id %q", conversationID)
				}
				return nil
			},
		}

		ensureCollector := gocmd.NewResult[core.Conversation]()
		ensureCtx := gocmd.ContextWithResult(context.Background(), ensureCollector)
		if err := NewEnsureConversationCommand(svc).Execute(ensureCtx, EnsureConversationMessage{ConversationID: "conv_1"}); err != nil {
			t.Fatalf("execute ensure conversation: %v", err)
		}
		if !calledEnsure {
			t.Fatalf("expected ensure conversation invocation")
		}
		if _, ok := ensureCollector.Load(); !ok {
			t.Fatalf("expected ensure conversation result")
		}

		appendCollector := gocmd.NewResult[core.Message]()
		appendCtx := gocmd.ContextWithResult(context.Background(), appendCollector)
		if err := NewAppendHistoryCommand(svc).Execute(appendCtx, AppendHistoryMessage{Input: core.AppendMessageInput{
			ConversationID: "conv_1",
			Role:           core.MessageRoleUser,
			Content:        "hello",
		}}); err != nil {
			t.Fatalf("execute append message: %v", err)
		}
		if !calledAppend {
			t.Fatalf("expected append message invocation")
		}
		stored, ok := appendCollector.Load()
		if !ok {
			t.Fatalf("expected append message result")
		}
		if stored.ID != "msg_1" {
			t.Fatalf("unexpected message result: %#v", stored)
		}

		urlCollector := gocmd.NewResult[core.CustomerAccountURL]()
		urlCtx := gocmd.ContextWithResult(context.Background(), urlCollector)
		if err := NewSetAccountURLCommand(svc).Execute(urlCtx, SetAccountURLMessage{
			ConversationID: "conv_1",
			URL:            "https://shopify.com/authentication/1",
		}); err != nil {
			t.Fatalf("execute set account url: %v", err)
		}
		if !calledSetURL {
			t.Fatalf("expected set account url invocation")
		}
		if _, ok := urlCollector.Load(); !ok {
			t.Fatalf("expected set account url result")
		}

		if err := NewDeleteConversationCommand(svc).Execute(context.Background(), DeleteConversationMessage{ConversationID: "conv_1"}); err != nil {
			t.Fatalf("execute delete conversation: %v", err)
		}
		if !calledDelete {
			t.Fatalf("expected delete conversation invocation")
		}
	})

	t.Run("run retention sweep", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			runRetentionSweepFn: func(_ context.Context) (core.RetentionStats, error) {
				called = true
				return core.RetentionStats{VerifiersPurged: 3, TokensPurged: 1}, nil
			},
		}
		cmd := NewRunRetentionSweepCommand(svc)
		collector := gocmd.NewResult[core.RetentionStats]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, RunRetentionSweepMessage{}); err != nil {
			t.Fatalf("execute retention sweep: %v", err)
		}
		if !called {
			t.Fatalf("expected retention sweep invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected retention sweep result")
		}
		if stored.VerifiersPurged != 3 || stored.TokensPurged != 1 {
			t.Fatalf("unexpected retention stats: %#v", stored)
		}
	})
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "store verifier valid",
			msg:     StoreVerifierMessage{State: "st_1", Verifier: "secret"},
			wantErr: false,
		},
		{
			name:    "store verifier missing state",
			msg:     StoreVerifierMessage{Verifier: "secret"},
			wantErr: true,
		},
		{
			name:    "store verifier missing verifier",
			msg:     StoreVerifierMessage{State: "st_1"},
			wantErr: true,
		},
		{
			name:    "consume verifier missing state",
			msg:     ConsumeVerifierMessage{},
			wantErr: true,
		},
		{
			name: "upsert token valid",
			msg: UpsertCustomerTokenMessage{Input: core.UpsertCustomerTokenInput{
				ConversationID: "conv_1",
				AccessToken:    "tok",
				ExpiresAt:      time.Now().UTC().Add(time.Hour),
			}},
			wantErr: false,
		},
		{
			name: "upsert token missing expiry",
			msg: UpsertCustomerTokenMessage{Input: core.UpsertCustomerTokenInput{
				ConversationID: "conv_1",
				AccessToken:    "tok",
			}},
			wantErr: true,
		},
		{
			name:    "store session missing shop",
			msg:     StoreSessionMessage{Session: core.Session{ID: "sess_1"}},
			wantErr: true,
		},
		{
			name:    "store session valid",
			msg:     StoreSessionMessage{Session: core.Session{ID: "sess_1", Shop: "demo.myshopify.com"}},
			wantErr: false,
		},
		{
			name:    "delete sessions empty",
			msg:     DeleteSessionsMessage{},
			wantErr: true,
		},
		{
			name:    "delete sessions blank member",
			msg:     DeleteSessionsMessage{IDs: []string{"sess_1", "  "}},
			wantErr: true,
		},
		{
			name: "append message invalid role",
			msg: AppendHistoryMessage{Input: core.AppendMessageInput{
				ConversationID: "conv_1",
				Role:           core.MessageRole("moderator"),
				Content:        "hello",
			}},
			wantErr: true,
		},
		{
			name: "append message valid",
			msg: AppendHistoryMessage{Input: core.AppendMessageInput{
				ConversationID: "conv_1",
				Role:           core.MessageRoleAssistant,
				Content:        "hello",
			}},
			wantErr: false,
		},
		{
			name:    "set account url missing url",
			msg:     SetAccountURLMessage{ConversationID: "conv_1"},
			wantErr: true,
		},
		{
			name:    "delete conversation missing id",
			msg:     DeleteConversationMessage{},
			wantErr: true,
		},
		{
			name:    "retention sweep always valid",
			msg:     RunRetentionSweepMessage{},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubMutatingService struct {
	storeVerifierFn       func(ctx context.Context, state string, verifier string) (core.CodeVerifier, error)
	consumeVerifierFn     func(ctx context.Context, state string) (core.CodeVerifier, error)
	upsertCustomerTokenFn func(ctx context.Context, in core.UpsertCustomerTokenInput) (core.CustomerToken, error)
	storeSessionFn        func(ctx context.Context, session core.Session) (core.Session, error)
	deleteSessionFn       func(ctx context.Context, id string) error
	deleteSessionsFn      func(ctx context.Context, ids []string) error
	ensureConversationFn  func(ctx context.Context, conversationID string) (core.Conversation, error)
	appendMessageFn       func(ctx context.Context, in core.AppendMessageInput) (core.Message, error)
	setAccountURLFn       func(ctx context.Context, conversationID string, url string) (core.CustomerAccountURL, error)
	deleteConversationFn  func(ctx context.Context, conversationID string) error
	runRetentionSweepFn   func(ctx context.Context) (core.RetentionStats, error)
}

func (s stubMutatingService) StoreVerifier(ctx context.Context, state string, verifier string) (core.CodeVerifier, error) {
	if s.storeVerifierFn == nil {
		return core.CodeVerifier{}, fmt.Errorf("store verifier not configured")
	}
	return s.storeVerifierFn(ctx, state, verifier)
}

func (s stubMutatingService) ConsumeVerifier(ctx context.Context, state string) (core.CodeVerifier, error) {
	if s.consumeVerifierFn == nil {
		return core.CodeVerifier{}, fmt.Errorf("consume verifier not configured")
	}
	return s.consumeVerifierFn(ctx, state)
}

func (s stubMutatingService) UpsertCustomerToken(ctx context.Context, in core.UpsertCustomerTokenInput) (core.CustomerToken, error) {
	if s.upsertCustomerTokenFn == nil {
		return core.CustomerToken{}, fmt.Errorf("upsert customer token not configured")
	}
	return s.upsertCustomerTokenFn(ctx, in)
}

func (s stubMutatingService) StoreSession(ctx context.Context, session core.Session) (core.Session, error) {
	if s.storeSessionFn == nil {
		return core.Session{}, fmt.Errorf("store session not configured")
	}
	return s.storeSessionFn(ctx, session)
}

func (s stubMutatingService) DeleteSession(ctx context.Context, id string) error {
	if s.deleteSessionFn == nil {
		return fmt.Errorf("delete session not configured")
	}
	return s.deleteSessionFn(ctx, id)
}

func (s stubMutatingService) DeleteSessions(ctx context.Context, ids []string) error {
	if s.deleteSessionsFn == nil {
		return fmt.Errorf("delete sessions not configured")
	}
	return s.deleteSessionsFn(ctx, ids)
}

func (s stubMutatingService) EnsureConversation(ctx context.Context, conversationID string) (core.Conversation, error) {
	if s.ensureConversationFn == nil {
		return core.Conversation{}, fmt.Errorf("ensure conversation not configured")
	}
	return s.ensureConversationFn(ctx, conversationID)
}

func (s stubMutatingService) AppendMessage(ctx context.Context, in core.AppendMessageInput) (core.Message, error) {
	if s.appendMessageFn == nil {
		return core.Message{}, fmt.Errorf("append message not configured")
	}
	return s.appendMessageFn(ctx, in)
}

func (s stubMutatingService) SetAccountURL(ctx context.Context, conversationID string, url string) (core.CustomerAccountURL, error) {
	if s.setAccountURLFn == nil {
		return core.CustomerAccountURL{}, fmt.Errorf("set account url not configured")
	}
	return s.setAccountURLFn(ctx, conversationID, url)
}

func (s stubMutatingService) DeleteConversation(ctx context.Context, conversationID string) error {
	if s.deleteConversationFn == nil {
		return fmt.Errorf("delete conversation not configured")
	}
	return s.deleteConversationFn(ctx, conversationID)
}

func (s stubMutatingService) RunRetentionSweep(ctx context.Context) (core.RetentionStats, error) {
	if s.runRetentionSweepFn == nil {
		return core.RetentionStats{}, fmt.Errorf("run retention sweep not configured")
	}
	return s.runRetentionSweepFn(ctx)
}

var _ MutatingService = stubMutatingService{}
