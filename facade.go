package shopagent

import (
	"context"
	"fmt"

	agentcommand "github.com/daily-harvest/dh-shop-agent/command"
	"github.com/daily-harvest/dh-shop-agent/core"
	agentquery "github.com/daily-harvest/dh-shop-agent/query"
)

type CommandQueryService interface {
	agentcommand.MutatingService
	agentquery.TokenReader
	agentquery.SessionReader
}

type Commands struct {
	StoreVerifier      *agentcommand.StoreVerifierCommand
	ConsumeVerifier    *agentcommand.ConsumeVerifierCommand
	UpsertToken        *agentcommand.UpsertCustomerTokenCommand
	StoreSession       *agentcommand.StoreSessionCommand
	DeleteSession      *agentcommand.DeleteSessionCommand
	DeleteSessions     *agentcommand.DeleteSessionsCommand
	EnsureConversation *agentcommand.EnsureConversationCommand
	AppendMessage      *agentcommand.AppendHistoryCommand
	SetAccountURL      *agentcommand.SetAccountURLCommand
	DeleteConversation *agentcommand.DeleteConversationCommand
	RetentionSweep     *agentcommand.RunRetentionSweepCommand
}

type Queries struct {
	GetCustomerToken    *agentquery.GetCustomerTokenQuery
	LoadSession         *agentquery.LoadSessionQuery
	SessionsByShop      *agentquery.SessionsByShopQuery
	ConversationHistory *agentquery.ConversationHistoryQuery
	AccountURL          *agentquery.AccountURLQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	conversationReader agentquery.ConversationReader
}

// WithConversationReader routes history and account-URL queries through the
// given reader instead of the service, letting hosts front them with the
// cached conversation store.
func WithConversationReader(reader agentquery.ConversationReader) FacadeOption {
	return func(options *facadeOptions) {
		options.conversationReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("shopagent: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.conversationReader
	if reader == nil {
		reader = resolveConversationReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		StoreVerifier:      agentcommand.NewStoreVerifierCommand(service),
		ConsumeVerifier:    agentcommand.NewConsumeVerifierCommand(service),
		UpsertToken:        agentcommand.NewUpsertCustomerTokenCommand(service),
		StoreSession:       agentcommand.NewStoreSessionCommand(service),
		DeleteSession:      agentcommand.NewDeleteSessionCommand(service),
		DeleteSessions:     agentcommand.NewDeleteSessionsCommand(service),
		EnsureConversation: agentcommand.NewEnsureConversationCommand(service),
		AppendMessage:      agentcommand.NewAppendHistoryCommand(service),
		SetAccountURL:      agentcommand.NewSetAccountURLCommand(service),
		DeleteConversation: agentcommand.NewDeleteConversationCommand(service),
		RetentionSweep:     agentcommand.NewRunRetentionSweepCommand(service),
	}
	facade.queries = Queries{
		GetCustomerToken:    agentquery.NewGetCustomerTokenQuery(service),
		LoadSession:         agentquery.NewLoadSessionQuery(service),
		SessionsByShop:      agentquery.NewSessionsByShopQuery(service),
		ConversationHistory: agentquery.NewConversationHistoryQuery(reader),
		AccountURL:          agentquery.NewAccountURLQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveConversationReader(service CommandQueryService) agentquery.ConversationReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(agentquery.ConversationReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.ConversationStore == nil {
		return nil
	}
	return storeConversationReader{store: deps.ConversationStore}
}

// storeConversationReader serves conversation reads straight from the store,
// bypassing service-level error mapping.
type storeConversationReader struct {
	store core.ConversationStore
}

func (r storeConversationReader) ConversationHistory(ctx context.Context, conversationID string) ([]core.Message, error) {
	if r.store == nil {
		return nil, fmt.Errorf("shopagent: conversation store is required")
	}
	return r.store.History(ctx, conversationID)
}

func (r storeConversationReader) AccountURL(ctx context.Context, conversationID string) (string, error) {
	if r.store == nil {
		return "", fmt.Errorf("shopagent: conversation store is required")
	}
	return r.store.GetAccountURL(ctx, conversationID)
}

var _ agentquery.ConversationReader = storeConversationReader{}
