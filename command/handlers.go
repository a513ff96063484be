package command

import (
	"context"

	"github.com/daily-harvest/dh-shop-agent/core"
	gocmd "github.com/goliatone/go-command"
)

type MutatingService interface {
	StoreVerifier(ctx context.Context, state string, verifier string) (core.CodeVerifier, error)
	ConsumeVerifier(ctx context.Context, state string) (core.CodeVerifier, error)
	UpsertCustomerToken(ctx context.Context, in core.UpsertCustomerTokenInput) (core.CustomerToken, error)
	StoreSession(ctx context.Context, session core.Session) (core.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessions(ctx context.Context, ids []string) error
	EnsureConversation(ctx context.Context, conversationID string) (core.Conversation, error)
	AppendMessage(ctx context.Context, in core.AppendMessageInput) (core.Message, error)
	SetAccountURL(ctx context.Context, conversationID string, url string) (core.CustomerAccountURL, error)
	DeleteConversation(ctx context.Context, conversationID string) error
	RunRetentionSweep(ctx context.Context) (core.RetentionStats, error)
}

type StoreVerifierCommand struct {
	service MutatingService
}

func NewStoreVerifierCommand(service MutatingService) *StoreVerifierCommand {
	return &StoreVerifierCommand{service: service}
}

func (c *StoreVerifierCommand) Execute(ctx context.Context, msg StoreVerifierMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: verifier service is required")
	}
	out, err := c.service.StoreVerifier(ctx, msg.State, msg.Verifier)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConsumeVerifierCommand struct {
	service MutatingService
}

func NewConsumeVerifierCommand(service MutatingService) *ConsumeVerifierCommand {
	return &ConsumeVerifierCommand{service: service}
}

func (c *ConsumeVerifierCommand) Execute(ctx context.Context, msg ConsumeVerifierMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: verifier service is required")
	}
	out, err := c.service.ConsumeVerifier(ctx, msg.State)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpsertCustomerTokenCommand struct {
	service MutatingService
}

func NewUpsertCustomerTokenCommand(service MutatingService) *UpsertCustomerTokenCommand {
	return &UpsertCustomerTokenCommand{service: service}
}

func (c *UpsertCustomerTokenCommand) Execute(ctx context.Context, msg UpsertCustomerTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.UpsertCustomerToken(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type StoreSessionCommand struct {
	service MutatingService
}

func NewStoreSessionCommand(service MutatingService) *StoreSessionCommand {
	return &StoreSessionCommand{service: service}
}

func (c *StoreSessionCommand) Execute(ctx context.Context, msg StoreSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	out, err := c.service.StoreSession(ctx, msg.Session)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteSessionCommand struct {
	service MutatingService
}

func NewDeleteSessionCommand(service MutatingService) *DeleteSessionCommand {
	return &DeleteSessionCommand{service: service}
}

func (c *DeleteSessionCommand) Execute(ctx context.Context, msg DeleteSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	return c.service.DeleteSession(ctx, msg.ID)
}

type DeleteSessionsCommand struct {
	service MutatingService
}

func NewDeleteSessionsCommand(service MutatingService) *DeleteSessionsCommand {
	return &DeleteSessionsCommand{service: service}
}

func (c *DeleteSessionsCommand) Execute(ctx context.Context, msg DeleteSessionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	return c.service.DeleteSessions(ctx, msg.IDs)
}

type EnsureConversationCommand struct {
	service MutatingService
}

func NewEnsureConversationCommand(service MutatingService) *EnsureConversationCommand {
	return &EnsureConversationCommand{service: service}
}

func (c *EnsureConversationCommand) Execute(ctx context.Context, msg EnsureConversationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: conversation service is required")
	}
	out, err := c.service.EnsureConversation(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AppendHistoryCommand struct {
	service MutatingService
}

func NewAppendHistoryCommand(service MutatingService) *AppendHistoryCommand {
	return &AppendHistoryCommand{service: service}
}

func (c *AppendHistoryCommand) Execute(ctx context.Context, msg AppendHistoryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: conversation service is required")
	}
	out, err := c.service.AppendMessage(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SetAccountURLCommand struct {
	service MutatingService
}

func NewSetAccountURLCommand(service MutatingService) *SetAccountURLCommand {
	return &SetAccountURLCommand{service: service}
}

func (c *SetAccountURLCommand) Execute(ctx context.Context, msg SetAccountURLMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: conversation service is required")
	}
	out, err := c.service.SetAccountURL(ctx, msg.ConversationID, msg.URL)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteConversationCommand struct {
	service MutatingService
}

func NewDeleteConversationCommand(service MutatingService) *DeleteConversationCommand {
	return &DeleteConversationCommand{service: service}
}

func (c *DeleteConversationCommand) Execute(ctx context.Context, msg DeleteConversationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: conversation service is required")
	}
	return c.service.DeleteConversation(ctx, msg.ConversationID)
}

type RunRetentionSweepCommand struct {
	service MutatingService
}

func NewRunRetentionSweepCommand(service MutatingService) *RunRetentionSweepCommand {
	return &RunRetentionSweepCommand{service: service}
}

func (c *RunRetentionSweepCommand) Execute(ctx context.Context, msg RunRetentionSweepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: retention service is required")
	}
	out, err := c.service.RunRetentionSweep(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
