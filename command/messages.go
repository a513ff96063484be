package command

import (
	"strings"

	"github.com/daily-harvest/dh-shop-agent/core"
)

const (
	TypeStoreVerifier       = "agent.command.verifier.store"
	TypeConsumeVerifier     = "agent.command.verifier.consume"
	TypeUpsertCustomerToken = "agent.command.token.upsert"
	TypeStoreSession        = "agent.command.session.store"
	TypeDeleteSession       = "agent.command.session.delete"
	TypeDeleteSessions      = "agent.command.session.delete_many"
	TypeEnsureConversation  = "agent.command.conversation.ensure"
	TypeAppendMessage       = "agent.command.conversation.append_message"
	TypeSetAccountURL       = "agent.command.conversation.set_account_url"
	TypeDeleteConversation  = "agent.command.conversation.delete"
	TypeRunRetentionSweep   = "agent.command.retention.sweep"
)

type StoreVerifierMessage struct {
	State    string
	Verifier string
}

func (StoreVerifierMessage) Type() string { return TypeStoreVerifier }

func (m StoreVerifierMessage) Validate() error {
	if strings.TrimSpace(m.State) == "" {
		return commandValidationError("state", "oauth state is required")
	}
	if strings.TrimSpace(m.Verifier) == "" {
		return commandValidationError("verifier", "code verifier is required")
	}
	return nil
}

type ConsumeVerifierMessage struct {
	State string
}

func (ConsumeVerifierMessage) Type() string { return TypeConsumeVerifier }

func (m ConsumeVerifierMessage) Validate() error {
	if strings.TrimSpace(m.State) == "" {
		return commandValidationError("state", "oauth state is required")
	}
	return nil
}

type UpsertCustomerTokenMessage struct {
	Input core.UpsertCustomerTokenInput
}

func (UpsertCustomerTokenMessage) Type() string { return TypeUpsertCustomerToken }

func (m UpsertCustomerTokenMessage) Validate() error {
	if strings.TrimSpace(m.Input.ConversationID) == "" {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	if strings.TrimSpace(m.Input.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	if m.Input.ExpiresAt.IsZero() {
		return commandValidationError("expires_at", "token expiry is required")
	}
	return nil
}

type StoreSessionMessage struct {
	Session core.Session
}

func (StoreSessionMessage) Type() string { return TypeStoreSession }

func (m StoreSessionMessage) Validate() error {
	if err := m.Session.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid session")
	}
	return nil
}

type DeleteSessionMessage struct {
	ID string
}

func (DeleteSessionMessage) Type() string { return TypeDeleteSession }

func (m DeleteSessionMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return commandValidationError("id", "session id is required")
	}
	return nil
}

type DeleteSessionsMessage struct {
	IDs []string
}

func (DeleteSessionsMessage) Type() string { return TypeDeleteSessions }

func (m DeleteSessionsMessage) Validate() error {
	if len(m.IDs) == 0 {
		return commandValidationError("ids", "at least one session id is required")
	}
	for _, id := range m.IDs {
		if strings.TrimSpace(id) == "" {
			return commandInvalidInputError("command: session ids must not be blank")
		}
	}
	return nil
}

type EnsureConversationMessage struct {
	ConversationID string
}

func (EnsureConversationMessage) Type() string { return TypeEnsureConversation }

func (m EnsureConversationMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	return nil
}

type AppendHistoryMessage struct {
	Input core.AppendMessageInput
}

func (AppendHistoryMessage) Type() string { return TypeAppendMessage }

func (m AppendHistoryMessage) Validate() error {
	if strings.TrimSpace(m.Input.ConversationID) == "" {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	if err := m.Input.Role.Validate(); err != nil {
		return commandWrapValidation(err, "command: invalid message role")
	}
	if strings.TrimSpace(m.Input.Content) == "" {
		return commandValidationError("content", "message content is required")
	}
	return nil
}

type SetAccountURLMessage struct {
	ConversationID string
	URL            string
}

func (SetAccountURLMessage) Type() string { return TypeSetAccountURL }

func (m SetAccountURLMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	if strings.TrimSpace(m.URL) == "" {
		return commandValidationError("url", "customer account url is required")
	}
	return nil
}

type DeleteConversationMessage struct {
	ConversationID string
}

func (DeleteConversationMessage) Type() string { return TypeDeleteConversation }

func (m DeleteConversationMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return commandValidationError("conversation_id", "conversation id is required")
	}
	return nil
}

type RunRetentionSweepMessage struct{}

func (RunRetentionSweepMessage) Type() string { return TypeRunRetentionSweep }

func (RunRetentionSweepMessage) Validate() error { return nil }
