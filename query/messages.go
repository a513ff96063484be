package query

import "strings"

const (
	TypeGetCustomerToken    = "agent.query.token.get"
	TypeLoadSession         = "agent.query.session.load"
	TypeSessionsByShop      = "agent.query.session.by_shop"
	TypeConversationHistory = "agent.query.conversation.history"
	TypeAccountURL          = "agent.query.conversation.account_url"
)

type GetCustomerTokenMessage struct {
	ConversationID string
}

func (GetCustomerTokenMessage) Type() string { return TypeGetCustomerToken }

func (m GetCustomerTokenMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return queryValidationError("conversation_id", "conversation id is required")
	}
	return nil
}

type LoadSessionMessage struct {
	ID string
}

func (LoadSessionMessage) Type() string { return TypeLoadSession }

func (m LoadSessionMessage) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return queryValidationError("id", "session id is required")
	}
	return nil
}

type SessionsByShopMessage struct {
	Shop string
}

func (SessionsByShopMessage) Type() string { return TypeSessionsByShop }

func (m SessionsByShopMessage) Validate() error {
	if strings.TrimSpace(m.Shop) == "" {
		return queryValidationError("shop", "shop domain is required")
	}
	return nil
}

type ConversationHistoryMessage struct {
	ConversationID string
}

func (ConversationHistoryMessage) Type() string { return TypeConversationHistory }

func (m ConversationHistoryMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return queryValidationError("conversation_id", "conversation id is required")
	}
	return nil
}

type AccountURLMessage struct {
	ConversationID string
}

func (AccountURLMessage) Type() string { return TypeAccountURL }

func (m AccountURLMessage) Validate() error {
	if strings.TrimSpace(m.ConversationID) == "" {
		return queryValidationError("conversation_id", "conversation id is required")
	}
	return nil
}
