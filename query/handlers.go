package query

import (
	"context"

	"github.com/daily-harvest/dh-shop-agent/core"
)

type TokenReader interface {
	CustomerToken(ctx context.Context, conversationID string) (core.CustomerToken, error)
}

type SessionReader interface {
	LoadSession(ctx context.Context, id string) (core.Session, error)
	SessionsByShop(ctx context.Context, shop string) ([]core.Session, error)
}

type ConversationReader interface {
	ConversationHistory(ctx context.Context, conversationID string) ([]core.Message, error)
	AccountURL(ctx context.Context, conversationID string) (string, error)
}

type GetCustomerTokenQuery struct {
	reader TokenReader
}

func NewGetCustomerTokenQuery(reader TokenReader) *GetCustomerTokenQuery {
	return &GetCustomerTokenQuery{reader: reader}
}

func (q *GetCustomerTokenQuery) Query(ctx context.Context, msg GetCustomerTokenMessage) (core.CustomerToken, error) {
	if q == nil || q.reader == nil {
		return core.CustomerToken{}, queryDependencyError("query: token reader is required")
	}
	return q.reader.CustomerToken(ctx, msg.ConversationID)
}

type LoadSessionQuery struct {
	reader SessionReader
}

func NewLoadSessionQuery(reader SessionReader) *LoadSessionQuery {
	return &LoadSessionQuery{reader: reader}
}

func (q *LoadSessionQuery) Query(ctx context.Context, msg LoadSessionMessage) (core.Session, error) {
	if q == nil || q.reader == nil {
		return core.Session{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.LoadSession(ctx, msg.ID)
}

type SessionsByShopQuery struct {
	reader SessionReader
}

func NewSessionsByShopQuery(reader SessionReader) *SessionsByShopQuery {
	return &SessionsByShopQuery{reader: reader}
}

func (q *SessionsByShopQuery) Query(ctx context.Context, msg SessionsByShopMessage) ([]core.Session, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session reader is required")
	}
	return q.reader.SessionsByShop(ctx, msg.Shop)
}

type ConversationHistoryQuery struct {
	reader ConversationReader
}

func NewConversationHistoryQuery(reader ConversationReader) *ConversationHistoryQuery {
	return &ConversationHistoryQuery{reader: reader}
}

func (q *ConversationHistoryQuery) Query(
	ctx context.Context,
	msg ConversationHistoryMessage,
) ([]core.Message, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: conversation reader is required")
	}
	return q.reader.ConversationHistory(ctx, msg.ConversationID)
}

type AccountURLQuery struct {
	reader ConversationReader
}

func NewAccountURLQuery(reader ConversationReader) *AccountURLQuery {
	return &AccountURLQuery{reader: reader}
}

func (q *AccountURLQuery) Query(ctx context.Context, msg AccountURLMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: conversation reader is required")
	}
	return q.reader.AccountURL(ctx, msg.ConversationID)
}
