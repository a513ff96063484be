package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/daily-harvest/dh-shop-agent/core"
)

func (r *codeVerifierRecord) toDomain() core.CodeVerifier {
	if r == nil {
		return core.CodeVerifier{}
	}
	return core.CodeVerifier{
		ID:        r.ID,
		State:     r.State,
		Verifier:  r.Verifier,
		ExpiresAt: r.ExpiresAt,
	}
}

func newCustomerTokenRecord(in core.UpsertCustomerTokenInput, id string, now time.Time) *customerTokenRecord {
	return &customerTokenRecord{
		ID:             id,
		ConversationID: in.ConversationID,
		AccessToken:    in.AccessToken,
		ExpiresAt:      in.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *customerTokenRecord) toDomain() core.CustomerToken {
	if r == nil {
		return core.CustomerToken{}
	}
	return core.CustomerToken{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		AccessToken:    r.AccessToken,
		ExpiresAt:      r.ExpiresAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r *conversationRecord) toDomain() core.Conversation {
	if r == nil {
		return core.Conversation{}
	}
	return core.Conversation{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newMessageRecord(in core.AppendMessageInput, id string, now time.Time) *messageRecord {
	return &messageRecord{
		ID:             id,
		ConversationID: in.ConversationID,
		Role:           string(in.Role),
		Content:        in.Content,
		CreatedAt:      now,
	}
}

func (r *messageRecord) toDomain() core.Message {
	if r == nil {
		return core.Message{}
	}
	return core.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Role:           core.MessageRole(r.Role),
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}
}

func (r *customerAccountURLRecord) toDomain() core.CustomerAccountURL {
	if r == nil {
		return core.CustomerAccountURL{}
	}
	return core.CustomerAccountURL{
		ConversationID: r.ConversationID,
		URL:            r.URL,
		UpdatedAt:      r.UpdatedAt,
	}
}

func newSessionRecord(session core.Session) (*sessionRecord, error) {
	record := &sessionRecord{
		ID:          session.ID,
		Shop:        session.Shop,
		State:       session.State,
		IsOnline:    session.IsOnline,
		Scope:       session.Scope,
		AccessToken: session.AccessToken,
	}
	if session.Expires != nil {
		expires := session.Expires.UTC()
		record.Expires = &expires
	}
	if session.OnlineAccessInfo != nil {
		payload, err := json.Marshal(session.OnlineAccessInfo)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: marshal online access info: %w", err)
		}
		record.OnlineAccessInfo = payload
	}
	return record, nil
}

func (r *sessionRecord) toDomain() (core.Session, error) {
	if r == nil {
		return core.Session{}, nil
	}
	session := core.Session{
		ID:          r.ID,
		Shop:        r.Shop,
		State:       r.State,
		IsOnline:    r.IsOnline,
		Scope:       r.Scope,
		AccessToken: r.AccessToken,
	}
	if r.Expires != nil {
		expires := r.Expires.UTC()
		session.Expires = &expires
	}
	if len(r.OnlineAccessInfo) > 0 {
		info := &core.OnlineAccessInfo{}
		if err := json.Unmarshal(r.OnlineAccessInfo, info); err != nil {
			return core.Session{}, fmt.Errorf("sqlstore: unmarshal online access info for session %q: %w", r.ID, err)
		}
		session.OnlineAccessInfo = info
	}
	return session, nil
}
