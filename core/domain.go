package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidMessageRole    = errors.New("core: invalid message role")
	ErrInvalidSessionRecord  = errors.New("core: invalid session record")
	ErrInvalidRetentionScope = errors.New("core: invalid retention scope")
)

// CodeVerifier is a single-use PKCE verifier bound to an OAuth state
// correlator. It is destroyed on first successful consume or on expiry.
type CodeVerifier struct {
	ID        string
	State     string
	Verifier  string
	ExpiresAt time.Time
}

func (v CodeVerifier) Expired(now time.Time) bool {
	return !v.ExpiresAt.After(now)
}

// CustomerToken holds the one access token a conversation may carry. Writes
// replace the token in place, keeping the row identity stable.
type CustomerToken struct {
	ID             string
	ConversationID string
	AccessToken    string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (t CustomerToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Conversation is created lazily on first reference. UpdatedAt moves on every
// dependent write, including bare existence checks.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
	MessageRoleTool      MessageRole = "tool"
)

func (r MessageRole) Validate() error {
	switch r {
	case MessageRoleUser, MessageRoleAssistant, MessageRoleSystem, MessageRoleTool:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidMessageRole, string(r))
}

// Message is append-only chat history. Rows are immutable once written and
// cascade-delete with their owning conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	CreatedAt      time.Time
}

// CustomerAccountURL binds a conversation to the customer account endpoint
// resolved for it. At most one row per conversation, upsert semantics.
type CustomerAccountURL struct {
	ConversationID string
	URL            string
	UpdatedAt      time.Time
}

// AssociatedUser carries the per-user metadata attached to an online access
// token. Field names follow the upstream token payload.
type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AccountOwner  bool   `json:"account_owner"`
	Locale        string `json:"locale"`
	Collaborator  bool   `json:"collaborator"`
}

type OnlineAccessInfo struct {
	ExpiresIn           int            `json:"expires_in"`
	AssociatedUserScope string         `json:"associated_user_scope"`
	AssociatedUser      AssociatedUser `json:"associated_user"`
}

func (o *OnlineAccessInfo) Clone() *OnlineAccessInfo {
	if o == nil {
		return nil
	}
	copied := *o
	return &copied
}

// Session is one stored auth session keyed by an opaque id, with a secondary
// non-unique lookup by shop. Expires and OnlineAccessInfo stay nil for
// offline sessions.
type Session struct {
	ID               string
	Shop             string
	State            string
	IsOnline         bool
	Scope            string
	AccessToken      string
	Expires          *time.Time
	OnlineAccessInfo *OnlineAccessInfo
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSessionRecord)
	}
	if strings.TrimSpace(s.Shop) == "" {
		return fmt.Errorf("%w: empty shop", ErrInvalidSessionRecord)
	}
	return nil
}

func (s Session) Expired(now time.Time) bool {
	if s.Expires == nil {
		return false
	}
	return !s.Expires.After(now)
}

func (s Session) Clone() Session {
	copied := s
	if s.Expires != nil {
		expires := *s.Expires
		copied.Expires = &expires
	}
	copied.OnlineAccessInfo = s.OnlineAccessInfo.Clone()
	return copied
}

// RetentionScope names a class of expirable rows the sweeper may purge.
type RetentionScope string

const (
	RetentionScopeVerifiers RetentionScope = "verifiers"
	RetentionScopeTokens    RetentionScope = "tokens"
	RetentionScopeSessions  RetentionScope = "sessions"
)

func (s RetentionScope) Validate() error {
	switch s {
	case RetentionScopeVerifiers, RetentionScopeTokens, RetentionScopeSessions:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRetentionScope, string(s))
}
