package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type codeVerifierRecord struct {
	bun.BaseModel `bun:"table:agent_code_verifiers,alias:acv"`

	ID        string    `bun:"id,pk"`
	State     string    `bun:"state,notnull"`
	Verifier  string    `bun:"verifier,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

type customerTokenRecord struct {
	bun.BaseModel `bun:"table:agent_customer_tokens,alias:act"`

	ID             string    `bun:"id,pk"`
	ConversationID string    `bun:"conversation_id,notnull"`
	AccessToken    string    `bun:"access_token,notnull"`
	ExpiresAt      time.Time `bun:"expires_at,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type conversationRecord struct {
	bun.BaseModel `bun:"table:agent_conversations,alias:ac"`

	ID        string    `bun:"id,pk"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type messageRecord struct {
	bun.BaseModel `bun:"table:agent_messages,alias:am"`

	ID             string    `bun:"id,pk"`
	ConversationID string    `bun:"conversation_id,notnull"`
	Role           string    `bun:"role,notnull"`
	Content        string    `bun:"content,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type customerAccountURLRecord struct {
	bun.BaseModel `bun:"table:agent_customer_account_urls,alias:acau"`

	ConversationID string    `bun:"conversation_id,pk"`
	URL            string    `bun:"url,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Online access info is held as serialized JSON so the column stays NULL for
// offline sessions.
type sessionRecord struct {
	bun.BaseModel `bun:"table:agent_sessions,alias:ase"`

	ID               string     `bun:"id,pk"`
	Shop             string     `bun:"shop,notnull"`
	State            string     `bun:"state"`
	IsOnline         bool       `bun:"is_online,notnull"`
	Scope            string     `bun:"scope"`
	AccessToken      string     `bun:"access_token"`
	Expires          *time.Time `bun:"expires,nullzero"`
	OnlineAccessInfo []byte     `bun:"online_access_info,nullzero"`
}
