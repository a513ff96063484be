package sqlstore

import "github.com/daily-harvest/dh-shop-agent/core"

var (
	_ core.VerifierStore          = (*VerifierStore)(nil)
	_ core.TokenStore             = (*TokenStore)(nil)
	_ core.SessionStore           = (*SessionStore)(nil)
	_ core.ConversationStore      = (*ConversationStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
