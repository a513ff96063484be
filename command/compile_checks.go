package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[StoreVerifierMessage]       = (*StoreVerifierCommand)(nil)
	_ gocmd.Commander[ConsumeVerifierMessage]     = (*ConsumeVerifierCommand)(nil)
	_ gocmd.Commander[UpsertCustomerTokenMessage] = (*UpsertCustomerTokenCommand)(nil)
	_ gocmd.Commander[StoreSessionMessage]        = (*StoreSessionCommand)(nil)
	_ gocmd.Commander[DeleteSessionMessage]       = (*DeleteSessionCommand)(nil)
	_ gocmd.Commander[DeleteSessionsMessage]      = (*DeleteSessionsCommand)(nil)
	_ gocmd.Commander[EnsureConversationMessage]  = (*EnsureConversationCommand)(nil)
	_ gocmd.Commander[AppendHistoryMessage]       = (*AppendHistoryCommand)(nil)
	_ gocmd.Commander[SetAccountURLMessage]       = (*SetAccountURLCommand)(nil)
	_ gocmd.Commander[DeleteConversationMessage]  = (*DeleteConversationCommand)(nil)
	_ gocmd.Commander[RunRetentionSweepMessage]   = (*RunRetentionSweepCommand)(nil)
)
