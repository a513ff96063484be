package query

import (
	"github.com/daily-harvest/dh-shop-agent/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[GetCustomerTokenMessage, core.CustomerToken] = (*GetCustomerTokenQuery)(nil)
	_ gocmd.Querier[LoadSessionMessage, core.Session]            = (*LoadSessionQuery)(nil)
	_ gocmd.Querier[SessionsByShopMessage, []core.Session]       = (*SessionsByShopQuery)(nil)
	_ gocmd.Querier[ConversationHistoryMessage, []core.Message]  = (*ConversationHistoryQuery)(nil)
	_ gocmd.Querier[AccountURLMessage, string]                   = (*AccountURLQuery)(nil)
)
