package sqlstore

import "github.com/goliatone/go-paytoken/core"

var (
	_ core.OrderStore           = (*Store)(nil)
	_ core.AuthorizationCounter = (*Store)(nil)
)
