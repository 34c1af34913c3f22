package query

import gocmd "github.com/goliatone/go-command"

var _ gocmd.Querier[LookupSessionMessage, SessionLookup] = (*LookupSessionQuery)(nil)
