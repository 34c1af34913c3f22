package query

import (
	"context"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

type SessionLookup struct {
	Session core.Session
	Found   bool
}

type LookupSessionQuery struct {
	store core.SessionStore
}

func NewLookupSessionQuery(store core.SessionStore) *LookupSessionQuery {
	return &LookupSessionQuery{store: store}
}

func (q *LookupSessionQuery) Query(ctx context.Context, msg LookupSessionMessage) (SessionLookup, error) {
	if q == nil || q.store == nil {
		return SessionLookup{}, queryDependencyError("query: session store is required")
	}
	if err := msg.Validate(); err != nil {
		return SessionLookup{}, err
	}
	session, found, err := q.store.FindByShop(ctx, msg.Shop)
	if err != nil {
		return SessionLookup{}, err
	}
	return SessionLookup{Session: session, Found: found}, nil
}
