package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/uptrace/bun"
)

// sessionRecord maps the platform session table. Column names keep the
// camelCase spelling the install flow writes.
type sessionRecord struct {
	bun.BaseModel `bun:"table:shopify_sessions,alias:ss"`

	ID               string `bun:"id,pk"`
	Shop             string `bun:"shop,notnull"`
	State            string `bun:"state,notnull"`
	IsOnline         bool   `bun:"isOnline,notnull"`
	Scope            string `bun:"scope,nullzero"`
	Expires          *int64 `bun:"expires"`
	AccessToken      string `bun:"accessToken,nullzero"`
	OnlineAccessInfo string `bun:"onlineAccessInfo,nullzero"`
}

func newSessionRecord(session core.Session) *sessionRecord {
	record := &sessionRecord{
		ID:               strings.TrimSpace(session.ID),
		Shop:             session.Shop,
		State:            session.State,
		IsOnline:         session.IsOnline,
		Scope:            session.Scope,
		AccessToken:      session.AccessToken,
		OnlineAccessInfo: session.OnlineAccessInfo,
	}
	if session.Expires != nil {
		seconds := session.Expires.UTC().Unix()
		record.Expires = &seconds
	}
	return record
}

func (r *sessionRecord) toDomain() core.Session {
	if r == nil {
		return core.Session{}
	}
	session := core.Session{
		ID:               r.ID,
		Shop:             r.Shop,
		State:            r.State,
		IsOnline:         r.IsOnline,
		Scope:            r.Scope,
		AccessToken:      r.AccessToken,
		OnlineAccessInfo: r.OnlineAccessInfo,
	}
	if r.Expires != nil {
		expires := time.Unix(*r.Expires, 0).UTC()
		session.Expires = &expires
	}
	return session
}
