package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/uptrace/bun"
)

const offlineSessionPrefix = "offline_"

type SessionStore struct {
	db   *bun.DB
	repo repository.Repository[*sessionRecord]
}

func NewSessionStore(db *bun.DB) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sessionRecord](db, sessionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session repository wiring: %w", err)
		}
	}
	return &SessionStore{db: db, repo: repo}, nil
}

// FindByShop returns the session whose shop equals shop byte for byte. The
// value is bound as a query parameter; no trimming or case folding is applied.
// The offline session installed for the shop wins over online sessions, whose
// user-scoped tokens expire; remaining ties are broken by id.
func (s *SessionStore) FindByShop(ctx context.Context, shop string) (core.Session, bool, error) {
	if s == nil || s.repo == nil {
		return core.Session{}, false, fmt.Errorf("sqlstore: session store is not configured")
	}
	if shop == "" {
		return core.Session{}, false, nil
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("shop", "=", shop),
		offlineFirst,
		repository.OrderBy("id ASC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Session{}, false, storageError(err, "sqlstore: find session by shop", map[string]any{"shop": shop})
	}
	if len(records) == 0 {
		return core.Session{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

// Save inserts or replaces the session row keyed by id. A missing id becomes
// the offline session id of the shop.
func (s *SessionStore) Save(ctx context.Context, session core.Session) (core.Session, error) {
	if s == nil || s.db == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	if err := session.Validate(); err != nil {
		return core.Session{}, core.WrapError(
			err,
			goerrors.CategoryBadInput,
			"sqlstore: invalid session",
			http.StatusBadRequest,
			core.ErrorBadInput,
			map[string]any{"shop": session.Shop},
		)
	}
	if strings.TrimSpace(session.ID) == "" {
		session.ID = offlineSessionPrefix + session.Shop
	}
	record := newSessionRecord(session)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &sessionRecord{}
		err := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.id = ?", record.ID).
			Limit(1).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}
		if err != nil {
			return err
		}
		_, updateErr := tx.NewUpdate().
			Model(record).
			WherePK().
			Exec(ctx)
		return updateErr
	})
	if err != nil {
		return core.Session{}, storageError(err, "sqlstore: save session", map[string]any{"id": record.ID})
	}
	return record.toDomain(), nil
}

// offlineFirst orders isOnline = false rows first. The column is camelCase, so
// it goes through bun.Ident for dialect quoting.
func offlineFirst(q *bun.SelectQuery) *bun.SelectQuery {
	return q.OrderExpr("?TableAlias.? ASC", bun.Ident("isOnline"))
}

func storageError(source error, message string, metadata map[string]any) error {
	return core.WrapError(
		source,
		goerrors.CategoryInternal,
		message,
		http.StatusInternalServerError,
		core.ErrorStorageFailed,
		metadata,
	)
}
