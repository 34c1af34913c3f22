package sqlstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-shopify-fulfillment/core"
	sqlstore "github.com/goliatone/go-shopify-fulfillment/store/sql"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"shopify_sessions",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "shopify_sessions" {
		t.Fatalf("expected shopify_sessions table, got %q", tableName)
	}
}

func TestSessionStore_FindByShopMatchesExactly(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newSessionStore(t)
	defer cleanup()

	for _, session := range []core.Session{
		{ID: "offline_demo.myshopify.com", Shop: "demo.myshopify.com", AccessToken: "token-lower"},
		{ID: "offline_Demo.myshopify.com", Shop: "Demo.myshopify.com", AccessToken: "token-upper"},
		{ID: "offline_demo.myshopify.com.evil", Shop: "demo.myshopify.com.evil", AccessToken: "token-suffix"},
	} {
		if _, err := store.Save(ctx, session); err != nil {
			t.Fatalf("save session %s: %v", session.ID, err)
		}
	}

	found, ok, err := store.FindByShop(ctx, "demo.myshopify.com")
	if err != nil {
		t.Fatalf("find by shop: %v", err)
	}
	if !ok {
		t.Fatalf("expected session to be found")
	}
	if found.AccessToken != "token-lower" {
		t.Fatalf("expected exact-match row, got %#v", found)
	}

	upper, ok, err := store.FindByShop(ctx, "Demo.myshopify.com")
	if err != nil || !ok {
		t.Fatalf("find upper-case shop: ok=%v err=%v", ok, err)
	}
	if upper.AccessToken != "token-upper" {
		t.Fatalf("expected case-sensitive match, got %#v", upper)
	}

	if _, ok, err := store.FindByShop(ctx, " demo.myshopify.com"); err != nil || ok {
		t.Fatalf("expected no normalization of the shop value: ok=%v err=%v", ok, err)
	}
}

func TestSessionStore_FindByShopPrefersOfflineSession(t *testing.T) {
	offline := core.Session{ID: "offline_abc.myshopify.com", Shop: "abc.myshopify.com", AccessToken: "offline-token"}
	expires := time.Now().Add(time.Hour).UTC()
	online := core.Session{
		ID:          "abc.myshopify.com_42",
		Shop:        "abc.myshopify.com",
		IsOnline:    true,
		Expires:     &expires,
		AccessToken: "online-token",
	}

	cases := map[string][]core.Session{
		"offline saved first": {offline, online},
		"online saved first":  {online, offline},
	}
	for name, sessions := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store, cleanup := newSessionStore(t)
			defer cleanup()

			for _, session := range sessions {
				if _, err := store.Save(ctx, session); err != nil {
					t.Fatalf("save session %s: %v", session.ID, err)
				}
			}

			found, ok, err := store.FindByShop(ctx, "abc.myshopify.com")
			if err != nil || !ok {
				t.Fatalf("find by shop: ok=%v err=%v", ok, err)
			}
			if found.ID != offline.ID || found.AccessToken != "offline-token" || found.IsOnline {
				t.Fatalf("expected offline session, got %#v", found)
			}
		})
	}
}

func TestSessionStore_FindByShopOnlineOnly(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newSessionStore(t)
	defer cleanup()

	for _, session := range []core.Session{
		{ID: "abc.myshopify.com_9", Shop: "abc.myshopify.com", IsOnline: true, AccessToken: "user-9"},
		{ID: "abc.myshopify.com_42", Shop: "abc.myshopify.com", IsOnline: true, AccessToken: "user-42"},
	} {
		if _, err := store.Save(ctx, session); err != nil {
			t.Fatalf("save session %s: %v", session.ID, err)
		}
	}
	found, ok, err := store.FindByShop(ctx, "abc.myshopify.com")
	if err != nil || !ok {
		t.Fatalf("find by shop: ok=%v err=%v", ok, err)
	}
	if found.ID != "abc.myshopify.com_42" {
		t.Fatalf("expected id tie-break among online sessions, got %#v", found)
	}
}

func TestSessionStore_FindByShopMissReturnsFalse(t *testing.T) {
	store, cleanup := newSessionStore(t)
	defer cleanup()

	session, ok, err := store.FindByShop(context.Background(), "missing.myshopify.com")
	if err != nil {
		t.Fatalf("find by shop: %v", err)
	}
	if ok {
		t.Fatalf("expected miss, got %#v", session)
	}
	if _, ok, err := store.FindByShop(context.Background(), ""); ok || err != nil {
		t.Fatalf("expected empty shop to miss without error")
	}
}

func TestSessionStore_FindByShopTreatsInputAsParameter(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newSessionStore(t)
	defer cleanup()

	if _, err := store.Save(ctx, core.Session{Shop: "demo.myshopify.com", AccessToken: "token"}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if _, ok, err := store.FindByShop(ctx, "x' OR '1'='1"); err != nil || ok {
		t.Fatalf("expected injection payload to match nothing: ok=%v err=%v", ok, err)
	}
}

func TestSessionStore_SaveRoundTripAndUpdate(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newSessionStore(t)
	defer cleanup()

	expires := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	saved, err := store.Save(ctx, core.Session{
		Shop:             "demo.myshopify.com",
		State:            "state-1",
		IsOnline:         true,
		Scope:            "read_orders,write_orders",
		Expires:          &expires,
		AccessToken:      "token-1",
		OnlineAccessInfo: `{"associated_user":{"id":1}}`,
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
	if saved.ID != "offline_demo.myshopify.com" {
		t.Fatalf("expected offline session id, got %q", saved.ID)
	}

	if _, err := store.Save(ctx, core.Session{
		ID:          saved.ID,
		Shop:        "demo.myshopify.com",
		State:       "state-2",
		AccessToken: "token-2",
	}); err != nil {
		t.Fatalf("update session: %v", err)
	}

	found, ok, err := store.FindByShop(ctx, "demo.myshopify.com")
	if err != nil || !ok {
		t.Fatalf("find by shop: ok=%v err=%v", ok, err)
	}
	if found.AccessToken != "token-2" || found.State != "state-2" {
		t.Fatalf("expected updated row, got %#v", found)
	}
	if found.IsOnline || found.Expires != nil || found.Scope != "" {
		t.Fatalf("expected update to replace optional fields, got %#v", found)
	}
}

func TestSessionStore_SaveRejectsInvalidSession(t *testing.T) {
	store, cleanup := newSessionStore(t)
	defer cleanup()

	_, err := store.Save(context.Background(), core.Session{Shop: "demo.myshopify.com"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input error, got %v", err)
	}
}

func TestSessionStore_ConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	store, cleanup := newSessionStore(t)
	defer cleanup()

	if _, err := store.Save(ctx, core.Session{Shop: "demo.myshopify.com", AccessToken: "token"}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, err := store.FindByShop(ctx, "demo.myshopify.com"); err != nil || !ok {
				errs <- fmt.Errorf("lookup failed: ok=%v err=%v", ok, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), core.SessionStorageConfig{Driver: "mysql", DSN: "x"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.ErrorStorageFailed {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestRepositoryFactory_RequiresClient(t *testing.T) {
	if _, err := sqlstore.NewRepositoryFactoryFromDB(nil); err == nil {
		t.Fatalf("expected missing db error")
	}
}

func newSessionStore(t *testing.T) (*sqlstore.SessionStore, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory.SessionStore(), cleanup
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:sessions-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Open(context.Background(), core.SessionStorageConfig{
		Driver: "sqlite3",
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("open session storage: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}
