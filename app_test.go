package fulfillment

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shopify-fulfillment/command"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/providers/devkit"
	"github.com/goliatone/go-shopify-fulfillment/providers/shopify"
	"github.com/goliatone/go-shopify-fulfillment/query"
	"github.com/goliatone/go-shopify-fulfillment/trigger"
)

const (
	testShop   = "demo.myshopify.com"
	testSecret = "hush"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.API.APIKey = "key"
	cfg.API.APISecretKey = testSecret
	return cfg
}

func TestNew_RequiresAPISecret(t *testing.T) {
	_, err := New(DefaultConfig(),
		WithSessionStore(devkit.NewSessionStoreFixture()),
		WithAdminClient(devkit.NewAdminClientFixture()),
	)
	if err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestApp_OrdersUpdatedDeliverySubmitsFulfillmentRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := devkit.NewSessionStoreFixture(core.Session{Shop: testShop, AccessToken: "shpat_token"})
	client := devkit.NewAdminClientFixture().WithOrders("450789469", core.FulfillmentOrder{ID: 1046000778})
	metrics := &devkit.CaptureMetricsRecorder{}

	app, err := New(testConfig(),
		WithSessionStore(store),
		WithAdminClient(client),
		WithMetricsRecorder(metrics),
	)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer app.Close()

	router := gin.New()
	if err := app.RegisterRoutes(router); err != nil {
		t.Fatalf("register routes: %v", err)
	}

	body := []byte(`{"id":450789469}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", bytes.NewReader(body))
	req.Header.Set(shopify.HeaderHMAC, shopify.SignatureHeader(testSecret, body))
	req.Header.Set(shopify.HeaderWebhookID, "wh-1")
	req.Header.Set(shopify.HeaderTopic, "orders/updated")
	req.Header.Set(shopify.HeaderShopDomain, testShop)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	requests := client.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one fulfillment request, got %d", len(requests))
	}
	if requests[0].Request.Message != core.FulfillmentRequestMessage || !requests[0].Options.Update {
		t.Fatalf("unexpected request %#v", requests[0])
	}
	if got := metrics.CounterTotal("fulfillment.trigger.total", map[string]string{"status": "submitted"}); got != 1 {
		t.Fatalf("expected one submitted trigger metric, got %v", got)
	}
}

func TestApp_UnknownShopIsAcknowledged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client := devkit.NewAdminClientFixture()
	app, err := New(testConfig(),
		WithSessionStore(devkit.NewSessionStoreFixture()),
		WithAdminClient(client),
	)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	router := gin.New()
	_ = app.RegisterRoutes(router)
	body := []byte(`{"id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", bytes.NewReader(body))
	req.Header.Set(shopify.HeaderHMAC, shopify.SignatureHeader(testSecret, body))
	req.Header.Set(shopify.HeaderWebhookID, "wh-2")
	req.Header.Set(shopify.HeaderTopic, "orders/updated")
	req.Header.Set(shopify.HeaderShopDomain, "ghost.myshopify.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected acknowledgement, got %d", w.Code)
	}
	if len(client.ListCalls()) != 0 {
		t.Fatalf("expected no admin calls, got %v", client.ListCalls())
	}
}

func TestApp_SQLiteStorageRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.SessionStorage.DSN = fmt.Sprintf("file:app-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	client := devkit.NewAdminClientFixture().WithOrders("42", core.FulfillmentOrder{ID: 7})

	app, err := New(cfg, WithAdminClient(client))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}()

	if app.Commands().SaveSession == nil {
		t.Fatalf("expected save session command for sql storage")
	}
	ctx := context.Background()
	err = app.Commands().SaveSession.Execute(ctx, command.SaveSessionMessage{
		Session: core.Session{Shop: testShop, AccessToken: "shpat_token", Scope: "read_orders"},
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}

	lookup, err := app.Queries().LookupSession.Query(ctx, query.LookupSessionMessage{Shop: testShop})
	if err != nil || !lookup.Found {
		t.Fatalf("expected stored session, got %#v (%v)", lookup, err)
	}

	collector := gocmd.NewResult[trigger.Result]()
	err = app.Commands().FulfillOrder.Execute(gocmd.ContextWithResult(ctx, collector), command.FulfillOrderMessage{Shop: testShop, OrderID: "42"})
	if err != nil {
		t.Fatalf("fulfill order: %v", err)
	}
	result, _ := collector.Load()
	if !result.Submitted() || result.FulfillmentOrderID != 7 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestNew_WarnsOnMissingFulfillmentScopes(t *testing.T) {
	logger := devkit.NewCaptureLogger()
	cfg := testConfig()
	cfg.API.Scopes = []string{"read_products"}

	_, err := New(cfg,
		WithLogger(logger),
		WithSessionStore(devkit.NewSessionStoreFixture()),
		WithAdminClient(devkit.NewAdminClientFixture()),
	)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if _, ok := logger.Find("warn", "configured scopes cannot run the fulfillment flow"); !ok {
		t.Fatalf("expected missing scope warning, got %#v", logger.Entries())
	}
}

func TestApp_NilReceivers(t *testing.T) {
	var app *App
	if err := app.Close(); err != nil {
		t.Fatalf("expected nil close, got %v", err)
	}
	if err := app.RegisterRoutes(gin.New()); err == nil {
		t.Fatalf("expected error registering routes on nil app")
	}
	if result := app.Fulfill(context.Background(), testShop, "1"); result.Status != trigger.StatusUpstreamFailure {
		t.Fatalf("expected upstream failure, got %#v", result)
	}
}

func TestGetMigrationsFS(t *testing.T) {
	for _, name := range []string{
		"data/sql/migrations/00001_shopify_sessions.up.sql",
		"data/sql/migrations/sqlite/00001_shopify_sessions.up.sql",
	} {
		if _, err := fs.Stat(GetMigrationsFS(), name); err != nil {
			t.Fatalf("expected %s in migrations fs: %v", name, err)
		}
	}
}
