package query

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shopify-fulfillment/core"
	"github.com/goliatone/go-shopify-fulfillment/providers/devkit"
)

func TestLookupSessionQuery(t *testing.T) {
	store := devkit.NewSessionStoreFixture(core.Session{ID: "offline_demo.myshopify.com", Shop: "demo.myshopify.com", AccessToken: "tok"})
	q := NewLookupSessionQuery(store)

	out, err := q.Query(context.Background(), LookupSessionMessage{Shop: "demo.myshopify.com"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !out.Found || out.Session.AccessToken != "tok" {
		t.Fatalf("unexpected lookup %#v", out)
	}

	out, err = q.Query(context.Background(), LookupSessionMessage{Shop: "DEMO.myshopify.com"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out.Found {
		t.Fatalf("expected case-sensitive miss, got %#v", out)
	}
}

func TestLookupSessionQuery_Errors(t *testing.T) {
	var nilQuery *LookupSessionQuery
	_, err := nilQuery.Query(context.Background(), LookupSessionMessage{Shop: "x"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected dependency error, got %v", err)
	}

	_, err = NewLookupSessionQuery(devkit.NewSessionStoreFixture()).Query(context.Background(), LookupSessionMessage{})
	if !goerrors.As(err, &rich) || rich.TextCode != core.ErrorBadInput {
		t.Fatalf("expected validation error, got %v", err)
	}

	store := devkit.NewSessionStoreFixture()
	store.Err = errors.New("db down")
	if _, err := NewLookupSessionQuery(store).Query(context.Background(), LookupSessionMessage{Shop: "x"}); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}
