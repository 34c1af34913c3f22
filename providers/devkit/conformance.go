package devkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-shopify-fulfillment/core"
)

func ValidateTransportAdapterConformance(
	ctx context.Context,
	adapter core.TransportAdapter,
	request core.TransportRequest,
) error {
	if adapter == nil {
		return fmt.Errorf("devkit: transport adapter is required")
	}
	if strings.TrimSpace(adapter.Kind()) == "" {
		return fmt.Errorf("devkit: transport adapter kind is required")
	}
	_, err := adapter.Do(ctx, request)
	return err
}

// ValidateSessionStoreConformance writes a session through writer and checks
// that store finds it by exact shop and misses on a case variant.
func ValidateSessionStoreConformance(
	ctx context.Context,
	store core.SessionStore,
	writer core.SessionWriter,
	session core.Session,
) error {
	if store == nil || writer == nil {
		return fmt.Errorf("devkit: session store and writer are required")
	}
	if _, err := writer.Save(ctx, session); err != nil {
		return fmt.Errorf("devkit: save session: %w", err)
	}
	found, ok, err := store.FindByShop(ctx, session.Shop)
	if err != nil {
		return fmt.Errorf("devkit: find session: %w", err)
	}
	if !ok {
		return fmt.Errorf("devkit: saved session for %q not found", session.Shop)
	}
	if found.AccessToken != session.AccessToken {
		return fmt.Errorf("devkit: session access token mismatch")
	}
	variant := strings.ToUpper(session.Shop)
	if variant == session.Shop {
		return nil
	}
	if _, ok, err := store.FindByShop(ctx, variant); err != nil || ok {
		return fmt.Errorf("devkit: shop lookup must be exact, %q matched=%v err=%v", variant, ok, err)
	}
	return nil
}
