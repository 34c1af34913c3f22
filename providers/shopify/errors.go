package shopify

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shopify-fulfillment/core"
)

var (
	ErrTransportNotConfigured = errors.New("providers/shopify: transport adapter is required")
	ErrAPIVersionRequired     = errors.New("providers/shopify: api version is required")
)

func badInput(message string, metadata map[string]any) error {
	return core.BadInputError(message, metadata)
}

func wrapBadInput(source error, message string, metadata map[string]any) error {
	return core.WrapError(source, goerrors.CategoryBadInput, message, http.StatusBadRequest, core.ErrorBadInput, metadata)
}

// upstreamError reports a non-2xx admin API response. The upstream status and
// the normalized rate limit headers travel in the metadata.
func upstreamError(operation string, meta core.ProviderResponseMeta) error {
	metadata := copyAnyMap(meta.Metadata)
	metadata["operation"] = operation
	metadata["status_code"] = meta.StatusCode
	if meta.RetryAfter != nil {
		metadata["retry_after"] = meta.RetryAfter.String()
	}
	return core.NewError(
		fmt.Sprintf("providers/shopify: %s returned status %d", operation, meta.StatusCode),
		goerrors.CategoryExternal,
		http.StatusBadGateway,
		core.ErrorUpstreamFailed,
		metadata,
	)
}

func wrapUpstream(source error, operation string, message string) error {
	return core.WrapError(
		source,
		goerrors.CategoryExternal,
		message,
		http.StatusBadGateway,
		core.ErrorUpstreamFailed,
		map[string]any{"operation": operation},
	)
}
