// Package webhooks holds the topic handler table and the HTTP delivery layer
// that verifies a webhook, resolves its handler and answers the platform.
//
// Compliance topics only decode their payload. ORDERS_UPDATED runs the
// fulfillment trigger and hands its result to an OutcomeHandler; the default
// one always acknowledges the delivery.
package webhooks
