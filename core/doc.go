// Package core holds the domain types, collaborator contracts, configuration
// and error envelopes shared by the fulfillment app packages.
//
// Components never reach for package-level singletons: every store, client and
// logger is handed to its consumer at construction time.
package core
