// Package authcore provides an embeddable credential engine with bcrypt
// password storage, signed session and reset tokens, a one-time-code password
// recovery flow, and a cache-aside layer over the backing user store.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [CredentialStore] and [Notifier] contracts, and value types
// (UserSummary, LoginResult, MetricsSnapshot). Token signing lives in token/,
// hashing in password/, cache backends in cache/, and store implementations
// in store/.
//
// # What this package must NOT do
//
//   - Expose Redis clients, SQL handles, or cache encoding details in its
//     public API.
//   - Treat cache failures as request failures. The store is authoritative;
//     the cache is an optimization.
//   - Return token-verification detail to callers. Any bad reset token is the
//     single [ErrTokenInvalid] outcome.
package authcore
