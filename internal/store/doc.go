// Package store provides persistence for the social graph using SQLite.
//
// # Architecture
//
// Store is composed of two narrower interfaces so consumers can depend on
// only what they use:
//
//   - IdentityStore: identity nodes, username/email lookup, founder
//   - GraphStore: pages, author-to-page edges, and the graph root
//
// SQLiteStore implements both against either modernc.org/sqlite (pure Go,
// driver name "sqlite") or mattn/go-sqlite3 (cgo, driver name "sqlite3").
// MockStore is an in-memory implementation for tests that also supports
// injecting per-call failures.
//
// # Data Models
//
//   - Identity: a user node with a bcrypt password hash and an editor flag
//   - Page: a node addressed by URL that comments attach to
//   - Edge: an author-to-page relationship; comments carry content and a
//     pending flag
//   - GraphRoot: the single root row holding the comment moderation
//     setting and the founder reference
//
// All identifiers are 128-bit values in 32-character hex form (NewID).
// Timestamps are stored as fixed-width UTC text so they sort lexically.
//
// # Errors
//
//   - ErrNotFound: entity does not exist
//   - ErrUsernameExists / ErrEmailExists: uniqueness conflicts on create
package store
