// Package moderation manages the pending/approved lifecycle of comments.
//
// A comment is an author-to-page edge with a pending flag. New comments
// start pending when the graph root's moderation setting is on. Approve
// clears the flag on one comment; SetModeration(false) approves all of
// them best-effort and returns a BulkResult naming what failed. Callers
// are expected to authorize administrative use before calling in.
package moderation
