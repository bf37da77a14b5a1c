// Package gateway serves socialcore over HTTP.
//
// # Overview
//
// New wires every component from a config.Config: the SQLite graph store,
// the SSO codec, the passcode backend and mailer, the admin gate, the
// session provider, and the service facade. Run serves until its context is
// canceled and then shuts down gracefully.
//
// # HTTP API
//
// Inputs are read from query or form values. Every reply is JSON:
//
//	{"success": true, ...}
//	{"success": false, "reason": "Invalid hash", "code": "forbidden"}
//
// Routes:
//
//	POST /signup                 username, email, password
//	POST /signupViaToken         username, email, token
//	POST /login                  username, password
//	POST /loginViaToken          token
//	POST /logout
//	GET  /whoami
//	POST /resetPassword          email
//	POST /verifyReset            email, code
//	GET  /getPendingComments     hash
//	POST /approvePendingComment  hash, comment_id
//	POST /setCommentModeration   hash, moderated
//	GET  /getCommentModeration   hash
//	POST /addComment             url, title, content
//	GET  /health
//	GET  /metrics                when metrics.enabled
//
// Admin routes also accept a session belonging to the founder or an editor
// when admin.mode is role or either.
//
// # Sessions
//
// With session.mode cookie the session lives in a signed cookie. With token
// the client sends "Authorization: Bearer <jwt>" and receives a fresh token
// in the X-Session-Token header whenever its binding changes. Mode both
// prefers the bearer token when one is present.
package gateway
