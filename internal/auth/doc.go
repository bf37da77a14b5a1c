// Package auth decides who may administer comment moderation.
//
// Two gates are available and can be combined with AnyOf:
//
//   - HashGate compares a request-supplied hash against
//     md5(lowercase(founderEmail + ":" + founderPassword)). Existing
//     clients compute this value once and send it with every call.
//   - RoleGate checks the identity bound to the caller's session: the
//     founder and identities with the editor flag are admitted.
//
// Every rejection is ErrForbidden. Store failures while resolving the
// session identity are returned as-is so callers can distinguish them.
package auth
