// Package identity resolves who is making a request.
//
// Resolver signs identities up and logs them in either with a password or
// with an SSO token from a trusted upstream provider. Every successful
// path binds the identity id into the caller's session scope.
//
// SSO identities never choose a password. Their password is derived from
// the username and the shared SSO key, hashed at signup like any other,
// and derived again on each token login. Without a configured key both
// token operations fail with ErrSSODisabled before looking at their input.
package identity
