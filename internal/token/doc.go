// Package token implements the single sign-on protocol shared with an
// upstream identity provider.
//
// The provider and this service hold the same 32-byte key. The provider
// encrypts a username into a token; Codec.Decrypt recovers it. Identities
// created through SSO never see a user-chosen password: DerivePassword
// computes one from the username and key, so the same value can provision
// the account at signup and re-authenticate it on every later SSO login.
package token
