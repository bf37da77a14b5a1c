// ABOUTME: Tests for password and SSO signup/login, logout, whoami, and founder bootstrap
// ABOUTME: Uses MockStore with a low bcrypt cost and a real token codec

package identity

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/socialcore/internal/session"
	"github.com/2389/socialcore/internal/store"
	"github.com/2389/socialcore/internal/token"
	"github.com/2389/socialcore/internal/validate"
)

func newCodec(t *testing.T, b byte) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(bytes.Repeat([]byte{b}, token.KeySize))
	require.NoError(t, err)
	return c
}

func newResolver(t *testing.T, codec TokenCodec) (*Resolver, *store.MockStore) {
	t.Helper()
	s := store.NewMockStore()
	return NewResolver(s, Options{Codec: codec, BcryptCost: bcrypt.MinCost}), s
}

func TestSignupAndLogin(t *testing.T) {
	r, s := newResolver(t, nil)
	ctx := context.Background()

	scope := session.NewMapScope()
	ident, err := r.Signup(ctx, scope, "alice", "alice@example.com", "s3cret!")
	require.NoError(t, err)
	bound, err := session.Current(scope)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, bound)

	stored, err := s.GetIdentity(ctx, ident.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", stored.PasswordHash)

	scope = session.NewMapScope()
	got, err := r.Login(ctx, scope, "alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, ident.ID, got.ID)
	bound, _ = session.Current(scope)
	assert.Equal(t, ident.ID, bound)
}

func TestSignup_Validation(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()

	tests := []struct {
		username, email, password, field string
	}{
		{"bad name", "a@b.com", "s3cret", "username"},
		{"thirteenchars", "a@b.com", "s3cret", "username"},
		{"alice", "nope", "s3cret", "email"},
		{"alice", "a@b.com", "abc", "password"},
		{"alice", "a@b.com", "bad pass", "password"},
	}
	for _, tt := range tests {
		scope := session.NewMapScope()
		_, err := r.Signup(ctx, scope, tt.username, tt.email, tt.password)
		var ve *validate.Error
		require.ErrorAs(t, err, &ve, "%+v", tt)
		assert.Equal(t, tt.field, ve.Field)
		_, err = session.Current(scope)
		assert.ErrorIs(t, err, session.ErrUnauthenticated)
	}
}

func TestSignup_Duplicates(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()
	_, err := r.Signup(ctx, session.NewMapScope(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = r.Signup(ctx, session.NewMapScope(), "alice", "other@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = r.Signup(ctx, session.NewMapScope(), "bob", "alice@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()
	_, err := r.Signup(ctx, session.NewMapScope(), "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	scope := session.NewMapScope()
	_, err = r.Login(ctx, scope, "alice", "wrong1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = r.Login(ctx, scope, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = session.Current(scope)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}

func TestSSO_Disabled(t *testing.T) {
	r, _ := newResolver(t, nil)
	ctx := context.Background()
	assert.False(t, r.SSOEnabled())

	_, err := r.SignupViaToken(ctx, session.NewMapScope(), "", "", "")
	assert.ErrorIs(t, err, ErrSSODisabled)
	_, err = r.LoginViaToken(ctx, session.NewMapScope(), "")
	assert.ErrorIs(t, err, ErrSSODisabled)
}

func TestSSO_SignupThenLogin(t *testing.T) {
	codec := newCodec(t, 9)
	r, s := newResolver(t, codec)
	ctx := context.Background()

	tok, err := codec.Encrypt("carol")
	require.NoError(t, err)

	scope := session.NewMapScope()
	ident, err := r.SignupViaToken(ctx, scope, "carol", "carol@example.com", tok)
	require.NoError(t, err)
	bound, _ := session.Current(scope)
	assert.Equal(t, ident.ID, bound)

	stored, _ := s.GetIdentity(ctx, ident.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(codec.DerivePassword("carol"))))

	// a fresh token for the same user logs in
	tok2, err := codec.Encrypt("carol")
	require.NoError(t, err)
	scope = session.NewMapScope()
	got, err := r.LoginViaToken(ctx, scope, tok2)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, got.ID)

	// the derived password also works on the plain login path
	_, err = r.Login(ctx, session.NewMapScope(), "carol", codec.DerivePassword("carol"))
	assert.NoError(t, err)
}

func TestSSO_SignupUsernameMismatch(t *testing.T) {
	codec := newCodec(t, 9)
	r, s := newResolver(t, codec)
	ctx := context.Background()

	tok, err := codec.Encrypt("mallory")
	require.NoError(t, err)

	_, err = r.SignupViaToken(ctx, session.NewMapScope(), "carol", "carol@example.com", tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	matches, _ := s.FindIdentitiesByUsername(ctx, "carol")
	assert.Empty(t, matches)
}

func TestSSO_BadTokens(t *testing.T) {
	codec := newCodec(t, 9)
	r, _ := newResolver(t, codec)
	ctx := context.Background()

	foreign, err := newCodec(t, 10).Encrypt("carol")
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", foreign} {
		_, err := r.SignupViaToken(ctx, session.NewMapScope(), "carol", "carol@example.com", tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
		_, err = r.LoginViaToken(ctx, session.NewMapScope(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestSSO_LoginUnknownUser(t *testing.T) {
	codec := newCodec(t, 9)
	r, _ := newResolver(t, codec)

	tok, err := codec.Encrypt("ghost")
	require.NoError(t, err)
	_, err = r.LoginViaToken(context.Background(), session.NewMapScope(), tok)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutAndWhoAmI(t *testing.T) {
	r, s := newResolver(t, nil)
	ctx := context.Background()

	scope := session.NewMapScope()
	_, err := r.WhoAmI(ctx, scope)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	ident, err := r.Signup(ctx, scope, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	who, err := r.WhoAmI(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, who.ID)
	assert.False(t, who.Editor)

	require.NoError(t, s.SetEditor(ctx, ident.ID, true))
	who, err = r.WhoAmI(ctx, scope)
	require.NoError(t, err)
	assert.True(t, who.Editor)

	r.Logout(scope)
	_, err = r.WhoAmI(ctx, scope)
	assert.ErrorIs(t, err, session.ErrUnauthenticated)

	ghost := session.NewMapScope()
	session.Bind(ghost, store.NewID())
	_, err = r.WhoAmI(ctx, ghost)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureFounder(t *testing.T) {
	r, s := newResolver(t, nil)
	ctx := context.Background()

	founder, created, err := r.EnsureFounder(ctx, s, "founder", "founder@example.com", "hunter22")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := r.EnsureFounder(ctx, s, "founder", "founder@example.com", "hunter22")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, founder.ID, again.ID)

	scope := session.NewMapScope()
	_, err = r.Login(ctx, scope, "founder", "hunter22")
	require.NoError(t, err)
	who, err := r.WhoAmI(ctx, scope)
	require.NoError(t, err)
	assert.True(t, who.Editor, "founder is an editor")
}

func TestEnsureFounder_AdoptsExistingIdentity(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer st.Close()
	r := NewResolver(st, Options{BcryptCost: bcrypt.MinCost})
	ctx := context.Background()

	existing, err := r.Signup(ctx, session.NewMapScope(), "boss", "boss@example.com", "s3cret")
	require.NoError(t, err)

	founder, created, err := r.EnsureFounder(ctx, st, "ignored", "boss@example.com", "whatever")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, existing.ID, founder.ID)

	got, err := st.Founder(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)
}
