// ABOUTME: HTTP-backed session scopes: gorilla/sessions cookies and JWT bearer tokens
// ABOUTME: A Provider opens a scope per request; Save flushes changes to the response

package session

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// CookieName is the session cookie name.
const CookieName = "socialcore"

// TokenHeader carries a freshly minted bearer token back to the client.
const TokenHeader = "X-Session-Token"

// RequestScope is a Scope bound to one HTTP exchange.
type RequestScope interface {
	Scope
	Save(w http.ResponseWriter) error
}

// Provider opens the session scope for a request.
type Provider interface {
	Open(r *http.Request) (RequestScope, error)
}

// CookieOptions configures the cookie provider.
type CookieOptions struct {
	// Keys are hash/block key pairs as accepted by securecookie. When empty
	// a random hash key is generated and sessions do not survive restarts.
	Keys   [][]byte
	MaxAge int
	Secure bool
}

// CookieProvider stores session values in a signed cookie.
type CookieProvider struct {
	store *sessions.CookieStore
}

// NewCookieProvider creates a cookie-backed provider.
func NewCookieProvider(opts CookieOptions) *CookieProvider {
	keys := opts.Keys
	if len(keys) == 0 {
		keys = [][]byte{securecookie.GenerateRandomKey(64)}
	}
	store := sessions.NewCookieStore(keys...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieProvider{store: store}
}

// Open loads the cookie session. A cookie that fails to decode starts a fresh session.
func (p *CookieProvider) Open(r *http.Request) (RequestScope, error) {
	sess, err := p.store.Get(r, CookieName)
	if err != nil {
		if sess == nil {
			return nil, fmt.Errorf("opening session: %w", err)
		}
		sess.Values = make(map[interface{}]interface{})
	}
	return &cookieScope{sess: sess, r: r}, nil
}

type cookieScope struct {
	sess *sessions.Session
	r    *http.Request
}

func (c *cookieScope) Get(key string) (string, bool) {
	v, ok := c.sess.Values[key].(string)
	return v, ok
}

func (c *cookieScope) Set(key, value string) {
	c.sess.Values[key] = value
}

func (c *cookieScope) Delete(key string) {
	delete(c.sess.Values, key)
}

func (c *cookieScope) Save(w http.ResponseWriter) error {
	return c.sess.Save(c.r, w)
}

// TokenProvider reads the bound identity from an Authorization bearer token
// and returns a new token in TokenHeader whenever the binding changes.
type TokenProvider struct {
	signer *JWTSigner
}

// NewTokenProvider creates a bearer-token provider.
func NewTokenProvider(signer *JWTSigner) *TokenProvider {
	return &TokenProvider{signer: signer}
}

// Open verifies any bearer token on the request. Invalid or expired tokens
// yield an unauthenticated scope rather than an error.
func (p *TokenProvider) Open(r *http.Request) (RequestScope, error) {
	scope := &tokenScope{signer: p.signer, values: make(map[string]string)}
	if tok, ok := bearerToken(r.Header.Get("Authorization")); ok {
		if id, err := p.signer.Verify(tok); err == nil {
			scope.values[identityKey] = id
		}
	}
	return scope, nil
}

type tokenScope struct {
	signer *JWTSigner
	values map[string]string
	dirty  bool
}

func (t *tokenScope) Get(key string) (string, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t *tokenScope) Set(key, value string) {
	t.values[key] = value
	t.dirty = true
}

func (t *tokenScope) Delete(key string) {
	delete(t.values, key)
	t.dirty = true
}

// Save mints a token for the current binding. Clearing the binding sends an
// empty header; the client is expected to discard its token.
func (t *tokenScope) Save(w http.ResponseWriter) error {
	if !t.dirty {
		return nil
	}
	id, ok := t.values[identityKey]
	if !ok || id == "" {
		w.Header().Set(TokenHeader, "")
		return nil
	}
	tok, err := t.signer.Generate(id)
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}
	w.Header().Set(TokenHeader, tok)
	return nil
}

// Chain uses the token provider for requests that carry an Authorization
// header and the cookie provider otherwise.
type Chain struct {
	Token  *TokenProvider
	Cookie *CookieProvider
}

func (c Chain) Open(r *http.Request) (RequestScope, error) {
	if c.Token != nil && (r.Header.Get("Authorization") != "" || c.Cookie == nil) {
		return c.Token.Open(r)
	}
	return c.Cookie.Open(r)
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}
