// ABOUTME: Binds a resolved identity to a request-scoped session store
// ABOUTME: Scope abstracts the backing store; Bind/Current/Clear are the only operations

package session

import (
	"errors"
	"sync"
)

// ErrUnauthenticated is returned when no identity is bound to the scope.
var ErrUnauthenticated = errors.New("unauthenticated")

// identityKey is the scope key the bound identity id lives under.
const identityKey = "id"

// Scope is a request-scoped key/value store whose lifetime is owned by the caller.
type Scope interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Bind records identityID as the current identity of scope.
func Bind(scope Scope, identityID string) {
	scope.Set(identityKey, identityID)
}

// Current returns the identity bound to scope, or ErrUnauthenticated.
func Current(scope Scope) (string, error) {
	if scope == nil {
		return "", ErrUnauthenticated
	}
	id, ok := scope.Get(identityKey)
	if !ok || id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}

// Clear removes any bound identity from scope.
func Clear(scope Scope) {
	scope.Delete(identityKey)
}

// MapScope is an in-memory Scope.
type MapScope struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapScope creates an empty MapScope.
func NewMapScope() *MapScope {
	return &MapScope{values: make(map[string]string)}
}

func (m *MapScope) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MapScope) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MapScope) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
