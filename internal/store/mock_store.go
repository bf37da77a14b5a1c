// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject per-call failures

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	identities map[string]*Identity // keyed by identity ID
	pages      map[string]*Page     // keyed by URL
	edges      map[string]*Edge     // keyed by edge ID
	edgeSeq    map[string]int       // keyed by edge ID, insertion order
	nextSeq    int
	root       GraphRoot

	// SetPendingErr, when set, is consulted before every SetEdgePending call.
	SetPendingErr func(id string) error
	// SaveRootErr, when set, is returned by SaveGraphRoot.
	SaveRootErr error
	// SaveRootCalls counts SaveGraphRoot invocations.
	SaveRootCalls int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		identities: make(map[string]*Identity),
		pages:      make(map[string]*Page),
		edges:      make(map[string]*Edge),
		edgeSeq:    make(map[string]int),
	}
}

// CreateIdentity stores a new identity.
func (m *MockStore) CreateIdentity(ctx context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.identities {
		if existing.Username == identity.Username {
			return ErrUsernameExists
		}
		if strings.EqualFold(existing.Email, identity.Email) {
			return ErrEmailExists
		}
	}
	if identity.ID == "" {
		identity.ID = NewID()
	}
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = time.Now()
	}

	i := *identity
	m.identities[i.ID] = &i
	return nil
}

// GetIdentity retrieves an identity by ID.
func (m *MockStore) GetIdentity(ctx context.Context, id string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *i
	return &result, nil
}

// FindIdentitiesByUsername returns every identity with the exact username.
func (m *MockStore) FindIdentitiesByUsername(ctx context.Context, username string) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Identity
	for _, i := range m.identities {
		if i.Username == username {
			c := *i
			result = append(result, &c)
		}
	}
	return result, nil
}

// GetIdentityByEmail retrieves an identity by email, ignoring case.
func (m *MockStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, i := range m.identities {
		if strings.EqualFold(i.Email, email) {
			c := *i
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// SetEditor grants or revokes the editor role.
func (m *MockStore) SetEditor(ctx context.Context, id string, editor bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.identities[id]
	if !ok {
		return ErrNotFound
	}
	i.Editor = editor
	return nil
}

// Founder returns the identity recorded as founder on the graph root.
func (m *MockStore) Founder(ctx context.Context) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.identities[m.root.FounderID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *i
	return &c, nil
}

// FindOrCreatePage returns the page at url, creating it with title if absent.
func (m *MockStore) FindOrCreatePage(ctx context.Context, url, title string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pages[url]
	if !ok {
		p = &Page{ID: NewID(), URL: url, Title: title, CreatedAt: time.Now()}
		m.pages[url] = p
	}
	c := *p
	return &c, nil
}

// CreateEdge stores a new edge.
func (m *MockStore) CreateEdge(ctx context.Context, edge *Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if edge.ID == "" {
		edge.ID = NewID()
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now()
	}
	e := *edge
	m.edges[e.ID] = &e
	m.nextSeq++
	m.edgeSeq[e.ID] = m.nextSeq
	return nil
}

// GetEdge retrieves an edge by ID.
func (m *MockStore) GetEdge(ctx context.Context, id string) (*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.edges[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *e
	return &c, nil
}

// SetEdgePending sets the pending flag on an edge.
func (m *MockStore) SetEdgePending(ctx context.Context, id string, pending bool) error {
	if m.SetPendingErr != nil {
		if err := m.SetPendingErr(id); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.edges[id]
	if !ok {
		return ErrNotFound
	}
	e.Pending = pending
	return nil
}

// ListPendingComments returns every pending comment, oldest first.
func (m *MockStore) ListPendingComments(ctx context.Context) ([]*PendingComment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pagesByID := make(map[string]*Page, len(m.pages))
	for _, p := range m.pages {
		pagesByID[p.ID] = p
	}

	var edges []*Edge
	for _, e := range m.edges {
		if e.Kind == EdgeKindComment && e.Pending {
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].CreatedAt.Before(edges[j].CreatedAt)
		}
		return m.edgeSeq[edges[i].ID] < m.edgeSeq[edges[j].ID]
	})

	result := make([]*PendingComment, 0, len(edges))
	for _, e := range edges {
		author, ok := m.identities[e.AuthorID]
		if !ok {
			continue
		}
		page, ok := pagesByID[e.PageID]
		if !ok {
			continue
		}
		result = append(result, &PendingComment{
			CommentID:   e.ID,
			AuthorID:    author.ID,
			AuthorEmail: author.Email,
			PageID:      page.ID,
			PageURL:     page.URL,
			PageTitle:   page.Title,
			Content:     e.Content,
			CreatedAt:   e.CreatedAt,
		})
	}
	return result, nil
}

// GraphRoot reads the graph-root settings.
func (m *MockStore) GraphRoot(ctx context.Context) (*GraphRoot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.root
	return &r, nil
}

// SaveGraphRoot persists the graph-root settings.
func (m *MockStore) SaveGraphRoot(ctx context.Context, root *GraphRoot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveRootCalls++
	if m.SaveRootErr != nil {
		return m.SaveRootErr
	}
	root.UpdatedAt = time.Now()
	m.root = *root
	return nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

var (
	_ Store = (*MockStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
