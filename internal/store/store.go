// ABOUTME: Graph store interface and data types for socialcore persistence
// ABOUTME: Defines Identity, Page, Edge, PendingComment, GraphRoot and the Store interface

package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned when creating an identity with a taken username
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned when creating an identity with an email already in use
var ErrEmailExists = errors.New("email already exists")

// Identity is a registered user node in the graph.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Editor       bool
	CreatedAt    time.Time
}

// Page is a content node comments are attached to, addressed by URL.
type Page struct {
	ID        string
	URL       string
	Title     string
	CreatedAt time.Time
}

// EdgeKind identifies the relationship an edge represents.
type EdgeKind string

const (
	EdgeKindComment EdgeKind = "comment"
	EdgeKindStar    EdgeKind = "star"
)

// Edge connects an author identity to a page.
type Edge struct {
	ID        string
	Kind      EdgeKind
	AuthorID  string
	PageID    string
	Content   string
	Pending   bool
	CreatedAt time.Time
}

// PendingComment is a comment awaiting approval, joined with its author and page.
type PendingComment struct {
	CommentID   string
	AuthorID    string
	AuthorEmail string
	PageID      string
	PageURL     string
	PageTitle   string
	Content     string
	CreatedAt   time.Time
}

// GraphRoot holds service-wide settings owned by the root of the graph.
type GraphRoot struct {
	CommentsModerated bool
	FounderID         string
	UpdatedAt         time.Time
}

// Store is the graph persistence interface.
type Store interface {
	IdentityStore
	GraphStore
	Close() error
}

// IdentityStore holds identity nodes.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity *Identity) error
	GetIdentity(ctx context.Context, id string) (*Identity, error)
	FindIdentitiesByUsername(ctx context.Context, username string) ([]*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	SetEditor(ctx context.Context, id string, editor bool) error
	Founder(ctx context.Context) (*Identity, error)
}

// GraphStore holds pages, edges and the graph root.
type GraphStore interface {
	FindOrCreatePage(ctx context.Context, url, title string) (*Page, error)
	CreateEdge(ctx context.Context, edge *Edge) error
	GetEdge(ctx context.Context, id string) (*Edge, error)
	SetEdgePending(ctx context.Context, id string, pending bool) error
	ListPendingComments(ctx context.Context) ([]*PendingComment, error)
	GraphRoot(ctx context.Context) (*GraphRoot, error)
	SaveGraphRoot(ctx context.Context, root *GraphRoot) error
}

// NewID returns a 128-bit identifier in 32-character hex form.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
