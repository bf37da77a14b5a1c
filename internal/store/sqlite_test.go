// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers identities, uniqueness, pages, edges, pending listing and the graph root

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestIdentity(t *testing.T, s Store, username, email string) *Identity {
	t.Helper()
	ident := &Identity{Username: username, Email: email, PasswordHash: "hash-" + username}
	if err := s.CreateIdentity(context.Background(), ident); err != nil {
		t.Fatalf("CreateIdentity(%s) failed: %v", username, err)
	}
	return ident
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("postgres", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(DriverModernc, ":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	createTestIdentity(t, s, "alice", "alice@example.com")
	got, err := s.FindIdentitiesByUsername(context.Background(), "alice")
	if err != nil || len(got) != 1 {
		t.Fatalf("FindIdentitiesByUsername = %v, %v", got, err)
	}
}

func TestNewID(t *testing.T) {
	id := NewID()
	if len(id) != 32 {
		t.Errorf("NewID length = %d, want 32", len(id))
	}
	if id == NewID() {
		t.Error("NewID returned duplicate values")
	}
}

func TestCreateAndGetIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ident := createTestIdentity(t, s, "alice", "alice@example.com")
	if len(ident.ID) != 32 {
		t.Fatalf("identity ID not assigned: %q", ident.ID)
	}

	got, err := s.GetIdentity(ctx, ident.ID)
	if err != nil {
		t.Fatalf("GetIdentity failed: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" || got.PasswordHash != "hash-alice" {
		t.Errorf("unexpected identity: %+v", got)
	}
	if got.Editor {
		t.Error("new identity should not be an editor")
	}

	if _, err := s.GetIdentity(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetIdentity(missing) = %v, want ErrNotFound", err)
	}
}

func TestCreateIdentity_Duplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestIdentity(t, s, "alice", "alice@example.com")

	err := s.CreateIdentity(ctx, &Identity{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrUsernameExists) {
		t.Errorf("duplicate username = %v, want ErrUsernameExists", err)
	}

	err = s.CreateIdentity(ctx, &Identity{Username: "bob", Email: "ALICE@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email = %v, want ErrEmailExists", err)
	}
}

func TestGetIdentityByEmail_IgnoresCase(t *testing.T) {
	s := newTestStore(t)
	ident := createTestIdentity(t, s, "alice", "Alice@Example.com")

	got, err := s.GetIdentityByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("GetIdentityByEmail failed: %v", err)
	}
	if got.ID != ident.ID {
		t.Errorf("got %s, want %s", got.ID, ident.ID)
	}

	if _, err := s.GetIdentityByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing email = %v, want ErrNotFound", err)
	}
}

func TestSetEditor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ident := createTestIdentity(t, s, "alice", "alice@example.com")

	if err := s.SetEditor(ctx, ident.ID, true); err != nil {
		t.Fatalf("SetEditor failed: %v", err)
	}
	got, _ := s.GetIdentity(ctx, ident.ID)
	if !got.Editor {
		t.Error("editor flag not persisted")
	}

	if err := s.SetEditor(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetEditor(missing) = %v, want ErrNotFound", err)
	}
}

func TestFounder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Founder(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Founder before bootstrap = %v, want ErrNotFound", err)
	}

	ident := createTestIdentity(t, s, "founder", "founder@example.com")
	root, err := s.GraphRoot(ctx)
	if err != nil {
		t.Fatalf("GraphRoot failed: %v", err)
	}
	root.FounderID = ident.ID
	if err := s.SaveGraphRoot(ctx, root); err != nil {
		t.Fatalf("SaveGraphRoot failed: %v", err)
	}

	got, err := s.Founder(ctx)
	if err != nil {
		t.Fatalf("Founder failed: %v", err)
	}
	if got.ID != ident.ID {
		t.Errorf("Founder = %s, want %s", got.ID, ident.ID)
	}
}

func TestFindOrCreatePage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1, err := s.FindOrCreatePage(ctx, "https://example.com/a", "A")
	if err != nil {
		t.Fatalf("FindOrCreatePage failed: %v", err)
	}
	p2, err := s.FindOrCreatePage(ctx, "https://example.com/a", "ignored")
	if err != nil {
		t.Fatalf("FindOrCreatePage failed: %v", err)
	}
	if p1.ID != p2.ID {
		t.Errorf("page recreated: %s vs %s", p1.ID, p2.ID)
	}
	if p2.Title != "A" {
		t.Errorf("title overwritten: %q", p2.Title)
	}
}

func TestEdges_PendingLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	author := createTestIdentity(t, s, "alice", "alice@example.com")
	page, _ := s.FindOrCreatePage(ctx, "https://example.com/post", "Post")

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i, content := range []string{"first", "second", "third"} {
		e := &Edge{
			Kind:      EdgeKindComment,
			AuthorID:  author.ID,
			PageID:    page.ID,
			Content:   content,
			Pending:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateEdge(ctx, e); err != nil {
			t.Fatalf("CreateEdge failed: %v", err)
		}
		ids = append(ids, e.ID)
	}
	star := &Edge{Kind: EdgeKindStar, AuthorID: author.ID, PageID: page.ID, Pending: true}
	if err := s.CreateEdge(ctx, star); err != nil {
		t.Fatalf("CreateEdge(star) failed: %v", err)
	}

	pending, err := s.ListPendingComments(ctx)
	if err != nil {
		t.Fatalf("ListPendingComments failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("got %d pending, want 3", len(pending))
	}
	for i, c := range pending {
		if c.CommentID != ids[i] {
			t.Errorf("pending[%d] = %s, want %s", i, c.CommentID, ids[i])
		}
	}
	first := pending[0]
	if first.AuthorEmail != "alice@example.com" || first.PageURL != "https://example.com/post" ||
		first.PageTitle != "Post" || first.Content != "first" || first.AuthorID != author.ID || first.PageID != page.ID {
		t.Errorf("unexpected pending comment: %+v", first)
	}

	// approving twice is not an error
	for i := 0; i < 2; i++ {
		if err := s.SetEdgePending(ctx, ids[1], false); err != nil {
			t.Fatalf("SetEdgePending failed: %v", err)
		}
	}
	e, err := s.GetEdge(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if e.Pending || e.Kind != EdgeKindComment {
		t.Errorf("unexpected edge after approval: %+v", e)
	}

	pending, _ = s.ListPendingComments(ctx)
	if len(pending) != 2 {
		t.Errorf("got %d pending after approval, want 2", len(pending))
	}

	if err := s.SetEdgePending(ctx, "missing", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetEdgePending(missing) = %v, want ErrNotFound", err)
	}
	if _, err := s.GetEdge(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEdge(missing) = %v, want ErrNotFound", err)
	}
}

func TestGraphRoot_Moderation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	root, err := s.GraphRoot(ctx)
	if err != nil {
		t.Fatalf("GraphRoot failed: %v", err)
	}
	if root.CommentsModerated {
		t.Error("moderation should default to off")
	}

	root.CommentsModerated = true
	if err := s.SaveGraphRoot(ctx, root); err != nil {
		t.Fatalf("SaveGraphRoot failed: %v", err)
	}

	got, _ := s.GraphRoot(ctx)
	if !got.CommentsModerated {
		t.Error("moderation flag not persisted")
	}
}

func TestGraphRoot_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := s.SaveGraphRoot(ctx, &GraphRoot{CommentsModerated: true}); err != nil {
		t.Fatalf("SaveGraphRoot failed: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	root, _ := s.GraphRoot(ctx)
	if !root.CommentsModerated {
		t.Error("moderation flag lost across reopen")
	}
}
