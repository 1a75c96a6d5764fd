package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"bereal/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Error("plain errors are not unique violations")
	}
}

// openTestDB connects to BEREAL_TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("BEREAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BEREAL_TEST_DATABASE_URL not set")
	}
	db, err := Open(url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	name := "pg-" + uuid.NewString()[:8]

	u, err := db.Create(ctx, name, "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := db.Create(ctx, name, "hash"); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	sessions := NewSessionRepo(db)
	token := uuid.NewString()
	if err := sessions.Create(ctx, u.ID, token, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("session Create: %v", err)
	}
	if s, _ := sessions.GetByToken(ctx, token); s == nil || s.UserID != u.ID {
		t.Fatalf("expected session for %s, got %+v", u.ID, s)
	}

	ref := uuid.NewString() + ".png"
	if err := db.PutBlob(ctx, ref, "image/png", []byte{1, 2, 3}); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	b, err := db.GetBlob(ctx, ref)
	if err != nil || b.ContentType != "image/png" || len(b.Data) != 3 {
		t.Fatalf("GetBlob: %+v %v", b, err)
	}
	if _, err := db.GetBlob(ctx, "missing-"+ref); !errors.Is(err, domain.ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}

	captured := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Microsecond)
	p := domain.Post{
		ID: uuid.NewString(), AuthorID: u.ID, Username: name, Caption: "hi", ImageRef: ref,
		CreatedAt: time.Now().UTC(), CapturedAt: &captured,
		Location: &domain.Location{Lat: 52.5, Lon: 13.4},
	}
	if err := db.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	got, err := db.GetPost(ctx, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.CapturedAt == nil || !got.CapturedAt.Equal(captured) || got.Location == nil || got.Location.Lat != 52.5 {
		t.Errorf("optional fields lost: %+v", got)
	}
	if ok, _ := db.HasPostSince(ctx, u.ID, time.Now().Add(-24*time.Hour)); ok {
		t.Error("capture time outside the window must not count")
	}

	if err := db.AddComment(ctx, domain.Comment{ID: uuid.NewString(), PostID: p.ID, Content: "nice", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	comments, err := db.ListComments(ctx, p.ID)
	if err != nil || len(comments) != 1 || comments[0].Content != "nice" {
		t.Errorf("ListComments: %+v %v", comments, err)
	}
}
