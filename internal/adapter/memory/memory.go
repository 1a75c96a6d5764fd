// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bereal/internal/domain"

	"github.com/google/uuid"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	sessions map[string]*domain.Session
	posts    []domain.Post
	comments []domain.Comment
	blobs    map[string]domain.Blob
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
		blobs:    make(map[string]domain.Blob),
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*DB)(nil)
var _ domain.PostRepository = (*DB)(nil)
var _ domain.CommentRepository = (*DB)(nil)
var _ domain.BlobStore = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrUsernameTaken
		}
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// --- PostRepository ---

// CreatePost appends a post.
func (db *DB) CreatePost(ctx context.Context, p domain.Post) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.posts = append(db.posts, p)
	return nil
}

// GetPost retrieves a post by ID.
func (db *DB) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.posts {
		if db.posts[i].ID == id {
			p := db.posts[i]
			return &p, nil
		}
	}
	return nil, nil
}

// ListPosts lists all posts, newest first.
func (db *DB) ListPosts(ctx context.Context) ([]domain.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Post, len(db.posts))
	copy(result, db.posts)

	// stable keeps insertion order between equal timestamps
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// HasPostSince reports whether authorID has a post with photo time after since.
func (db *DB) HasPostSince(ctx context.Context, authorID string, since time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, p := range db.posts {
		if p.AuthorID == authorID && p.PhotoTime().After(since) {
			return true, nil
		}
	}
	return false, nil
}

// --- CommentRepository ---

// AddComment appends a comment.
func (db *DB) AddComment(ctx context.Context, c domain.Comment) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.comments = append(db.comments, c)
	return nil
}

// ListComments lists the comments of a post, newest first.
func (db *DB) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := []domain.Comment{}
	for _, c := range db.comments {
		if c.PostID == postID {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// --- BlobStore ---

// PutBlob stores a copy of data under ref.
func (db *DB) PutBlob(ctx context.Context, ref, contentType string, data []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.blobs[ref] = domain.Blob{
		Ref:         ref,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	}
	return nil
}

// GetBlob returns the blob stored under ref.
func (db *DB) GetBlob(ctx context.Context, ref string) (*domain.Blob, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	b, ok := db.blobs[ref]
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	return &b, nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expiry is left to the caller.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
