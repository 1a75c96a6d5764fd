package adapthttp

import (
	"net/http"
	"time"

	"bereal/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the optional SSO provider settings.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// Options tunes request limits and optional features.
type Options struct {
	MaxUploadBytes int64
	SessionTTL     time.Duration
	OIDC           OIDCConfig
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	accounts   *app.AccountService
	posts      *app.PostService
	feed       *app.FeedService
	comments   *app.CommentService
	log        *zap.Logger
	maxUpload  int64
	sessionTTL time.Duration
	oidcConfig OIDCConfig
}

// New creates a Server wired to the given application services.
func New(accounts *app.AccountService, posts *app.PostService, feed *app.FeedService,
	comments *app.CommentService, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = app.DefaultSessionTTL
	}
	return &Server{
		accounts:   accounts,
		posts:      posts,
		feed:       feed,
		comments:   comments,
		log:        log,
		maxUpload:  opts.MaxUploadBytes,
		sessionTTL: opts.SessionTTL,
		oidcConfig: opts.OIDC,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("POST /users", s.handleRegister)
	mux.HandleFunc("POST /sessions", s.handleLogin)
	mux.HandleFunc("DELETE /sessions/{token}", s.handleLogout)
	mux.HandleFunc("GET /auth/config", s.handleConfig)
	mux.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)
	mux.Handle("GET /me", s.authMiddleware(http.HandlerFunc(s.handleMe)))

	mux.HandleFunc("POST /posts", s.handleSubmitPost)
	mux.Handle("GET /posts", s.authMiddleware(http.HandlerFunc(s.handleFeed)))
	mux.Handle("GET /posts/{id}", s.authMiddleware(http.HandlerFunc(s.handleGetPost)))
	mux.Handle("GET /blobs/{ref}", s.authMiddleware(http.HandlerFunc(s.handleBlob)))

	mux.HandleFunc("POST /comments", s.handleAddComment)
	mux.HandleFunc("GET /comments", s.handleListComments)

	return s.loggingMiddleware(withNoCache(mux))
}
