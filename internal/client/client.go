// Package client talks to the bereal HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bereal/internal/app"
	"bereal/internal/domain"
)

// ErrNetworkFailure wraps transport errors: the request may not have reached
// the server.
var ErrNetworkFailure = errors.New("network failure")

// APIError is a non-2xx response. Its message is the server's error text and
// it unwraps to the matching app sentinel when there is one.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.kind }

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL. A nil hc selects a client
// with a 30s timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Me is the caller's profile.
type Me struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	HasPostedToday bool   `json:"hasPostedToday"`
}

// Post is a photo submission.
type Post struct {
	Image      []byte
	Caption    string
	CapturedAt *time.Time
	Location   *domain.Location
}

// Register creates an account and returns its id and a session token.
func (c *Client) Register(ctx context.Context, username, password string) (string, string, error) {
	var out struct {
		UserID       string `json:"userId"`
		SessionToken string `json:"sessionToken"`
	}
	err := c.do(ctx, http.MethodPost, "/users", "", map[string]string{
		"username": username, "password": password,
	}, &out)
	return out.UserID, out.SessionToken, err
}

// Authenticate opens a session.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	var out struct {
		SessionToken string `json:"sessionToken"`
	}
	err := c.do(ctx, http.MethodPost, "/sessions", "", map[string]string{
		"username": username, "password": password,
	}, &out)
	return out.SessionToken, err
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return app.ErrInvalidSession
	}
	return c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(token), "", nil, nil)
}

// Me returns the session's user.
func (c *Client) Me(ctx context.Context, token string) (Me, error) {
	var out Me
	err := c.do(ctx, http.MethodGet, "/me", token, nil, &out)
	return out, err
}

// SubmitPost uploads a photo.
func (c *Client) SubmitPost(ctx context.Context, token string, p Post) (domain.Post, error) {
	body := map[string]any{
		"imageBlob": p.Image,
		"caption":   p.Caption,
	}
	if p.CapturedAt != nil {
		body["capturedAt"] = p.CapturedAt.UTC().Format(time.RFC3339Nano)
	}
	if p.Location != nil {
		body["lat"] = p.Location.Lat
		body["lon"] = p.Location.Lon
	}
	var out domain.Post
	err := c.do(ctx, http.MethodPost, "/posts", token, body, &out)
	return out, err
}

// ListFeed returns the feed, newest first, with blur flags for the caller.
func (c *Client) ListFeed(ctx context.Context, token string) ([]domain.FeedEntry, error) {
	var out []domain.FeedEntry
	err := c.do(ctx, http.MethodGet, "/posts?order=-createdAt", token, nil, &out)
	return out, err
}

// FetchBlob downloads image bytes and their content type.
func (c *Client) FetchBlob(ctx context.Context, token, ref string) ([]byte, string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/blobs/"+url.PathEscape(ref), token, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// AddComment comments on a post. token may be empty; an empty authorLabel
// then stays empty.
func (c *Client) AddComment(ctx context.Context, token, postID, authorLabel, content string) (domain.Comment, error) {
	var out domain.Comment
	err := c.do(ctx, http.MethodPost, "/comments", token, map[string]string{
		"postId": postID, "authorLabel": authorLabel, "content": content,
	}, &out)
	return out, err
}

// ListComments returns a post's comments, newest first.
func (c *Client) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	q := url.Values{"postId": {postID}, "order": {"-createdAt"}}
	var out []domain.Comment
	err := c.do(ctx, http.MethodGet, "/comments?"+q.Encode(), "", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.send(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrNetworkFailure, err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError.
func (c *Client) send(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close() //nolint:errcheck

	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)
	return nil, newAPIError(resp.StatusCode, payload.Error)
}

var badRequestKinds = []error{
	app.ErrInvalidCredentialFormat,
	app.ErrEmptyContent,
	app.ErrUndecodableImage,
	app.ErrInvalidLocation,
}

func newAPIError(status int, msg string) *APIError {
	e := &APIError{Status: status, Message: msg}
	switch status {
	case http.StatusConflict:
		e.kind = app.ErrDuplicateUsername
		if strings.HasPrefix(msg, app.ErrFeedSuperseded.Error()) {
			e.kind = app.ErrFeedSuperseded
		}
	case http.StatusUnauthorized:
		e.kind = app.ErrInvalidSession
		if strings.HasPrefix(msg, app.ErrInvalidCredentials.Error()) {
			e.kind = app.ErrInvalidCredentials
		}
	case http.StatusBadRequest:
		for _, k := range badRequestKinds {
			if strings.HasPrefix(msg, k.Error()) {
				e.kind = k
				break
			}
		}
	case http.StatusNotFound:
		e.kind = app.ErrNotFound
	}
	return e
}
