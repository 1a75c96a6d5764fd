// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"bereal/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := parseJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	user, token, err := s.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.setSessionCookie(w, r, token)
	writeJSON(w, http.StatusCreated, map[string]string{
		"userId":       user.ID,
		"sessionToken": token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := parseJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	token, err := s.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.setSessionCookie(w, r, token)
	writeJSON(w, http.StatusCreated, map[string]string{"sessionToken": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Logout(r.Context(), r.PathValue("token")); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	posted, err := s.posts.HasPostedToday(r.Context(), user.ID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":         user.ID,
		"username":       user.Username,
		"hasPostedToday": posted,
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sso_enabled": s.oidcConfig.Enabled,
	})
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if !s.oidcConfig.Enabled {
		writeError(w, http.StatusNotFound, errors.New("sso disabled"))
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode, // Lax required for cross-site redirect returns
		MaxAge:   300,
	})
	http.Redirect(w, r, s.oidcConfig.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oidcConfig.Enabled {
		writeError(w, http.StatusNotFound, errors.New("sso disabled"))
		return
	}

	state, err := r.Cookie("oauth_state")
	if err != nil || !app.ConstantTimeCompare(r.URL.Query().Get("state"), state.Value) {
		writeError(w, http.StatusBadRequest, errors.New("invalid state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", MaxAge: -1, Path: "/"})

	token, err := s.oidcConfig.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.Warn("sso exchange failed", zap.Error(err))
		writeError(w, http.StatusUnauthorized, errors.New("failed to exchange token"))
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		writeError(w, http.StatusUnauthorized, errors.New("no id_token"))
		return
	}

	verifier := s.oidcConfig.Provider.Verifier(&oidc.Config{ClientID: s.oidcConfig.OAuth2Config.ClientID})
	idToken, err := verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.Warn("sso token rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, errors.New("failed to verify token"))
		return
	}

	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err := idToken.Claims(&claims); err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("failed to parse claims"))
		return
	}

	username := claims.Email
	if username == "" {
		username = claims.Sub
	}

	sessionToken, err := s.accounts.LoginWithUser(r.Context(), username)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	s.setSessionCookie(w, r, sessionToken)
	writeJSON(w, http.StatusOK, map[string]string{"sessionToken": sessionToken})
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
