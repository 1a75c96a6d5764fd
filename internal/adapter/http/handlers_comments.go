package adapthttp

import (
	"net/http"
)

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PostID      string `json:"postId"`
		AuthorLabel string `json:"authorLabel"`
		Content     string `json:"content"`
	}
	if err := parseJSON(r, &req); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	// An empty label falls back to the caller's username when signed in.
	label := req.AuthorLabel
	if label == "" {
		if token := sessionToken(r); token != "" {
			if user, err := s.accounts.ValidateSession(r.Context(), token); err == nil {
				label = user.Username
			}
		}
	}

	c, err := s.comments.Add(r.Context(), req.PostID, label, req.Content)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	if err := checkOrder(r); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	postID := r.URL.Query().Get("postId")
	if postID == "" {
		s.writeAppError(w, r, badRequest("postId is required"))
		return
	}
	comments, err := s.comments.List(r.Context(), postID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
