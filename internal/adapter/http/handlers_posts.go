package adapthttp

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"bereal/internal/app"
	"bereal/internal/domain"
)

type submitPostRequest struct {
	SessionToken string          `json:"sessionToken"`
	ImageBlob    []byte          `json:"imageBlob"`
	Caption      string          `json:"caption"`
	CapturedAt   json.RawMessage `json:"capturedAt"`
	Lat          json.RawMessage `json:"lat"`
	Lon          json.RawMessage `json:"lon"`
}

// submission is a post body before its fields are validated. Scalars stay
// as text so the session can be checked first.
type submission struct {
	token      string
	image      []byte
	caption    string
	capturedAt string
	lat        string
	lon        string
}

func (s *Server) handleSubmitPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	sub, err := s.readSubmission(r)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	token := sub.token
	if t := sessionToken(r); t != "" {
		token = t
	}
	if _, err := s.accounts.ValidateSession(r.Context(), token); err != nil {
		s.writeAppError(w, r, err)
		return
	}

	in, err := sub.input()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	post, err := s.posts.Submit(r.Context(), token, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// readSubmission decodes a multipart or JSON post body. Only a malformed
// body fails here.
func (s *Server) readSubmission(r *http.Request) (submission, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.readMultipart(r)
	}

	var req submitPostRequest
	if err := parseJSON(r, &req); err != nil {
		return submission{}, err
	}
	sub := submission{token: req.SessionToken, image: req.ImageBlob, caption: req.Caption}
	var err error
	if sub.capturedAt, err = rawScalar("capturedAt", req.CapturedAt); err != nil {
		return submission{}, err
	}
	if sub.lat, err = rawScalar("lat", req.Lat); err != nil {
		return submission{}, err
	}
	if sub.lon, err = rawScalar("lon", req.Lon); err != nil {
		return submission{}, err
	}
	return sub, nil
}

func (s *Server) readMultipart(r *http.Request) (submission, error) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			return submission{}, err
		}
		return submission{}, badRequest("invalid multipart form: %v", err)
	}

	sub := submission{
		token:      r.FormValue("sessionToken"),
		caption:    r.FormValue("caption"),
		capturedAt: r.FormValue("capturedAt"),
		lat:        r.FormValue("lat"),
		lon:        r.FormValue("lon"),
	}
	// a missing image part is left empty and rejected as undecodable
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close() //nolint:errcheck
		if sub.image, err = io.ReadAll(file); err != nil {
			return submission{}, err
		}
	}
	return sub, nil
}

func (sub submission) input() (app.SubmitPostInput, error) {
	in := app.SubmitPostInput{Image: sub.image, Caption: sub.caption}
	var err error
	if in.CapturedAt, err = parseCapturedAt(sub.capturedAt); err != nil {
		return in, err
	}
	lat, err := parseCoord("lat", sub.lat)
	if err != nil {
		return in, err
	}
	lon, err := parseCoord("lon", sub.lon)
	if err != nil {
		return in, err
	}
	if in.Location, err = location(lat, lon); err != nil {
		return in, err
	}
	return in, nil
}

// rawScalar returns a JSON string or number as text; null and absent are
// empty.
func rawScalar(key string, raw json.RawMessage) (string, error) {
	v := strings.TrimSpace(string(raw))
	if v == "" || v == "null" {
		return "", nil
	}
	if strings.HasPrefix(v, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return "", badRequest("invalid %s", key)
		}
		return str, nil
	}
	return v, nil
}

func parseCoord(key, v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, badRequest("invalid %s %q", key, v)
	}
	return &f, nil
}

// location requires both coordinates or neither.
func location(lat, lon *float64) (*domain.Location, error) {
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, app.ErrInvalidLocation
	default:
		return &domain.Location{Lat: *lat, Lon: *lon}, nil
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if err := checkOrder(r); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	user := userFromContext(r.Context())
	entries, err := s.feed.List(r.Context(), user.ID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	blob, err := s.posts.Blob(r.Context(), r.PathValue("ref"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}
