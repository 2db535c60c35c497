package httpapp

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mirabellier/backend/internal/auth"
	"github.com/mirabellier/backend/internal/store"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "auth", s.cfg.RateLimits.AuthPerMinute) {
		return
	}
	var req credentialsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("username and password are required"))
		return
	}

	user, token, err := s.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, err)
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  user.Public(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "auth", s.cfg.RateLimits.AuthPerMinute) {
		return
	}
	var req credentialsRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user.Public(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		if err := s.auth.Logout(r.Context(), token); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// handleUpdateMe accepts multipart profile edits: text fields plus optional
// avatar and banner image uploads.
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.allowRateLimit(w, r, "write", s.cfg.RateLimits.WritePerMinute) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if v, ok := formValue(r, "username"); ok && strings.TrimSpace(v) != "" {
		user.Username = strings.TrimSpace(v)
	}
	if v, ok := formValue(r, "bio"); ok {
		user.Bio = v
	}
	if v, ok := formValue(r, "location"); ok {
		user.Location = v
	}
	if v, ok := formValue(r, "website"); ok {
		user.Website = v
	}

	for _, field := range []string{"avatar", "banner"} {
		file, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		filename, err := s.blobs.SaveImage(header.Filename, file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if field == "avatar" {
			user.Avatar = "/images/" + filename
		} else {
			user.Banner = "/images/" + filename
		}
	}

	if err := s.store.UpdateUser(r.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (s *Server) handleGetUserByUsername(w http.ResponseWriter, r *http.Request, username string) {
	decoded, err := url.PathUnescape(username)
	if err != nil {
		decoded = username
	}
	user, err := s.store.GetUserByUsername(r.Context(), decoded)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.store.GetUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	stats, err := s.store.GetUserStats(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDiscordRedirect(w http.ResponseWriter, r *http.Request) {
	if s.discord == nil || !s.discord.Enabled() {
		writeError(w, http.StatusNotFound, errors.New("discord login is not configured"))
		return
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		writeInternalError(w, err)
		return
	}
	state := hex.EncodeToString(buf)
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   int((5 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.discord.AuthURL(state), http.StatusFound)
}

func (s *Server) handleDiscordCallback(w http.ResponseWriter, r *http.Request) {
	if s.discord == nil || !s.discord.Enabled() {
		writeError(w, http.StatusNotFound, errors.New("discord login is not configured"))
		return
	}
	cookie, err := r.Cookie("oauth_state")
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, errors.New("oauth state mismatch"))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing authorization code"))
		return
	}

	profile, err := s.discord.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	user, err := s.auth.FindOrCreateDiscordUser(r.Context(), profile)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	token, err := s.auth.IssueToken(r.Context(), user.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	target := strings.TrimRight(s.cfg.FrontendURL, "/") + "/?token=" + url.QueryEscape(token)
	http.Redirect(w, r, target, http.StatusFound)
}

// formValue distinguishes an absent field from an empty one.
func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}
