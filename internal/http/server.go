package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mirabellier/backend/internal/auth"
	"github.com/mirabellier/backend/internal/blob"
	"github.com/mirabellier/backend/internal/config"
	"github.com/mirabellier/backend/internal/content"
	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/rate"
	"github.com/mirabellier/backend/internal/store"
)

type Server struct {
	store     store.Store
	auth      *auth.Service
	discord   *auth.Discord
	blobs     *blob.Store
	limiter   rate.Limiter
	cfg       config.Config
	templates *Templates
}

func NewServer(st store.Store, authSvc *auth.Service, discord *auth.Discord, blobs *blob.Store, limiter rate.Limiter, cfg config.Config) (*Server, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		store:     st,
		auth:      authSvc,
		discord:   discord,
		blobs:     blobs,
		limiter:   limiter,
		cfg:       cfg,
		templates: tmpl,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/robots.txt":
		s.serveRobotsTxt(w, r)
		return
	case path == "/sitemap.xml":
		s.serveSitemap(w, r)
		return
	case strings.HasPrefix(path, "/blog/"):
		s.handleBlogPage(w, r)
		return
	case strings.HasPrefix(path, "/profile/"):
		s.handleProfilePage(w, r)
		return
	}

	// /images/list and /images/meta/... are API routes; everything else
	// under /images/ and /videos/ is a stored file.
	if strings.HasPrefix(path, "/images/") && path != "/images/list" && !strings.HasPrefix(path, "/images/meta/") {
		s.serveImageFile(w, r)
		return
	}
	if strings.HasPrefix(path, "/videos/") {
		s.serveVideoFile(w, r)
		return
	}

	s.handleAPI(w, r)
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path)

	switch {
	case len(segments) == 1 && segments[0] == "register":
		if r.Method == http.MethodPost {
			s.handleRegister(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "login":
		if r.Method == http.MethodPost {
			s.handleLogin(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "logout":
		if r.Method == http.MethodPost {
			s.handleLogout(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "me":
		if r.Method == http.MethodGet {
			s.handleMe(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleUpdateMe(w, r)
			return
		}
	case len(segments) == 3 && segments[0] == "user" && segments[1] == "by-username":
		if r.Method == http.MethodGet {
			s.handleGetUserByUsername(w, r, segments[2])
			return
		}
	case len(segments) == 2 && segments[0] == "user":
		if r.Method == http.MethodGet {
			s.handleGetUser(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "user" && segments[2] == "stats":
		if r.Method == http.MethodGet {
			s.handleUserStats(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleListPosts(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreatePost(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleGetPost(w, r, segments[1])
			return
		}
		if r.Method == http.MethodPut {
			s.handleUpdatePost(w, r, segments[1])
			return
		}
		if r.Method == http.MethodDelete {
			s.handleDeletePost(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "posts" && segments[2] == "like":
		if r.Method == http.MethodPost {
			s.handlePostLike(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "posts" && segments[2] == "comments":
		if r.Method == http.MethodPost {
			s.handlePostComment(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "tags":
		if r.Method == http.MethodGet {
			s.handleListTags(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "videos":
		if r.Method == http.MethodGet {
			s.handleListVideos(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "upload-video":
		if r.Method == http.MethodPost {
			s.handleUploadVideo(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "videos":
		if r.Method == http.MethodDelete {
			s.handleDeleteVideo(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "videos" && segments[2] == "like":
		if r.Method == http.MethodPost {
			s.handleVideoLike(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "videos" && segments[2] == "comments":
		if r.Method == http.MethodPost {
			s.handleVideoComment(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "pics":
		if r.Method == http.MethodGet {
			s.handleListPics(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "upload-pic":
		if r.Method == http.MethodPost {
			s.handleUploadPic(w, r)
			return
		}
	case len(segments) == 3 && segments[0] == "pics" && segments[2] == "like":
		if r.Method == http.MethodPost {
			s.handlePicLike(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "pics" && segments[2] == "comment":
		if r.Method == http.MethodPost {
			s.handlePicComment(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "anime":
		if r.Method == http.MethodGet {
			s.handleListAnime(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleReplaceAnime(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "anime":
		if r.Method == http.MethodPatch {
			s.handlePatchAnime(w, r, segments[1])
			return
		}
		if r.Method == http.MethodDelete {
			s.handleDeleteAnime(w, r, segments[1])
			return
		}
	case len(segments) == 2 && segments[0] == "images" && segments[1] == "list":
		if r.Method == http.MethodGet {
			s.handleListImages(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "upload-image":
		if r.Method == http.MethodPost {
			s.handleUploadImage(w, r)
			return
		}
	case len(segments) == 3 && segments[0] == "images" && segments[1] == "meta":
		if r.Method == http.MethodGet {
			s.handleImageMeta(w, r, segments[2])
			return
		}
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "discord":
		if r.Method == http.MethodGet {
			s.handleDiscordRedirect(w, r)
			return
		}
	case len(segments) == 3 && segments[0] == "auth" && segments[1] == "discord" && segments[2] == "callback":
		if r.Method == http.MethodGet {
			s.handleDiscordCallback(w, r)
			return
		}
	}

	notFound(w)
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	if limit <= 0 {
		return true
	}
	key := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if ok, retry := s.limiter.Allow(key, limit, time.Minute); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
		return model.User{}, false
	}
	user, err := s.auth.ResolveToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return model.User{}, false
	}
	return user, true
}

// optionalAuth resolves the bearer token when one is present. A missing or
// invalid token yields nil; the request proceeds anonymously.
func (s *Server) optionalAuth(r *http.Request) *model.User {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	user, err := s.auth.ResolveToken(r.Context(), token)
	if err != nil {
		return nil
	}
	return &user
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// userResolver returns a per-request resolver with a small cache, so a
// comment forest with one busy author costs one lookup.
func (s *Server) userResolver(ctx context.Context) content.UserResolver {
	cache := map[string]*model.PublicUser{}
	return func(userID string) *model.PublicUser {
		if cached, ok := cache[userID]; ok {
			return cached
		}
		var pub *model.PublicUser
		if user, err := s.store.GetUser(ctx, userID); err == nil {
			pub = user.Public()
		}
		cache[userID] = pub
		return pub
	}
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": int(retry.Seconds()),
	})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		notFound(w)
		return
	}
	writeInternalError(w, err)
}

// writeInternalError logs the failure and hides the detail from the caller.
func writeInternalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
