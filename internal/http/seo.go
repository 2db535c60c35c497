package httpapp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mirabellier/backend/internal/store"
)

// The SEO pages exist for crawlers and link unfurlers: they carry the
// OpenGraph and Twitter metadata the SPA cannot serve, then redirect humans
// into it.

func (s *Server) handleBlogPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/blog/")
	if slug == "" {
		notFound(w)
		return
	}
	post, _, err := s.store.GetPostRow(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		// Shared links often carry a readable slug like my-first-post-<id>;
		// the post id is the trailing UUID.
		if id, ok := trailingPostID(slug); ok {
			post, _, err = s.store.GetPostRow(r.Context(), id)
		}
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	description := post.ShortDescription
	if description == "" {
		description = post.Title
	}
	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")
	data := map[string]any{
		"Title":        post.Title,
		"Description":  description,
		"Author":       post.Author,
		"Image":        absoluteMediaURL(frontend, post.Thumbnail),
		"CreatedAt":    post.CreatedAt,
		"CanonicalURL": frontend + "/blog/" + post.ID,
		"SPAURL":       frontend + "/blog/" + post.ID,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.Blog.Execute(w, data); err != nil {
		writeInternalError(w, err)
	}
}

func (s *Server) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	username := strings.TrimPrefix(r.URL.Path, "/profile/")
	if username == "" {
		notFound(w)
		return
	}
	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	description := user.Bio
	if description == "" {
		description = user.Username + " on Mirabellier"
	}
	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")
	data := map[string]any{
		"Username":     user.Username,
		"Bio":          user.Bio,
		"Description":  description,
		"Avatar":       absoluteMediaURL(frontend, user.Avatar),
		"CreatedAt":    user.CreatedAt,
		"CanonicalURL": frontend + "/profile/" + user.Username,
		"SPAURL":       frontend + "/profile/" + user.Username,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.Profile.Execute(w, data); err != nil {
		writeInternalError(w, err)
	}
}

func (s *Server) serveRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	robotsTxt := fmt.Sprintf(`User-agent: *
Allow: /

Sitemap: %s/sitemap.xml

Disallow: /me
Disallow: /logout
`, strings.TrimRight(s.cfg.FrontendURL, "/"))
	w.Write([]byte(robotsTxt))
}

func (s *Server) serveSitemap(w http.ResponseWriter, r *http.Request) {
	frontend := strings.TrimRight(s.cfg.FrontendURL, "/")

	posts, _, err := s.store.ListPostRows(r.Context())
	if err != nil {
		posts = nil
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	sitemap := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>%s/</loc>
    <changefreq>daily</changefreq>
    <priority>1.0</priority>
  </url>`, frontend)

	for _, post := range posts {
		sitemap += fmt.Sprintf(`
  <url>
    <loc>%s/blog/%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.7</priority>
  </url>`, frontend, post.ID, post.CreatedAt.Format("2006-01-02"))
	}

	sitemap += `
</urlset>`

	w.Write([]byte(sitemap))
}

func trailingPostID(slug string) (string, bool) {
	const idLen = 36
	if len(slug) <= idLen {
		return "", false
	}
	candidate := slug[len(slug)-idLen:]
	if _, err := uuid.Parse(candidate); err != nil {
		return "", false
	}
	return candidate, true
}

// absoluteMediaURL turns a stored relative media path into a full URL for
// meta tags; absolute URLs pass through.
func absoluteMediaURL(base, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
