package httpapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mirabellier/backend/internal/auth"
	"github.com/mirabellier/backend/internal/model"
)

type animeEntryRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Img   string `json:"img"`
	// Ord is accepted but ignored; array position wins.
	Ord int `json:"ord"`
}

type animePatchRequest struct {
	Title *string `json:"title"`
	URL   *string `json:"url"`
	Img   *string `json:"img"`
	Ord   *int    `json:"ord"`
}

func (s *Server) requireCurator(w http.ResponseWriter, r *http.Request) (model.User, bool) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return model.User{}, false
	}
	if !auth.CanCurate(&user) {
		writeError(w, http.StatusForbidden, errors.New("curator role required"))
		return model.User{}, false
	}
	return user, true
}

func (s *Server) handleListAnime(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListAnime(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleReplaceAnime swaps the whole curated list for the submitted one.
// Entry order in the request body becomes the stored order.
func (s *Server) handleReplaceAnime(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireCurator(w, r); !ok {
		return
	}
	var req []animeEntryRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries := make([]model.AnimeEntry, 0, len(req))
	for _, e := range req {
		if strings.TrimSpace(e.Title) == "" {
			writeError(w, http.StatusBadRequest, errors.New("every entry needs a title"))
			return
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		entries = append(entries, model.AnimeEntry{
			ID:    id,
			Title: e.Title,
			URL:   e.URL,
			Img:   e.Img,
		})
	}
	if err := s.store.ReplaceAnime(r.Context(), entries); err != nil {
		writeStoreError(w, err)
		return
	}

	saved, err := s.store.ListAnime(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePatchAnime(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.requireCurator(w, r); !ok {
		return
	}
	var req animePatchRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Title == nil && req.URL == nil && req.Img == nil && req.Ord == nil {
		writeError(w, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title must not be empty"))
		return
	}

	entry, err := s.store.PatchAnime(r.Context(), id, req.Title, req.URL, req.Img, req.Ord)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteAnime(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.requireCurator(w, r); !ok {
		return
	}
	if err := s.store.DeleteAnime(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
