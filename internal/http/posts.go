package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mirabellier/backend/internal/content"
	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store"
)

type postRequest struct {
	Title            string          `json:"title"`
	Content          json.RawMessage `json:"content"`
	ShortDescription string          `json:"shortDescription"`
	Thumbnail        string          `json:"thumbnail"`
	Tags             []string        `json:"tags"`
	// Author is the free-text byline for anonymous posts; ignored when the
	// request carries a valid token.
	Author string `json:"author"`
}

type likeRequest struct {
	Action string `json:"action"`
}

type commentRequest struct {
	Text     string  `json:"text"`
	ParentID *string `json:"parentId"`
}

// hydratePost fills a post's derived fields from its raw engagement columns:
// like set, comment forest and resolved author.
func (s *Server) hydratePost(post *model.Post, raw store.ContentRow, resolve content.UserResolver) error {
	post.Likes = content.DecodeLikes(raw.Likes)
	comments, err := content.DecodeComments(raw.Comments)
	if err != nil {
		return err
	}
	post.Comments = content.BuildCommentTree(comments, resolve)

	// A row with an owning account shows the account's current name and
	// avatar; an ownerless row keeps its stored free-text author.
	if post.UserID != "" {
		if author := resolve(post.UserID); author != nil {
			post.Author = author.Username
			post.AuthorAvatar = author.Avatar
		}
	}
	return nil
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, raws, err := s.store.ListPostRows(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resolve := s.userResolver(r.Context())
	for i := range posts {
		if err := s.hydratePost(&posts[i], raws[i], resolve); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, id string) {
	post, raw, err := s.store.GetPostRow(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.hydratePost(&post, raw, s.userResolver(r.Context())); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// handleCreatePost accepts anonymous submissions: without a token the post
// gets no owning account and keeps the free-text author from the request.
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	user := s.optionalAuth(r)
	if !s.allowRateLimit(w, r, "write", s.cfg.RateLimits.WritePerMinute) {
		return
	}
	var req postRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	post := model.Post{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Content:          req.Content,
		ShortDescription: req.ShortDescription,
		Thumbnail:        req.Thumbnail,
		Tags:             content.SanitizeTags(req.Tags),
		Author:           strings.TrimSpace(req.Author),
		CreatedAt:        time.Now(),
	}
	if user != nil {
		post.UserID = user.ID
		post.Author = user.Username
	}
	if err := s.store.CreatePost(r.Context(), &post, "[]", "[]"); err != nil {
		writeStoreError(w, err)
		return
	}

	post.Likes = []string{}
	post.Comments = []*model.CommentNode{}
	if user != nil {
		post.AuthorAvatar = user.Avatar
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	post, raw, err := s.store.GetPostRow(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if post.UserID != user.ID {
		writeError(w, http.StatusForbidden, errors.New("not your post"))
		return
	}

	var req postRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	post.Title = req.Title
	post.Content = req.Content
	post.ShortDescription = req.ShortDescription
	post.Thumbnail = req.Thumbnail
	post.Tags = content.SanitizeTags(req.Tags)
	if err := s.store.UpdatePost(r.Context(), &post); err != nil {
		writeStoreError(w, err)
		return
	}
	if err := s.hydratePost(&post, raw, s.userResolver(r.Context())); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	post, _, err := s.store.GetPostRow(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if post.UserID != user.ID {
		writeError(w, http.StatusForbidden, errors.New("not your post"))
		return
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePostLike(w http.ResponseWriter, r *http.Request, id string) {
	s.handleLike(w, r, likeTarget{
		get: func(ctx context.Context) (store.ContentRow, error) {
			_, raw, err := s.store.GetPostRow(ctx, id)
			return raw, err
		},
		setLikes: func(ctx context.Context, likes string) error {
			return s.store.UpdatePostLikes(ctx, id, likes)
		},
	})
}

func (s *Server) handlePostComment(w http.ResponseWriter, r *http.Request, id string) {
	s.handleComment(w, r, likeTarget{
		get: func(ctx context.Context) (store.ContentRow, error) {
			_, raw, err := s.store.GetPostRow(ctx, id)
			return raw, err
		},
		setComments: func(ctx context.Context, comments string) error {
			return s.store.UpdatePostComments(ctx, id, comments)
		},
	})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// likeTarget abstracts the engagement columns of one content row so posts,
// videos and pictures share the like and comment handlers. Each mutation
// writes only its own column, so a like never clobbers a concurrent comment
// and vice versa.
type likeTarget struct {
	get         func(ctx context.Context) (store.ContentRow, error)
	setLikes    func(ctx context.Context, likes string) error
	setComments func(ctx context.Context, comments string) error
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, target likeTarget) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req likeRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	raw, err := target.get(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	likes, err := content.ToggleLike(content.DecodeLikes(raw.Likes), user.ID, req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	encoded, err := content.EncodeLikes(likes)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if err := target.setLikes(r.Context(), encoded); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"likes": likes})
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request, target likeTarget) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.allowRateLimit(w, r, "comment", s.cfg.RateLimits.CommentPerMinute) {
		return
	}
	var req commentRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	raw, err := target.get(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	comments, err := content.DecodeComments(raw.Comments)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	comment := model.Comment{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Text:      req.Text,
		ParentID:  req.ParentID,
		CreatedAt: time.Now(),
	}
	comments = append(comments, comment)
	encoded, err := content.EncodeComments(comments)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if err := target.setComments(r.Context(), encoded); err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"comment":  comment,
		"comments": content.BuildCommentTree(comments, s.userResolver(r.Context())),
	})
}
