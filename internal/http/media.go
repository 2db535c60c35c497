package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mirabellier/backend/internal/blob"
	"github.com/mirabellier/backend/internal/content"
	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store"
)

func (s *Server) hydrateVideo(video *model.Video, raw store.ContentRow, resolve content.UserResolver) error {
	video.Likes = content.DecodeLikes(raw.Likes)
	comments, err := content.DecodeComments(raw.Comments)
	if err != nil {
		return err
	}
	video.Comments = content.BuildCommentTree(comments, resolve)
	if video.UserID != "" {
		video.User = resolve(video.UserID)
	}
	return nil
}

func (s *Server) hydratePicture(pic *model.Picture, raw store.ContentRow, resolve content.UserResolver) error {
	pic.Likes = content.DecodeLikes(raw.Likes)
	comments, err := content.DecodeComments(raw.Comments)
	if err != nil {
		return err
	}
	pic.Comments = content.BuildCommentTree(comments, resolve)
	if pic.UserID != "" {
		pic.User = resolve(pic.UserID)
	}
	return nil
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, raws, err := s.store.ListVideoRows(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resolve := s.userResolver(r.Context())
	for i := range videos {
		if err := s.hydrateVideo(&videos[i], raws[i], resolve); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, videos)
}

// handleUploadVideo accepts anonymous uploads; with a token the video is
// attributed to the caller's account.
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	user := s.optionalAuth(r)
	if !s.allowRateLimit(w, r, "upload", s.cfg.RateLimits.UploadPerMinute) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("video file is required"))
		return
	}
	defer file.Close()

	filename, err := s.blobs.SaveVideo(header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, blob.ErrUnsupportedType) {
			writeError(w, http.StatusUnsupportedMediaType, err)
			return
		}
		writeInternalError(w, err)
		return
	}

	name, _ := formValue(r, "name")
	if strings.TrimSpace(name) == "" {
		name = header.Filename
	}
	description, _ := formValue(r, "description")

	var metadata json.RawMessage
	if meta, ok := formValue(r, "originalMetadata"); ok && json.Valid([]byte(meta)) {
		metadata = json.RawMessage(meta)
	}

	video := model.Video{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		URL:         "/videos/" + filename,
		Source:      "upload",
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
	if user != nil {
		video.UserID = user.ID
	}
	if err := s.store.CreateVideo(r.Context(), &video, "[]", "[]"); err != nil {
		writeStoreError(w, err)
		return
	}

	video.Likes = []string{}
	video.Comments = []*model.CommentNode{}
	if user != nil {
		video.User = user.Public()
	}
	writeJSON(w, http.StatusCreated, video)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	video, _, err := s.store.GetVideoRow(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if video.UserID != user.ID {
		writeError(w, http.StatusForbidden, errors.New("not your video"))
		return
	}
	if err := s.store.DeleteVideo(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if name := strings.TrimPrefix(video.URL, "/videos/"); name != video.URL {
		_ = s.blobs.DeleteVideoFile(name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleVideoLike(w http.ResponseWriter, r *http.Request, id string) {
	s.handleLike(w, r, likeTarget{
		get: func(ctx context.Context) (store.ContentRow, error) {
			_, raw, err := s.store.GetVideoRow(ctx, id)
			return raw, err
		},
		setLikes: func(ctx context.Context, likes string) error {
			return s.store.UpdateVideoLikes(ctx, id, likes)
		},
	})
}

func (s *Server) handleVideoComment(w http.ResponseWriter, r *http.Request, id string) {
	s.handleComment(w, r, likeTarget{
		get: func(ctx context.Context) (store.ContentRow, error) {
			_, raw, err := s.store.GetVideoRow(ctx, id)
			return raw, err
		},
		setComments: func(ctx context.Context, comments string) error {
			return s.store.UpdateVideoComments(ctx, id, comments)
		},
	})
}

func (s *Server) handleListPics(w http.ResponseWriter, r *http.Request) {
	pics, raws, err := s.store.ListPictureRows(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resolve := s.userResolver(r.Context())
	for i := range pics {
		if err := s.hydratePicture(&pics[i], raws[i], resolve); err != nil {
			writeInternalError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, pics)
}

// handleUploadPic accepts anonymous uploads; with a token the picture is
// attributed to the caller's account.
func (s *Server) handleUploadPic(w http.ResponseWriter, r *http.Request) {
	user := s.optionalAuth(r)
	if !s.allowRateLimit(w, r, "upload", s.cfg.RateLimits.UploadPerMinute) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	file, header, err := r.FormFile("pic")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("pic file is required"))
		return
	}
	defer file.Close()

	filename, err := s.blobs.SaveImage(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	title, _ := formValue(r, "title")
	if strings.TrimSpace(title) == "" {
		title = header.Filename
	}

	pic := model.Picture{
		ID:        uuid.NewString(),
		Title:     title,
		URL:       "/images/" + filename,
		CreatedAt: time.Now(),
	}
	if user != nil {
		pic.UserID = user.ID
	}
	if err := s.store.CreatePicture(r.Context(), &pic, "[]", "[]"); err != nil {
		writeStoreError(w, err)
		return
	}

	pic.Likes = []string{}
	pic.Comments = []*model.CommentNode{}
	if user != nil {
		pic.User = user.Public()
	}
	writeJSON(w, http.StatusCreated, pic)
}

func (s *Server) handlePicLike(w http.ResponseWriter, r *http.Request, id string) {
	s.handleLike(w, r, likeTarget{
		get: func(ctx context.Context) (store.ContentRow, error) {
			_, raw, err := s.store.GetPictureRow(ctx, id)
			return raw, err
		},
		setLikes: func(ctx context.Context, likes string) error {
			return s.store.UpdatePictureLikes(ctx, id, likes)
		},
	})
}

func (s *Server) handlePicComment(w http.ResponseWriter, r *http.Request, id string) {
	s.handleComment(w, r, likeTarget{
		get: func(ctx context.Context) (store.ContentRow, error) {
			_, raw, err := s.store.GetPictureRow(ctx, id)
			return raw, err
		},
		setComments: func(ctx context.Context, comments string) error {
			return s.store.UpdatePictureComments(ctx, id, comments)
		},
	})
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.blobs.ListImages()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	_, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.allowRateLimit(w, r, "upload", s.cfg.RateLimits.UploadPerMinute) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	defer file.Close()

	filename, err := s.blobs.SaveImage(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := s.blobs.StatImage(filename)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleImageMeta(w http.ResponseWriter, r *http.Request, filename string) {
	info, err := s.blobs.StatImage(filename)
	if err != nil {
		if errors.Is(err, blob.ErrBadFilename) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if errors.Is(err, blob.ErrNotFound) {
			notFound(w)
			return
		}
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) serveImageFile(w http.ResponseWriter, r *http.Request) {
	s.serveMediaFile(w, r, s.blobs.ImagesDir(), strings.TrimPrefix(r.URL.Path, "/images/"))
}

func (s *Server) serveVideoFile(w http.ResponseWriter, r *http.Request) {
	s.serveMediaFile(w, r, s.blobs.VideosDir(), strings.TrimPrefix(r.URL.Path, "/videos/"))
}

func (s *Server) serveMediaFile(w http.ResponseWriter, r *http.Request, dir, name string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if name == "" || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		notFound(w)
		return
	}
	http.ServeFile(w, r, filepath.Join(dir, name))
}
