package store

import (
	"context"
	"errors"

	"github.com/mirabellier/backend/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username taken")
)

// Store is the storage client handed to every component at construction.
type Store interface {
	UserStore
	SessionStore
	PostStore
	VideoStore
	PictureStore
	AnimeStore
	GetUserStats(ctx context.Context, userID string) (model.UserStats, error)
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	GetUserByDiscordID(ctx context.Context, discordID string) (model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, token, userID string) error
	GetUserByToken(ctx context.Context, token string) (model.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// ContentRow is the raw persisted shape shared by posts, videos and
// pictures: likes and comments travel as serialized JSON columns and are
// decoded by the caller. Each column has its own update method so a like
// write never rewrites the comments column it read, and vice versa.
type ContentRow struct {
	Likes    string
	Comments string
}

type PostStore interface {
	CreatePost(ctx context.Context, post *model.Post, likes, comments string) error
	GetPostRow(ctx context.Context, id string) (model.Post, ContentRow, error)
	ListPostRows(ctx context.Context) ([]model.Post, []ContentRow, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	UpdatePostLikes(ctx context.Context, id, likes string) error
	UpdatePostComments(ctx context.Context, id, comments string) error
	DeletePost(ctx context.Context, id string) error
	ListTags(ctx context.Context) ([]string, error)
}

type VideoStore interface {
	CreateVideo(ctx context.Context, video *model.Video, likes, comments string) error
	GetVideoRow(ctx context.Context, id string) (model.Video, ContentRow, error)
	ListVideoRows(ctx context.Context) ([]model.Video, []ContentRow, error)
	UpdateVideoLikes(ctx context.Context, id, likes string) error
	UpdateVideoComments(ctx context.Context, id, comments string) error
	DeleteVideo(ctx context.Context, id string) error
}

type PictureStore interface {
	CreatePicture(ctx context.Context, pic *model.Picture, likes, comments string) error
	GetPictureRow(ctx context.Context, id string) (model.Picture, ContentRow, error)
	ListPictureRows(ctx context.Context) ([]model.Picture, []ContentRow, error)
	UpdatePictureLikes(ctx context.Context, id, likes string) error
	UpdatePictureComments(ctx context.Context, id, comments string) error
	DeletePicture(ctx context.Context, id string) error
}

type AnimeStore interface {
	ListAnime(ctx context.Context) ([]model.AnimeEntry, error)
	// ReplaceAnime deletes the whole list and reinserts the given entries in
	// order, assigning positional ord values, inside one transaction.
	ReplaceAnime(ctx context.Context, entries []model.AnimeEntry) error
	PatchAnime(ctx context.Context, id string, title, url, img *string, ord *int) (model.AnimeEntry, error)
	DeleteAnime(ctx context.Context, id string) error
}
