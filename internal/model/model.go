package model

import (
	"encoding/json"
	"time"
)

// User is the full account row. PasswordHash is empty for OAuth-only
// accounts.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DiscordID    string    `json:"discordId,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Banner       string    `json:"banner,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Location     string    `json:"location,omitempty"`
	Website      string    `json:"website,omitempty"`
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the profile projection returned to callers. It never
// carries the password hash.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Banner    string    `json:"banner,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Location  string    `json:"location,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Avatar:    u.Avatar,
		Banner:    u.Banner,
		Bio:       u.Bio,
		Location:  u.Location,
		Website:   u.Website,
		CreatedAt: u.CreatedAt,
	}
}

type Session struct {
	Token  string
	UserID string
}

// Comment is the flat stored form, persisted inside a content row's
// comments JSON column.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentNode is a comment with its resolved author and nested replies,
// rebuilt on every read.
type CommentNode struct {
	Comment
	User     *PublicUser    `json:"user"`
	Children []*CommentNode `json:"children"`
}

// Post holds rich editor content as an opaque JSON document.
type Post struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Content          json.RawMessage `json:"content"`
	ShortDescription string          `json:"shortDescription,omitempty"`
	Thumbnail        string          `json:"thumbnail,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	UserID           string          `json:"userId,omitempty"`
	Author           string          `json:"author"`
	AuthorAvatar     string          `json:"authorAvatar,omitempty"`
	Likes            []string        `json:"likes"`
	Comments         []*CommentNode  `json:"comments"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type Video struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	UserID      string          `json:"userId,omitempty"`
	Likes       []string        `json:"likes"`
	Comments    []*CommentNode  `json:"comments"`
	CreatedAt   time.Time       `json:"createdAt"`
	Source      string          `json:"source,omitempty"`
	Metadata    json.RawMessage `json:"originalMetadata,omitempty"`
	User        *PublicUser     `json:"user"`
}

type Picture struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	UserID    string         `json:"userId,omitempty"`
	Likes     []string       `json:"likes"`
	Comments  []*CommentNode `json:"comments"`
	CreatedAt time.Time      `json:"createdAt"`
	User      *PublicUser    `json:"user"`
}

// AnimeEntry is one row of the curated list. Ord is the explicit position
// assigned on replace-all.
type AnimeEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Img   string `json:"img"`
	Ord   int    `json:"ord"`
}

type UserStats struct {
	PostsCount    int           `json:"postsCount"`
	LikesCount    int           `json:"likesCount"`
	CommentsCount int           `json:"commentsCount"`
	RecentPosts   []PostSummary `json:"recentPosts"`
}

type PostSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImageInfo describes a stored upload for the image listing endpoints.
type ImageInfo struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// DiscordProfile is the subset of the Discord identity used for account
// linking.
type DiscordProfile struct {
	ID       string
	Username string
	Avatar   string
	Banner   string
}
