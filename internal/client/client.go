// Package client provides a Go client for the Mirabellier API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mirabellier/backend/internal/model"
)

// Client is a Mirabellier API client. Token is set after Register or Login
// and sent as a bearer token on authenticated calls.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type authResponse struct {
	Token string            `json:"token"`
	User  *model.PublicUser `json:"user"`
	Error string            `json:"error"`
}

// Register creates an account and stores its token on the client.
func (c *Client) Register(username, password string) (*model.PublicUser, error) {
	return c.authenticate("/register", username, password)
}

// Login signs in and stores the token on the client.
func (c *Client) Login(username, password string) (*model.PublicUser, error) {
	return c.authenticate("/login", username, password)
}

func (c *Client) authenticate(path, username, password string) (*model.PublicUser, error) {
	var result authResponse
	err := c.do(http.MethodPost, path, map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, errors.New(result.Error)
	}
	c.Token = result.Token
	return result.User, nil
}

// Me returns the profile behind the client's token.
func (c *Client) Me() (*model.PublicUser, error) {
	var user model.PublicUser
	if err := c.do(http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePost publishes a blog post and returns the stored row.
func (c *Client) CreatePost(title string, content json.RawMessage, shortDescription string, tags []string) (*model.Post, error) {
	var post model.Post
	err := c.do(http.MethodPost, "/posts", map[string]any{
		"title":            title,
		"content":          content,
		"shortDescription": shortDescription,
		"tags":             tags,
	}, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts fetches every post, newest first.
func (c *Client) ListPosts() ([]model.Post, error) {
	var posts []model.Post
	if err := c.do(http.MethodGet, "/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Like applies a like action to a post and returns the new like set.
func (c *Client) Like(postID, action string) ([]string, error) {
	var result struct {
		Likes []string `json:"likes"`
	}
	err := c.do(http.MethodPost, "/posts/"+postID+"/like", map[string]string{"action": action}, &result)
	if err != nil {
		return nil, err
	}
	return result.Likes, nil
}

// Comment adds a comment to a post. parentID may be nil for a root comment.
func (c *Client) Comment(postID, text string, parentID *string) (*model.Comment, error) {
	var result struct {
		Comment model.Comment `json:"comment"`
	}
	err := c.do(http.MethodPost, "/posts/"+postID+"/comments", map[string]any{
		"text":     text,
		"parentId": parentID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result.Comment, nil
}

// ReplaceAnime swaps the curated anime list. Requires a curator token.
func (c *Client) ReplaceAnime(entries []model.AnimeEntry) ([]model.AnimeEntry, error) {
	body, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	var saved []model.AnimeEntry
	if err := c.doRaw(http.MethodPost, "/anime", body, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// ListAnime fetches the curated list in order.
func (c *Client) ListAnime() ([]model.AnimeEntry, error) {
	var entries []model.AnimeEntry
	if err := c.do(http.MethodGet, "/anime", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(method, path string, payload, dest any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}
	return c.doRaw(method, path, body, dest)
}

func (c *Client) doRaw(method, path string, body []byte, dest any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
