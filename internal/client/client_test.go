package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mirabellier/backend/internal/auth"
	"github.com/mirabellier/backend/internal/blob"
	"github.com/mirabellier/backend/internal/config"
	httpapp "github.com/mirabellier/backend/internal/http"
	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store/sqlite"
)

type allowAllLimiter struct{}

func (a allowAllLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return true, 0
}

func newTestBackend(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:client_%s?mode=memory&cache=shared", dsnName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	blobs, err := blob.NewStore(dir+"/images", dir+"/videos")
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	cfg := config.Config{
		FrontendURL:    "http://localhost:3000",
		MaxUploadBytes: 50 << 20,
	}
	authSvc := auth.NewService(st, "test-secret")
	server, err := httpapp.NewServer(st, authSvc, auth.NewDiscord(config.Discord{}), blobs, allowAllLimiter{}, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return ts, st
}

func TestClientEndToEnd(t *testing.T) {
	ts, st := newTestBackend(t)
	c := New(ts.URL)

	user, err := c.Register("mira", "pw-123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Username != "mira" || c.Token == "" {
		t.Fatalf("unexpected registration: %+v, token=%q", user, c.Token)
	}

	me, err := c.Me()
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.ID != user.ID {
		t.Fatalf("Me returned wrong user: %s", me.ID)
	}

	post, err := c.CreatePost("Hello", json.RawMessage(`{"blocks":[]}`), "intro", []string{"go"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	likes, err := c.Like(post.ID, "like")
	if err != nil {
		t.Fatalf("Like failed: %v", err)
	}
	if len(likes) != 1 || likes[0] != user.ID {
		t.Fatalf("unexpected like set: %v", likes)
	}

	comment, err := c.Comment(post.ID, "first!", nil)
	if err != nil {
		t.Fatalf("Comment failed: %v", err)
	}
	if _, err := c.Comment(post.ID, "reply", &comment.ID); err != nil {
		t.Fatalf("reply failed: %v", err)
	}

	posts, err := c.ListPosts()
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || len(posts[0].Comments) != 1 || len(posts[0].Comments[0].Children) != 1 {
		t.Fatalf("unexpected posts: %+v", posts)
	}

	// Fresh client, same account.
	c2 := New(ts.URL)
	if _, err := c2.Login("mira", "pw-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Anime writes need the curator role.
	if _, err := c2.ReplaceAnime([]model.AnimeEntry{{Title: "Frieren"}}); err == nil {
		t.Fatal("expected forbidden for non-curator")
	}
	account, err := st.GetUserByUsername(context.Background(), "mira")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	account.Role = auth.RoleCurator
	if err := st.UpdateUser(context.Background(), &account); err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	saved, err := c2.ReplaceAnime([]model.AnimeEntry{{Title: "Frieren"}, {Title: "Mushishi"}})
	if err != nil {
		t.Fatalf("ReplaceAnime failed: %v", err)
	}
	if len(saved) != 2 || saved[0].Ord != 0 || saved[1].Ord != 1 {
		t.Fatalf("unexpected saved list: %+v", saved)
	}

	listed, err := c2.ListAnime()
	if err != nil {
		t.Fatalf("ListAnime failed: %v", err)
	}
	if len(listed) != 2 || listed[0].Title != "Frieren" {
		t.Fatalf("unexpected anime list: %+v", listed)
	}
}

func TestClientErrorSurface(t *testing.T) {
	ts, _ := newTestBackend(t)
	c := New(ts.URL)

	if _, err := c.Login("ghost", "nope"); err == nil {
		t.Fatal("expected login error")
	} else if !strings.Contains(err.Error(), "401") && !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("error should carry the server message: %v", err)
	}
}
