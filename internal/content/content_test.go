package content

import (
	"reflect"
	"testing"
	"time"

	"github.com/mirabellier/backend/internal/model"
)

func strPtr(s string) *string { return &s }

func testResolver(users map[string]*model.PublicUser) UserResolver {
	return func(userID string) *model.PublicUser {
		return users[userID]
	}
}

func TestBuildCommentTreeNesting(t *testing.T) {
	now := time.Now()
	comments := []model.Comment{
		{ID: "c1", UserID: "u1", Text: "root", CreatedAt: now},
		{ID: "c2", UserID: "u2", Text: "reply", ParentID: strPtr("c1"), CreatedAt: now},
		{ID: "c3", UserID: "u1", Text: "reply to reply", ParentID: strPtr("c2"), CreatedAt: now},
		{ID: "c4", UserID: "u2", Text: "another root", CreatedAt: now},
	}
	users := map[string]*model.PublicUser{
		"u1": {ID: "u1", Username: "mira"},
		"u2": {ID: "u2", Username: "fan"},
	}

	tree := BuildCommentTree(comments, testResolver(users))
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}
	if tree[0].ID != "c1" || tree[1].ID != "c4" {
		t.Fatalf("wrong roots: %s, %s", tree[0].ID, tree[1].ID)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].ID != "c2" {
		t.Fatalf("c2 not nested under c1: %+v", tree[0].Children)
	}
	if len(tree[0].Children[0].Children) != 1 || tree[0].Children[0].Children[0].ID != "c3" {
		t.Fatal("c3 not nested under c2")
	}
	if tree[0].User == nil || tree[0].User.Username != "mira" {
		t.Fatalf("author not resolved: %+v", tree[0].User)
	}
	if CountNodes(tree) != 4 {
		t.Fatalf("expected 4 nodes, got %d", CountNodes(tree))
	}
}

func TestBuildCommentTreeOrphanPromotion(t *testing.T) {
	comments := []model.Comment{
		{ID: "c1", UserID: "u1", Text: "root"},
		{ID: "c2", UserID: "u1", Text: "orphan", ParentID: strPtr("gone")},
	}

	tree := BuildCommentTree(comments, testResolver(nil))
	if len(tree) != 2 {
		t.Fatalf("expected orphan promoted to root, got %d roots", len(tree))
	}
	if tree[1].ID != "c2" {
		t.Fatalf("orphan must keep original order, got %s", tree[1].ID)
	}
	if tree[1].User != nil {
		t.Fatalf("unknown author must resolve to nil, got %+v", tree[1].User)
	}
}

func TestBuildCommentTreeChildBeforeParent(t *testing.T) {
	// The stored array is not guaranteed parent-first.
	comments := []model.Comment{
		{ID: "c2", UserID: "u1", Text: "reply", ParentID: strPtr("c1")},
		{ID: "c1", UserID: "u1", Text: "root"},
	}

	tree := BuildCommentTree(comments, testResolver(nil))
	if len(tree) != 1 {
		t.Fatalf("expected 1 root, got %d", len(tree))
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].ID != "c2" {
		t.Fatalf("reply not attached when it precedes its parent: %+v", tree[0])
	}
}

func TestBuildCommentTreeEmpty(t *testing.T) {
	tree := BuildCommentTree(nil, testResolver(nil))
	if tree == nil || len(tree) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", tree)
	}
}

func TestDecodeComments(t *testing.T) {
	comments, err := DecodeComments("")
	if err != nil {
		t.Fatalf("empty column must decode: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected empty slice, got %v", comments)
	}

	comments, err = DecodeComments(`[{"id":"c1","userId":"u1","text":"hi","parentId":null,"createdAt":"2024-01-01T00:00:00Z"}]`)
	if err != nil {
		t.Fatalf("DecodeComments failed: %v", err)
	}
	if len(comments) != 1 || comments[0].UserID != "u1" || comments[0].ParentID != nil {
		t.Fatalf("unexpected comments: %+v", comments)
	}

	if _, err := DecodeComments("{not json"); err == nil {
		t.Fatal("expected error for malformed column")
	}
}

func TestEncodeCommentsNil(t *testing.T) {
	raw, err := EncodeComments(nil)
	if err != nil {
		t.Fatalf("EncodeComments failed: %v", err)
	}
	if raw != "[]" {
		t.Fatalf("nil must encode as [], got %s", raw)
	}
}

func TestToggleLike(t *testing.T) {
	likes, err := ToggleLike([]string{}, "u1", ActionLike)
	if err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if !reflect.DeepEqual(likes, []string{"u1"}) {
		t.Fatalf("unexpected likes: %v", likes)
	}

	// Liking twice is idempotent.
	likes, err = ToggleLike(likes, "u1", ActionLike)
	if err != nil {
		t.Fatalf("second like failed: %v", err)
	}
	if len(likes) != 1 {
		t.Fatalf("like must be idempotent, got %v", likes)
	}

	likes, err = ToggleLike(likes, "u1", ActionUnlike)
	if err != nil {
		t.Fatalf("unlike failed: %v", err)
	}
	if len(likes) != 0 {
		t.Fatalf("expected empty set, got %v", likes)
	}

	// Unliking when absent is a no-op.
	likes, err = ToggleLike(likes, "u1", ActionUnlike)
	if err != nil {
		t.Fatalf("unlike of absent member failed: %v", err)
	}
	if len(likes) != 0 {
		t.Fatalf("expected empty set, got %v", likes)
	}

	if _, err := ToggleLike(likes, "u1", "boost"); err != ErrInvalidAction {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestDecodeLikesLegacyCount(t *testing.T) {
	// Old rows stored a bare integer count.
	likes := DecodeLikes("42")
	if len(likes) != 0 {
		t.Fatalf("legacy count must normalize to empty set, got %v", likes)
	}
	if DecodeLikes("") == nil {
		t.Fatal("empty column must decode to non-nil slice")
	}
	likes = DecodeLikes(`["u1","u2"]`)
	if !reflect.DeepEqual(likes, []string{"u1", "u2"}) {
		t.Fatalf("unexpected likes: %v", likes)
	}
}

func TestLikesRoundTrip(t *testing.T) {
	raw, err := EncodeLikes([]string{"u1"})
	if err != nil {
		t.Fatalf("EncodeLikes failed: %v", err)
	}
	if !reflect.DeepEqual(DecodeLikes(raw), []string{"u1"}) {
		t.Fatalf("round trip failed: %s", raw)
	}
	raw, err = EncodeLikes(nil)
	if err != nil {
		t.Fatalf("EncodeLikes failed: %v", err)
	}
	if raw != "[]" {
		t.Fatalf("nil must encode as [], got %s", raw)
	}
}

func TestSanitizeTags(t *testing.T) {
	got := SanitizeTags([]string{"Rust!", "go", "RUST!", "toolongtagname12345"})
	want := []string{"Rust", "go", "toolongtag"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSanitizeTagsLimits(t *testing.T) {
	got := SanitizeTags([]string{"a", "b", "c", "d", "e", "f", "g"})
	if len(got) != 5 {
		t.Fatalf("expected at most 5 tags, got %v", got)
	}

	got = SanitizeTags([]string{"!!!", "   ", ""})
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}

	got = SanitizeTags(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
