// Package content holds the derived-view logic shared by posts, videos and
// pictures: comment forests, like sets and tag cleanup. Everything here is
// pure; durable state stays in the store.
package content

import (
	"encoding/json"

	"github.com/mirabellier/backend/internal/model"
)

// UserResolver maps a user id to its public profile. A nil result is kept
// as-is on the node (deleted or legacy authors).
type UserResolver func(userID string) *model.PublicUser

// BuildCommentTree rebuilds the stored flat comment list into a forest of
// nested replies. Placement follows storage order; a comment whose parent id
// references a missing comment is promoted to a root.
func BuildCommentTree(comments []model.Comment, resolve UserResolver) []*model.CommentNode {
	index := make(map[string]*model.CommentNode, len(comments))
	for _, c := range comments {
		node := &model.CommentNode{Comment: c, Children: []*model.CommentNode{}}
		if resolve != nil && c.UserID != "" {
			node.User = resolve(c.UserID)
		}
		index[c.ID] = node
	}

	roots := []*model.CommentNode{}
	for _, c := range comments {
		node := index[c.ID]
		if c.ParentID != nil {
			if parent, ok := index[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// CountNodes returns the total number of comments in a forest.
func CountNodes(nodes []*model.CommentNode) int {
	total := 0
	for _, n := range nodes {
		total += 1 + CountNodes(n.Children)
	}
	return total
}

// DecodeComments parses a stored comments column. Empty columns decode to an
// empty list.
func DecodeComments(raw string) ([]model.Comment, error) {
	if raw == "" {
		return []model.Comment{}, nil
	}
	var comments []model.Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

// EncodeComments serializes a flat comment list for storage.
func EncodeComments(comments []model.Comment) (string, error) {
	if comments == nil {
		comments = []model.Comment{}
	}
	b, err := json.Marshal(comments)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
