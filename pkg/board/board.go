// Package board stores the demo message-board posts, keyed per
// organization. Two backends implement the Store interface: a Firebase
// Realtime Database REST client and a Redis hash per organization.
package board

import (
	"context"
	"errors"
	"sort"
)

// ErrEmptyContent indicates a post with no content was submitted.
var ErrEmptyContent = errors.New("post content is required")

// Post is a single message-board entry. Key is the backend-assigned
// identifier used to address the post for deletion; PostID is a stable
// identifier embedded in the post body itself.
type Post struct {
	Key        string `json:"key,omitempty"`
	PostID     string `json:"post_id"`
	Author     string `json:"author"`
	Content    string `json:"content"`
	DatePosted int64  `json:"date_posted"`
}

// Store is the message-board persistence interface.
type Store interface {
	// Posts returns every post for the organization, oldest first.
	Posts(ctx context.Context, orgID string) ([]Post, error)
	// CreatePost appends a post and returns it with its assigned key.
	CreatePost(ctx context.Context, orgID, author, content string) (*Post, error)
	// DeletePost removes the post addressed by key. Deleting an absent
	// key is a no-op.
	DeletePost(ctx context.Context, orgID, key string) error
}

func sortPosts(posts []Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].DatePosted != posts[j].DatePosted {
			return posts[i].DatePosted < posts[j].DatePosted
		}
		return posts[i].Key < posts[j].Key
	})
}
