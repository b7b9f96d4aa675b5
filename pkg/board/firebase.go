package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// FirebaseStore persists posts in a Firebase Realtime Database over its
// REST interface. Posts for an organization live under
// demo/posts/<orgID>, one child per push key.
type FirebaseStore struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewFirebaseStore creates a FirebaseStore against the given database
// URL. A nil client gets a default with instrumented transport.
func NewFirebaseStore(databaseURL string, client *http.Client) *FirebaseStore {
	if client == nil {
		client = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &FirebaseStore{
		baseURL: strings.TrimRight(databaseURL, "/"),
		client:  client,
		now:     time.Now,
	}
}

func (s *FirebaseStore) postsURL(orgID string) string {
	return fmt.Sprintf("%s/demo/posts/%s.json", s.baseURL, url.PathEscape(orgID))
}

func (s *FirebaseStore) postURL(orgID, key string) string {
	return fmt.Sprintf("%s/demo/posts/%s/%s.json", s.baseURL, url.PathEscape(orgID), url.PathEscape(key))
}

func (s *FirebaseStore) do(ctx context.Context, method, rawURL string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode firebase payload: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build firebase request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("firebase request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("firebase returned status %d", resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode firebase response: %w", err)
	}
	return nil
}

// Posts returns the organization's posts, oldest first. An empty board
// comes back from Firebase as JSON null and decodes to a nil map.
func (s *FirebaseStore) Posts(ctx context.Context, orgID string) ([]Post, error) {
	var raw map[string]Post
	if err := s.do(ctx, http.MethodGet, s.postsURL(orgID), nil, &raw); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(raw))
	for key, post := range raw {
		post.Key = key
		posts = append(posts, post)
	}
	sortPosts(posts)
	return posts, nil
}

// CreatePost appends a post under the organization. Firebase assigns
// the push key and returns it as "name".
func (s *FirebaseStore) CreatePost(ctx context.Context, orgID, author, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	post := Post{
		PostID:     uuid.New().String(),
		Author:     author,
		Content:    content,
		DatePosted: s.now().Unix(),
	}

	var created struct {
		Name string `json:"name"`
	}
	if err := s.do(ctx, http.MethodPost, s.postsURL(orgID), post, &created); err != nil {
		return nil, err
	}

	post.Key = created.Name
	return &post, nil
}

// DeletePost removes the post under the given push key. Firebase treats
// deleting an absent child as success, and so do we.
func (s *FirebaseStore) DeletePost(ctx context.Context, orgID, key string) error {
	return s.do(ctx, http.MethodDelete, s.postURL(orgID, key), nil, nil)
}

var _ Store = (*FirebaseStore)(nil)
