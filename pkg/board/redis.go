package board

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/loginlab/loginlab/pkg/config"
)

// RedisStore persists posts in a Redis hash per organization, field per
// post key. It stands in for the hosted realtime database when running
// the demo locally.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to Redis using the board configuration and
// verifies the connection with a ping.
func NewRedisStore(cfg config.BoardConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	if cfg.RedisDB >= 0 {
		opts.DB = cfg.RedisDB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used by tests.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func boardKey(orgID string) string {
	return fmt.Sprintf("board:posts:%s", orgID)
}

// Posts returns the organization's posts, oldest first.
func (s *RedisStore) Posts(ctx context.Context, orgID string) ([]Post, error) {
	entries, err := s.client.HGetAll(ctx, boardKey(orgID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall failed: %w", err)
	}

	posts := make([]Post, 0, len(entries))
	for key, data := range entries {
		var post Post
		if err := json.Unmarshal([]byte(data), &post); err != nil {
			// Drop corrupt entries rather than failing the whole board.
			s.client.HDel(ctx, boardKey(orgID), key)
			continue
		}
		post.Key = key
		posts = append(posts, post)
	}
	sortPosts(posts)
	return posts, nil
}

// CreatePost appends a post under a generated key.
func (s *RedisStore) CreatePost(ctx context.Context, orgID, author, content string) (*Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	post := Post{
		Key:        uuid.New().String(),
		PostID:     uuid.New().String(),
		Author:     author,
		Content:    content,
		DatePosted: s.now().Unix(),
	}

	data, err := json.Marshal(post)
	if err != nil {
		return nil, fmt.Errorf("failed to encode post: %w", err)
	}
	if err := s.client.HSet(ctx, boardKey(orgID), post.Key, data).Err(); err != nil {
		return nil, fmt.Errorf("redis hset failed: %w", err)
	}
	return &post, nil
}

// DeletePost removes the post under key. Absent keys are a no-op.
func (s *RedisStore) DeletePost(ctx context.Context, orgID, key string) error {
	if err := s.client.HDel(ctx, boardKey(orgID), key).Err(); err != nil {
		return fmt.Errorf("redis hdel failed: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
