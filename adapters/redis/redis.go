// Package redis indexes image metadata and favorite sets in Redis. Records
// are msgpack-encoded under img:<id>; per-user membership lives in sets.
// Semantics are last-write-wins; there is no versioning.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/imgvault/imgvault/models"
)

// ErrNotFound is returned when a key is not found. It gives callers a
// distinct error type compared to the underlying redis.Nil.
var ErrNotFound = errors.New("imageindex: key not found")

// Config holds the connection settings for the index.
type Config struct {
	Addr     string // e.g., "localhost:6379"
	Password string // leave empty if no password
	DB       int    // default is 0
}

// Index provides the image metadata and favorites operations over go-redis.
type Index struct {
	client *redis.Client
}

// NewIndex creates and initializes an Index, pinging the server to ensure
// connectivity.
func NewIndex(cfg Config) (*Index, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Index{client: rdb}, nil
}

// Client returns the underlying go-redis client for advanced use cases.
func (ix *Index) Client() *redis.Client {
	return ix.client
}

// Close closes the underlying connection.
func (ix *Index) Close() error {
	if ix.client != nil {
		return ix.client.Close()
	}
	return nil
}

func imageKey(id string) string {
	return "img:" + id
}

func libraryKey(userID string) string {
	return "user:" + userID + ":images"
}

func favoritesKey(userID string) string {
	return "user:" + userID + ":favs"
}

// SaveImage writes the record and adds it to the user's library in one
// pipeline.
func (ix *Index) SaveImage(ctx context.Context, userID string, img models.Image) error {
	payload, err := msgpack.Marshal(img)
	if err != nil {
		return fmt.Errorf("failed to encode image %s: %w", img.ID, err)
	}

	pipe := ix.client.TxPipeline()
	pipe.Set(ctx, imageKey(img.ID), payload, 0)
	pipe.SAdd(ctx, libraryKey(userID), img.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save image %s: %w", img.ID, err)
	}
	return nil
}

// GetImage fetches one record. Returns ErrNotFound when the id is unknown.
func (ix *Index) GetImage(ctx context.Context, id string) (*models.Image, error) {
	raw, err := ix.client.Get(ctx, imageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image %s: %w", id, err)
	}

	var img models.Image
	if err := msgpack.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", id, err)
	}
	return &img, nil
}

// ListImages returns every record in the user's library. Ids whose records
// vanished (expired or deleted out of band) are skipped.
func (ix *Index) ListImages(ctx context.Context, userID string) ([]models.Image, error) {
	ids, err := ix.client.SMembers(ctx, libraryKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list library for %s: %w", userID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = imageKey(id)
	}
	raws, err := ix.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image records: %w", err)
	}

	images := make([]models.Image, 0, len(raws))
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var img models.Image
		if err := msgpack.Unmarshal([]byte(s), &img); err != nil {
			return nil, fmt.Errorf("failed to decode image record: %w", err)
		}
		images = append(images, img)
	}
	return images, nil
}

// DeleteImages removes the records, the library entries and any favorite
// entries in one pipeline, so the remote mutation is all-or-nothing from the
// caller's perspective.
func (ix *Index) DeleteImages(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = imageKey(id)
		members[i] = id
	}

	pipe := ix.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, libraryKey(userID), members...)
	pipe.SRem(ctx, favoritesKey(userID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	return nil
}

// AddFavorites adds the ids to the user's favorites set.
func (ix *Index) AddFavorites(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := ix.client.SAdd(ctx, favoritesKey(userID), members...).Err(); err != nil {
		return fmt.Errorf("failed to add favorites: %w", err)
	}
	return nil
}

// RemoveFavorites removes the ids from the user's favorites set.
func (ix *Index) RemoveFavorites(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := ix.client.SRem(ctx, favoritesKey(userID), members...).Err(); err != nil {
		return fmt.Errorf("failed to remove favorites: %w", err)
	}
	return nil
}

// ListFavorites returns the user's favorite ids.
func (ix *Index) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	ids, err := ix.client.SMembers(ctx, favoritesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites for %s: %w", userID, err)
	}
	return ids, nil
}
