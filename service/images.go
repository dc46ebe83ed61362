// Package service composes the upload pipeline, the binary store and the
// metadata index into the operations the API exposes.
package service

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/models"
	"github.com/imgvault/imgvault/result"
	"github.com/imgvault/imgvault/store"
	"github.com/imgvault/imgvault/upload"
)

const defaultCacheSize = 512

// Indexer is the metadata index the services run against.
type Indexer interface {
	SaveImage(ctx context.Context, userID string, img models.Image) error
	GetImage(ctx context.Context, id string) (*models.Image, error)
	ListImages(ctx context.Context, userID string) ([]models.Image, error)
	DeleteImages(ctx context.Context, userID string, ids []string) error
	AddFavorites(ctx context.Context, userID string, ids []string) error
	RemoveFavorites(ctx context.Context, userID string, ids []string) error
	ListFavorites(ctx context.Context, userID string) ([]string, error)
}

// libraryRemote scopes the index to one user so it satisfies
// store.LibraryRemote.
type libraryRemote struct {
	index  Indexer
	userID string
}

func (r libraryRemote) DeleteImages(ctx context.Context, ids []string) error {
	return r.index.DeleteImages(ctx, r.userID, ids)
}

func (r libraryRemote) ListImages(ctx context.Context) ([]models.Image, error) {
	return r.index.ListImages(ctx, r.userID)
}

// Images serves upload, browse and delete operations. Each user's library
// lives in an optimistic store: deletes apply locally first and are reverted
// in full when the index rejects them.
type Images struct {
	batcher  *upload.Batcher
	index    Indexer
	cache    *lru.Cache[string, models.Image]
	log      *log.Log
	mu       sync.Mutex
	sessions map[string]*store.Library
}

// NewImages creates the image service with an LRU read cache in front of
// the index.
func NewImages(batcher *upload.Batcher, index Indexer, logger *log.Log) *Images {
	cache, _ := lru.New[string, models.Image](defaultCacheSize)
	return &Images{
		batcher:  batcher,
		index:    index,
		cache:    cache,
		log:      logger,
		sessions: make(map[string]*store.Library),
	}
}

// library returns the user's library store, rehydrating it from the index on
// first use. A failed rehydration is not cached, so the next call retries.
func (s *Images) library(ctx context.Context, userID string) (*store.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lib, ok := s.sessions[userID]; ok {
		return lib, nil
	}
	lib := store.NewLibrary(libraryRemote{index: s.index, userID: userID})
	if err := lib.Rehydrate(ctx); err != nil {
		return nil, err
	}
	s.sessions[userID] = lib
	return lib, nil
}

// UploadBatch runs the pipeline and indexes every successful receipt. An
// item whose blob stored but whose index write failed is reported as a
// failure, since the image is not browsable.
func (s *Images) UploadBatch(ctx context.Context, userID string, items []upload.Item, onProgress func(upload.ProgressEvent)) *upload.BatchResult {
	out := s.batcher.UploadBatch(ctx, items, onProgress)

	var indexed []models.Image
	for i, r := range out.Results {
		if !r.IsSuccess() {
			continue
		}
		receipt := r.ToValue()
		img := models.Image{
			ID:         receipt.ID,
			Name:       receipt.Name,
			Size:       receipt.Size,
			FileRef:    receipt.FileRef,
			URL:        receipt.URL,
			UploadedAt: receipt.UploadedAt,
		}
		if err := s.index.SaveImage(ctx, userID, img); err != nil {
			if s.log != nil {
				s.log.Error("failed to index uploaded image",
					log.String("image_id", img.ID), log.Err(err))
			}
			out.Results[i] = result.NewFailure[upload.Receipt](
				fault.NewMutation("index-write-failed", "image stored but could not be indexed").
					WithCause(err).WithField("image_id", img.ID))
			out.Summary.Succeeded--
			out.Summary.Failed++
			out.Success = false
			continue
		}
		s.cache.Add(img.ID, img)
		indexed = append(indexed, img)
	}

	// Receipts are already confirmed in the index, so the library records
	// them without another round trip.
	if len(indexed) > 0 {
		s.mu.Lock()
		if lib, ok := s.sessions[userID]; ok {
			lib.Insert(indexed...)
		}
		s.mu.Unlock()
	}

	return out
}

// List returns the user's library.
func (s *Images) List(ctx context.Context, userID string) ([]models.Image, error) {
	lib, err := s.library(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lib.Images(), nil
}

// Get returns one record, served from the read cache when possible.
func (s *Images) Get(ctx context.Context, id string) (*models.Image, error) {
	if img, ok := s.cache.Get(id); ok {
		return &img, nil
	}
	img, err := s.index.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(img.ID, *img)
	return img, nil
}

// SetTags replaces one image's tag list and persists the updated record. A
// nil list clears the tags.
func (s *Images) SetTags(ctx context.Context, userID string, id string, tags []string) (*models.Image, error) {
	img, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *img
	updated.Tags = tags
	if err := s.index.SaveImage(ctx, userID, updated); err != nil {
		return nil, fault.NewMutation("tags-write-failed", "tags could not be persisted").
			WithCause(err).WithField("image_id", id)
	}
	s.cache.Add(id, updated)

	s.mu.Lock()
	if lib, ok := s.sessions[userID]; ok {
		lib.Update(updated)
	}
	s.mu.Unlock()
	return &updated, nil
}

// Delete removes the ids from the library and the read cache.
func (s *Images) Delete(ctx context.Context, userID string, ids []string) error {
	lib, err := s.library(ctx, userID)
	if err != nil {
		return err
	}
	if res := lib.DeleteImages(ctx, ids); res.IsError() {
		return res.Error()
	}
	for _, id := range ids {
		s.cache.Remove(id)
	}
	return nil
}
