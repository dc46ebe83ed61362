package service

import (
	"context"
	"sync"

	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/models"
	"github.com/imgvault/imgvault/store"
)

// favoriteRemote scopes the index to one user so it satisfies
// store.FavoriteRemote.
type favoriteRemote struct {
	index  Indexer
	userID string
}

func (r favoriteRemote) AddFavorites(ctx context.Context, ids []string) error {
	return r.index.AddFavorites(ctx, r.userID, ids)
}

func (r favoriteRemote) RemoveFavorites(ctx context.Context, ids []string) error {
	return r.index.RemoveFavorites(ctx, r.userID, ids)
}

func (r favoriteRemote) ListFavorites(ctx context.Context) ([]string, error) {
	return r.index.ListFavorites(ctx, r.userID)
}

// Favorites serves the favorites read and mutate operations. Each user's
// membership lives in an optimistic store, so a rejected mutation leaves the
// set exactly as it was before the call.
type Favorites struct {
	index    Indexer
	mu       sync.Mutex
	sessions map[string]*store.FavoriteStore
}

// NewFavorites creates the favorites service.
func NewFavorites(index Indexer) *Favorites {
	return &Favorites{
		index:    index,
		sessions: make(map[string]*store.FavoriteStore),
	}
}

// session returns the user's store, rehydrating it from the index on first
// use. A failed rehydration is not cached, so the next call retries.
func (s *Favorites) session(ctx context.Context, userID string) (*store.FavoriteStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fs, ok := s.sessions[userID]; ok {
		return fs, nil
	}
	fs := store.NewFavoriteStore(favoriteRemote{index: s.index, userID: userID})
	if err := fs.Rehydrate(ctx); err != nil {
		return nil, err
	}
	s.sessions[userID] = fs
	return fs, nil
}

// List returns the user's favorite ids, sorted.
func (s *Favorites) List(ctx context.Context, userID string) ([]string, error) {
	fs, err := s.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fs.Members(), nil
}

// Add marks the ids as favorites.
func (s *Favorites) Add(ctx context.Context, userID string, ids []string) error {
	fs, err := s.session(ctx, userID)
	if err != nil {
		return err
	}
	if res := fs.AddFavorites(ctx, ids); res.IsError() {
		return res.Error()
	}
	return nil
}

// Remove unmarks the ids.
func (s *Favorites) Remove(ctx context.Context, userID string, ids []string) error {
	fs, err := s.session(ctx, userID)
	if err != nil {
		return err
	}
	if res := fs.RemoveFavorites(ctx, ids); res.IsError() {
		return res.Error()
	}
	return nil
}

// Toggle flips one id and reports the resulting membership.
func (s *Favorites) Toggle(ctx context.Context, userID string, id string) (bool, error) {
	fs, err := s.session(ctx, userID)
	if err != nil {
		return false, err
	}
	if res := fs.ToggleFavorite(ctx, id); res.IsError() {
		return fs.Contains(id), res.Error()
	}
	return fs.Contains(id), nil
}

// Batch applies one action tag to the whole id list.
func (s *Favorites) Batch(ctx context.Context, userID string, action models.FavoriteAction, ids []string) error {
	switch action {
	case models.FavoriteAdd:
		return s.Add(ctx, userID, ids)
	case models.FavoriteRemove:
		return s.Remove(ctx, userID, ids)
	default:
		return fault.NewValidation("unknown-action", "action must be \"add\" or \"remove\"").
			WithField("action", string(action))
	}
}
