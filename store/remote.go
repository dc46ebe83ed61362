// Package store provides optimistic client-state containers. A mutation is
// applied to in-memory state first, then confirmed with a remote call; on
// remote failure the pre-mutation snapshot is restored and the error is
// surfaced. Mutations on one store are serialized end to end, so overlapping
// mutations cannot base their snapshots on unconfirmed state.
package store

import (
	"context"

	"github.com/imgvault/imgvault/models"
)

// FavoriteRemote confirms favorite-set mutations and serves rehydration.
type FavoriteRemote interface {
	AddFavorites(ctx context.Context, ids []string) error
	RemoveFavorites(ctx context.Context, ids []string) error
	ListFavorites(ctx context.Context) ([]string, error)
}

// LibraryRemote confirms image-list mutations and serves rehydration.
type LibraryRemote interface {
	DeleteImages(ctx context.Context, ids []string) error
	ListImages(ctx context.Context) ([]models.Image, error)
}

// Ack reports the identifiers a confirmed mutation touched.
type Ack struct {
	IDs []string
}
