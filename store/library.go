package store

import (
	"context"
	"sync"

	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/models"
	"github.com/imgvault/imgvault/result"
)

// Library is the optimistic image list. Deletions are applied locally first
// and reverted in full if the remote rejects them.
type Library struct {
	mutMu   sync.Mutex
	stateMu sync.RWMutex
	images  []models.Image
	remote  LibraryRemote
}

// NewLibrary creates an empty library confirmed against remote.
func NewLibrary(remote LibraryRemote) *Library {
	return &Library{remote: remote}
}

// Rehydrate replaces the local list with the remote's confirmed view.
func (l *Library) Rehydrate(ctx context.Context) error {
	l.mutMu.Lock()
	defer l.mutMu.Unlock()

	images, err := l.remote.ListImages(ctx)
	if err != nil {
		return fault.NewMutation("library-rehydrate-failed", mutationMessage(err)).WithCause(err)
	}

	l.stateMu.Lock()
	l.images = images
	l.stateMu.Unlock()
	return nil
}

// Images returns a copy of the current (possibly optimistic) list.
func (l *Library) Images() []models.Image {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	out := make([]models.Image, len(l.images))
	copy(out, l.images)
	return out
}

// Len returns the current list length.
func (l *Library) Len() int {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	return len(l.images)
}

// Insert records an already-persisted image (e.g. a fresh upload receipt).
// The remote index was written by the upload path, so there is nothing to
// confirm or revert here.
func (l *Library) Insert(images ...models.Image) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	l.images = append(l.images, images...)
}

// Update replaces the stored record matching img's ID. Like Insert, the
// caller has already persisted the change remotely, so there is nothing to
// confirm or revert.
func (l *Library) Update(img models.Image) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	for i := range l.images {
		if l.images[i].ID == img.ID {
			l.images[i] = img
			return
		}
	}
}

// DeleteImage optimistically removes one image.
func (l *Library) DeleteImage(ctx context.Context, id string) result.Result[Ack] {
	return l.DeleteImages(ctx, []string{id})
}

// DeleteImages optimistically removes all ids. A remote failure reverts the
// entire batch; the list is never left partially deleted.
func (l *Library) DeleteImages(ctx context.Context, ids []string) result.Result[Ack] {
	l.mutMu.Lock()
	defer l.mutMu.Unlock()

	snapshot := l.snapshot()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	l.stateMu.Lock()
	kept := l.images[:0:0]
	for _, img := range l.images {
		if _, gone := drop[img.ID]; !gone {
			kept = append(kept, img)
		}
	}
	l.images = kept
	l.stateMu.Unlock()

	if err := l.remote.DeleteImages(ctx, ids); err != nil {
		l.restore(snapshot)
		return result.NewFailure[Ack](
			fault.NewMutation("image-delete-failed", mutationMessage(err)).
				WithCause(err).WithField("ids", ids))
	}

	return result.NewSuccess(&Ack{IDs: ids})
}

func (l *Library) snapshot() []models.Image {
	l.stateMu.RLock()
	defer l.stateMu.RUnlock()
	snap := make([]models.Image, len(l.images))
	copy(snap, l.images)
	return snap
}

func (l *Library) restore(snapshot []models.Image) {
	l.stateMu.Lock()
	l.images = snapshot
	l.stateMu.Unlock()
}
