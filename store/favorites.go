package store

import (
	"context"
	"sort"
	"sync"

	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/result"
)

// FavoriteStore is the optimistic membership set for favorited image ids.
// Membership is idempotent: adding a present id or removing an absent one is
// observable as a no-op.
type FavoriteStore struct {
	// mutMu serializes whole mutations (snapshot, apply, confirm, revert)
	// so a second mutation never snapshots unconfirmed state.
	mutMu sync.Mutex
	// stateMu guards members for readers while a confirm call is in flight.
	stateMu sync.RWMutex
	members map[string]struct{}
	remote  FavoriteRemote
}

// NewFavoriteStore creates an empty store confirmed against remote.
func NewFavoriteStore(remote FavoriteRemote) *FavoriteStore {
	return &FavoriteStore{
		members: make(map[string]struct{}),
		remote:  remote,
	}
}

// Rehydrate replaces local membership with the remote's confirmed view.
func (s *FavoriteStore) Rehydrate(ctx context.Context) error {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	ids, err := s.remote.ListFavorites(ctx)
	if err != nil {
		return fault.NewMutation("favorites-rehydrate-failed", mutationMessage(err)).WithCause(err)
	}

	fresh := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		fresh[id] = struct{}{}
	}

	s.stateMu.Lock()
	s.members = fresh
	s.stateMu.Unlock()
	return nil
}

// Contains reports current (possibly optimistic) membership.
func (s *FavoriteStore) Contains(id string) bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	_, ok := s.members[id]
	return ok
}

// Members returns the current membership, sorted for stable output.
func (s *FavoriteStore) Members() []string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	out := make([]string, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the current membership size.
func (s *FavoriteStore) Len() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return len(s.members)
}

// AddFavorite optimistically adds one id.
func (s *FavoriteStore) AddFavorite(ctx context.Context, id string) result.Result[Ack] {
	return s.AddFavorites(ctx, []string{id})
}

// RemoveFavorite optimistically removes one id.
func (s *FavoriteStore) RemoveFavorite(ctx context.Context, id string) result.Result[Ack] {
	return s.RemoveFavorites(ctx, []string{id})
}

// AddFavorites optimistically adds all ids. The remote batch endpoint is
// treated as all-or-nothing: a failure reverts the entire batch, never a
// partial subset.
func (s *FavoriteStore) AddFavorites(ctx context.Context, ids []string) result.Result[Ack] {
	return s.mutate(ctx, ids, true)
}

// RemoveFavorites optimistically removes all ids with whole-batch rollback.
func (s *FavoriteStore) RemoveFavorites(ctx context.Context, ids []string) result.Result[Ack] {
	return s.mutate(ctx, ids, false)
}

// ToggleFavorite adds the id if absent and removes it if present. The branch
// is decided from current in-memory membership; no remote read is needed.
func (s *FavoriteStore) ToggleFavorite(ctx context.Context, id string) result.Result[Ack] {
	if s.Contains(id) {
		return s.RemoveFavorites(ctx, []string{id})
	}
	return s.AddFavorites(ctx, []string{id})
}

func (s *FavoriteStore) mutate(ctx context.Context, ids []string, add bool) result.Result[Ack] {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	snapshot := s.snapshot()

	s.stateMu.Lock()
	for _, id := range ids {
		if add {
			s.members[id] = struct{}{}
		} else {
			delete(s.members, id)
		}
	}
	s.stateMu.Unlock()

	var err error
	if add {
		err = s.remote.AddFavorites(ctx, ids)
	} else {
		err = s.remote.RemoveFavorites(ctx, ids)
	}
	if err != nil {
		s.restore(snapshot)
		code := "favorites-add-failed"
		if !add {
			code = "favorites-remove-failed"
		}
		return result.NewFailure[Ack](
			fault.NewMutation(code, mutationMessage(err)).
				WithCause(err).WithField("ids", ids))
	}

	return result.NewSuccess(&Ack{IDs: ids})
}

// snapshot copies the membership about to be mutated. The copy is owned by
// the in-flight mutation and discarded on success.
func (s *FavoriteStore) snapshot() map[string]struct{} {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	snap := make(map[string]struct{}, len(s.members))
	for id := range s.members {
		snap[id] = struct{}{}
	}
	return snap
}

func (s *FavoriteStore) restore(snapshot map[string]struct{}) {
	s.stateMu.Lock()
	s.members = snapshot
	s.stateMu.Unlock()
}

// mutationMessage extracts the human-readable message from a remote error.
func mutationMessage(err error) string {
	if f, ok := err.(fault.Fault); ok && f.FetchMessage() != "" {
		return f.FetchMessage()
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "remote mutation failed"
}
