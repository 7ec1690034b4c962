package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-formblocks/pkg/store"
)

// FavoriteChange is published on store.TopicFavorites.
type FavoriteChange struct {
	URL   string
	Added bool
}

// IsFavorite reports whether url is a favourite.
func (m *Manager) IsFavorite(ctx context.Context, fingerprint, url string) (bool, error) {
	if m.client == nil {
		return false, ErrNoClient
	}
	fav, err := m.client.IsFavorite(ctx, fingerprint, url)
	if err != nil {
		m.HandleError(ctx, err)
		return false, fmt.Errorf("session: get favourite: %w", err)
	}
	return fav, nil
}

// AddFavorite stores url as a favourite and notifies subscribers.
func (m *Manager) AddFavorite(ctx context.Context, fingerprint, url, title string) error {
	if m.client == nil {
		return ErrNoClient
	}
	if err := m.client.SetFavorite(ctx, fingerprint, url, title); err != nil {
		m.HandleError(ctx, err)
		return fmt.Errorf("session: set favourite: %w", err)
	}
	return m.favoritesChanged(ctx, FavoriteChange{URL: url, Added: true})
}

// RemoveFavorite removes url from the favourites and notifies subscribers.
func (m *Manager) RemoveFavorite(ctx context.Context, fingerprint, url string) error {
	if m.client == nil {
		return ErrNoClient
	}
	if err := m.client.DeleteFavorite(ctx, fingerprint, url); err != nil {
		m.HandleError(ctx, err)
		return fmt.Errorf("session: delete favourite: %w", err)
	}
	return m.favoritesChanged(ctx, FavoriteChange{URL: url})
}

// SyncFavorites loads the favourites list from path and caches it under
// store.KeyFavoritesList.
func (m *Manager) SyncFavorites(ctx context.Context, path, fingerprint string) (json.RawMessage, error) {
	if m.client == nil {
		return nil, ErrNoClient
	}
	data, err := m.client.ListFavorites(ctx, path, fingerprint)
	if err != nil {
		m.HandleError(ctx, err)
		return nil, fmt.Errorf("session: list favourites: %w", err)
	}
	if len(data) > 0 {
		if err := m.store.Set(ctx, store.KeyFavoritesList, string(data)); err != nil {
			return nil, fmt.Errorf("session: cache favourites: %w", err)
		}
	}
	return data, nil
}

func (m *Manager) favoritesChanged(ctx context.Context, change FavoriteChange) error {
	for _, key := range []string{store.KeyFavoritesSet, store.KeyFavoritesDelete} {
		if err := m.store.Set(ctx, key, "true"); err != nil {
			return fmt.Errorf("session: flag favourites: %w", err)
		}
	}
	m.store.Bus().Publish(store.TopicFavorites, change)
	return nil
}
