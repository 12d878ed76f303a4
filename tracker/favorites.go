package tracker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pqtu-edu/progresskit/model"
	"github.com/pqtu-edu/progresskit/storage"
	"go.uber.org/zap"
)

// Favorite is one chat exchange the user pinned for later reading.
type Favorite struct {
	MessageID string        `json:"message_id"`
	Persona   model.Persona `json:"persona"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	SavedAt   time.Time     `json:"saved_at"`
}

func (t *Tracker) favoritesKey() string {
	return storage.UserKey(storage.KeyFavorites, t.userID)
}

func (t *Tracker) loadFavorites(ctx context.Context) []Favorite {
	raw, ok := t.store.Get(ctx, t.favoritesKey())
	if !ok {
		return nil
	}
	var favs []Favorite
	if err := json.Unmarshal([]byte(raw), &favs); err != nil {
		t.logger.Warn("favorites parse failed, discarding", zap.Error(err))
		return nil
	}
	return favs
}

func (t *Tracker) saveFavorites(ctx context.Context, favs []Favorite) {
	raw, err := json.Marshal(favs)
	if err != nil {
		t.logger.Error("favorites marshal failed", zap.Error(err))
		return
	}
	t.store.Set(ctx, t.favoritesKey(), string(raw))
}

// AddFavorite pins a chat exchange. Re-adding the same message refreshes
// it in place. Past the cap the oldest favorite is evicted.
func (t *Tracker) AddFavorite(ctx context.Context, fav Favorite) error {
	if fav.MessageID == "" {
		return &model.ValidationError{Field: "message_id", Reason: "must not be empty"}
	}
	if fav.SavedAt.IsZero() {
		fav.SavedAt = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	favs := t.loadFavorites(ctx)
	for i := range favs {
		if favs[i].MessageID == fav.MessageID {
			favs[i] = fav
			t.saveFavorites(ctx, favs)
			return nil
		}
	}
	favs = append(favs, fav)
	limit := t.cfg.FavoritesCap
	if limit <= 0 {
		limit = 100
	}
	if len(favs) > limit {
		evicted := favs[0]
		favs = favs[1:]
		t.logger.Info("favorites cap reached, evicting oldest",
			zap.String("message_id", evicted.MessageID))
	}
	t.saveFavorites(ctx, favs)
	return nil
}

// RemoveFavorite unpins a message. Removing an unknown ID is a no-op.
func (t *Tracker) RemoveFavorite(ctx context.Context, messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	favs := t.loadFavorites(ctx)
	for i := range favs {
		if favs[i].MessageID == messageID {
			favs = append(favs[:i], favs[i+1:]...)
			t.saveFavorites(ctx, favs)
			return
		}
	}
}

// Favorites returns the pinned exchanges, oldest first.
func (t *Tracker) Favorites(ctx context.Context) []Favorite {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadFavorites(ctx)
}

// IsFavorite reports whether the message is pinned.
func (t *Tracker) IsFavorite(ctx context.Context, messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.loadFavorites(ctx) {
		if f.MessageID == messageID {
			return true
		}
	}
	return false
}
