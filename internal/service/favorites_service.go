package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
)

// FavoritesService backs the explore page: coins starred by the user and
// whether the full coin list is expanded.
type FavoritesService interface {
	Favorites() []models.PortfolioAsset
	IsFavorite(id string) bool
	ToggleFavorite(asset models.PortfolioAsset) bool
	ShowAllCoins() bool
	SetShowAllCoins(show bool)
}

type favoritesService struct {
	store *persist.Store
	log   *slog.Logger
	now   func() time.Time

	mu        sync.RWMutex
	favorites []models.PortfolioAsset
	showAll   bool
}

func NewFavoritesService(store *persist.Store, log *slog.Logger, now func() time.Time) FavoritesService {
	s := &favoritesService{
		store:   store,
		log:     log,
		now:     clockOrDefault(now),
		showAll: persist.Load(store, KeyShowAllCoins, false),
	}

	s.favorites = s.normalize(persist.Load(store, KeyFavorites, []models.PortfolioAsset{}))

	return s
}

// normalize drops records without an id or with a repeated one and stamps a
// missing addedAt.
func (s *favoritesService) normalize(stored []models.PortfolioAsset) []models.PortfolioAsset {
	out := make([]models.PortfolioAsset, 0, len(stored))
	for _, fav := range stored {
		if fav.ID == "" || containsAsset(out, fav.ID) {
			continue
		}
		if fav.AddedAt.IsZero() {
			fav.AddedAt = models.NewTimestamp(s.now())
		}
		out = append(out, fav)
	}
	return out
}

func (s *favoritesService) Favorites() []models.PortfolioAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.favorites)
}

func (s *favoritesService) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return containsAsset(s.favorites, id)
}

// ToggleFavorite stars or unstars the asset and reports whether it is now a
// favorite.
func (s *favoritesService) ToggleFavorite(asset models.PortfolioAsset) bool {
	if asset.ID == "" {
		s.log.Warn("rejecting favorite without id", "name", asset.Name)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Shared() {
		var stored []models.PortfolioAsset
		if persist.LoadInto(s.store, KeyFavorites, &stored) {
			s.favorites = s.normalize(stored)
		}
	}

	if _, removed := removeAsset(&s.favorites, asset.ID); removed {
		s.store.Save(KeyFavorites, s.favorites)
		return false
	}

	asset.AddedAt = models.NewTimestamp(s.now())
	s.favorites = append(s.favorites, asset)
	s.store.Save(KeyFavorites, s.favorites)
	return true
}

func (s *favoritesService) ShowAllCoins() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.showAll
}

func (s *favoritesService) SetShowAllCoins(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.showAll = show
	s.store.Save(KeyShowAllCoins, show)
}
