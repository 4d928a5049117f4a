package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
)

// Storage keys, one per persisted collection.
const (
	KeyPortfolio     = "crypto-portfolio"
	KeyWatchlist     = "crypto-watchlist"
	KeyNotifications = "crypto-notifications"
	KeyAlerts        = "crypto-alerts"
	KeyUserProfile   = "user-profile"
	KeyTheme         = "theme"
	KeyLanguage      = "language"
	KeyMessageRead   = "inbox-read-state"
	KeyFavorites     = "favorite-coins"
	KeyShowAllCoins  = "show-all-coins"
)

// Notifier receives every notification appended by the portfolio container.
type Notifier interface {
	Notify(event models.NotificationEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.NotificationEvent) {}

// newID returns a time ordered identifier, so ids sort by recency.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
