package service

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/metrics"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
	"github.com/shopspring/decimal"
)

// PortfolioService owns the portfolio, watchlist, notification and alert
// collections. Every mutation is persisted before the call returns; storage
// failures are logged by the store and never surface here.
type PortfolioService interface {
	Portfolio() []models.PortfolioAsset
	Watchlist() []models.PortfolioAsset
	Notifications() []models.Notification
	Alerts() []models.Alert

	AddToPortfolio(asset models.PortfolioAsset) bool
	AddToWatchlist(asset models.PortfolioAsset) bool
	RemoveFromPortfolio(id string) bool
	RemoveFromWatchlist(id string) bool

	ClearNotifications()
	MarkNotificationAsRead(id string)
	MarkAllNotificationsAsRead()
	UnreadNotificationCount() int

	AddAlert(alert models.Alert) (models.Alert, error)
	ClearAllAlerts()
	MarkAlertAsRead(id string)
	UnreadAlertCount() int

	Summary() models.PortfolioView
}

type portfolioService struct {
	store    *persist.Store
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	portfolio     []models.PortfolioAsset
	watchlist     []models.PortfolioAsset
	notifications []models.Notification
	alerts        []models.Alert
	pending       []models.NotificationEvent
}

// NewPortfolioService loads the four collections from store. A nil notifier
// disables the feed and a nil clock means time.Now.
//
// On a shared store every call re-reads the collections first, so changes
// written by other instances are merged instead of overwritten.
func NewPortfolioService(store *persist.Store, notifier Notifier, log *slog.Logger, now func() time.Time) PortfolioService {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	s := &portfolioService{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      clockOrDefault(now),
	}

	s.portfolio = s.normalizeAssets(persist.Load(store, KeyPortfolio, []models.PortfolioAsset{}))
	s.watchlist = s.normalizeAssets(persist.Load(store, KeyWatchlist, []models.PortfolioAsset{}))
	s.notifications = s.normalizeNotifications(persist.Load(store, KeyNotifications, []models.Notification{}))
	s.alerts = s.normalizeAlerts(persist.Load(store, KeyAlerts, []models.Alert{}))
	s.watchlist = s.excludeHeld(s.watchlist)

	log.Debug("portfolio state loaded",
		"portfolio", len(s.portfolio),
		"watchlist", len(s.watchlist),
		"notifications", len(s.notifications),
		"alerts", len(s.alerts),
	)

	return s
}

func (s *portfolioService) Portfolio() []models.PortfolioAsset {
	s.lock()
	defer s.mu.Unlock()

	return slices.Clone(s.portfolio)
}

func (s *portfolioService) Watchlist() []models.PortfolioAsset {
	s.lock()
	defer s.mu.Unlock()

	return slices.Clone(s.watchlist)
}

func (s *portfolioService) Notifications() []models.Notification {
	s.lock()
	defer s.mu.Unlock()

	return slices.Clone(s.notifications)
}

func (s *portfolioService) Alerts() []models.Alert {
	s.lock()
	defer s.mu.Unlock()

	return slices.Clone(s.alerts)
}

func (s *portfolioService) AddToPortfolio(asset models.PortfolioAsset) bool {
	s.lock()
	defer s.unlockAndNotify()

	if asset.ID == "" {
		s.log.Warn("rejecting asset without id", "name", asset.Name)
		return false
	}

	if containsAsset(s.portfolio, asset.ID) {
		metrics.RejectedAdds.WithLabelValues("portfolio").Inc()
		s.notify(fmt.Sprintf("%s is already in your portfolio", displayName(asset)), models.NotificationInfo)
		return false
	}

	s.portfolio = append(s.portfolio, s.newRecord(asset))
	s.store.Save(KeyPortfolio, s.portfolio)

	// A held asset is no longer only watched.
	if _, watched := removeAsset(&s.watchlist, asset.ID); watched {
		s.store.Save(KeyWatchlist, s.watchlist)
	}

	s.notify(fmt.Sprintf("%s added to your portfolio", displayName(asset)), models.NotificationSuccess)
	return true
}

func (s *portfolioService) AddToWatchlist(asset models.PortfolioAsset) bool {
	s.lock()
	defer s.unlockAndNotify()

	if asset.ID == "" {
		s.log.Warn("rejecting asset without id", "name", asset.Name)
		return false
	}

	if containsAsset(s.portfolio, asset.ID) {
		metrics.RejectedAdds.WithLabelValues("watchlist").Inc()
		s.notify(fmt.Sprintf("%s is already in your portfolio", displayName(asset)), models.NotificationInfo)
		return false
	}

	if containsAsset(s.watchlist, asset.ID) {
		metrics.RejectedAdds.WithLabelValues("watchlist").Inc()
		s.notify(fmt.Sprintf("%s is already in your watchlist", displayName(asset)), models.NotificationInfo)
		return false
	}

	s.watchlist = append(s.watchlist, s.newRecord(asset))
	s.store.Save(KeyWatchlist, s.watchlist)

	s.notify(fmt.Sprintf("%s added to your watchlist", displayName(asset)), models.NotificationSuccess)
	return true
}

func (s *portfolioService) RemoveFromPortfolio(id string) bool {
	s.lock()
	defer s.unlockAndNotify()

	removed, ok := removeAsset(&s.portfolio, id)
	if !ok {
		return false
	}

	s.store.Save(KeyPortfolio, s.portfolio)
	s.notify(fmt.Sprintf("%s removed from your portfolio", displayName(removed)), models.NotificationInfo)
	return true
}

func (s *portfolioService) RemoveFromWatchlist(id string) bool {
	s.lock()
	defer s.unlockAndNotify()

	removed, ok := removeAsset(&s.watchlist, id)
	if !ok {
		return false
	}

	s.store.Save(KeyWatchlist, s.watchlist)
	s.notify(fmt.Sprintf("%s removed from your watchlist", displayName(removed)), models.NotificationInfo)
	return true
}

func (s *portfolioService) ClearNotifications() {
	s.lock()
	defer s.mu.Unlock()

	s.notifications = []models.Notification{}
	s.store.Save(KeyNotifications, s.notifications)
}

func (s *portfolioService) MarkNotificationAsRead(id string) {
	s.lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.notifications {
		if s.notifications[i].ID == id && !s.notifications[i].Read {
			s.notifications[i].Read = true
			changed = true
		}
	}
	if changed {
		s.store.Save(KeyNotifications, s.notifications)
	}
}

func (s *portfolioService) MarkAllNotificationsAsRead() {
	s.lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.store.Save(KeyNotifications, s.notifications)
}

func (s *portfolioService) UnreadNotificationCount() int {
	s.lock()
	defer s.mu.Unlock()

	return s.unreadNotifications()
}

// AddAlert records a triggered price alert. Id, creation time and read flag
// are always assigned here.
func (s *portfolioService) AddAlert(alert models.Alert) (models.Alert, error) {
	const op = "service.AddAlert"

	if alert.CoinID == "" {
		return models.Alert{}, fmt.Errorf("%s: coin id is required: %w", op, errs.ErrInvalidAsset)
	}
	if !alert.Direction.Valid() {
		return models.Alert{}, fmt.Errorf("%s: direction %q: %w", op, alert.Direction, errs.ErrInvalidAsset)
	}

	s.lock()
	defer s.mu.Unlock()

	alert.ID = newID()
	alert.CreatedAt = models.NewTimestamp(s.now())
	alert.Read = false
	if alert.Message == "" {
		alert.Message = alertMessage(alert)
	}

	s.alerts = append(s.alerts, alert)
	s.store.Save(KeyAlerts, s.alerts)

	return alert, nil
}

func (s *portfolioService) ClearAllAlerts() {
	s.lock()
	defer s.mu.Unlock()

	s.alerts = []models.Alert{}
	s.store.Save(KeyAlerts, s.alerts)
}

func (s *portfolioService) MarkAlertAsRead(id string) {
	s.lock()
	defer s.mu.Unlock()

	changed := false
	for i := range s.alerts {
		if s.alerts[i].ID == id && !s.alerts[i].Read {
			s.alerts[i].Read = true
			changed = true
		}
	}
	if changed {
		s.store.Save(KeyAlerts, s.alerts)
	}
}

func (s *portfolioService) UnreadAlertCount() int {
	s.lock()
	defer s.mu.Unlock()

	count := 0
	for _, a := range s.alerts {
		if !a.Read {
			count++
		}
	}
	return count
}

// Summary values the portfolio at the stored prices. Assets are listed most
// recently added first; the 24h change is weighted by position value.
func (s *portfolioService) Summary() models.PortfolioView {
	assets := s.Portfolio()

	slices.SortStableFunc(assets, func(a, b models.PortfolioAsset) int {
		return b.AddedAt.Compare(a.AddedAt.Time)
	})

	view := models.PortfolioView{
		TotalValue: decimal.Zero,
		Change24h:  decimal.Zero,
		Assets:     make([]models.AssetView, 0, len(assets)),
	}

	weighted := decimal.Zero
	for _, asset := range assets {
		total := asset.Value()
		view.Assets = append(view.Assets, models.AssetView{
			ID:        asset.ID,
			Symbol:    asset.Symbol,
			Name:      asset.Name,
			Quantity:  asset.Quantity(),
			Price:     asset.Price,
			Change24h: asset.Change24h,
			Total:     total,
			AddedAt:   asset.AddedAt,
		})
		view.TotalValue = view.TotalValue.Add(total)
		weighted = weighted.Add(total.Mul(asset.Change24h))
	}

	if !view.TotalValue.IsZero() {
		view.Change24h = weighted.DivRound(view.TotalValue, 4)
	}

	return view
}

// newRecord builds the stored copy of a caller supplied asset.
func (s *portfolioService) newRecord(asset models.PortfolioAsset) models.PortfolioAsset {
	if !asset.Amount.Valid {
		asset.Amount = decimal.NewNullDecimal(decimal.NewFromInt(1))
	}
	asset.AddedAt = models.NewTimestamp(s.now())
	return asset
}

// notify appends a notification, persists the collection and queues the
// event for the notifier. Callers hold s.mu.
func (s *portfolioService) notify(message string, kind models.NotificationKind) {
	n := models.Notification{
		ID:        newID(),
		Message:   message,
		Kind:      kind,
		CreatedAt: models.NewTimestamp(s.now()),
	}

	s.notifications = append(s.notifications, n)
	s.store.Save(KeyNotifications, s.notifications)
	metrics.NotificationsTotal.WithLabelValues(string(kind)).Inc()

	s.pending = append(s.pending, models.NotificationEvent{
		Event:        "notification",
		Notification: n,
		Unread:       s.unreadNotifications(),
	})
}

// unlockAndNotify releases s.mu and then hands queued events to the notifier.
func (s *portfolioService) unlockAndNotify() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, event := range events {
		s.notifier.Notify(event)
	}
}

// lock takes s.mu and, on a shared store, reloads every collection that
// has a stored value. Collections without one keep the in-memory copy.
func (s *portfolioService) lock() {
	s.mu.Lock()
	if s.store.Shared() {
		s.refreshLocked()
	}
}

func (s *portfolioService) refreshLocked() {
	var portfolio, watchlist []models.PortfolioAsset
	if persist.LoadInto(s.store, KeyPortfolio, &portfolio) {
		s.portfolio = s.normalizeAssets(portfolio)
	}
	if persist.LoadInto(s.store, KeyWatchlist, &watchlist) {
		s.watchlist = s.normalizeAssets(watchlist)
	}
	s.watchlist = s.excludeHeld(s.watchlist)

	var notifications []models.Notification
	if persist.LoadInto(s.store, KeyNotifications, &notifications) {
		s.notifications = s.normalizeNotifications(notifications)
	}

	var alerts []models.Alert
	if persist.LoadInto(s.store, KeyAlerts, &alerts) {
		s.alerts = s.normalizeAlerts(alerts)
	}
}

// excludeHeld drops watchlist entries whose id is already in the portfolio.
// The result is not written back.
func (s *portfolioService) excludeHeld(watchlist []models.PortfolioAsset) []models.PortfolioAsset {
	out := make([]models.PortfolioAsset, 0, len(watchlist))
	for _, asset := range watchlist {
		if containsAsset(s.portfolio, asset.ID) {
			s.log.Warn("dropping watched asset that is also held", "id", asset.ID)
			continue
		}
		out = append(out, asset)
	}
	return out
}

func (s *portfolioService) unreadNotifications() int {
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// normalizeAssets migrates records written by older versions: a missing
// amount becomes one unit, a missing addedAt becomes now, and repeated ids
// keep their first occurrence.
func (s *portfolioService) normalizeAssets(assets []models.PortfolioAsset) []models.PortfolioAsset {
	out := make([]models.PortfolioAsset, 0, len(assets))
	seen := make(map[string]struct{}, len(assets))

	for _, asset := range assets {
		if asset.ID == "" {
			continue
		}
		if _, dup := seen[asset.ID]; dup {
			s.log.Warn("dropping duplicate stored asset", "id", asset.ID)
			continue
		}
		seen[asset.ID] = struct{}{}

		if !asset.Amount.Valid {
			asset.Amount = decimal.NewNullDecimal(decimal.NewFromInt(1))
		}
		if asset.AddedAt.IsZero() {
			asset.AddedAt = models.NewTimestamp(s.now())
		}
		out = append(out, asset)
	}
	return out
}

func (s *portfolioService) normalizeNotifications(notifications []models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(notifications))
	for _, n := range notifications {
		if n.ID == "" {
			n.ID = newID()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = models.NewTimestamp(s.now())
		}
		out = append(out, n)
	}
	return out
}

func (s *portfolioService) normalizeAlerts(alerts []models.Alert) []models.Alert {
	out := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.ID == "" {
			a.ID = newID()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = models.NewTimestamp(s.now())
		}
		out = append(out, a)
	}
	return out
}

func containsAsset(assets []models.PortfolioAsset, id string) bool {
	return slices.ContainsFunc(assets, func(a models.PortfolioAsset) bool {
		return a.ID == id
	})
}

func removeAsset(assets *[]models.PortfolioAsset, id string) (models.PortfolioAsset, bool) {
	i := slices.IndexFunc(*assets, func(a models.PortfolioAsset) bool {
		return a.ID == id
	})
	if i < 0 {
		return models.PortfolioAsset{}, false
	}

	removed := (*assets)[i]
	*assets = slices.Delete(slices.Clone(*assets), i, i+1)
	return removed, true
}

func displayName(asset models.PortfolioAsset) string {
	switch {
	case asset.Name != "":
		return asset.Name
	case asset.Symbol != "":
		return asset.Symbol
	default:
		return asset.ID
	}
}

func alertMessage(alert models.Alert) string {
	name := alert.CoinName
	if name == "" {
		name = alert.CoinID
	}
	if alert.Direction == models.AlertAbove {
		return fmt.Sprintf("%s rose above %s", name, alert.TargetPrice.String())
	}
	return fmt.Sprintf("%s fell below %s", name, alert.TargetPrice.String())
}
