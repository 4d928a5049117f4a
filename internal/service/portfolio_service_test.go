package service_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/persist"
	"github.com/manjushapaul/Crypto-sub001/internal/repository"
	"github.com/manjushapaul/Crypto-sub001/internal/service"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore() (*persist.Store, *repository.MemoryKVRepository) {
	repo := repository.NewMemoryKVRepository()
	return persist.New(repo, testLogger()), repo
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (n *recordingNotifier) Notify(event models.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func bitcoin() models.PortfolioAsset {
	return models.PortfolioAsset{
		ID:        "bitcoin",
		Name:      "Bitcoin",
		Symbol:    "BTC",
		Price:     decimal.RequireFromString("64000"),
		Change24h: decimal.RequireFromString("2.5"),
	}
}

func ethereum() models.PortfolioAsset {
	return models.PortfolioAsset{
		ID:        "ethereum",
		Name:      "Ethereum",
		Symbol:    "ETH",
		Price:     decimal.RequireFromString("3000"),
		Change24h: decimal.RequireFromString("-1"),
		Amount:    decimal.NewNullDecimal(decimal.RequireFromString("2")),
	}
}

func unread(notifications []models.Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

func TestAddToPortfolio(t *testing.T) {
	store, _ := newTestStore()
	notifier := &recordingNotifier{}
	svc := service.NewPortfolioService(store, notifier, testLogger(), func() time.Time { return fixedNow })

	t.Run("new_asset", func(t *testing.T) {
		asset := bitcoin()
		asset.AddedAt = models.NewTimestamp(time.Unix(0, 0))

		if !svc.AddToPortfolio(asset) {
			t.Fatalf("Expected AddToPortfolio to succeed")
		}

		portfolio := svc.Portfolio()
		if len(portfolio) != 1 || portfolio[0].ID != "bitcoin" {
			t.Fatalf("Expected bitcoin in portfolio, got %+v", portfolio)
		}
		if !portfolio[0].Amount.Valid || !portfolio[0].Amount.Decimal.Equal(decimal.NewFromInt(1)) {
			t.Errorf("Expected default amount 1, got %v", portfolio[0].Amount)
		}
		if !portfolio[0].AddedAt.Equal(fixedNow) {
			t.Errorf("Expected addedAt to be assigned by the service, got %v", portfolio[0].AddedAt.Time)
		}

		notifications := svc.Notifications()
		if len(notifications) != 1 {
			t.Fatalf("Expected 1 notification, got %d", len(notifications))
		}
		if notifications[0].Kind != models.NotificationSuccess || !strings.Contains(notifications[0].Message, "Bitcoin") {
			t.Errorf("Expected success notification naming Bitcoin, got %+v", notifications[0])
		}
		if len(notifier.events) != 1 || notifier.events[0].Unread != 1 {
			t.Errorf("Expected one forwarded event with 1 unread, got %+v", notifier.events)
		}
	})

	t.Run("keeps_caller_amount", func(t *testing.T) {
		if !svc.AddToPortfolio(ethereum()) {
			t.Fatalf("Expected AddToPortfolio to succeed")
		}
		portfolio := svc.Portfolio()
		if got := portfolio[len(portfolio)-1].Amount.Decimal; !got.Equal(decimal.NewFromInt(2)) {
			t.Errorf("Expected amount 2, got %s", got)
		}
	})

	t.Run("duplicate_is_rejected", func(t *testing.T) {
		before := len(svc.Notifications())

		if svc.AddToPortfolio(bitcoin()) {
			t.Fatalf("Expected duplicate add to be rejected")
		}
		if len(svc.Portfolio()) != 2 {
			t.Errorf("Expected portfolio size 2, got %d", len(svc.Portfolio()))
		}

		notifications := svc.Notifications()
		if len(notifications) != before+1 {
			t.Fatalf("Expected exactly one new notification, got %d", len(notifications)-before)
		}
		if notifications[len(notifications)-1].Kind != models.NotificationInfo {
			t.Errorf("Expected info notification, got %s", notifications[len(notifications)-1].Kind)
		}
	})

	t.Run("missing_id_is_rejected", func(t *testing.T) {
		if svc.AddToPortfolio(models.PortfolioAsset{Name: "Nameless"}) {
			t.Errorf("Expected asset without id to be rejected")
		}
	})

	t.Run("watched_then_held", func(t *testing.T) {
		solana := models.PortfolioAsset{ID: "solana", Name: "Solana", Symbol: "SOL", Price: decimal.NewFromInt(150)}
		if !svc.AddToWatchlist(solana) {
			t.Fatalf("Expected AddToWatchlist to succeed")
		}

		if !svc.AddToPortfolio(solana) {
			t.Fatalf("Expected a watched asset to be addable to the portfolio")
		}
		for _, asset := range svc.Watchlist() {
			if asset.ID == "solana" {
				t.Errorf("Expected solana to leave the watchlist once held")
			}
		}

		reloaded := service.NewPortfolioService(store, nil, testLogger(), nil)
		if len(reloaded.Watchlist()) != 0 {
			t.Errorf("Expected the watchlist change to be persisted, got %+v", reloaded.Watchlist())
		}
	})
}

func TestAddedAtWithinExecutionWindow(t *testing.T) {
	store, _ := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), nil)

	start := time.Now().Add(-time.Millisecond)
	svc.AddToPortfolio(bitcoin())
	end := time.Now().Add(time.Millisecond)

	added := svc.Portfolio()[0].AddedAt
	if added.Before(start) || added.After(end) {
		t.Errorf("Expected addedAt between %v and %v, got %v", start, end, added.Time)
	}
}

func TestAddToWatchlist(t *testing.T) {
	store, _ := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), func() time.Time { return fixedNow })
	svc.AddToPortfolio(bitcoin())

	t.Run("held_asset_is_rejected", func(t *testing.T) {
		before := len(svc.Notifications())

		if svc.AddToWatchlist(bitcoin()) {
			t.Fatalf("Expected watching a held asset to be rejected")
		}
		if len(svc.Watchlist()) != 0 {
			t.Errorf("Expected watchlist to stay empty, got %d", len(svc.Watchlist()))
		}

		notifications := svc.Notifications()
		if len(notifications) != before+1 {
			t.Fatalf("Expected exactly one new notification, got %d", len(notifications)-before)
		}
		last := notifications[len(notifications)-1]
		if last.Kind != models.NotificationInfo || !strings.Contains(last.Message, "portfolio") {
			t.Errorf("Expected info notification about the portfolio, got %+v", last)
		}
	})

	t.Run("new_asset", func(t *testing.T) {
		if !svc.AddToWatchlist(ethereum()) {
			t.Fatalf("Expected AddToWatchlist to succeed")
		}
		if len(svc.Watchlist()) != 1 {
			t.Errorf("Expected watchlist size 1, got %d", len(svc.Watchlist()))
		}
	})

	t.Run("duplicate_is_rejected", func(t *testing.T) {
		if svc.AddToWatchlist(ethereum()) {
			t.Fatalf("Expected duplicate watch to be rejected")
		}
		last := svc.Notifications()[len(svc.Notifications())-1]
		if !strings.Contains(last.Message, "watchlist") {
			t.Errorf("Expected notification about the watchlist, got %q", last.Message)
		}
	})
}

func TestRemoveIsIdempotent(t *testing.T) {
	store, _ := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), nil)
	svc.AddToPortfolio(bitcoin())
	svc.AddToWatchlist(ethereum())

	if !svc.RemoveFromPortfolio("bitcoin") {
		t.Fatalf("Expected first removal to succeed")
	}
	afterFirst := len(svc.Notifications())
	last := svc.Notifications()[afterFirst-1]
	if last.Kind != models.NotificationInfo || !strings.Contains(last.Message, "Bitcoin") {
		t.Errorf("Expected info notification naming Bitcoin, got %+v", last)
	}

	if svc.RemoveFromPortfolio("bitcoin") {
		t.Errorf("Expected second removal to be a no-op")
	}
	if len(svc.Notifications()) != afterFirst {
		t.Errorf("Expected no new notification on second removal")
	}
	if len(svc.Portfolio()) != 0 {
		t.Errorf("Expected empty portfolio, got %d", len(svc.Portfolio()))
	}

	if !svc.RemoveFromWatchlist("ethereum") || svc.RemoveFromWatchlist("ethereum") {
		t.Errorf("Expected watchlist removal to succeed once")
	}
}

func TestNotificationsReadState(t *testing.T) {
	store, _ := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), nil)

	svc.AddToPortfolio(bitcoin())
	svc.AddToPortfolio(ethereum())
	svc.AddToPortfolio(bitcoin())

	check := func(t *testing.T) {
		t.Helper()
		if got, want := svc.UnreadNotificationCount(), unread(svc.Notifications()); got != want {
			t.Errorf("Expected unread count %d, got %d", want, got)
		}
	}

	check(t)
	if svc.UnreadNotificationCount() != 3 {
		t.Errorf("Expected 3 unread, got %d", svc.UnreadNotificationCount())
	}

	first := svc.Notifications()[0].ID
	svc.MarkNotificationAsRead(first)
	check(t)
	if svc.UnreadNotificationCount() != 2 {
		t.Errorf("Expected 2 unread, got %d", svc.UnreadNotificationCount())
	}

	svc.MarkNotificationAsRead("does-not-exist")
	check(t)

	svc.RemoveFromPortfolio("ethereum")
	check(t)

	svc.MarkAllNotificationsAsRead()
	check(t)
	if svc.UnreadNotificationCount() != 0 {
		t.Errorf("Expected 0 unread, got %d", svc.UnreadNotificationCount())
	}

	svc.ClearNotifications()
	check(t)
	if len(svc.Notifications()) != 0 {
		t.Errorf("Expected no notifications after clear")
	}
}

func TestAlerts(t *testing.T) {
	store, _ := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), func() time.Time { return fixedNow })

	alert, err := svc.AddAlert(models.Alert{
		CoinID:       "bitcoin",
		CoinName:     "Bitcoin",
		CoinSymbol:   "BTC",
		TargetPrice:  decimal.RequireFromString("70000"),
		CurrentPrice: decimal.RequireFromString("70100"),
		Direction:    models.AlertAbove,
		Read:         true,
	})
	if err != nil {
		t.Fatalf("AddAlert failed: %v", err)
	}
	if alert.ID == "" || alert.Read || !alert.CreatedAt.Equal(fixedNow) {
		t.Errorf("Expected id, unread flag and timestamp to be assigned, got %+v", alert)
	}
	if alert.Message != "Bitcoin rose above 70000" {
		t.Errorf("Unexpected derived message %q", alert.Message)
	}

	t.Run("invalid_direction", func(t *testing.T) {
		if _, err := svc.AddAlert(models.Alert{CoinID: "bitcoin", Direction: "sideways"}); err == nil {
			t.Errorf("Expected an error for an invalid direction")
		}
	})

	t.Run("mark_unknown_is_noop", func(t *testing.T) {
		before := svc.Alerts()
		svc.MarkAlertAsRead("missing")
		after := svc.Alerts()

		if len(after) != len(before) || after[0] != before[0] {
			t.Errorf("Expected alerts unchanged, got %+v", after)
		}
	})

	t.Run("mark_read", func(t *testing.T) {
		svc.MarkAlertAsRead(alert.ID)
		if svc.UnreadAlertCount() != 0 {
			t.Errorf("Expected 0 unread alerts, got %d", svc.UnreadAlertCount())
		}
	})

	t.Run("clear", func(t *testing.T) {
		svc.ClearAllAlerts()
		if len(svc.Alerts()) != 0 {
			t.Errorf("Expected no alerts after clear")
		}
	})
}

func TestPortfolioPersistence(t *testing.T) {
	store, repo := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), func() time.Time { return fixedNow })
	svc.AddToPortfolio(bitcoin())
	svc.AddToWatchlist(ethereum())

	reloaded := service.NewPortfolioService(store, nil, testLogger(), nil)

	if len(reloaded.Portfolio()) != 1 || !reloaded.Portfolio()[0].AddedAt.Equal(fixedNow) {
		t.Errorf("Expected portfolio to survive a reload, got %+v", reloaded.Portfolio())
	}
	if len(reloaded.Watchlist()) != 1 {
		t.Errorf("Expected watchlist to survive a reload, got %+v", reloaded.Watchlist())
	}
	if len(reloaded.Notifications()) != 2 {
		t.Errorf("Expected notifications to survive a reload, got %d", len(reloaded.Notifications()))
	}

	t.Run("legacy_records", func(t *testing.T) {
		legacy := `[{"id":"solana","name":"Solana","symbol":"SOL","price":"150"},` +
			`{"id":"solana","name":"Solana again","symbol":"SOL","price":"1"},` +
			`{"id":"cardano","name":"Cardano","symbol":"ADA","price":"0.5","addedAt":"2023-01-02T03:04:05Z","amount":"10"}]`
		_ = repo.Set(context.Background(), service.KeyPortfolio, legacy)

		migrated := service.NewPortfolioService(store, nil, testLogger(), func() time.Time { return fixedNow })
		portfolio := migrated.Portfolio()

		if len(portfolio) != 2 {
			t.Fatalf("Expected duplicate id to be dropped, got %d assets", len(portfolio))
		}
		if !portfolio[0].Quantity().Equal(decimal.NewFromInt(1)) || !portfolio[0].AddedAt.Equal(fixedNow) {
			t.Errorf("Expected legacy defaults, got %+v", portfolio[0])
		}
		want := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
		if !portfolio[1].AddedAt.Equal(want) {
			t.Errorf("Expected string timestamp to be parsed, got %v", portfolio[1].AddedAt.Time)
		}

		raw, _ := repo.Get(context.Background(), service.KeyPortfolio)
		if raw != legacy {
			t.Errorf("Loading must not rewrite the stored collection")
		}
	})
}

func TestHeldAndWatchedOnLoad(t *testing.T) {
	store, repo := newTestStore()
	_ = repo.Set(context.Background(), service.KeyPortfolio, `[{"id":"bitcoin","name":"Bitcoin","price":"64000"}]`)
	_ = repo.Set(context.Background(), service.KeyWatchlist,
		`[{"id":"bitcoin","name":"Bitcoin","price":"64000"},{"id":"ethereum","name":"Ethereum","price":"3000"}]`)

	svc := service.NewPortfolioService(store, nil, testLogger(), nil)

	watchlist := svc.Watchlist()
	if len(watchlist) != 1 || watchlist[0].ID != "ethereum" {
		t.Errorf("Expected held bitcoin to be dropped from the watchlist, got %+v", watchlist)
	}
	if len(svc.Portfolio()) != 1 {
		t.Errorf("Expected portfolio untouched, got %+v", svc.Portfolio())
	}
}

func TestMarkUnknownDoesNotWrite(t *testing.T) {
	store, repo := newTestStore()
	svc := service.NewPortfolioService(store, nil, testLogger(), nil)

	svc.MarkNotificationAsRead("missing")
	svc.MarkAlertAsRead("missing")

	if repo.Len() != 0 {
		t.Errorf("Expected nothing persisted for unknown ids, got %d keys", repo.Len())
	}
}

func TestPortfolioOnSharedStore(t *testing.T) {
	repo := repository.NewMemoryKVRepository()
	newInstance := func() service.PortfolioService {
		store := persist.New(repo, testLogger(), persist.WithShared(true))
		return service.NewPortfolioService(store, nil, testLogger(), nil)
	}

	a := newInstance()
	b := newInstance()

	if !a.AddToPortfolio(bitcoin()) || !b.AddToPortfolio(ethereum()) {
		t.Fatalf("Expected both adds to succeed")
	}
	if b.AddToPortfolio(bitcoin()) {
		t.Errorf("Expected b to see bitcoin added by a")
	}

	reloaded := service.NewPortfolioService(persist.New(repo, testLogger()), nil, testLogger(), nil)
	if len(reloaded.Portfolio()) != 2 {
		t.Errorf("Expected both instances' writes to be persisted, got %+v", reloaded.Portfolio())
	}
	if len(a.Portfolio()) != 2 {
		t.Errorf("Expected a to read b's write, got %d assets", len(a.Portfolio()))
	}
	if got := len(reloaded.Notifications()); got != 3 {
		t.Errorf("Expected 3 notifications from both instances, got %d", got)
	}
}

func TestSummary(t *testing.T) {
	store, _ := newTestStore()
	clock := fixedNow
	svc := service.NewPortfolioService(store, nil, testLogger(), func() time.Time { return clock })

	svc.AddToPortfolio(bitcoin())
	clock = clock.Add(time.Minute)
	svc.AddToPortfolio(ethereum())

	view := svc.Summary()

	if len(view.Assets) != 2 || view.Assets[0].ID != "ethereum" {
		t.Fatalf("Expected most recent asset first, got %+v", view.Assets)
	}
	if !view.TotalValue.Equal(decimal.NewFromInt(70000)) {
		t.Errorf("Expected total 70000, got %s", view.TotalValue)
	}
	// (64000*2.5 + 6000*-1) / 70000
	if want := decimal.RequireFromString("2.2"); !view.Change24h.Equal(want) {
		t.Errorf("Expected weighted change %s, got %s", want, view.Change24h)
	}
}
