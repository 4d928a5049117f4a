package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioAsset is a coin held in the portfolio or tracked in the watchlist.
type PortfolioAsset struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Symbol    string              `json:"symbol"`
	Logo      string              `json:"logo,omitempty"`
	Gradient  string              `json:"gradient,omitempty"`
	Price     decimal.Decimal     `json:"price"`
	Change24h decimal.Decimal     `json:"change24h"`
	MarketCap decimal.Decimal     `json:"marketCap"`
	Volume24h decimal.Decimal     `json:"volume24h"`
	Amount    decimal.NullDecimal `json:"amount"`
	AddedAt   Timestamp           `json:"addedAt"`
}

// Quantity is the held amount. Records without an amount count as one unit.
func (a PortfolioAsset) Quantity() decimal.Decimal {
	if !a.Amount.Valid {
		return decimal.NewFromInt(1)
	}
	return a.Amount.Decimal
}

func (a PortfolioAsset) Value() decimal.Decimal {
	return a.Quantity().Mul(a.Price)
}

type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationInfo    NotificationKind = "info"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"type"`
	CreatedAt Timestamp        `json:"timestamp"`
	Read      bool             `json:"read"`
}

type AlertDirection string

const (
	AlertAbove AlertDirection = "above"
	AlertBelow AlertDirection = "below"
)

func (d AlertDirection) Valid() bool {
	return d == AlertAbove || d == AlertBelow
}

// Alert is a price threshold notification about a single coin.
type Alert struct {
	ID           string          `json:"id"`
	CoinID       string          `json:"coinId"`
	CoinName     string          `json:"coinName"`
	CoinSymbol   string          `json:"coinSymbol"`
	Logo         string          `json:"logo,omitempty"`
	Message      string          `json:"message"`
	TargetPrice  decimal.Decimal `json:"targetPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Direction    AlertDirection  `json:"type"`
	CreatedAt    Timestamp       `json:"timestamp"`
	Read         bool            `json:"read"`
}

type UserProfile struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// UserPatch is a partial profile update. Nil fields are left untouched;
// a pointer to an empty string clears the field.
type UserPatch struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}

// Apply returns p merged onto u.
func (p UserPatch) Apply(u UserProfile) UserProfile {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	return u
}

type ThemeMode string

const (
	ThemeLight ThemeMode = "light"
	ThemeDark  ThemeMode = "dark"
)

func (m ThemeMode) Valid() bool {
	return m == ThemeLight || m == ThemeDark
}

type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"
	LocaleFR Locale = "fr"
	LocaleDE Locale = "de"
	LocaleJA Locale = "ja"
	LocaleZH Locale = "zh"
)

var Locales = []Locale{LocaleEN, LocaleES, LocaleFR, LocaleDE, LocaleJA, LocaleZH}

func (l Locale) Valid() bool {
	for _, known := range Locales {
		if l == known {
			return true
		}
	}
	return false
}

// Message is an inbox entry. IsRead is the message's own default read flag.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Preview    string    `json:"preview"`
	ReceivedAt Timestamp `json:"receivedAt"`
	IsRead     bool      `json:"isRead"`
}

// KVEntry is a single persisted key in the relational backends.
type KVEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
