package models

import "github.com/shopspring/decimal"

// NotificationEvent is the websocket payload pushed for every new notification.
type NotificationEvent struct {
	Event        string       `json:"event"`
	Notification Notification `json:"notification"`
	Unread       int          `json:"unread"`
}

type AssetView struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
	Total     decimal.Decimal `json:"total"`
	AddedAt   Timestamp       `json:"addedAt"`
}

type PortfolioView struct {
	UserName   string          `json:"userName"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Change24h  decimal.Decimal `json:"change24h"`
	Assets     []AssetView     `json:"assets"`
}
