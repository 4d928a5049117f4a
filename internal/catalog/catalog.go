// Package catalog serves the built-in market data and inbox shown by the
// dashboard. The data is embedded YAML; nothing here talks to an exchange.
package catalog

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed coins.yaml
var coinsYAML []byte

//go:embed messages.yaml
var messagesYAML []byte

type coinRecord struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Symbol    string `yaml:"symbol"`
	Logo      string `yaml:"logo"`
	Gradient  string `yaml:"gradient"`
	Price     string `yaml:"price"`
	Change24h string `yaml:"change24h"`
	MarketCap string `yaml:"market_cap"`
	Volume24h string `yaml:"volume24h"`
}

type messageRecord struct {
	ID         string `yaml:"id"`
	From       string `yaml:"from"`
	Subject    string `yaml:"subject"`
	Preview    string `yaml:"preview"`
	ReceivedAt string `yaml:"received_at"`
	Read       bool   `yaml:"read"`
}

type Catalog struct {
	coins    []models.PortfolioAsset
	byID     map[string]int
	messages []models.Message
}

// Load decodes the embedded data.
func Load() (*Catalog, error) {
	return Parse(coinsYAML, messagesYAML)
}

func Parse(coinsData, messagesData []byte) (*Catalog, error) {
	const op = "catalog.Parse"

	var coins []coinRecord
	if err := yaml.Unmarshal(coinsData, &coins); err != nil {
		return nil, fmt.Errorf("%s: coins: %w", op, err)
	}

	var messages []messageRecord
	if err := yaml.Unmarshal(messagesData, &messages); err != nil {
		return nil, fmt.Errorf("%s: messages: %w", op, err)
	}

	c := &Catalog{
		coins:    make([]models.PortfolioAsset, 0, len(coins)),
		byID:     make(map[string]int, len(coins)),
		messages: make([]models.Message, 0, len(messages)),
	}

	for _, rec := range coins {
		asset, err := rec.asset()
		if err != nil {
			return nil, fmt.Errorf("%s: coin %q: %w", op, rec.ID, err)
		}
		if _, dup := c.byID[asset.ID]; dup {
			return nil, fmt.Errorf("%s: coin %q: %w", op, rec.ID, errs.ErrAlreadyExists)
		}
		c.byID[asset.ID] = len(c.coins)
		c.coins = append(c.coins, asset)
	}

	for _, rec := range messages {
		received, err := time.Parse(time.RFC3339, rec.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: message %q: %w", op, rec.ID, err)
		}
		c.messages = append(c.messages, models.Message{
			ID:         rec.ID,
			From:       rec.From,
			Subject:    rec.Subject,
			Preview:    rec.Preview,
			ReceivedAt: models.NewTimestamp(received),
			IsRead:     rec.Read,
		})
	}

	return c, nil
}

func (c *Catalog) Coins() []models.PortfolioAsset {
	out := make([]models.PortfolioAsset, len(c.coins))
	copy(out, c.coins)
	return out
}

func (c *Catalog) Coin(id string) (models.PortfolioAsset, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.PortfolioAsset{}, errs.ErrNotFound
	}
	return c.coins[i], nil
}

func (c *Catalog) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (r coinRecord) asset() (models.PortfolioAsset, error) {
	if r.ID == "" {
		return models.PortfolioAsset{}, errs.ErrInvalidAsset
	}

	var (
		asset = models.PortfolioAsset{
			ID:       r.ID,
			Name:     r.Name,
			Symbol:   r.Symbol,
			Logo:     r.Logo,
			Gradient: r.Gradient,
		}
		err error
	)
	if asset.Price, err = parseDecimal(r.Price); err != nil {
		return models.PortfolioAsset{}, err
	}
	if asset.Change24h, err = parseDecimal(r.Change24h); err != nil {
		return models.PortfolioAsset{}, err
	}
	if asset.MarketCap, err = parseDecimal(r.MarketCap); err != nil {
		return models.PortfolioAsset{}, err
	}
	if asset.Volume24h, err = parseDecimal(r.Volume24h); err != nil {
		return models.PortfolioAsset{}, err
	}
	return asset, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
