package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
)

func (h *Handler) getPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, h.portfolio.Portfolio())
}

func (h *Handler) getWatchlist(c *gin.Context) {
	c.JSON(http.StatusOK, h.portfolio.Watchlist())
}

func (h *Handler) getSummary(c *gin.Context) {
	view := h.portfolio.Summary()
	view.UserName = h.users.User().Name
	c.JSON(http.StatusOK, view)
}

func (h *Handler) addToPortfolio(c *gin.Context) {
	asset, err := h.bindAsset(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	added := h.portfolio.AddToPortfolio(asset)
	c.JSON(http.StatusOK, gin.H{"added": added, "portfolio": h.portfolio.Portfolio()})
}

func (h *Handler) addToWatchlist(c *gin.Context) {
	asset, err := h.bindAsset(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	added := h.portfolio.AddToWatchlist(asset)
	c.JSON(http.StatusOK, gin.H{"added": added, "watchlist": h.portfolio.Watchlist()})
}

func (h *Handler) removeFromPortfolio(c *gin.Context) {
	removed := h.portfolio.RemoveFromPortfolio(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"removed": removed, "portfolio": h.portfolio.Portfolio()})
}

func (h *Handler) removeFromWatchlist(c *gin.Context) {
	removed := h.portfolio.RemoveFromWatchlist(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"removed": removed, "watchlist": h.portfolio.Watchlist()})
}

// bindAsset accepts a full asset or just {"id": ...}; a bare id is resolved
// against the catalog and keeps any amount sent along with it.
func (h *Handler) bindAsset(c *gin.Context) (models.PortfolioAsset, error) {
	const op = "http.bindAsset"

	var asset models.PortfolioAsset
	if err := c.ShouldBindJSON(&asset); err != nil {
		return models.PortfolioAsset{}, fmt.Errorf("%s: invalid request body: %w", op, errs.ErrInvalidAsset)
	}
	if asset.ID == "" {
		return models.PortfolioAsset{}, fmt.Errorf("%s: 'id' is required: %w", op, errs.ErrInvalidAsset)
	}
	if asset.Name != "" {
		return asset, nil
	}

	coin, err := h.catalog.Coin(asset.ID)
	if err != nil {
		return models.PortfolioAsset{}, fmt.Errorf("%s: %w", op, err)
	}
	if asset.Amount.Valid {
		coin.Amount = asset.Amount
	}
	return coin, nil
}

func (h *Handler) getNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"notifications": h.portfolio.Notifications(),
		"unread":        h.portfolio.UnreadNotificationCount(),
	})
}

func (h *Handler) clearNotifications(c *gin.Context) {
	h.portfolio.ClearNotifications()
	h.getNotifications(c)
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	h.portfolio.MarkNotificationAsRead(c.Param("id"))
	h.getNotifications(c)
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	h.portfolio.MarkAllNotificationsAsRead()
	h.getNotifications(c)
}

func (h *Handler) getAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alerts": h.portfolio.Alerts(),
		"unread": h.portfolio.UnreadAlertCount(),
	})
}

// addAlert fills coin details from the catalog when the caller only sent
// the coin id.
func (h *Handler) addAlert(c *gin.Context) {
	var alert models.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if alert.CoinName == "" && alert.CoinID != "" {
		if coin, err := h.catalog.Coin(alert.CoinID); err == nil {
			alert.CoinName = coin.Name
			alert.CoinSymbol = coin.Symbol
			alert.Logo = coin.Logo
			if alert.CurrentPrice.IsZero() {
				alert.CurrentPrice = coin.Price
			}
		}
	}

	created, err := h.portfolio.AddAlert(alert)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) clearAlerts(c *gin.Context) {
	h.portfolio.ClearAllAlerts()
	h.getAlerts(c)
}

func (h *Handler) markAlertRead(c *gin.Context) {
	h.portfolio.MarkAlertAsRead(c.Param("id"))
	h.getAlerts(c)
}
