package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	gorilla_ws "github.com/gorilla/websocket"
	"github.com/manjushapaul/Crypto-sub001/internal/catalog"
	"github.com/manjushapaul/Crypto-sub001/internal/document"
	"github.com/manjushapaul/Crypto-sub001/internal/handler/middleware"
	"github.com/manjushapaul/Crypto-sub001/internal/models"
	"github.com/manjushapaul/Crypto-sub001/internal/service"
	"github.com/manjushapaul/Crypto-sub001/internal/websocket"
	"github.com/manjushapaul/Crypto-sub001/lib/errs"
)

// Services groups the state containers the API exposes. Theme and Users may
// be nil, in which case their no-op fallbacks answer with defaults.
type Services struct {
	Portfolio service.PortfolioService
	Theme     service.ThemeService
	Users     service.UsersService
	Messages  service.MessagesService
	Favorites service.FavoritesService
}

type Handler struct {
	portfolio service.PortfolioService
	theme     service.ThemeService
	users     service.UsersService
	messages  service.MessagesService
	favorites service.FavoritesService
	catalog   *catalog.Catalog
	root      *document.Root
	wsManager *websocket.Manager
	log       *slog.Logger
	jwtSecret string
	upgrader  gorilla_ws.Upgrader
}

func NewHandler(services Services, cat *catalog.Catalog, root *document.Root, wsManager *websocket.Manager, log *slog.Logger, jwtSecret string) *Handler {
	h := &Handler{
		portfolio: services.Portfolio,
		theme:     services.Theme,
		users:     services.Users,
		messages:  services.Messages,
		favorites: services.Favorites,
		catalog:   cat,
		root:      root,
		wsManager: wsManager,
		log:       log,
		jwtSecret: jwtSecret,
		upgrader: gorilla_ws.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	if h.theme == nil {
		h.theme = service.NewNopThemeService(log)
	}
	if h.users == nil {
		h.users = service.NewNopUsersService(log)
	}
	if h.root == nil {
		h.root = document.NewRoot()
	}

	return h
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	ws := router.Group("/api/v1/ws")
	if h.jwtSecret != "" {
		api.Use(middleware.AuthMiddleware(h.jwtSecret, h.log))
		ws.Use(middleware.WebSocketAuthMiddleware(h.jwtSecret, h.log))
	}
	ws.GET("", h.wsConnect)

	coins := api.Group("/coins")
	{
		coins.GET("", h.listCoins)
		coins.GET("/:id", h.getCoin)
	}

	portfolio := api.Group("/portfolio")
	{
		portfolio.GET("", h.getPortfolio)
		portfolio.POST("", h.addToPortfolio)
		portfolio.GET("/summary", h.getSummary)
		portfolio.DELETE("/:id", h.removeFromPortfolio)
	}

	watchlist := api.Group("/watchlist")
	{
		watchlist.GET("", h.getWatchlist)
		watchlist.POST("", h.addToWatchlist)
		watchlist.DELETE("/:id", h.removeFromWatchlist)
	}

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.getNotifications)
		notifications.DELETE("", h.clearNotifications)
		notifications.POST("/read", h.markAllNotificationsRead)
		notifications.POST("/:id/read", h.markNotificationRead)
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", h.getAlerts)
		alerts.POST("", h.addAlert)
		alerts.DELETE("", h.clearAlerts)
		alerts.POST("/:id/read", h.markAlertRead)
	}

	api.GET("/profile", h.getProfile)
	api.PATCH("/profile", h.updateProfile)

	api.GET("/theme", h.getTheme)
	api.PUT("/theme", h.setTheme)
	api.POST("/theme/toggle", h.toggleTheme)
	api.PUT("/language", h.setLanguage)

	messages := api.Group("/messages")
	{
		messages.GET("", h.getMessages)
		messages.POST("/read", h.markAllMessagesRead)
		messages.PUT("/:id/read", h.setMessageRead)
	}

	api.GET("/favorites", h.getFavorites)
	api.POST("/favorites/:id/toggle", h.toggleFavorite)
	api.GET("/settings/show-all-coins", h.getShowAllCoins)
	api.PUT("/settings/show-all-coins", h.setShowAllCoins)
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("failed to upgrade connection", "error", err)
		return
	}

	client := websocket.NewClient(h.wsManager, conn)
	h.wsManager.Register(client)

	go client.Writer()
	go client.Reader()
}

func (h *Handler) listCoins(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Coins())
}

func (h *Handler) getCoin(c *gin.Context) {
	coin, err := h.catalog.Coin(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coin)
}

func (h *Handler) getProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user":     h.users.User(),
		"initials": h.users.Initials(),
	})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.users.UpdateUser(patch)
	h.getProfile(c)
}

type themeRequest struct {
	Theme models.ThemeMode `json:"theme" binding:"required"`
}

type languageRequest struct {
	Language models.Locale `json:"language" binding:"required"`
}

func (h *Handler) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"theme":    h.theme.Theme(),
		"language": h.theme.Language(),
		"isDark":   h.theme.IsDark(),
		"classes":  h.root.Classes(),
		"lang":     h.root.Attr("lang"),
	})
}

func (h *Handler) setTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, 'theme' is required"})
		return
	}

	if err := h.theme.SetTheme(req.Theme); err != nil {
		h.writeError(c, err)
		return
	}
	h.getTheme(c)
}

func (h *Handler) toggleTheme(c *gin.Context) {
	h.theme.ToggleTheme()
	h.getTheme(c)
}

func (h *Handler) setLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, 'language' is required"})
		return
	}

	if err := h.theme.SetLanguage(req.Language); err != nil {
		h.writeError(c, err)
		return
	}
	h.getTheme(c)
}

type messageReadRequest struct {
	Read *bool `json:"read" binding:"required"`
}

func (h *Handler) getMessages(c *gin.Context) {
	inbox := h.catalog.Messages()
	c.JSON(http.StatusOK, gin.H{
		"messages": h.messages.ApplyOverrides(inbox),
		"unread":   h.messages.CountUnread(inbox),
	})
}

func (h *Handler) setMessageRead(c *gin.Context) {
	var req messageReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, 'read' is required"})
		return
	}

	id := c.Param("id")
	if !h.hasMessage(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	h.messages.SetOverride(id, *req.Read)
	h.getMessages(c)
}

func (h *Handler) markAllMessagesRead(c *gin.Context) {
	h.messages.MarkAllRead(h.catalog.Messages())
	h.getMessages(c)
}

func (h *Handler) hasMessage(id string) bool {
	for _, m := range h.catalog.Messages() {
		if m.ID == id {
			return true
		}
	}
	return false
}

type showAllCoinsRequest struct {
	ShowAllCoins *bool `json:"showAllCoins" binding:"required"`
}

func (h *Handler) getFavorites(c *gin.Context) {
	c.JSON(http.StatusOK, h.favorites.Favorites())
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	coin, err := h.catalog.Coin(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorite": h.favorites.ToggleFavorite(coin)})
}

func (h *Handler) getShowAllCoins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"showAllCoins": h.favorites.ShowAllCoins()})
}

func (h *Handler) setShowAllCoins(c *gin.Context) {
	var req showAllCoinsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, 'showAllCoins' is required"})
		return
	}

	h.favorites.SetShowAllCoins(*req.ShowAllCoins)
	h.getShowAllCoins(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, errs.ErrInvalidTheme):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown theme"})
	case errors.Is(err, errs.ErrInvalidLocale):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
	case errors.Is(err, errs.ErrInvalidAsset):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", slog.Any("error", err), slog.String("path", c.FullPath()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
