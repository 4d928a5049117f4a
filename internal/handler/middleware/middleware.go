package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	authorizationHeader = "Authorization"

	// SubjectKey is the gin context key holding the token subject.
	SubjectKey = "subject"
)

// AuthMiddleware requires an HS256 bearer token signed with jwtSecret in the
// Authorization header.
func AuthMiddleware(jwtSecret string, log *slog.Logger) gin.HandlerFunc {
	return authenticate(jwtSecret, log, false)
}

// WebSocketAuthMiddleware is AuthMiddleware for the upgrade route only: it
// also accepts the token as the "token" query parameter, because browsers
// cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware(jwtSecret string, log *slog.Logger) gin.HandlerFunc {
	return authenticate(jwtSecret, log, true)
}

func authenticate(jwtSecret string, log *slog.Logger, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c, allowQuery)
		if !ok {
			log.Warn("auth middleware: missing or malformed auth header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid auth header format",
			})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(jwtSecret), nil
		})

		if err != nil {
			log.Error("auth middleware: failed to parse token", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			log.Warn("auth middleware: token is not valid or claims are corrupted")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token is not valid",
			})
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set(SubjectKey, sub)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context, allowQuery bool) (string, bool) {
	header := c.GetHeader(authorizationHeader)
	if header == "" && allowQuery {
		token := c.Query("token")
		return token, token != ""
	}

	headerParts := strings.Split(header, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" || headerParts[1] == "" {
		return "", false
	}
	return headerParts[1], true
}
