package handlers

import (
	"net/http"
	"strings"

	"github.com/FiveEightyEight/scripturequest/auth"
	"github.com/labstack/echo/v4"
)

const (
	ctxPlayerID = "playerID"
	ctxUsername = "username"
	ctxRole     = "role"

	accessTokenQueryParam = "t"
)

// AuthMiddleware trusts a valid access token from the Authorization header,
// or from the "t" query parameter for websocket upgrades.
func AuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				token = c.QueryParam(accessTokenQueryParam)
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "Access token is missing", Code: "UNAUTHENTICATED"})
			}

			claims, err := auth.ValidateToken(secret, token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorBody{Error: "Invalid access token", Code: "UNAUTHENTICATED"})
			}

			c.Set(ctxPlayerID, claims.PlayerID)
			c.Set(ctxUsername, claims.Username)
			c.Set(ctxRole, claims.Role)

			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func playerID(c echo.Context) string {
	id, _ := c.Get(ctxPlayerID).(string)
	return id
}

func username(c echo.Context) string {
	name, _ := c.Get(ctxUsername).(string)
	return name
}
