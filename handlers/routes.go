package handlers

import (
	"net/http"

	"github.com/FiveEightyEight/scripturequest/coordinator"
	"github.com/FiveEightyEight/scripturequest/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func homePath(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to Scripture Quest")
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Register mounts the public routes and the authenticated /v1/api group.
func Register(e *echo.Echo, co *coordinator.Coordinator, hub *realtime.Hub, secret []byte, upgrader websocket.Upgrader) {
	e.GET("/", homePath)
	e.GET("/healthz", healthz)

	api := e.Group("/v1/api")
	api.Use(AuthMiddleware(secret))

	api.GET("/ws", ServeSocket(co, hub, upgrader))

	api.POST("/sessions", CreateGameSession(co))
	api.GET("/sessions", GetActiveGameSessions(co))
	api.GET("/sessions/:session_id", GetGameSession(co))
	api.GET("/sessions/:session_id/summary", GetSessionSummary(co))
	api.POST("/sessions/:session_id/start", StartGameSession(co))
	api.POST("/sessions/:session_id/answers", SubmitAnswer(co))
	api.POST("/sessions/:session_id/hints", UseHint(co))

	api.POST("/squads", CreateSquad(co))
	api.GET("/squads", ListSquads(co))
	api.GET("/squads/:squad_id", GetSquad(co))
	api.POST("/squads/:squad_id/join", JoinSquad(co))
	api.POST("/squads/:squad_id/leave", LeaveSquad(co))
	api.POST("/squads/:squad_id/ready", SetReady(co))
	api.POST("/squads/:squad_id/start", StartSquadGame(co))
	api.GET("/squads/:squad_id/chat", GetChatHistory(co))
	api.POST("/squads/:squad_id/chat", PostChatMessage(co))
}
