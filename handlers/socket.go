package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/FiveEightyEight/scripturequest/coordinator"
	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/FiveEightyEight/scripturequest/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	msgJoinRoom     = "join-room"
	msgLeaveRoom    = "leave-room"
	msgJoinSquad    = "join-squad"
	msgLeaveSquad   = "leave-squad"
	msgSetReady     = "set-ready"
	msgStartGame    = "start-game"
	msgChatMessage  = "chat-message"
	msgStartSession = "start-session"
	msgSubmitAnswer = "submit-answer"
	msgUseHint      = "use-hint"
)

type socketPayload struct {
	Room       string             `json:"room"`
	SquadID    string             `json:"squad_id"`
	SessionID  string             `json:"session_id"`
	QuestionID string             `json:"question_id"`
	Answer     models.AnswerValue `json:"answer"`
	Ready      bool               `json:"ready"`
	Text       string             `json:"text"`
}

func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// native mobile clients send no Origin header
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// ServeSocket upgrades an authenticated request and relays room events to it
// until the connection drops.
func ServeSocket(co *coordinator.Coordinator, hub *realtime.Hub, upgrader websocket.Upgrader) echo.HandlerFunc {
	return func(c echo.Context) error {
		player := playerID(c)

		ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			log.Printf("Error upgrading to WebSocket for player %s: %v", player, err)
			return nil
		}

		client := realtime.NewClient(ws, player, username(c), realtime.DefaultQueueSize)
		hub.Register(client)
		go client.WritePump()
		log.Printf("Player %s connected", player)

		defer func() {
			rooms := hub.Remove(client)
			client.Close()
			log.Printf("Player %s disconnected (was in %d rooms)", player, len(rooms))
			if !hub.Connected(player) {
				co.PlayerDisconnected(context.Background(), player)
			}
		}()

		ctx := c.Request().Context()
		err = client.ReadPump(func(msg models.SocketMessage) {
			handleSocketMessage(ctx, co, hub, client, msg)
		})
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			log.Printf("WebSocket read error for player %s: %v", player, err)
		}
		return nil
	}
}

func handleSocketMessage(ctx context.Context, co *coordinator.Coordinator, hub *realtime.Hub, client *realtime.Client, msg models.SocketMessage) {
	var p socketPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			client.SendEvent(models.EventError, models.SocketError{Request: msg.Type, Code: "INVALID_REQUEST", Message: "invalid payload"})
			return
		}
	}
	player := client.PlayerID()

	var err error
	switch msg.Type {
	case msgJoinRoom:
		err = joinRoom(ctx, co, hub, client, p.Room)
	case msgLeaveRoom:
		hub.Leave(client, p.Room)
	case msgJoinSquad:
		if _, err = co.JoinSquad(ctx, p.SquadID, player, client.Username()); err == nil {
			err = joinRoom(ctx, co, hub, client, models.SquadRoom(p.SquadID))
		}
	case msgLeaveSquad:
		if _, err = co.LeaveSquad(ctx, p.SquadID, player); err == nil {
			hub.Leave(client, models.SquadRoom(p.SquadID))
		}
	case msgSetReady:
		_, err = co.SetReady(ctx, p.SquadID, player, p.Ready)
	case msgStartGame:
		_, err = co.StartGame(ctx, p.SquadID, player)
	case msgChatMessage:
		_, err = co.PostChatMessage(ctx, p.SquadID, player, p.Text)
	case msgStartSession:
		_, err = co.StartSession(ctx, p.SessionID, player)
	case msgSubmitAnswer:
		var result models.SubmitResult
		if result, err = co.SubmitAnswer(ctx, p.SessionID, player, p.QuestionID, p.Answer); err == nil {
			client.SendEvent(models.EventAnswerResult, result)
		}
	case msgUseHint:
		var hint models.HintResult
		if hint, err = co.UseHint(ctx, p.SessionID, player); err == nil {
			client.SendEvent(models.EventHint, hint)
		}
	default:
		client.SendEvent(models.EventError, models.SocketError{Request: msg.Type, Code: "UNKNOWN_MESSAGE", Message: "unknown message type"})
		return
	}

	if err != nil {
		_, code := classify(err)
		client.SendEvent(models.EventError, models.SocketError{Request: msg.Type, Code: code, Message: err.Error()})
	}
}

// joinRoom subscribes client to a squad or session room it belongs to and
// sends it the room's current state.
func joinRoom(ctx context.Context, co *coordinator.Coordinator, hub *realtime.Hub, client *realtime.Client, room string) error {
	player := client.PlayerID()
	switch {
	case strings.HasPrefix(room, "squad:"):
		view, err := co.GetSquad(ctx, strings.TrimPrefix(room, "squad:"))
		if err != nil {
			return err
		}
		if !squadHasMember(view, player) {
			return &models.AuthorizationError{Reason: "only squad members can join the squad room"}
		}
		hub.Join(client, room)
		client.SendEvent(models.EventSnapshot, view)
	case strings.HasPrefix(room, "session:"):
		view, err := co.GetSession(ctx, strings.TrimPrefix(room, "session:"))
		if err != nil {
			return err
		}
		if !sessionHasPlayer(view, player) {
			return &models.AuthorizationError{Reason: "only session players can join the session room"}
		}
		hub.Join(client, room)
		client.SendEvent(models.EventSnapshot, view)
	default:
		return &models.ValidationError{Field: "room", Message: "must start with squad: or session:"}
	}
	return nil
}

func squadHasMember(view models.SquadView, player string) bool {
	for _, m := range view.Members {
		if m.PlayerID == player {
			return true
		}
	}
	return false
}

func sessionHasPlayer(view models.SessionView, player string) bool {
	for _, p := range view.Players {
		if p == player {
			return true
		}
	}
	return false
}
