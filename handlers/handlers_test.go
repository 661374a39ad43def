package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FiveEightyEight/scripturequest/auth"
	"github.com/FiveEightyEight/scripturequest/coordinator"
	"github.com/FiveEightyEight/scripturequest/game"
	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/FiveEightyEight/scripturequest/realtime"
	"github.com/FiveEightyEight/scripturequest/registry"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var testSecret = []byte("handlers-test-secret")

type fixedQuestions []models.QuestionRecord

func (q fixedQuestions) Find(ctx context.Context, filter game.QuestionFilter) ([]models.QuestionRecord, error) {
	return q, nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	pool := fixedQuestions{
		{ID: "q1", Text: "Who built the ark?", Type: models.QuestionTypeFillIn, Difficulty: models.DifficultyEasy, Answer: models.AnswerValue{"Noah"}},
		{ID: "q2", Text: "Who was Moses' mother?", Type: models.QuestionTypeFillIn, Difficulty: models.DifficultyEasy, Answer: models.AnswerValue{"Jochebed"}},
	}
	hub := realtime.NewHub()
	co := coordinator.New(registry.New(), game.NewQuestionSupply(pool, 1), hub, nil, nil, coordinator.Options{QuestionsPerSession: 2})

	e := echo.New()
	Register(e, co, hub, testSecret, NewUpgrader(nil))
	return e
}

func tokenFor(t *testing.T, player, name string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(testSecret, player, name, auth.RolePlayer, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var body errorBody
	decode(t, rec, &body)
	if body.Code != code {
		t.Errorf("expected code %s, got %s", code, body.Code)
	}
}

func TestPublicRoutes(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Scripture Quest") {
		t.Errorf("unexpected home response: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz returned %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	e := newTestServer(t)

	expectError(t, doJSON(t, e, http.MethodGet, "/v1/api/squads", "", nil), http.StatusUnauthorized, "UNAUTHENTICATED")
	expectError(t, doJSON(t, e, http.MethodGet, "/v1/api/squads", "forged", nil), http.StatusUnauthorized, "UNAUTHENTICATED")

	rec := doJSON(t, e, http.MethodGet, "/v1/api/squads?t="+tokenFor(t, "p", "P"), "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("query token rejected: %d", rec.Code)
	}
}

func TestSessionOverHTTP(t *testing.T) {
	e := newTestServer(t)
	token := tokenFor(t, "p1", "Ruth")

	rec := doJSON(t, e, http.MethodPost, "/v1/api/sessions", token, map[string]string{"game_type": "quiz"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	var session models.SessionView
	decode(t, rec, &session)
	if strings.Contains(rec.Body.String(), "Jochebed") || strings.Contains(rec.Body.String(), "Noah") {
		t.Fatalf("session response leaks an answer: %s", rec.Body.String())
	}

	base := "/v1/api/sessions/" + session.ID
	rec = doJSON(t, e, http.MethodGet, "/v1/api/sessions", token, nil)
	var active []models.SessionView
	decode(t, rec, &active)
	if len(active) != 1 || active[0].ID != session.ID {
		t.Errorf("unexpected active sessions: %+v", active)
	}

	expectError(t, doJSON(t, e, http.MethodPost, base+"/answers", token, map[string]string{"question_id": "q1"}),
		http.StatusBadRequest, "INVALID_REQUEST")
	expectError(t, doJSON(t, e, http.MethodPost, base+"/answers", token, map[string]string{"question_id": "nope", "answer": "x"}),
		http.StatusConflict, "STALE_QUESTION")
	expectError(t, doJSON(t, e, http.MethodPost, base+"/answers", tokenFor(t, "p2", "Boaz"),
		map[string]string{"question_id": session.CurrentQuestion.ID, "answer": "x"}), http.StatusForbidden, "FORBIDDEN")
	expectError(t, doJSON(t, e, http.MethodPost, base+"/hints", token, nil), http.StatusForbidden, "FORBIDDEN")

	answers := map[string]string{"q1": "noah", "q2": "  JOCHEBED "}
	current := session.CurrentQuestion
	for current != nil {
		rec = doJSON(t, e, http.MethodPost, base+"/answers", token, map[string]string{"question_id": current.ID, "answer": answers[current.ID]})
		if rec.Code != http.StatusOK {
			t.Fatalf("submit %s: %d %s", current.ID, rec.Code, rec.Body.String())
		}
		var result models.SubmitResult
		decode(t, rec, &result)
		if !result.Correct {
			t.Errorf("answer to %s marked wrong", current.ID)
		}
		current = result.NextQuestion
	}

	expectError(t, doJSON(t, e, http.MethodPost, base+"/answers", token, map[string]string{"question_id": "q1", "answer": "Noah"}),
		http.StatusConflict, "SESSION_FINISHED")

	rec = doJSON(t, e, http.MethodGet, base+"/summary", token, nil)
	var summary models.SessionSummary
	decode(t, rec, &summary)
	if len(summary.Ranking) != 1 || summary.Ranking[0].CorrectAnswers != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	expectError(t, doJSON(t, e, http.MethodGet, "/v1/api/sessions/missing", token, nil), http.StatusNotFound, "NOT_FOUND")
}

func TestSquadOverHTTP(t *testing.T) {
	e := newTestServer(t)
	alice := tokenFor(t, "A", "Alice")
	bob := tokenFor(t, "B", "Bob")

	expectError(t, doJSON(t, e, http.MethodPost, "/v1/api/squads", alice, map[string]string{"name": "x", "game_type": "chess"}),
		http.StatusBadRequest, "INVALID_REQUEST")

	rec := doJSON(t, e, http.MethodPost, "/v1/api/squads", alice, map[string]interface{}{"name": "Lions", "game_type": "quiz", "max_members": 2})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create squad: %d %s", rec.Code, rec.Body.String())
	}
	var squad models.SquadView
	decode(t, rec, &squad)
	base := "/v1/api/squads/" + squad.ID

	if rec := doJSON(t, e, http.MethodPost, base+"/join", bob, nil); rec.Code != http.StatusOK {
		t.Fatalf("join: %d %s", rec.Code, rec.Body.String())
	}
	expectError(t, doJSON(t, e, http.MethodPost, base+"/join", bob, nil), http.StatusConflict, "ALREADY_MEMBER")
	expectError(t, doJSON(t, e, http.MethodPost, base+"/join", tokenFor(t, "C", "Cara"), nil), http.StatusConflict, "SQUAD_FULL")
	expectError(t, doJSON(t, e, http.MethodPost, base+"/start", alice, nil), http.StatusConflict, "NOT_READY")

	for _, token := range []string{alice, bob} {
		if rec := doJSON(t, e, http.MethodPost, base+"/ready", token, map[string]bool{"ready": true}); rec.Code != http.StatusOK {
			t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
		}
	}
	expectError(t, doJSON(t, e, http.MethodPost, base+"/start", bob, nil), http.StatusForbidden, "FORBIDDEN")

	if rec := doJSON(t, e, http.MethodPost, base+"/chat", bob, map[string]string{"text": "ready when you are"}); rec.Code != http.StatusCreated {
		t.Fatalf("chat: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodGet, base+"/chat", alice, nil)
	var chat []models.ChatMessage
	decode(t, rec, &chat)
	if len(chat) != 1 || chat[0].SenderName != "Bob" {
		t.Errorf("unexpected chat: %+v", chat)
	}

	rec = doJSON(t, e, http.MethodPost, base+"/start", alice, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	var started models.GameStarted
	decode(t, rec, &started)
	if started.SquadID != squad.ID || started.SessionID == "" {
		t.Errorf("unexpected start response: %+v", started)
	}
	expectError(t, doJSON(t, e, http.MethodPost, base+"/ready", bob, map[string]bool{"ready": false}), http.StatusConflict, "GAME_IN_PROGRESS")

	rec = doJSON(t, e, http.MethodGet, "/v1/api/sessions/"+started.SessionID, bob, nil)
	var session models.SessionView
	decode(t, rec, &session)
	if session.SquadID != squad.ID || len(session.Players) != 2 {
		t.Errorf("unexpected squad session: %+v", session)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&models.NotFoundError{Kind: "squad", ID: "x"}, http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("wrapped: %w", &models.StaleQuestionError{Expected: "a", Got: "b"}), http.StatusConflict, "STALE_QUESTION"},
		{&models.EmptyPoolError{GameType: models.GameTypeQuiz}, http.StatusUnprocessableEntity, "EMPTY_POOL"},
		{&models.NotReadyError{SquadID: "x"}, http.StatusConflict, "NOT_READY"},
		{errors.New("database exploded"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		if status != tt.status || code != tt.code {
			t.Errorf("classify(%v) = %d %s, want %d %s", tt.err, status, code, tt.status, tt.code)
		}
	}
}

type wireEvent struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

func dialSocket(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/api/ws?t=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteJSON(models.SocketMessage{Type: msgType, Payload: data}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// waitFor reads events until one of type eventType arrives.
func waitFor(t *testing.T, conn *websocket.Conn, eventType string) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if ev.Type == eventType {
			return ev
		}
	}
}

func TestSocketSquadFlow(t *testing.T) {
	e := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	alice := tokenFor(t, "A", "Alice")
	rec := doJSON(t, e, http.MethodPost, "/v1/api/squads", alice, map[string]string{"name": "Lions", "game_type": "quiz"})
	var squad models.SquadView
	decode(t, rec, &squad)
	room := models.SquadRoom(squad.ID)

	a := dialSocket(t, srv, alice)
	send(t, a, msgJoinRoom, map[string]string{"room": room})
	snap := waitFor(t, a, models.EventSnapshot)
	var view models.SquadView
	if err := json.Unmarshal(snap.Payload, &view); err != nil || view.ID != squad.ID {
		t.Fatalf("unexpected snapshot: %s (%v)", snap.Payload, err)
	}

	b := dialSocket(t, srv, tokenFor(t, "B", "Bob"))
	send(t, b, msgJoinSquad, map[string]string{"squad_id": squad.ID})
	waitFor(t, b, models.EventSnapshot)
	changed := waitFor(t, a, models.EventMembershipChanged)
	if changed.Room != room {
		t.Errorf("membership event sent to %q", changed.Room)
	}

	send(t, b, msgChatMessage, map[string]string{"squad_id": squad.ID, "text": "hi all"})
	for _, conn := range []*websocket.Conn{a, b} {
		ev := waitFor(t, conn, models.EventChatMessage)
		var msg models.ChatMessage
		if err := json.Unmarshal(ev.Payload, &msg); err != nil || msg.Text != "hi all" || msg.SenderID != "B" {
			t.Errorf("unexpected chat event: %s", ev.Payload)
		}
	}

	send(t, b, msgStartGame, map[string]string{"squad_id": squad.ID})
	ev := waitFor(t, b, models.EventError)
	var serr models.SocketError
	if err := json.Unmarshal(ev.Payload, &serr); err != nil || serr.Code != "FORBIDDEN" || serr.Request != msgStartGame {
		t.Errorf("unexpected error event: %s", ev.Payload)
	}

	send(t, a, "teleport", map[string]string{})
	ev = waitFor(t, a, models.EventError)
	if err := json.Unmarshal(ev.Payload, &serr); err != nil || serr.Code != "UNKNOWN_MESSAGE" {
		t.Errorf("unexpected error event: %s", ev.Payload)
	}

	send(t, a, msgJoinRoom, map[string]string{"room": "lobby"})
	ev = waitFor(t, a, models.EventError)
	if err := json.Unmarshal(ev.Payload, &serr); err != nil || serr.Code != "INVALID_REQUEST" {
		t.Errorf("unexpected error event: %s", ev.Payload)
	}
}

func TestSocketBadFrameUsesErrorShape(t *testing.T) {
	e := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn := dialSocket(t, srv, tokenFor(t, "A", "Alice"))
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := waitFor(t, conn, models.EventError)

	var fields map[string]string
	if err := json.Unmarshal(ev.Payload, &fields); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, key := range []string{"request", "code", "message"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("error payload missing %q: %s", key, ev.Payload)
		}
	}
	if fields["code"] != "BAD_FRAME" || fields["request"] != "" {
		t.Errorf("unexpected error payload: %s", ev.Payload)
	}

	// the connection stays usable after a bad frame
	send(t, conn, "teleport", map[string]string{})
	ev = waitFor(t, conn, models.EventError)
	var serr models.SocketError
	if err := json.Unmarshal(ev.Payload, &serr); err != nil || serr.Code != "UNKNOWN_MESSAGE" || serr.Request != "teleport" {
		t.Errorf("unexpected error event: %s", ev.Payload)
	}
}

func TestSocketAnswerFlow(t *testing.T) {
	e := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	token := tokenFor(t, "p1", "Ruth")
	rec := doJSON(t, e, http.MethodPost, "/v1/api/sessions", token, map[string]string{"game_type": "memory"})
	var session models.SessionView
	decode(t, rec, &session)

	intruder := dialSocket(t, srv, tokenFor(t, "p9", "Eve"))
	send(t, intruder, msgJoinRoom, map[string]string{"room": models.SessionRoom(session.ID)})
	ev := waitFor(t, intruder, models.EventError)
	var serr models.SocketError
	if err := json.Unmarshal(ev.Payload, &serr); err != nil || serr.Code != "FORBIDDEN" {
		t.Errorf("outsider joined a session room: %s", ev.Payload)
	}

	conn := dialSocket(t, srv, token)
	send(t, conn, msgJoinRoom, map[string]string{"room": models.SessionRoom(session.ID)})
	waitFor(t, conn, models.EventSnapshot)

	answers := map[string]string{"q1": "Noah", "q2": "Jochebed"}
	q := session.CurrentQuestion.ID
	send(t, conn, msgSubmitAnswer, map[string]string{"session_id": session.ID, "question_id": q, "answer": answers[q]})

	// the room broadcast is queued before the direct reply
	update := waitFor(t, conn, models.EventSessionUpdated)
	var su models.SessionUpdate
	if err := json.Unmarshal(update.Payload, &su); err != nil || su.CurrentQuestionIndex != 1 {
		t.Errorf("unexpected session update: %s", update.Payload)
	}
	ev = waitFor(t, conn, models.EventAnswerResult)
	var result models.SubmitResult
	if err := json.Unmarshal(ev.Payload, &result); err != nil || !result.Correct {
		t.Fatalf("unexpected answer result: %s", ev.Payload)
	}
	if ev.Room != "" {
		t.Errorf("answer result should be a direct reply, got room %q", ev.Room)
	}

	send(t, conn, msgSubmitAnswer, map[string]string{"session_id": session.ID, "question_id": q, "answer": answers[q]})
	ev = waitFor(t, conn, models.EventError)
	if err := json.Unmarshal(ev.Payload, &serr); err != nil || serr.Code != "STALE_QUESTION" {
		t.Errorf("expected stale question error, got %s", ev.Payload)
	}

	next := result.NextQuestion.ID
	send(t, conn, msgSubmitAnswer, map[string]string{"session_id": session.ID, "question_id": next, "answer": answers[next]})
	finished := waitFor(t, conn, models.EventSessionFinished)
	var summary models.SessionSummary
	if err := json.Unmarshal(finished.Payload, &summary); err != nil || summary.Ranking[0].CorrectAnswers != 2 {
		t.Errorf("unexpected finish event: %s", finished.Payload)
	}
}
