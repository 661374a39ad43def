package handlers

import (
	"net/http"

	"github.com/FiveEightyEight/scripturequest/coordinator"
	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/labstack/echo/v4"
)

type submitAnswerRequest struct {
	QuestionID string             `json:"question_id"`
	Answer     models.AnswerValue `json:"answer"`
}

func CreateGameSession(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req coordinator.CreateSessionRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request format", Code: "INVALID_REQUEST"})
		}

		view, err := co.CreateGameSession(c.Request().Context(), playerID(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, view)
	}
}

func GetGameSession(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := co.GetSession(c.Request().Context(), c.Param("session_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func GetSessionSummary(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		summary, err := co.SessionSummary(c.Request().Context(), c.Param("session_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, summary)
	}
}

func GetActiveGameSessions(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessions := co.PlayerSessions(c.Request().Context(), playerID(c))
		if sessions == nil {
			sessions = []models.SessionView{}
		}
		return c.JSON(http.StatusOK, sessions)
	}
}

func StartGameSession(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := co.StartSession(c.Request().Context(), c.Param("session_id"), playerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func SubmitAnswer(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req submitAnswerRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request format", Code: "INVALID_REQUEST"})
		}
		if req.QuestionID == "" || len(req.Answer) == 0 {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "question_id and answer are required", Code: "INVALID_REQUEST"})
		}

		result, err := co.SubmitAnswer(c.Request().Context(), c.Param("session_id"), playerID(c), req.QuestionID, req.Answer)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

func UseHint(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		hint, err := co.UseHint(c.Request().Context(), c.Param("session_id"), playerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, hint)
	}
}
