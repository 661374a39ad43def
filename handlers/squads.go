package handlers

import (
	"net/http"

	"github.com/FiveEightyEight/scripturequest/coordinator"
	"github.com/labstack/echo/v4"
)

type readyRequest struct {
	Ready bool `json:"ready"`
}

type chatRequest struct {
	Text string `json:"text"`
}

func CreateSquad(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req coordinator.CreateSquadRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request format", Code: "INVALID_REQUEST"})
		}

		view, err := co.CreateSquad(c.Request().Context(), playerID(c), username(c), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, view)
	}
}

func ListSquads(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, co.ListSquads(c.Request().Context()))
	}
}

func GetSquad(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := co.GetSquad(c.Request().Context(), c.Param("squad_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func JoinSquad(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := co.JoinSquad(c.Request().Context(), c.Param("squad_id"), playerID(c), username(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func LeaveSquad(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := co.LeaveSquad(c.Request().Context(), c.Param("squad_id"), playerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func SetReady(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req readyRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request format", Code: "INVALID_REQUEST"})
		}

		view, err := co.SetReady(c.Request().Context(), c.Param("squad_id"), playerID(c), req.Ready)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func StartSquadGame(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		started, err := co.StartGame(c.Request().Context(), c.Param("squad_id"), playerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, started)
	}
}

func GetChatHistory(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		messages, err := co.ChatHistory(c.Request().Context(), c.Param("squad_id"), playerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, messages)
	}
}

func PostChatMessage(co *coordinator.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req chatRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "Invalid request format", Code: "INVALID_REQUEST"})
		}

		msg, err := co.PostChatMessage(c.Request().Context(), c.Param("squad_id"), playerID(c), req.Text)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, msg)
	}
}
