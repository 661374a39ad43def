package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/FiveEightyEight/scripturequest/models"
	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classify maps a coordinator error onto an HTTP status and a stable code
// shared with the websocket protocol.
func classify(err error) (int, string) {
	var (
		notFound   *models.NotFoundError
		authz      *models.AuthorizationError
		stale      *models.StaleQuestionError
		full       *models.SquadFullError
		member     *models.AlreadyMemberError
		emptyPool  *models.EmptyPoolError
		invalid    *models.ValidationError
		finished   *models.SessionFinishedError
		notReady   *models.NotReadyError
		inProgress *models.GameInProgressError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &authz):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.As(err, &stale):
		return http.StatusConflict, "STALE_QUESTION"
	case errors.As(err, &full):
		return http.StatusConflict, "SQUAD_FULL"
	case errors.As(err, &member):
		return http.StatusConflict, "ALREADY_MEMBER"
	case errors.As(err, &emptyPool):
		return http.StatusUnprocessableEntity, "EMPTY_POOL"
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.As(err, &finished):
		return http.StatusConflict, "SESSION_FINISHED"
	case errors.As(err, &notReady):
		return http.StatusConflict, "NOT_READY"
	case errors.As(err, &inProgress):
		return http.StatusConflict, "GAME_IN_PROGRESS"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func respondError(c echo.Context, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("handlers: %s %s: %v", c.Request().Method, c.Path(), err)
		msg = "Internal server error"
	}
	return c.JSON(status, errorBody{Error: msg, Code: code})
}
