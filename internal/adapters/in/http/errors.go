package http

import (
	"errors"
	"net/http"

	"tradeflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code         int      `json:"code"`
	Message      string   `json:"message"`
	Kind         string   `json:"kind,omitempty"`
	Check        string   `json:"check,omitempty"`
	ItemID       string   `json:"item_id,omitempty"`
	State        string   `json:"state,omitempty"`
	Fields       []string `json:"fields,omitempty"`
	Precondition string   `json:"precondition,omitempty"`
	Retryable    bool     `json:"retryable"`
}

var kindStatus = map[errs.Kind]int{
	errs.KindValidation:              http.StatusUnprocessableEntity,
	errs.KindAuthorization:           http.StatusForbidden,
	errs.KindPreconditionFailed:      http.StatusConflict,
	errs.KindImmutableItem:           http.StatusLocked,
	errs.KindConcurrentModification:  http.StatusConflict,
	errs.KindExternalOperationFailed: http.StatusBadGateway,
}

// statusOf maps a core error to its HTTP status.
func statusOf(err error) int {
	if errors.Is(err, errs.ErrObjectNotFound) {
		return http.StatusNotFound
	}
	if kind, ok := errs.KindOf(err); ok {
		if status, ok := kindStatus[kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

func errorBody(err error) Error {
	status := statusOf(err)
	body := Error{Code: status, Message: err.Error(), Retryable: errs.IsRetryable(err)}
	if status == http.StatusInternalServerError {
		body.Message = http.StatusText(status)
	}
	if kind, ok := errs.KindOf(err); ok {
		body.Kind = string(kind)
	}
	var wfErr *errs.WorkflowError
	if errors.As(err, &wfErr) {
		body.Check = wfErr.Check
		body.ItemID = wfErr.ItemID
		body.State = wfErr.State
		body.Fields = wfErr.Fields
		body.Precondition = wfErr.Precondition
	}
	return body
}

func (s *Server) fail(c echo.Context, err error) error {
	body := errorBody(err)
	if body.Code == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}
	return c.JSON(body.Code, body)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}
