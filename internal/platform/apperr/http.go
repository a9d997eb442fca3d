package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorBody is the JSON shape returned for every failed request.
type ErrorBody struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind"`
	Missing []string `json:"missing,omitempty"`
}

// HTTPErrorHandler maps the taxonomy onto HTTP statuses so the UI layer can
// distinguish validation problems (400), missing entities (404), state
// conflicts (409) and readiness failures (422) without string matching.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := ErrorBody{Error: err.Error(), Kind: "internal"}

		var (
			ve *ValidationError
			nf *NotFoundError
			sc *StateConflictError
			nr *NoRouteDefinedError
			pa *PlanNotApprovedError
			ny *NotReadyError
			he *echo.HTTPError
		)
		switch {
		case errors.As(err, &ve):
			status, body.Kind = http.StatusBadRequest, "validation"
		case errors.As(err, &nf):
			status, body.Kind = http.StatusNotFound, "not_found"
		case errors.As(err, &sc):
			status, body.Kind = http.StatusConflict, "state_conflict"
		case errors.As(err, &nr):
			status, body.Kind = http.StatusUnprocessableEntity, "no_route_defined"
		case errors.As(err, &pa):
			status, body.Kind = http.StatusConflict, "plan_not_approved"
		case errors.As(err, &ny):
			status, body.Kind = http.StatusUnprocessableEntity, "not_ready"
			body.Missing = ny.Missing
		case errors.As(err, &he):
			status = he.Code
			body.Kind = "http"
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			}
		default:
			// Internal errors are logged with detail but returned opaque.
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).
				Str("path", c.Request().URL.Path).Msg("unhandled error")
			body.Error = "internal server error"
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
