package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/lock"
	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// parseID reads the :id path parameter.  It reports false only when the
// parameter is not an integer.  Zero and negative IDs parse to 0, which no
// record carries, so they resolve to a 404 like any other unknown ID.
func parseID(c echo.Context) (uint64, bool) {
	n, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	if n <= 0 {
		return 0, true
	}
	return uint64(n), true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps a service failure to a status code.  Unexpected errors
// are logged and hidden behind a generic message.
func writeError(c echo.Context, logger *logrus.Logger, err error) error {
	var overlap *service.OverlapError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &overlap):
		return c.JSON(http.StatusConflict, errorBody{Error: overlap.Error()})
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, lock.ErrNotAcquired):
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "property is busy, retry later"})
	case errors.Is(err, service.ErrBusy):
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	}
	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// bindAndValidate decodes the JSON body into req, trims its string fields
// through normalize, and runs struct validation.  It writes the 400 response
// itself and returns false when the request is rejected.
func bindAndValidate(c echo.Context, req interface{}, normalize func()) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid request body")
	}
	if normalize != nil {
		normalize()
	}
	if err := c.Validate(req); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return false, c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Details: verr.Fields})
		}
		return false, badRequest(c, err.Error())
	}
	return true, nil
}

// parseRange turns validated date strings into a DateRange and rejects a
// start date before today.
func parseRange(start, end string, now time.Time) (model.DateRange, map[string]string) {
	r, err := model.ParseDateRange(start, end)
	if err != nil {
		return model.DateRange{}, map[string]string{"startDate": "must be a date in YYYY-MM-DD format"}
	}
	if r.Start.Before(model.Day(now.UTC())) {
		return model.DateRange{}, map[string]string{"startDate": "must not be in the past"}
	}
	return r, nil
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func formatDate(t time.Time) string { return t.Format(model.DateLayout) }
