package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/repository"
	"github.com/iliyamo/property-reservation/internal/service"
)

// BookingHandler exposes the booking state machine over HTTP.
type BookingHandler struct {
	svc    *service.BookingService
	logger *logrus.Logger
	now    func() time.Time
}

// NewBookingHandler panics when svc is nil.  now defaults to the wall clock.
func NewBookingHandler(svc *service.BookingService, logger *logrus.Logger, now func() time.Time) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &BookingHandler{svc: svc, logger: logger, now: now}
}

type bookingRequest struct {
	PropertyID string `json:"propertyId" validate:"required,max=191"`
	GuestName  string `json:"guestName" validate:"required,max=255"`
	GuestEmail string `json:"guestEmail" validate:"required,email,max=255"`
	StartDate  string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type bookingResponse struct {
	ID         uint64 `json:"id"`
	PropertyID string `json:"propertyId"`
	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:         b.ID,
		PropertyID: b.PropertyID,
		GuestName:  b.GuestName,
		GuestEmail: b.GuestEmail,
		StartDate:  formatDate(b.Range.Start),
		EndDate:    formatDate(b.Range.End),
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// input binds and validates the request body.  ok is false when a 400
// has already been written.
func (h *BookingHandler) input(c echo.Context) (in service.BookingInput, ok bool, err error) {
	var req bookingRequest
	ok, err = bindAndValidate(c, &req, func() {
		trim(&req.PropertyID, &req.GuestName, &req.GuestEmail, &req.StartDate, &req.EndDate)
	})
	if !ok {
		return in, false, err
	}
	r, details := parseRange(req.StartDate, req.EndDate, h.now())
	if details != nil {
		return in, false, c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Details: details})
	}
	return service.BookingInput{
		PropertyID: req.PropertyID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		Range:      r,
	}, true, nil
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	in, ok, err := h.input(c)
	if !ok {
		return err
	}
	b, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// Get handles GET /api/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// List handles GET /api/bookings?propertyId=&status=.
func (h *BookingHandler) List(c echo.Context) error {
	f := repository.BookingFilter{PropertyID: strings.TrimSpace(c.QueryParam("propertyId"))}
	if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
		st, ok := model.ParseBookingStatus(raw)
		if !ok {
			return badRequest(c, "status must be ACTIVE or CANCELED")
		}
		f.Status = &st
	}
	bs, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	out := make([]bookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBookingResponse(&bs[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /api/bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	in, ok, err := h.input(c)
	if !ok {
		return err
	}
	b, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Cancel handles PATCH /api/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.svc.Cancel)
}

// Rebook handles PATCH /api/bookings/:id/rebook.
func (h *BookingHandler) Rebook(c echo.Context) error {
	return h.transition(c, h.svc.Rebook)
}

func (h *BookingHandler) transition(c echo.Context, op func(ctx context.Context, id uint64) (*model.Booking, error)) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	b, err := op(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Delete handles DELETE /api/bookings/:id.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
