package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/property-reservation/internal/model"
	"github.com/iliyamo/property-reservation/internal/service"
)

// BlockHandler exposes owner blocks over HTTP.
type BlockHandler struct {
	svc    *service.BlockService
	logger *logrus.Logger
	now    func() time.Time
}

func NewBlockHandler(svc *service.BlockService, logger *logrus.Logger, now func() time.Time) *BlockHandler {
	if svc == nil {
		panic("nil service passed to NewBlockHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &BlockHandler{svc: svc, logger: logger, now: now}
}

type blockRequest struct {
	PropertyID string `json:"propertyId" validate:"required,max=191"`
	Reason     string `json:"reason" validate:"required,max=255"`
	StartDate  string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type blockResponse struct {
	ID         uint64 `json:"id"`
	PropertyID string `json:"propertyId"`
	Reason     string `json:"reason"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

func toBlockResponse(b *model.Block) blockResponse {
	return blockResponse{
		ID:         b.ID,
		PropertyID: b.PropertyID,
		Reason:     b.Reason,
		StartDate:  formatDate(b.Range.Start),
		EndDate:    formatDate(b.Range.End),
		CreatedAt:  b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *BlockHandler) input(c echo.Context) (in service.BlockInput, ok bool, err error) {
	var req blockRequest
	ok, err = bindAndValidate(c, &req, func() {
		trim(&req.PropertyID, &req.Reason, &req.StartDate, &req.EndDate)
	})
	if !ok {
		return in, false, err
	}
	r, details := parseRange(req.StartDate, req.EndDate, h.now())
	if details != nil {
		return in, false, c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Details: details})
	}
	return service.BlockInput{PropertyID: req.PropertyID, Reason: req.Reason, Range: r}, true, nil
}

// Create handles POST /api/blocks.
func (h *BlockHandler) Create(c echo.Context) error {
	in, ok, err := h.input(c)
	if !ok {
		return err
	}
	b, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toBlockResponse(b))
}

// Get handles GET /api/blocks/:id.
func (h *BlockHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	b, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toBlockResponse(b))
}

// List handles GET /api/blocks?propertyId=.
func (h *BlockHandler) List(c echo.Context) error {
	bs, err := h.svc.List(c.Request().Context(), strings.TrimSpace(c.QueryParam("propertyId")))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	out := make([]blockResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBlockResponse(&bs[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /api/blocks/:id.
func (h *BlockHandler) Update(c echo.Context) error {
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
	return c.JSON(http.StatusOK, toBlockResponse(b))
}

// Delete handles DELETE /api/blocks/:id.
func (h *BlockHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
