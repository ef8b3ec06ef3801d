package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/internal/service"
	"github.com/edupulse/campus-messaging/pkg/response"
)

type SendHandler struct {
	dispatch *service.DispatchService
}

func NewSendHandler(dispatch *service.DispatchService) *SendHandler {
	return &SendHandler{dispatch: dispatch}
}

// ListSends godoc
// @Summary List scheduled sends
// @Description Retrieves a paginated list of scheduled sends with optional status filter
// @Tags sends
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param status query string false "Filter by status (pending, sent, partial, failed, cancelled)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sends [get]
func (h *SendHandler) ListSends(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	statusStr := c.QueryParam("status")

	var status *domain.SendStatus
	if statusStr != "" {
		parsedStatus := domain.SendStatus(statusStr)
		status = &parsedStatus
	}

	sends, totalCount, err := h.dispatch.List(c.Request().Context(), status, page, pageSize)
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Paginated(c, sends, page, pageSize, totalCount)
}

// GetSend godoc
// @Summary Get one scheduled send
// @Description Returns the send with its per-recipient outcomes, so partial failures are visible
// @Tags sends
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Send ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sends/{id} [get]
func (h *SendHandler) GetSend(c echo.Context) error {
	send, err := h.dispatch.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "scheduled send not found")
		}
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, send)
}

// CancelSend godoc
// @Summary Cancel a pending send
// @Description Cancels a send while it is still pending; recipients already attempted keep their outcome
// @Tags sends
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Send ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/sends/{id}/cancel [post]
func (h *SendHandler) CancelSend(c echo.Context) error {
	if err := h.dispatch.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return response.BadRequest(c, err)
	}

	return response.OkWithMessage(c, "Send cancelled successfully", nil)
}

// RetrySend godoc
// @Summary Retry a failed send
// @Description Moves a failed send back to pending, bounded by the maximum attempt count
// @Tags sends
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Send ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/sends/{id}/retry [post]
func (h *SendHandler) RetrySend(c echo.Context) error {
	if err := h.dispatch.Retry(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return response.NotFound(c, "scheduled send not found")
		}
		return response.BadRequest(c, err)
	}

	return response.OkWithMessage(c, "Send queued for retry", nil)
}

// GetStats godoc
// @Summary Get send statistics
// @Description Returns scheduled send counts grouped by status
// @Tags sends
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sends/stats [get]
func (h *SendHandler) GetStats(c echo.Context) error {
	stats, err := h.dispatch.GetStats(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	var total int64
	for _, count := range stats {
		total += count
	}

	return response.Ok(c, map[string]any{
		"byStatus": stats,
		"total":    total,
	})
}

// GetReceipts godoc
// @Summary Get cached delivery receipts
// @Description Returns the delivery receipts currently held in the cache
// @Tags sends
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/sends/receipts [get]
func (h *SendHandler) GetReceipts(c echo.Context) error {
	receipts, err := h.dispatch.GetReceipts(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, receipts)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	// Page
	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	// Page size
	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
