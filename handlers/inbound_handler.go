package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/campus-messaging/internal/keyword"
	"github.com/edupulse/campus-messaging/internal/service"
	"github.com/edupulse/campus-messaging/pkg/gateway"
	"github.com/edupulse/campus-messaging/pkg/logger"
	"github.com/edupulse/campus-messaging/pkg/response"
	"github.com/edupulse/campus-messaging/pkg/validator"
)

type gatewaySender interface {
	Send(ctx context.Context, phone, body string) (*gateway.SendResponse, error)
}

// InboundHandler is the processing boundary for the inbound message feed:
// it matches the text against the keyword rules and answers through the
// gateway when a rule fires.
type InboundHandler struct {
	service *service.AutomationService
	gateway gatewaySender
}

func NewInboundHandler(svc *service.AutomationService, gw gatewaySender) *InboundHandler {
	return &InboundHandler{
		service: svc,
		gateway: gw,
	}
}

type InboundMessageRequest struct {
	From string `json:"from" validate:"required,phone,max=20"`
	Text string `json:"text" validate:"required,max=4000"`
}

// HandleInbound godoc
// @Summary Process an inbound message
// @Description Matches the inbound text against active keyword rules (first match wins) and sends the configured response; no match is a no-op, not an error
// @Tags inbound
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param message body InboundMessageRequest true "Inbound message"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/inbound [post]
func (h *InboundHandler) HandleInbound(c echo.Context) error {
	var req InboundMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rules, err := h.service.ListKeywordRules(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	matched := keyword.Match(req.Text, rules)
	if matched == nil {
		return response.OkWithMessage(c, "No keyword matched", map[string]any{
			"matched": false,
		})
	}

	replied := true
	if _, err := h.gateway.Send(c.Request().Context(), req.From, matched.Response); err != nil {
		// The match stands even when the reply cannot be delivered; the
		// caller sees which rule fired and that the reply failed.
		logger.Errorf("Failed to send keyword response to %s: %v", req.From, err)
		replied = false
	}

	return response.Ok(c, map[string]any{
		"matched": true,
		"ruleId":  matched.ID,
		"keyword": matched.Keyword,
		"replied": replied,
	})
}
