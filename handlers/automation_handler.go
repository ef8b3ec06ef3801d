package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/internal/service"
	"github.com/edupulse/campus-messaging/pkg/response"
	"github.com/edupulse/campus-messaging/pkg/validator"
)

type AutomationHandler struct {
	service *service.AutomationService
}

func NewAutomationHandler(svc *service.AutomationService) *AutomationHandler {
	return &AutomationHandler{service: svc}
}

type SaveRuleRequest struct {
	Name      string          `json:"name" validate:"required,max=255"`
	Trigger   string          `json:"trigger" validate:"required,oneof=scheduled-time event keyword"`
	Schedule  string          `json:"schedule"`
	EventName string          `json:"eventName"`
	Keyword   string          `json:"keyword"`
	Template  string          `json:"template" validate:"required,max=1000"`
	Audience  CriteriaRequest `json:"audience"`
	Active    bool            `json:"active"`
	CreatedBy string          `json:"createdBy" validate:"max=64"`
	Version   int64           `json:"version"`
}

func (r SaveRuleRequest) toInput() service.RuleInput {
	return service.RuleInput{
		Name:      r.Name,
		Trigger:   domain.TriggerKind(r.Trigger),
		Schedule:  r.Schedule,
		EventName: r.EventName,
		Keyword:   r.Keyword,
		Template:  r.Template,
		Audience:  r.Audience.toCriteria(),
		Active:    r.Active,
		CreatedBy: r.CreatedBy,
		Version:   r.Version,
	}
}

// ListRules godoc
// @Summary List automation rules
// @Description Returns every automation rule in creation order
// @Tags automations
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/automations [get]
func (h *AutomationHandler) ListRules(c echo.Context) error {
	rules, err := h.service.List(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, rules)
}

// CreateRule godoc
// @Summary Create an automation rule
// @Description Validates the trigger and persists a new rule; event and keyword rules require a configured channel credential
// @Tags automations
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param rule body SaveRuleRequest true "Rule to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/automations [post]
func (h *AutomationHandler) CreateRule(c echo.Context) error {
	var req SaveRuleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rule, err := h.service.Save(c.Request().Context(), req.toInput(), nil)
	if err != nil {
		return ruleError(c, err)
	}

	return response.Created(c, "Automation rule created successfully", rule)
}

// UpdateRule godoc
// @Summary Update an automation rule
// @Description Updates an existing rule; the supplied version must match the stored one
// @Tags automations
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Rule ID"
// @Param rule body SaveRuleRequest true "Rule fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/automations/{id} [put]
func (h *AutomationHandler) UpdateRule(c echo.Context) error {
	id := c.Param("id")

	var req SaveRuleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rule, err := h.service.Save(c.Request().Context(), req.toInput(), &id)
	if err != nil {
		return ruleError(c, err)
	}

	return response.OkWithMessage(c, "Automation rule updated successfully", rule)
}

// DeleteRule godoc
// @Summary Delete an automation rule
// @Description Deletes the rule immediately (hard delete)
// @Tags automations
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Rule ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/automations/{id} [delete]
func (h *AutomationHandler) DeleteRule(c echo.Context) error {
	id := c.Param("id")

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return ruleError(c, err)
	}

	return response.OkWithMessage(c, "Automation rule deleted successfully", nil)
}

// ToggleRule godoc
// @Summary Toggle an automation rule
// @Description Flips the active flag without altering other fields
// @Tags automations
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Rule ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/automations/{id}/toggle [post]
func (h *AutomationHandler) ToggleRule(c echo.Context) error {
	id := c.Param("id")

	if err := h.service.ToggleActive(c.Request().Context(), id); err != nil {
		return ruleError(c, err)
	}

	return response.OkWithMessage(c, "Automation rule toggled successfully", nil)
}

// ruleError maps service errors to the right status codes while keeping the
// underlying message intact for the operator.
func ruleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrMissingChannelCredential):
		return response.UnprocessableEntity(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		return response.Conflict(c, err)
	default:
		return response.BadRequest(c, err)
	}
}

//
// Keyword rules
//

type SaveKeywordRuleRequest struct {
	Keyword  string `json:"keyword" validate:"required,max=255"`
	Response string `json:"response" validate:"required,max=1000"`
	Active   bool   `json:"active"`
}

// ListKeywordRules godoc
// @Summary List keyword rules
// @Description Returns keyword rules in creation order (the matching order)
// @Tags keywords
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Success 200 {object} response.SuccessResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/keywords [get]
func (h *AutomationHandler) ListKeywordRules(c echo.Context) error {
	rules, err := h.service.ListKeywordRules(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	return response.Ok(c, rules)
}

// CreateKeywordRule godoc
// @Summary Create a keyword rule
// @Description Persists a new keyword auto-response rule; requires a configured channel credential
// @Tags keywords
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param rule body SaveKeywordRuleRequest true "Rule to create"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/keywords [post]
func (h *AutomationHandler) CreateKeywordRule(c echo.Context) error {
	var req SaveKeywordRuleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rule, err := h.service.SaveKeywordRule(c.Request().Context(), service.KeywordRuleInput{
		Keyword:  req.Keyword,
		Response: req.Response,
		Active:   req.Active,
	}, nil)
	if err != nil {
		return ruleError(c, err)
	}

	return response.Created(c, "Keyword rule created successfully", rule)
}

// UpdateKeywordRule godoc
// @Summary Update a keyword rule
// @Tags keywords
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Rule ID"
// @Param rule body SaveKeywordRuleRequest true "Rule fields"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/keywords/{id} [put]
func (h *AutomationHandler) UpdateKeywordRule(c echo.Context) error {
	id := c.Param("id")

	var req SaveKeywordRuleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	rule, err := h.service.SaveKeywordRule(c.Request().Context(), service.KeywordRuleInput{
		Keyword:  req.Keyword,
		Response: req.Response,
		Active:   req.Active,
	}, &id)
	if err != nil {
		return ruleError(c, err)
	}

	return response.OkWithMessage(c, "Keyword rule updated successfully", rule)
}

// DeleteKeywordRule godoc
// @Summary Delete a keyword rule
// @Tags keywords
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param id path string true "Rule ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/keywords/{id} [delete]
func (h *AutomationHandler) DeleteKeywordRule(c echo.Context) error {
	id := c.Param("id")

	if err := h.service.DeleteKeywordRule(c.Request().Context(), id); err != nil {
		return ruleError(c, err)
	}

	return response.OkWithMessage(c, "Keyword rule deleted successfully", nil)
}

// EventRequest is a domain event pushed in by the platform.
type EventRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type eventPusher interface {
	Push(event domain.Event)
}

type EventHandler struct {
	queue eventPusher
}

func NewEventHandler(queue eventPusher) *EventHandler {
	return &EventHandler{queue: queue}
}

// PushEvent godoc
// @Summary Observe a domain event
// @Description Buffers a platform event (enrollment, payment-overdue, ...) for the next evaluator tick
// @Tags events
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param event body EventRequest true "Event to observe"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/events [post]
func (h *EventHandler) PushEvent(c echo.Context) error {
	var req EventRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	h.queue.Push(domain.Event{
		Name:       req.Name,
		ObservedAt: time.Now(),
	})

	return response.OkWithMessage(c, fmt.Sprintf("Event %q observed", req.Name), nil)
}
