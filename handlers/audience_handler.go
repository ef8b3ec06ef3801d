package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edupulse/campus-messaging/internal/audience"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/internal/service"
	"github.com/edupulse/campus-messaging/pkg/response"
	"github.com/edupulse/campus-messaging/pkg/validator"
)

type populationSource interface {
	GetPopulation(ctx context.Context) ([]domain.Recipient, error)
}

type AudienceHandler struct {
	population populationSource
	dispatch   *service.DispatchService
}

func NewAudienceHandler(population populationSource, dispatch *service.DispatchService) *AudienceHandler {
	return &AudienceHandler{
		population: population,
		dispatch:   dispatch,
	}
}

type CriteriaRequest struct {
	Classroom     string     `json:"classroom"`
	PaymentStatus string     `json:"paymentStatus" validate:"omitempty,oneof=all paid pending overdue"`
	EnrolledFrom  *time.Time `json:"enrolledFrom"`
	EnrolledTo    *time.Time `json:"enrolledTo"`
	Search        string     `json:"search" validate:"max=255"`
	StaffIDs      []int64    `json:"staffIds"`
}

func (r CriteriaRequest) toCriteria() domain.FilterCriteria {
	return domain.FilterCriteria{
		Classroom:     r.Classroom,
		PaymentStatus: r.PaymentStatus,
		EnrolledFrom:  r.EnrolledFrom,
		EnrolledTo:    r.EnrolledTo,
		Search:        r.Search,
		StaffIDs:      r.StaffIDs,
	}
}

// AudienceMember is one computed audience entry with its derived payment
// status, so operators see why a recipient matched.
type AudienceMember struct {
	domain.Recipient
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
}

// ComputeAudience godoc
// @Summary Compute an audience from filter criteria
// @Description Applies the filter pipeline to the current recipient population and returns the matching audience, sorted by name
// @Tags audience
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param criteria body CriteriaRequest true "Filter criteria"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/audience/compute [post]
func (h *AudienceHandler) ComputeAudience(c echo.Context) error {
	var req CriteriaRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	now := time.Now()

	population, err := h.population.GetPopulation(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	result := audience.Compute(population, req.toCriteria(), now)

	members := make([]AudienceMember, 0, len(result))
	for _, r := range result {
		members = append(members, AudienceMember{
			Recipient:     r,
			PaymentStatus: domain.PaymentStatusAt(r.Invoices, now),
		})
	}

	return response.Ok(c, map[string]any{
		"audience": members,
		"count":    len(members),
	})
}

type CreateSendRequest struct {
	Criteria     CriteriaRequest `json:"criteria"`
	RecipientIDs []int64         `json:"recipientIds"`
	Body         string          `json:"body" validate:"required,max=1000"`
	ScheduledAt  *time.Time      `json:"scheduledAt"`
}

// CreateSend godoc
// @Summary Queue a bulk send for a filtered audience
// @Description Resolves the audience now (snapshot semantics) and queues one scheduled send; recipientIds, when present, restrict the audience to an explicit selection
// @Tags audience
// @Accept json
// @Produce json
// @Param x-auth-key header string true "Operator API key"
// @Param request body CreateSendRequest true "Send to queue"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/audience/send [post]
func (h *AudienceHandler) CreateSend(c echo.Context) error {
	var req CreateSendRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	now := time.Now()

	population, err := h.population.GetPopulation(c.Request().Context())
	if err != nil {
		return response.InternalServerError(c, err)
	}

	target := audience.Compute(population, req.Criteria.toCriteria(), now)

	selection := audience.NewSelection()
	if len(req.RecipientIDs) > 0 {
		selection.SetIDs(req.RecipientIDs)
	} else {
		selection.SelectAll(target)
	}
	picked := selection.Pick(target)

	if len(picked) == 0 {
		return response.BadRequestWithMessage(c, "selection matches no recipient in the computed audience")
	}

	scheduledAt := now
	if req.ScheduledAt != nil {
		scheduledAt = *req.ScheduledAt
	}

	send, err := h.dispatch.Enqueue(c.Request().Context(), nil, req.Body, scheduledAt, picked)
	if err != nil {
		return response.BadRequest(c, err)
	}

	return response.Created(c, "Send queued successfully", send)
}
