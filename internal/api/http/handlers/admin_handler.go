package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminHandler serves the admin console endpoints.
type AdminHandler struct {
	assignments *service.AssignmentService
	activities  *service.ActivityService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(assignments *service.AssignmentService, activities *service.ActivityService) *AdminHandler {
	return &AdminHandler{assignments: assignments, activities: activities}
}

// Agents handles GET /api/admin/agents.
func (h *AdminHandler) Agents(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	agents, err := h.assignments.ListAgents(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(agents)})
}

// Assign handles POST /api/admin/assign.
func (h *AdminHandler) Assign(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.assignments.Assign(c.UserContext(), actor, req.TicketID, req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Agent assigned successfully",
		"data":    dto.NewTicketResponse(ticket),
	})
}

// Activities handles GET /api/admin/activities.
func (h *AdminHandler) Activities(c *fiber.Ctx) error {
	actor, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", service.DefaultActivityLimit)
	activities, err := h.activities.Recent(c.UserContext(), actor, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivityList(activities)})
}
