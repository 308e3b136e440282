package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler manages ticket endpoints and workflow transitions.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Mount registers the ticket routes on group.
func (h *TicketsHandler) Mount(group fiber.Router) {
	group.Post("", h.Create)
	group.Get("", h.FindAll)
	group.Patch("/assist/:id", h.Assist)
	group.Patch("/closet/:id", h.Close)
	group.Get("/:id", h.FindOne)
	group.Patch("/:id", h.Update)
	group.Delete("/:id", h.Remove)
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var input service.TicketCreateInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	result, err := h.service.Create(c.UserContext(), session(c), input)
	if err != nil {
		return err
	}
	return dto.Created(c, result.Message, result)
}

// FindAll GET /tickets, scoped to what the caller may see.
func (h *TicketsHandler) FindAll(c *fiber.Ctx) error {
	q, err := dto.ListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.FindAll(c.UserContext(), session(c), q)
	if err != nil {
		return err
	}
	return dto.OK(c, page)
}

// FindOne GET /tickets/:id.
func (h *TicketsHandler) FindOne(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.FindOne(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.OK(c, ticket)
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	var input service.TicketUpdateInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, "Ticket updated successfully", ticket)
}

// Remove DELETE /tickets/:id.
func (h *TicketsHandler) Remove(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Remove(c.UserContext(), id); err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, "Ticket deleted successfully", fiber.Map{"id": id})
}

// Assist PATCH /tickets/assist/:id.
func (h *TicketsHandler) Assist(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.Assist(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, result.Message, result)
}

// Close PATCH /tickets/closet/:id.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	result, err := h.service.Close(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, result.Message, result)
}

// session returns the guard-resolved caller or nil; services reject nil.
func session(c *fiber.Ctx) *domain.Session {
	s, _ := auth.SessionFromFiber(c)
	return s
}
