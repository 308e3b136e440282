package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketDetailsHandler serves the comment trail of tickets.
type TicketDetailsHandler struct {
	service *service.TicketDetailService
}

func NewTicketDetailsHandler(detailService *service.TicketDetailService) *TicketDetailsHandler {
	return &TicketDetailsHandler{service: detailService}
}

// Mount registers the detail routes on group.
func (h *TicketDetailsHandler) Mount(group fiber.Router) {
	group.Post("", h.Create)
	group.Get("", h.FindAll)
	group.Get("/ticketId/:id", h.FindByTicket)
	group.Get("/:id", h.FindOne)
	group.Patch("/:id", h.Update)
	group.Delete("/:id", h.Remove)
}

func (h *TicketDetailsHandler) Create(c *fiber.Ctx) error {
	var input service.TicketDetailCreateInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	result, err := h.service.Create(c.UserContext(), session(c), input)
	if err != nil {
		return err
	}
	return dto.Created(c, result.Message, result)
}

func (h *TicketDetailsHandler) FindAll(c *fiber.Ctx) error {
	q, err := dto.ListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.FindAll(c.UserContext(), q)
	if err != nil {
		return err
	}
	return dto.OK(c, page)
}

// FindByTicket GET /ticketDetail/ticketId/:id returns the ticket with its thread.
func (h *TicketDetailsHandler) FindByTicket(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	thread, err := h.service.FindByTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.OK(c, thread)
}

func (h *TicketDetailsHandler) FindOne(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.service.FindOne(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.OK(c, detail)
}

func (h *TicketDetailsHandler) Update(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	var input service.TicketDetailUpdateInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	detail, err := h.service.Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, "Ticket detail updated successfully", detail)
}

func (h *TicketDetailsHandler) Remove(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Remove(c.UserContext(), id); err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, "Ticket detail deleted successfully", fiber.Map{"id": id})
}
