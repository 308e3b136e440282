package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AuditsHandler serves the read-only audit trail. Rows are written by the audit middleware.
type AuditsHandler struct {
	audits *service.AuditService
}

func NewAuditsHandler(auditService *service.AuditService) *AuditsHandler {
	return &AuditsHandler{audits: auditService}
}

func (h *AuditsHandler) Mount(group fiber.Router) {
	group.Get("", h.FindAll)
	group.Get("/user/:userId", h.FindByUser)
	group.Get("/:id", h.FindOne)
}

func (h *AuditsHandler) FindAll(c *fiber.Ctx) error {
	q, err := dto.ListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.audits.FindAll(c.UserContext(), q)
	if err != nil {
		return err
	}
	return dto.OK(c, page)
}

// FindByUser GET /audits/user/:userId. The id is not parsed as a UUID so
// anonymous rows can be listed too.
func (h *AuditsHandler) FindByUser(c *fiber.Ctx) error {
	q, err := dto.ListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.audits.FindByUser(c.UserContext(), c.Params("userId"), q)
	if err != nil {
		return err
	}
	return dto.OK(c, page)
}

func (h *AuditsHandler) FindOne(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	audit, err := h.audits.FindOne(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.OK(c, audit)
}
