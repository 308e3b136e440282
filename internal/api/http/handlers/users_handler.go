package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// UsersHandler exposes user management plus the profile and lookup endpoints.
type UsersHandler struct {
	*CrudHandler[domain.User, service.UserCreateInput, service.UserUpdateInput]
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{
		CrudHandler: NewCrudHandler[domain.User, service.UserCreateInput, service.UserUpdateInput](userService, "User"),
		users:       userService,
	}
}

// Mount registers the fixed lookups ahead of the /:id routes.
func (h *UsersHandler) Mount(group fiber.Router) {
	group.Get("/profile", h.Profile)
	group.Get("/companies", h.Companies)
	group.Get("/agents/:branchId", h.AgentsByBranch)
	h.CrudHandler.Mount(group)
}

// Profile GET /users/profile.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	user, err := h.users.Profile(c.UserContext(), session(c))
	if err != nil {
		return err
	}
	return dto.OK(c, user)
}

// Companies GET /users/companies.
func (h *UsersHandler) Companies(c *fiber.Ctx) error {
	q, err := dto.ListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.users.Companies(c.UserContext(), q)
	if err != nil {
		return err
	}
	return dto.OK(c, page)
}

// AgentsByBranch GET /users/agents/:branchId.
func (h *UsersHandler) AgentsByBranch(c *fiber.Ctx) error {
	branchID, err := dto.ParamID(c, "branchId")
	if err != nil {
		return err
	}
	agents, err := h.users.AgentsByBranch(c.UserContext(), branchID)
	if err != nil {
		return err
	}
	return dto.OK(c, agents)
}
