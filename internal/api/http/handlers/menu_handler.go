package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// MenuHandler serves the navigation tree and its per-role views.
type MenuHandler struct {
	*CrudHandler[domain.Menu, service.MenuCreateInput, service.MenuUpdateInput]
	menus *service.MenuService
}

func NewMenuHandler(menuService *service.MenuService) *MenuHandler {
	return &MenuHandler{
		CrudHandler: NewCrudHandler[domain.Menu, service.MenuCreateInput, service.MenuUpdateInput](menuService, "Menu"),
		menus:       menuService,
	}
}

func (h *MenuHandler) Mount(group fiber.Router) {
	group.Get("/fathers", h.Fathers)
	group.Get("/role/:roleId", h.ByRole)
	group.Get("/permission/:roleId", h.PermissionsByRole)
	h.CrudHandler.Mount(group)
}

func (h *MenuHandler) Fathers(c *fiber.Ctx) error {
	menus, err := h.menus.Fathers(c.UserContext())
	if err != nil {
		return err
	}
	return dto.OK(c, menus)
}

func (h *MenuHandler) ByRole(c *fiber.Ctx) error {
	roleID, err := dto.ParamID(c, "roleId")
	if err != nil {
		return err
	}
	menus, err := h.menus.ByRole(c.UserContext(), roleID)
	if err != nil {
		return err
	}
	return dto.OK(c, menus)
}

func (h *MenuHandler) PermissionsByRole(c *fiber.Ctx) error {
	roleID, err := dto.ParamID(c, "roleId")
	if err != nil {
		return err
	}
	access, err := h.menus.PermissionsByRole(c.UserContext(), roleID)
	if err != nil {
		return err
	}
	return dto.OK(c, access)
}

// AssignedMenuRoleHandler adds bulk access-level assignment to the link CRUD.
type AssignedMenuRoleHandler struct {
	*CrudHandler[domain.AssignedMenuRole, service.AssignedMenuRoleInput, service.AssignedMenuRoleUpdateInput]
	links *service.AssignedMenuRoleService
}

func NewAssignedMenuRoleHandler(linkService *service.AssignedMenuRoleService) *AssignedMenuRoleHandler {
	return &AssignedMenuRoleHandler{
		CrudHandler: NewCrudHandler[domain.AssignedMenuRole, service.AssignedMenuRoleInput, service.AssignedMenuRoleUpdateInput](linkService, "Assigned menu role"),
		links:       linkService,
	}
}

func (h *AssignedMenuRoleHandler) Mount(group fiber.Router) {
	group.Post("/assignAccessLevel", h.AssignAccessLevel)
	h.CrudHandler.Mount(group)
}

// AssignAccessLevel POST /assignedMenuRole/assignAccessLevel replaces the menus of a role.
func (h *AssignedMenuRoleHandler) AssignAccessLevel(c *fiber.Ctx) error {
	var input service.AccessLevelInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	result, err := h.links.AssignAccessLevel(c.UserContext(), input)
	if err != nil {
		return err
	}
	return dto.Created(c, result.Message, result)
}
