package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CrudService is the surface shared by the entity services.
type CrudService[T, C, U any] interface {
	Create(ctx context.Context, input C) (*T, error)
	FindAll(ctx context.Context, q domain.ListQuery) (domain.Page[T], error)
	FindOne(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, id string, input U) (*T, error)
	Remove(ctx context.Context, id string) error
}

// CrudHandler serves POST, GET, GET /:id, PATCH /:id and DELETE /:id for one entity.
type CrudHandler[T, C, U any] struct {
	service CrudService[T, C, U]
	label   string
}

// NewCrudHandler constructs a handler. label prefixes the mutation messages, e.g. "Branch".
func NewCrudHandler[T, C, U any](service CrudService[T, C, U], label string) *CrudHandler[T, C, U] {
	return &CrudHandler[T, C, U]{service: service, label: label}
}

// Mount registers the five standard routes on group.
func (h *CrudHandler[T, C, U]) Mount(group fiber.Router) {
	group.Post("", h.Create)
	group.Get("", h.FindAll)
	group.Get("/:id", h.FindOne)
	group.Patch("/:id", h.Update)
	group.Delete("/:id", h.Remove)
}

func (h *CrudHandler[T, C, U]) Create(c *fiber.Ctx) error {
	var input C
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	item, err := h.service.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return dto.Created(c, h.label+" created successfully", item)
}

func (h *CrudHandler[T, C, U]) FindAll(c *fiber.Ctx) error {
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

func (h *CrudHandler[T, C, U]) FindOne(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	item, err := h.service.FindOne(c.UserContext(), id)
	if err != nil {
		return err
	}
	return dto.OK(c, item)
}

func (h *CrudHandler[T, C, U]) Update(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	var input U
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	item, err := h.service.Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, h.label+" updated successfully", item)
}

func (h *CrudHandler[T, C, U]) Remove(c *fiber.Ctx) error {
	id, err := dto.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Remove(c.UserContext(), id); err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, h.label+" deleted successfully", fiber.Map{"id": id})
}
