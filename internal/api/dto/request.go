package dto

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/validation"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Bind decodes the JSON body into dest and validates it.
func Bind(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return apperrors.NewBadRequest("Request body is required")
	}
	if err := c.BodyParser(dest); err != nil {
		return apperrors.NewBadRequest("Invalid request body")
	}
	return validation.Struct(dest)
}

// ParamID returns the named path parameter, rejecting anything that is not a UUID.
func ParamID(c *fiber.Ctx, name string) (string, error) {
	raw := strings.TrimSpace(c.Params(name))
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperrors.NewBadRequest(fmt.Sprintf("Validation failed (uuid is expected in %s)", name))
	}
	return raw, nil
}

// ListQuery reads skip, take, filter and withDeleted from the query string.
func ListQuery(c *fiber.Ctx) (domain.ListQuery, error) {
	q := domain.ListQuery{
		Skip:        c.QueryInt("skip", 0),
		Take:        c.QueryInt("take", domain.DefaultTake),
		Filter:      strings.TrimSpace(c.Query("filter")),
		WithDeleted: c.QueryBool("withDeleted", false),
	}
	if q.Skip < 0 {
		return q, apperrors.NewBadRequest("skip must not be negative")
	}
	if q.Take < 0 {
		return q, apperrors.NewBadRequest("take must not be negative")
	}
	return q.Normalize(), nil
}
