package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// AuthHandler exposes login, token refresh and logout.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// MountPublic registers the routes reachable without a token.
func (h *AuthHandler) MountPublic(group fiber.Router) {
	group.Post("/login", h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", h.Logout)
}

// MountProtected registers the routes that need a resolved session.
func (h *AuthHandler) MountProtected(group fiber.Router) {
	group.Get("/roles", h.Roles)
	group.Patch("/password", h.ChangePassword)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	tokens, err := h.auth.Login(c.UserContext(), input)
	if err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, "Login successful", tokens)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input service.RefreshInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	tokens, err := h.auth.Refresh(c.UserContext(), input)
	if err != nil {
		return err
	}
	return dto.OK(c, tokens)
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input service.LogoutInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	h.auth.Logout(c.UserContext(), input)
	return dto.Respond(c, fiber.StatusOK, "User logged out successfully", fiber.Map{"userId": input.UserID})
}

// Roles handles GET /auth/roles.
func (h *AuthHandler) Roles(c *fiber.Ctx) error {
	roles, err := h.auth.Roles(c.UserContext())
	if err != nil {
		return err
	}
	return dto.OK(c, roles)
}

// ChangePassword handles PATCH /auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input service.ChangePasswordInput
	if err := dto.Bind(c, &input); err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.UserContext(), session(c), input); err != nil {
		return err
	}
	return dto.Respond(c, fiber.StatusOK, "Password updated successfully", nil)
}
