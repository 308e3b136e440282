package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// Mounter registers one route group.
type Mounter interface {
	Mount(group fiber.Router)
}

// Group binds a path under the global prefix to its handler.
type Group struct {
	Path    string
	Handler Mounter
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Prefix  string
	Health  *handlers.HealthHandler
	Metrics *observability.Metrics
	Auth    *handlers.AuthHandler
	Guard   fiber.Handler
	Groups  []Group
}

// RegisterRoutes wires HTTP routes. Health, metrics and the public auth routes
// are registered before the guard so they never reach it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	api := app.Group(cfg.Prefix)
	cfg.Auth.MountPublic(api.Group("/auth"))

	protected := api.Group("", cfg.Guard)
	cfg.Auth.MountProtected(protected.Group("/auth"))
	for _, g := range cfg.Groups {
		g.Handler.Mount(protected.Group(g.Path))
	}
}

// EntityGroups lists the standard route groups in registration order.
func EntityGroups(h EntityHandlers) []Group {
	return []Group{
		{Path: "/users", Handler: h.Users},
		{Path: "/roles", Handler: h.Roles},
		{Path: "/permission", Handler: h.Permissions},
		{Path: "/branch", Handler: h.Branches},
		{Path: "/tickets", Handler: h.Tickets},
		{Path: "/ticketDetail", Handler: h.TicketDetails},
		{Path: "/ticketStates", Handler: h.TicketStates},
		{Path: "/ticketPriority", Handler: h.TicketPriorities},
		{Path: "/ticketCategory", Handler: h.TicketCategories},
		{Path: "/ticketTitle", Handler: h.TicketTitles},
		{Path: "/assignedUserBranches", Handler: h.AssignedUserBranches},
		{Path: "/assignedUserTickets", Handler: h.AssignedUserTickets},
		{Path: "/assignedMenuRole", Handler: h.AssignedMenuRoles},
		{Path: "/menu", Handler: h.Menus},
		{Path: "/surveyCalification", Handler: h.SurveyCalifications},
		{Path: "/survey-response", Handler: h.SurveyResponses},
		{Path: "/audits", Handler: h.Audits},
	}
}

// EntityHandlers names the handler of every route group.
type EntityHandlers struct {
	Users                Mounter
	Roles                Mounter
	Permissions          Mounter
	Branches             Mounter
	Tickets              Mounter
	TicketDetails        Mounter
	TicketStates         Mounter
	TicketPriorities     Mounter
	TicketCategories     Mounter
	TicketTitles         Mounter
	AssignedUserBranches Mounter
	AssignedUserTickets  Mounter
	AssignedMenuRoles    Mounter
	Menus                Mounter
	SurveyCalifications  Mounter
	SurveyResponses      Mounter
	Audits               Mounter
}
