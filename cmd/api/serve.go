package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), "up", logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	cacheStore, closeCache, err := openCache(cfg, logger)
	if err != nil {
		logger.Error("failed to open cache store", zap.Error(err))
		return err
	}
	defer closeCache()

	metrics := observability.NewMetrics()
	store := repository.NewStore(pg.PoolHandle())
	cacheManager := cache.NewManager(cacheStore, cfg.Cache.TTL(), logger)
	sessions := cache.NewSessionCache(cacheManager, cfg.Cache.SessionTTL())
	dispatcher := events.NewInMemoryDispatcher(logger)
	deps := service.Dependencies{Store: store, Cache: cacheManager, Logger: logger, Dispatcher: dispatcher}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL())
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Mailer:         notify.NewMailer(notify.NewSMTPTransport(cfg.Mail), cfg.Mail, logger),
		Webhook:        notify.NewWebhook(cfg.Notification.WebhookURL, 0),
		Cache:          cacheManager,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		Config:         cfg.Notification,
		SupportContact: cfg.Mail.SupportContact,
	})
	notifications.RegisterHandlers()
	service.NewSessionInvalidator(store, sessions, logger).RegisterHandlers(dispatcher)

	roles := service.NewRoleService(deps)
	states := service.NewTicketStateService(deps)
	ticketDeps := service.TicketDependencies{Dependencies: deps, States: states, Notifier: notifications}
	audits := service.NewAuditService(deps)
	authService := service.NewAuthService(service.AuthDependencies{
		Store:    store,
		Tokens:   tokens,
		Hasher:   hasher,
		Sessions: sessions,
		Roles:    roles,
		Logger:   logger,
	})

	retryWorker := worker.NewRetryWorker(cfg.Notification.RetrySpec, notifications, logger)
	if err := retryWorker.Start(); err != nil {
		logger.Error("failed to start retry worker", zap.Error(err))
		return err
	}

	guard := auth.NewGuard(tokens, store.Users(), sessions, cfg.App.GlobalPrefix, logger).WithMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler:          httptransport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Audit:   audits,
		Timeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Prefix:  cfg.App.GlobalPrefix,
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, cacheStore),
		Metrics: metrics,
		Auth:    handlers.NewAuthHandler(authService),
		Guard:   guard.Handle,
		Groups:  httptransport.EntityGroups(entityHandlers(deps, ticketDeps, roles, states, audits, hasher)),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	retryWorker.Stop(shutdownCtx)
	notifications.Wait()
	audits.Wait()
	return nil
}

func entityHandlers(deps service.Dependencies, ticketDeps service.TicketDependencies, roles *service.RoleService,
	states *service.TicketStateService, audits *service.AuditService, hasher *auth.PasswordHasher) httptransport.EntityHandlers {
	return httptransport.EntityHandlers{
		Users: handlers.NewUsersHandler(service.NewUserService(deps, hasher)),
		Roles: handlers.NewCrudHandler[domain.Role, service.RoleCreateInput, service.RoleUpdateInput](
			roles, "Role"),
		Permissions: handlers.NewCrudHandler[domain.Permission, service.PermissionCreateInput, service.PermissionUpdateInput](
			service.NewPermissionService(deps), "Permission"),
		Branches: handlers.NewCrudHandler[domain.Branch, service.BranchCreateInput, service.BranchUpdateInput](
			service.NewBranchService(deps), "Branch"),
		Tickets:       handlers.NewTicketsHandler(service.NewTicketService(ticketDeps)),
		TicketDetails: handlers.NewTicketDetailsHandler(service.NewTicketDetailService(ticketDeps)),
		TicketStates: handlers.NewCrudHandler[domain.TicketState, service.TicketStateCreateInput, service.TicketStateUpdateInput](
			states, "Ticket state"),
		TicketPriorities: handlers.NewCrudHandler[domain.TicketPriority, service.TicketPriorityCreateInput, service.TicketPriorityUpdateInput](
			service.NewTicketPriorityService(deps), "Ticket priority"),
		TicketCategories: handlers.NewCrudHandler[domain.TicketCategory, service.TicketCategoryCreateInput, service.TicketCategoryUpdateInput](
			service.NewTicketCategoryService(deps), "Ticket category"),
		TicketTitles: handlers.NewCrudHandler[domain.TicketTitle, service.TicketTitleCreateInput, service.TicketTitleUpdateInput](
			service.NewTicketTitleService(deps), "Ticket title"),
		AssignedUserBranches: handlers.NewCrudHandler[domain.AssignedUserBranch, service.AssignedUserBranchInput, service.AssignedUserBranchUpdateInput](
			service.NewAssignedUserBranchService(deps), "Assigned user branch"),
		AssignedUserTickets: handlers.NewCrudHandler[domain.AssignedUserTicket, service.AssignedUserTicketInput, service.AssignedUserTicketUpdateInput](
			service.NewAssignedUserTicketService(deps), "Assigned user ticket"),
		AssignedMenuRoles: handlers.NewAssignedMenuRoleHandler(service.NewAssignedMenuRoleService(deps)),
		Menus:             handlers.NewMenuHandler(service.NewMenuService(deps)),
		SurveyCalifications: handlers.NewCrudHandler[domain.SurveyCalification, service.SurveyCalificationCreateInput, service.SurveyCalificationUpdateInput](
			service.NewSurveyCalificationService(deps), "Survey calification"),
		SurveyResponses: handlers.NewCrudHandler[domain.SurveyResponse, service.SurveyResponseCreateInput, service.SurveyResponseUpdateInput](
			service.NewSurveyResponseService(deps), "Survey response"),
		Audits: handlers.NewAuditsHandler(audits),
	}
}

// openCache selects the cache store by driver and returns its closer.
func openCache(cfg *config.Config, logger *zap.Logger) (cache.Store, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverMemory:
		db, err := persistence.NewBadger(logger)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewBadgerStore(db.DB), db.Close, nil
	default:
		r := persistence.NewRedis(cfg.Redis, logger)
		return cache.NewRedisStore(r.Client), r.Close, nil
	}
}
