package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventribe/eventribe/internal/plugins/admin"
	"github.com/eventribe/eventribe/internal/plugins/auth"
	"github.com/eventribe/eventribe/internal/plugins/events"
	"github.com/eventribe/eventribe/internal/plugins/mailer"
	"github.com/eventribe/eventribe/internal/plugins/payments"
)

// RegisterRoutes wires every plugin and sets up the shared routes. This is
// the single place where the dependency graph is assembled: repositories
// over the DB pool, services over repositories, handlers over services.
//
// It returns the code repository so main can hand it to the sweeper.
func (a *App) RegisterRoutes() auth.CodeRepository {
	e := a.Echo

	// --- Repositories ---
	userRepo := auth.NewUserRepository(a.DB)
	codeRepo := auth.NewCodeRepository(a.DB)
	eventRepo := events.NewRepository(a.DB)
	paymentRepo := payments.NewRepository(a.DB)
	mailerRepo := mailer.NewRepository(a.DB)

	// --- Services ---
	mailSvc := mailer.NewService(mailerRepo, a.Config.Auth.SecretKey)
	codec := auth.NewTokenCodec(a.Config.Auth.SecretKey, a.Config.Auth.SessionTTL)
	authSvc := auth.NewService(userRepo, codeRepo, codec, mailSvc, a.Config.Auth.CodeTTL)
	eventSvc := events.NewService(eventRepo)
	paymentSvc := payments.NewService(paymentRepo, eventRepo)
	adminSvc := admin.NewService(userRepo, eventRepo, eventSvc)

	// The gate runs after the global middleware on every request.
	e.Use(auth.Gate(codec))

	// --- Shared routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"service": "eventribe"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		if err := a.DB.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Plugin routes ---
	auth.RegisterRoutes(e, auth.NewHandler(authSvc, a.Config.Auth.SessionTTL), a.Redis)
	events.RegisterRoutes(e, events.NewHandler(eventSvc))
	payments.RegisterRoutes(e, payments.NewHandler(paymentSvc))
	admin.RegisterRoutes(e, admin.NewHandler(adminSvc))
	mailer.RegisterRoutes(e, mailer.NewHandler(mailSvc))

	return codeRepo
}
