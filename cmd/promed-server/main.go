package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/promed/promed/internal/config"
	"github.com/promed/promed/internal/domain/calendarplan"
	"github.com/promed/promed/internal/domain/contingent"
	"github.com/promed/promed/internal/domain/expertise"
	"github.com/promed/promed/internal/domain/queue"
	"github.com/promed/promed/internal/domain/route"
	"github.com/promed/promed/internal/platform/apperr"
	"github.com/promed/promed/internal/platform/auth"
	"github.com/promed/promed/internal/platform/db"
	"github.com/promed/promed/internal/platform/metrics"
	"github.com/promed/promed/internal/platform/middleware"
	"github.com/promed/promed/internal/platform/notification"
	"github.com/promed/promed/internal/platform/websocket"
)

// SheetGatewayAdapter adapts the route service to the queue's SheetGateway
// interface, avoiding circular imports between the queue and route packages.
type SheetGatewayAdapter struct {
	routes *route.Service
}

func (a *SheetGatewayAdapter) LookupService(ctx context.Context, serviceID uuid.UUID) (*queue.ServiceTicket, error) {
	info, err := a.routes.LookupService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return &queue.ServiceTicket{
		ServiceID:  info.ServiceID,
		EmployeeID: info.EmployeeID,
		Station:    info.Station,
		Pending:    info.Pending,
	}, nil
}

func (a *SheetGatewayAdapter) MarkServiceCompleted(ctx context.Context, serviceID uuid.UUID) error {
	return a.routes.MarkServiceCompleted(ctx, serviceID)
}

// RouteReaderAdapter adapts the route service to the expertise engine's
// RouteReader interface.
type RouteReaderAdapter struct {
	routes *route.Service
}

func (a *RouteReaderAdapter) ProgressByEmployee(ctx context.Context, employeeID uuid.UUID) (*expertise.RouteProgress, error) {
	p, err := a.routes.ProgressByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return &expertise.RouteProgress{
		SheetID:         p.SheetID,
		AllCompleted:    p.AllCompleted,
		PendingServices: p.PendingServices,
		Specializations: p.Specializations,
	}, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "promed-server",
		Short: "Occupational medical examination campaign server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	rules, err := route.LoadRuleTable(cfg.RouteRulesPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.RouteRulesPath).Msg("failed to load route rules")
	}
	logger.Info().Int("jobs", len(rules.Jobs)).Int("hazards", len(rules.Hazards)).Msg("route rules loaded")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware([]byte(cfg.AuthSecret)))
	}

	// Shared platform services
	reg := metrics.New()
	dispatcher := notification.NewLogDispatcher(logger)
	hub := websocket.NewHub(logger)

	// Domain services. The contingent's open-sheet guard is wired after the
	// route service exists.
	planRepo := calendarplan.NewPlanRepoPG(pool)
	planSvc := calendarplan.NewService(planRepo, dispatcher, reg, logger)

	employeeRepo := contingent.NewEmployeeRepoPG(pool)
	employeeSvc := contingent.NewService(employeeRepo)

	sheetRepo := route.NewSheetRepoPG(pool)
	routeSvc := route.NewService(rules, sheetRepo, employeeSvc, planSvc, reg, logger)
	employeeSvc.SetSheetChecker(routeSvc)

	entryRepo := queue.NewEntryRepoPG(pool)
	queueSvc := queue.NewService(entryRepo, &SheetGatewayAdapter{routes: routeSvc}, hub, reg, logger)

	expertiseSvc := expertise.NewService(
		expertise.NewConclusionRepoPG(pool),
		expertise.NewExpertiseRepoPG(pool),
		expertise.NewReferralRepoPG(pool),
		&RouteReaderAdapter{routes: routeSvc},
		employeeSvc,
		rules,
		dispatcher,
		reg,
		logger,
	)

	// Routes
	api := e.Group("/api/v1")
	contingent.NewHandler(employeeSvc).RegisterRoutes(api)
	calendarplan.NewHandler(planSvc).RegisterRoutes(api)
	route.NewHandler(routeSvc).RegisterRoutes(api)
	queue.NewHandler(queueSvc).RegisterRoutes(api)
	expertise.NewHandler(expertiseSvc).RegisterRoutes(api)
	websocket.NewHandler(hub).RegisterRoutes(e.Group(""))

	e.GET("/metrics", reg.Handler())
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "down"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}
