package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cpdtrack/cpd-management/internal"
	"github.com/cpdtrack/cpd-management/internal/access"
	"github.com/cpdtrack/cpd-management/internal/auth"
	"github.com/cpdtrack/cpd-management/internal/core/events"
	"github.com/cpdtrack/cpd-management/internal/entry"
	entryPostgres "github.com/cpdtrack/cpd-management/internal/entry/postgres"
	"github.com/cpdtrack/cpd-management/internal/goal"
	goalPostgres "github.com/cpdtrack/cpd-management/internal/goal/postgres"
	"github.com/cpdtrack/cpd-management/internal/hierarchy"
	hierarchyPostgres "github.com/cpdtrack/cpd-management/internal/hierarchy/postgres"
	"github.com/cpdtrack/cpd-management/internal/organisation"
	organisationPostgres "github.com/cpdtrack/cpd-management/internal/organisation/postgres"
	"github.com/cpdtrack/cpd-management/internal/review"
	reviewPostgres "github.com/cpdtrack/cpd-management/internal/review/postgres"
	"github.com/cpdtrack/cpd-management/internal/transport/rest"
	"github.com/cpdtrack/cpd-management/internal/user"
	userPostgres "github.com/cpdtrack/cpd-management/internal/user/postgres"
	"github.com/cpdtrack/cpd-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGormDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	router := chi.NewRouter()
	handlers := buildHandlers(config, gormDB, lg)
	rest.RegisterAllRoutes(router, db.DB, handlers, config.Server.AllowedOrigins, lg)

	return &Dependencies{
		Config: config,
		Logger: lg,
		DB:     db,
		Router: router,
	}, nil
}

// buildHandlers wires repositories, services and the event bus. The goal
// service subscribes to the bus before anything can publish, so progress
// recompute is live from the first request.
func buildHandlers(config *internal.Config, gormDB *gorm.DB, lg *slog.Logger) rest.Handlers {
	bus := events.NewEventBus(lg)

	hierarchyService := hierarchy.NewService(hierarchyPostgres.NewHierarchyRepository(gormDB), lg)
	engine := access.NewEngine(hierarchyService, lg)

	entryRepo := entryPostgres.NewEntryRepository(gormDB)
	goalService := goal.NewService(goalPostgres.NewGoalRepository(gormDB), hierarchyService, entryRepo, engine, lg)
	goalService.RegisterEventHandlers(bus)

	entryService := entry.NewService(entryRepo, engine, bus, lg)
	reviewService := review.NewService(reviewPostgres.NewReviewRepository(gormDB), entryRepo, engine, hierarchyService, lg)

	organisationService := organisation.NewService(
		organisationPostgres.NewOrganisationRepository(gormDB), engine, goalService, bus, lg)
	userService := user.NewService(
		userPostgres.NewUserRepository(gormDB), organisationService, engine, goalService, bus, lg,
		config.Security.BCryptCost)

	tokens := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userPostgres.NewUserRepository(gormDB), tokens, lg)

	return rest.Handlers{
		Auth:         auth.NewHandler(authService),
		User:         user.NewHandler(userService),
		Organisation: organisation.NewHandler(organisationService),
		Entry:        entry.NewHandler(entryService),
		Goal:         goal.NewHandler(goalService, bus),
		Review:       review.NewHandler(reviewService),
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGormDB wraps the existing pool so the ORM and the health check share
// one set of connections.
func initGormDB(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
}
