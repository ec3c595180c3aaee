package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"thegrid/docs"
	"thegrid/internal/board"
	"thegrid/internal/calendar"
	"thegrid/internal/config"
	"thegrid/internal/handler"
	"thegrid/internal/logger"
	"thegrid/internal/middleware"
	"thegrid/internal/repository"
)

type Server struct {
	Engine   *gin.Engine
	Config   *config.Config
	Store    repository.TaskStore
	Calendar *calendar.Service
	Board    *board.Controller
}

// OpenStore connects the configured task store backend.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.TaskStore, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite, config.BackendPostgres:
		open := func() (*repository.TaskRepository, error) {
			if cfg.StoreBackend == config.BackendSQLite {
				db, err := repository.OpenSQLite(cfg.SQLitePath)
				if err != nil {
					return nil, err
				}
				return repository.NewTaskRepository(db, cfg.PollInterval), nil
			}
			db, err := repository.OpenPostgres(cfg.PostgresDSN())
			if err != nil {
				return nil, err
			}
			return repository.NewTaskRepository(db, cfg.PollInterval), nil
		}
		repo, err := open()
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to migrate tasks table: %w", err)
		}
		return repo, nil
	case config.BackendFirestore:
		return repository.NewFirestoreRepository(ctx, cfg.GCPProjectID, cfg.TasksCollection)
	case config.BackendDatastore:
		return repository.NewDatastoreRepository(ctx, cfg.GCPProjectID, cfg.TasksCollection, cfg.PollInterval)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// NewCalendarService builds the calendar session. Sync stays disabled when the
// OAuth client file cannot be read.
func NewCalendarService(ctx context.Context, cfg *config.Config) (*calendar.Service, error) {
	loc, err := time.LoadLocation(cfg.CalendarTimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar time zone: %w", err)
	}

	opts := calendar.Options{
		TokenFile:   cfg.CalendarTokenFile,
		CalendarID:  cfg.CalendarID,
		Location:    loc,
		Granularity: cfg.DurationGranularity,
	}
	if cfg.CalendarEnabled {
		oauthCfg, err := calendar.LoadOAuthConfig(cfg.CalendarCredentialsFile, cfg.CalendarRedirectURL)
		if err != nil {
			logger.WarnLog(ctx, "calendar sync disabled: %v", err)
		} else {
			opts.OAuth = oauthCfg
		}
	}
	return calendar.NewService(opts), nil
}

// NewRouter registers every route. Board routes require a bearer token when
// jwtSecret is set; the OAuth callback, health and docs stay public.
func NewRouter(bh *handler.BoardHandler, ch *handler.CalendarHandler, jwtSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.GET("/healthz", bh.Health)
	r.GET("/calendar/callback", ch.Callback)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.InstanceName(docs.SwaggerInfo.InstanceName())))

	api := r.Group("/")
	if jwtSecret != "" {
		api.Use(middleware.JWTAuthMiddleware(jwtSecret))
	}
	{
		api.GET("/board", bh.GetBoard)
		api.GET("/board/stream", bh.Stream)
		api.POST("/board/draft", bh.OpenForm)
		api.PATCH("/board/draft", bh.UpdateDraft)
		api.DELETE("/board/draft", bh.CancelDraft)
		api.POST("/board/draft/save", bh.SaveDraft)
		api.DELETE("/board/selection", bh.CloseDetail)

		api.GET("/tasks", bh.ListTasks)
		api.GET("/tasks/:id", bh.GetTask)
		api.POST("/tasks/:id/toggle", bh.ToggleComplete)

		api.POST("/calendar/signin", bh.SignIn)
		api.GET("/calendar/status", ch.Status)
		api.POST("/calendar/signout", ch.SignOut)
	}
	return r
}

// Init wires the store, calendar session and board, and activates the board.
func Init(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	logger.InfoLog(ctx, "task store ready (%s)", cfg.StoreBackend)

	cal, err := NewCalendarService(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := cal.Init(ctx); err != nil {
		logger.WarnLog(ctx, "calendar session not restored: %v", err)
	}

	ctrl := board.NewController(store, cal, board.Options{
		StoreTimeout:    cfg.StoreTimeout,
		CalendarTimeout: cfg.CalendarTimeout,
		Granularity:     cfg.DurationGranularity,
	})
	if err := ctrl.Activate(context.Background()); err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := NewRouter(handler.NewBoardHandler(ctrl), handler.NewCalendarHandler(cal), cfg.JWTSecret)

	return &Server{
		Engine:   engine,
		Config:   cfg,
		Store:    store,
		Calendar: cal,
		Board:    ctrl,
	}, nil
}

// Close releases the board subscription and the store connection.
func (s *Server) Close() error {
	s.Board.Deactivate()
	return s.Store.Close()
}

func (s *Server) Run() error {
	log := logger.With("server")
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", s.Config.ServerPort).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		_ = s.Close()
		return fmt.Errorf("failed to listen: %w", err)
	case <-quit:
	}
	log.Info().Msg("shutting down server")

	// Open SSE streams end once the board stops publishing.
	s.Board.Deactivate()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		_ = s.Store.Close()
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := s.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close")
	}

	log.Info().Msg("server exited properly")
	return nil
}
