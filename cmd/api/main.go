package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"karsaz/internal/adapter/api"
	"karsaz/internal/adapter/api/handler"
	apimiddleware "karsaz/internal/adapter/api/middleware"
	"karsaz/internal/adapter/api/router"
	"karsaz/internal/adapter/repository"
	"karsaz/internal/adapter/repository/memory"
	domainrepo "karsaz/internal/domain/repository"
	"karsaz/internal/infrastructure/firebase"
	"karsaz/internal/infrastructure/ratelimit"
	"karsaz/internal/infrastructure/token"
	"karsaz/internal/infrastructure/websocket"
	"karsaz/internal/usecase"
	"karsaz/pkg/config"
	"karsaz/pkg/logger"
	"karsaz/pkg/response"
)

type stores struct {
	conversations domainrepo.ConversationRepository
	users         domainrepo.UserRepository
	ads           domainrepo.AdRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment, cfg.LogLevel)

	if err := run(cfg); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var firebaseApp *fbapp.App
	if cfg.StorageDriver == config.StorageFirestore || cfg.AuthProvider == config.AuthFirebase {
		app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, credentials(cfg)...)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		firebaseApp = app
	}

	store, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, closeVerifier, err := newVerifier(ctx, cfg, firebaseApp)
	if err != nil {
		return err
	}
	defer closeVerifier()

	wsManager := websocket.NewManager()
	managerCtx, stopManager := context.WithCancel(context.Background())
	defer stopManager()
	go wsManager.Run(managerCtx)

	authUseCase := usecase.NewAuthUseCase(verifier, store.users)
	chatUseCase := usecase.NewChatUseCase(store.conversations, store.users, store.ads, wsManager)
	presenceUseCase := usecase.NewPresenceUseCase(store.users, wsManager)
	sessions := websocket.NewMessageHandler(wsManager, chatUseCase, presenceUseCase, cfg.WSSendBuffer)

	handler.Setup(chatUseCase, authUseCase, wsManager, sessions, cfg.WSAllowedOrigins)

	messageLimiter := ratelimit.NewRateLimiter(cfg.MessageRateLimit, cfg.MessageRateWindow)
	messageLimiter.StartCleanupRoutine(ctx, cfg.MessageRateWindow)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = response.HTTPErrorHandler
	e.Validator = api.NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Warn("request failed", append(args, "error", v.Error)...)
				return nil
			}
			logger.Info("request", args...)
			return nil
		},
	}))

	router.Setup(e, apimiddleware.NewAuthMiddleware(authUseCase), messageLimiter)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "environment", cfg.Environment,
			"storage", cfg.StorageDriver, "auth", cfg.AuthProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopManager()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func credentials(cfg *config.Config) []option.ClientOption {
	switch {
	case cfg.FirebaseServiceAccountJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	case cfg.FirebaseServiceAccountPath != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
	default:
		// Application default credentials.
		return nil
	}
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		seed := &memory.Seed{}
		if cfg.MemorySeedFile != "" {
			loaded, err := memory.LoadSeed(cfg.MemorySeedFile)
			if err != nil {
				return nil, nil, err
			}
			seed = loaded
			logger.Info("loaded seed data", "users", len(seed.Users), "ads", len(seed.Ads))
		}
		return &stores{
			conversations: memory.NewConversationRepository(),
			users:         memory.NewUserRepository(seed.Users...),
			ads:           memory.NewAdRepository(seed.Ads...),
		}, func() {}, nil
	}

	client, err := firestore.NewClient(ctx, cfg.FirebaseProject, credentials(cfg)...)
	if err != nil {
		return nil, nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &stores{
		conversations: repository.NewFirestoreConversationRepository(client),
		users:         repository.NewFirestoreUserRepository(client),
		ads:           repository.NewFirestoreAdRepository(client),
	}, func() { client.Close() }, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, app *fbapp.App) (usecase.TokenVerifier, func(), error) {
	switch {
	case cfg.AuthProvider == config.AuthFirebase:
		authClient, err := app.Auth(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize firebase auth: %w", err)
		}
		return firebase.NewAuthClient(authClient), func() {}, nil
	case cfg.JWKSURL != "":
		v, err := token.NewJWKSVerifier(cfg.JWKSURL, cfg.JWTIssuer)
		if err != nil {
			return nil, nil, err
		}
		return v, v.Close, nil
	default:
		return token.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), func() {}, nil
	}
}
