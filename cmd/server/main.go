package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/BasmalaAyman4/storefront-gateway/internal/cache"
	"github.com/BasmalaAyman4/storefront-gateway/internal/config"
	"github.com/BasmalaAyman4/storefront-gateway/internal/handlers"
	"github.com/BasmalaAyman4/storefront-gateway/internal/locale"
	"github.com/BasmalaAyman4/storefront-gateway/internal/middleware"
	"github.com/BasmalaAyman4/storefront-gateway/internal/ratelimit"
	"github.com/BasmalaAyman4/storefront-gateway/internal/repository"
	"github.com/BasmalaAyman4/storefront-gateway/internal/service"
	"github.com/BasmalaAyman4/storefront-gateway/internal/upstream"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	defaultLocale, err := locale.Parse(cfg.Locale.Default, locale.English)
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse default locale")
	}

	sessionRepo, err := initSessionRepository(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize session repository")
	}

	cacheStore := cache.New(cache.Options{
		Backend:         cfg.Cache.Backend,
		RedisAddr:       cfg.Redis.Endpoint,
		RedisPassword:   cfg.Redis.Password,
		RedisDB:         cfg.Redis.DB,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, logger)

	limiter := ratelimit.New(ratelimit.Config{
		Interval:               cfg.RateLimit.Interval,
		UniqueTokenPerInterval: cfg.RateLimit.UniqueTokenPerInterval,
		Retention:              cfg.RateLimit.Retention,
		SweepInterval:          cfg.RateLimit.SweepInterval,
	})

	upstreamClient, err := upstream.NewClient(upstream.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		Timeout:      cfg.Upstream.Timeout,
		MaxRetries:   cfg.Upstream.MaxRetries,
		RetryDelay:   cfg.Upstream.RetryDelay,
		MaxDelay:     cfg.Upstream.MaxDelay,
		MaxBodyBytes: cfg.Upstream.MaxBodyBytes,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize upstream client")
	}

	cookieService, err := service.NewCookieService(&cfg.Session, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize cookie service")
	}

	sessionService := service.NewSessionService(sessionRepo, upstreamClient, cookieService, &cfg.Session, defaultLocale, logger)
	catalogService := service.NewCatalogService(upstreamClient, cacheStore, &cfg.Cache, logger)
	authService := service.NewAuthService(upstreamClient, sessionService, limiter, &cfg.RateLimit, logger)

	authHandlers := handlers.NewAuthHandlers(
		authService,
		sessionService,
		cfg.Session.CookieName,
		cfg.Session.CookieExpiry,
		logger,
	)
	catalogHandlers := handlers.NewCatalogHandlers(catalogService, logger)
	imageProxy := handlers.NewImageProxyHandler(cfg.ImageProxy, logger)

	sessionMiddleware := middleware.NewSessionMiddleware(sessionService, cfg.Session.CookieName, logger)
	router := setupRouter(authHandlers, catalogHandlers, imageProxy, sessionMiddleware, defaultLocale, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	sessionService.Close()
	limiter.Close()
	if err := cacheStore.Close(); err != nil {
		logger.WithError(err).Warn("Cache shutdown failed")
	}

	logger.Info("Server exited")
}

func initSessionRepository(cfg *config.Config, logger *logrus.Logger) (repository.SessionRepository, error) {
	if cfg.Session.Backend != "dynamo" {
		logger.Info("Using in-memory session store")
		return repository.NewMemorySessionRepository(), nil
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	sealer, err := repository.NewTokenSealer([]byte(cfg.Session.SealKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token sealer: %w", err)
	}

	return repository.NewDynamoSessionRepository(dynamoClient, cfg.DynamoDB.TableName, sealer, cfg.Session.Retention, logger), nil
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func setupRouter(
	authHandlers *handlers.AuthHandlers,
	catalogHandlers *handlers.CatalogHandlers,
	imageProxy *handlers.ImageProxyHandler,
	sessionMiddleware *middleware.SessionMiddleware,
	defaultLocale locale.Locale,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.LocaleMiddleware(defaultLocale))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	router.HandleFunc("/images", imageProxy.Proxy).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", authHandlers.Login).Methods("POST", "OPTIONS")
	auth.HandleFunc("/signup", authHandlers.SignupStart).Methods("POST", "OPTIONS")
	auth.HandleFunc("/verify-otp", authHandlers.VerifyCode).Methods("POST", "OPTIONS")
	auth.HandleFunc("/set-password", authHandlers.SetCredential).Methods("POST", "OPTIONS")
	auth.HandleFunc("/personal-info", authHandlers.SetProfile).Methods("POST", "OPTIONS")
	auth.HandleFunc("/logout", authHandlers.Logout).Methods("POST", "OPTIONS")

	api.HandleFunc("/home", catalogHandlers.Home).Methods("GET", "OPTIONS")
	api.HandleFunc("/products/{id}", catalogHandlers.Product).Methods("GET", "OPTIONS")
	api.HandleFunc("/products/{id}/bundle", catalogHandlers.Bundle).Methods("GET", "OPTIONS")
	api.HandleFunc("/search", catalogHandlers.Search).Methods("POST", "OPTIONS")
	api.HandleFunc("/categories", catalogHandlers.Categories).Methods("GET", "OPTIONS")
	api.HandleFunc("/banners", catalogHandlers.Banners).Methods("GET", "OPTIONS")

	protected := api.PathPrefix("/").Subrouter()
	protected.Use(sessionMiddleware.RequireSession)
	protected.HandleFunc("/me", authHandlers.Me).Methods("GET")

	internal := router.PathPrefix("/internal").Subrouter()
	internal.HandleFunc("/cache/invalidate", catalogHandlers.InvalidateCache).Methods("POST")

	return router
}
