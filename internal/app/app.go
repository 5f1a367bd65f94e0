package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "taskmarket/docs"
	"taskmarket/internal/authz"
	"taskmarket/internal/config"
	"taskmarket/internal/database"
	"taskmarket/internal/events"
	"taskmarket/internal/handlers"
	"taskmarket/internal/jobs"
	"taskmarket/internal/middleware"
	"taskmarket/internal/realtime"
	"taskmarket/internal/repositories"
	"taskmarket/internal/routes"
	"taskmarket/internal/services"
)

func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()

	// === DB ===
	db, err := database.Connect(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[app] close db: %v", err)
		}
	}()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return err
	}

	// === Redis (отзыв токенов), опционально ===
	var revocations authz.RevocationStore
	if cfg.Redis.Addr != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revocations = repositories.NewRevocationRepository(rdb)
	} else {
		log.Printf("[app] redis not configured: logout and mode switch will not revoke access tokens")
	}

	// === События: WebSocket всегда, RabbitMQ опционально ===
	hub := realtime.NewHub()
	publisher := events.Fanout{hub}
	if cfg.RabbitMQ.URL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			return err
		}
		publisher = append(publisher, rp)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("[app] close publishers: %v", err)
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	taskRepo := repositories.NewTaskRepository(db)
	execRepo := repositories.NewTaskExecutionRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// === Services ===
	tokens := authz.NewTokens(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, revocations)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	permissionService := services.NewPermissionService(roleRepo)
	authService := services.NewAuthService(userRepo, permissionService, tokens, cfg.JWT.RefreshTTL)
	roleService := services.NewRoleService(roleRepo)
	userService := services.NewUserService(userRepo, roleRepo, emailService, authService)
	taskService := services.NewTaskService(taskRepo, execRepo, cfg.Tasks.ReservationWindow)
	passwordResetService := services.NewPasswordResetService(userRepo, resetRepo, emailService, authService, cfg.JWT.PasswordResetTTL)

	if err := roleService.EnsureDefaults(ctx); err != nil {
		return err
	}

	// === Jobs ===
	var expiryJob *jobs.TaskExpiryJob
	var jobHandler *handlers.JobHandler
	if !cfg.Jobs.TaskExpiry.Disabled {
		sweeper := services.NewTaskExpiryService(execRepo, publisher, cfg.Jobs.TaskExpiry.BatchLimit, cfg.Jobs.TaskExpiry.ItemTimeout)
		expiryJob = jobs.NewTaskExpiryJob(sweeper, cfg.Jobs.TaskExpiry.Schedule)
		jobHandler = handlers.NewJobHandler(expiryJob)
	}

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService, authService)
	passwordHandler := handlers.NewPasswordResetHandler(passwordResetService)
	userHandler := handlers.NewUserHandler(userService)
	roleHandler := handlers.NewRoleHandler(roleService)
	taskHandler := handlers.NewTaskHandler(taskService)
	realtimeHandler := handlers.NewRealtimeHandler(hub)

	// === Gin ===
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, tokens, authHandler, passwordHandler, userHandler, roleHandler, taskHandler, jobHandler, realtimeHandler)

	// === Run ===
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("[app] server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if expiryJob != nil {
		if err := expiryJob.Start(); err != nil {
			_ = server.Close()
			return err
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("[app] %s received, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[app] server forced to shutdown: %v", err)
	}
	// джоб останавливаем до закрытия БД (defer выше)
	if expiryJob != nil {
		if err := expiryJob.Stop(shutdownCtx); err != nil {
			log.Printf("[app] %v", err)
		}
	}
	log.Printf("[app] exited")
	return nil
}
