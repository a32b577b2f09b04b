package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "mailboard-backend/cmd/api"
	authdomain "mailboard-backend/internal/auth/domain"
	authRepo "mailboard-backend/internal/auth/repository"
	authUsecase "mailboard-backend/internal/auth/usecase"
	emailDelivery "mailboard-backend/internal/email/delivery"
	emaildomain "mailboard-backend/internal/email/domain"
	"mailboard-backend/internal/email/provider"
	emailRepo "mailboard-backend/internal/email/repository"
	"mailboard-backend/internal/email/scheduler"
	emailUsecase "mailboard-backend/internal/email/usecase"
	"mailboard-backend/internal/notification"
	"mailboard-backend/pkg/config"
	"mailboard-backend/pkg/database"
	"mailboard-backend/pkg/fcm"
	"mailboard-backend/pkg/gmail"
	"mailboard-backend/pkg/realtime"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.FCMToken{}, &emaildomain.KanbanColumn{}, &emaildomain.EmailPosition{}, &emaildomain.SnoozeRecord{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	columnRepo := emailRepo.NewKanbanColumnRepository(db)
	positionRepo := emailRepo.NewEmailPositionRepository(db)
	snoozeRepo := emailRepo.NewSnoozeRepository(db)

	hub := realtime.NewHub(cfg.RealtimeMaxPerUser)

	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	mailProvider := provider.NewGmailProvider(gmailService, userRepo)

	// FCM is optional, restore events still reach connected clients without it
	var pushSender notification.PushSender
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			pushSender = fcmClient
		}
	} else {
		log.Printf("[DEBUG] No Firebase credentials configured, FCM disabled")
	}
	notifier := notification.NewRestoreNotifier(hub, fcmTokenRepo, pushSender)

	// Gmail push notifications (Pub/Sub), only when a project is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		notifService, err := notification.NewService(ctx, cfg.GoogleProjectID, topicName, hub, userRepo, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			defer notifService.Close()
			go notifService.Start(ctx)
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)
	columnUsecase := emailUsecase.NewColumnUsecase(columnRepo, mailProvider)
	placementUsecase := emailUsecase.NewPlacementUsecase(columnRepo, positionRepo, snoozeRepo, mailProvider, cfg.GooglePubSubTopic)
	snoozeUsecase := emailUsecase.NewSnoozeUsecase(columnRepo, positionRepo, snoozeRepo, mailProvider, notifier, emailUsecase.SnoozeOptions{
		SnoozedLabelName: cfg.SnoozedLabelName,
		Location:         cfg.Location(),
	})

	sweeper := scheduler.NewSnoozeSweeper(snoozeUsecase, cfg.SnoozeSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize HTTP handler
	emailHandler := emailDelivery.NewEmailHandler(columnUsecase, placementUsecase, snoozeUsecase)
	handler := api.NewHandler(authUsecaseInstance, emailHandler, hub)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
