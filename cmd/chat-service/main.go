package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fchat-backend/internal/config"
	"fchat-backend/internal/database"
	callHandler "fchat-backend/internal/handler/http/call"
	chatHandler "fchat-backend/internal/handler/http/chat"
	presenceHandler "fchat-backend/internal/handler/http/presence"
	roomHandler "fchat-backend/internal/handler/http/room"
	wsHandler "fchat-backend/internal/handler/ws"
	"fchat-backend/internal/middleware"
	"fchat-backend/internal/realtime"
	"fchat-backend/internal/repository/cassandra"
	"fchat-backend/internal/repository/cockroach"
	"fchat-backend/internal/scheduler"
	callService "fchat-backend/internal/service/call"
	chatService "fchat-backend/internal/service/chat"
	emailService "fchat-backend/internal/service/email"
	presenceService "fchat-backend/internal/service/presence"
	roomService "fchat-backend/internal/service/room"
	"fchat-backend/pkg/constants"
	pkgEmail "fchat-backend/pkg/email"
	"fchat-backend/pkg/jwt"
	"fchat-backend/pkg/logger"
	"fchat-backend/pkg/metrics"
)

func main() {
	logger.InitDefault()
	defer logger.Sync()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}
	jwtManager := jwt.NewManager(cfg.JWTSecret, cfg.TokenDuration)

	ctx := context.Background()

	// Databases
	cockroachDB, err := database.NewCockroachDB(ctx, cfg.Cockroach)
	if err != nil {
		log.Fatalf("Failed to connect to CockroachDB: %v", err)
	}
	defer cockroachDB.Close()
	log.Println("Connected to CockroachDB")

	cassandraDB, err := database.NewCassandraDB(cfg.Cassandra)
	if err != nil {
		log.Fatalf("Failed to connect to Cassandra: %v", err)
	}
	defer cassandraDB.Close()
	log.Println("Connected to Cassandra")

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Repositories
	roomRepo := cockroach.NewRoomRepository(cockroachDB.Pool)
	callRepo := cockroach.NewCallRepository(cockroachDB.Pool)
	presenceRepo := cockroach.NewPresenceRepository(cockroachDB.Pool)
	userRepo := cockroach.NewUserRepository(cockroachDB.Pool)
	messageRepo := cassandra.NewMessageRepository(cassandraDB.Session)

	// Metrics and realtime transport
	appMetrics := metrics.NewMetrics("chat-service")
	publisher := realtime.NewRedisPublisher(redisClient, appMetrics)

	// Email sender
	var sender pkgEmail.Sender
	if cfg.EmailMode == "smtp" {
		sender = pkgEmail.NewSMTPSender(&pkgEmail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
	} else {
		sender = &pkgEmail.MockSender{}
	}

	// Services
	chatSvc := chatService.NewService(messageRepo, roomRepo, publisher)
	callSvc := callService.NewService(callRepo, roomRepo, chatSvc, publisher, appMetrics, cfg.ICEServers)
	presenceSvc := presenceService.NewService(presenceRepo, roomRepo, publisher, appMetrics, cfg.StalePresenceThreshold)
	emailSvc := emailService.NewService(messageRepo, roomRepo, userRepo, sender, appMetrics)
	roomSvc := roomService.NewService(roomRepo)

	// Background jobs
	jobs := scheduler.New()
	jobs.Register(&scheduler.Job{
		Name:     "stale-presence-sweep",
		Interval: cfg.PresenceSweepInterval,
		Run: func(ctx context.Context) error {
			_, err := presenceSvc.SweepStale(ctx)
			return err
		},
	})
	jobs.Register(&scheduler.Job{
		Name:     "activity-refresh",
		Interval: cfg.ActivityRefreshInterval,
		Run: func(ctx context.Context) error {
			_, err := presenceSvc.RefreshActivity(ctx)
			return err
		},
	})
	jobs.Start()
	defer jobs.Stop()

	// Handlers
	callHdlr := callHandler.NewHandler(callSvc)
	presenceHdlr := presenceHandler.NewHandler(presenceSvc)
	chatHdlr := chatHandler.NewHandler(chatSvc, emailSvc)
	roomHdlr := roomHandler.NewHandler(roomSvc)
	eventsHub := wsHandler.NewEventsHub(redisClient, roomRepo, appMetrics)

	// Router
	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	router.Use(middleware.Prometheus(appMetrics))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "chat-service",
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(jwtManager))
	{
		// Call lifecycle
		v1.POST("/calls/initiate", callHdlr.Initiate)
		v1.POST("/calls/:id/join", callHdlr.Join)
		v1.POST("/calls/:id/leave", callHdlr.Leave)
		v1.POST("/calls/:id/reject", callHdlr.Reject)
		v1.POST("/calls/:id/signal", callHdlr.Signal)
		v1.POST("/calls/:id/fail", callHdlr.Fail)
		v1.GET("/calls/history", callHdlr.History)
		v1.GET("/rooms/:id/call", callHdlr.ActiveSession)

		// Rooms
		v1.POST("/rooms", roomHdlr.Create)
		v1.GET("/rooms", roomHdlr.List)
		v1.GET("/rooms/:id/members", roomHdlr.Members)
		v1.POST("/rooms/:id/members", roomHdlr.AddMember)
		v1.DELETE("/rooms/:id/members/:user_id", roomHdlr.RemoveMember)

		// Presence
		v1.POST("/presence/status", presenceHdlr.SetStatus)
		v1.GET("/presence/status", presenceHdlr.GetStatus)
		v1.POST("/presence/heartbeat", presenceHdlr.Heartbeat)
		v1.POST("/presence/typing", presenceHdlr.SetTyping)
		v1.GET("/presence/online", presenceHdlr.ListOnline)
		v1.POST("/rooms/:id/join", presenceHdlr.JoinRoom)
		v1.POST("/rooms/:id/leave", presenceHdlr.LeaveRoom)
		v1.GET("/rooms/:id/typing", presenceHdlr.ListTyping)
		v1.GET("/rooms/:id/active", presenceHdlr.ListActive)

		// Messaging
		v1.POST("/messages", chatHdlr.SendMessage)
		v1.GET("/messages", chatHdlr.GetMessages)
		v1.GET("/messages/:id", chatHdlr.GetMessage)
		v1.POST("/broadcast", chatHdlr.Broadcast)
		v1.POST("/messages/:id/email", chatHdlr.EmailMessage)

		// Realtime event stream
		v1.GET("/ws/events", eventsHub.ServeWS)
	}

	port := cfg.Port
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  constants.DefaultTimeout,
		WriteTimeout: constants.DefaultTimeout,
	}

	go func() {
		log.Printf("Chat service starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
