package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/config"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/database"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/mailer"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/presence"
	postgresrepo "github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/repository/postgres"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/service"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/transport/http/handlers"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/transport/http/middleware"
	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}
	defer pool.Close()
	log.Info().Msg("connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	taskRepo := postgresrepo.NewTaskRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	notifRepo := postgresrepo.NewNotificationRepo(pool)

	// Presence state is process-local; the hub and the dispatcher share
	// one tracker.
	tracker := presence.NewTracker()

	// Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret)
	access := service.NewAccessResolver(taskRepo, domain.IsPrivileged)
	notificationService := service.NewNotificationService(notifRepo, tracker)
	channelService := service.NewChannelService(messageRepo, userRepo, access, notificationService)
	dueDateService := service.NewDueDateService(messageRepo, userRepo, access, notificationService, channelService)
	dueDateService.SetMailer(mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From))

	// Realtime hub
	hub := ws.NewHub(tracker, channelService)
	go hub.Run()

	notifier := ws.NewHubNotifier(hub)
	channelService.SetNotifier(notifier)
	dueDateService.SetNotifier(notifier)
	notificationService.SetNotifier(notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	channelHandler := handlers.NewChannelHandler(channelService)
	dueDateHandler := handlers.NewDueDateHandler(dueDateService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	auth := middleware.Auth(authService)

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	// Realtime
	mux.HandleFunc("GET /ws", ws.ServeWS(hub, authService))

	// Protected - Task channel
	mux.Handle("GET /api/v1/tasks/{id}/channel/messages", auth(http.HandlerFunc(channelHandler.List)))
	mux.Handle("POST /api/v1/tasks/{id}/channel/messages", auth(http.HandlerFunc(channelHandler.Send)))
	mux.Handle("PUT /api/v1/channel/messages/{id}", auth(http.HandlerFunc(channelHandler.Edit)))
	mux.Handle("DELETE /api/v1/channel/messages/{id}", auth(http.HandlerFunc(channelHandler.Delete)))

	// Protected - Due date requests
	mux.Handle("POST /api/v1/tasks/{id}/channel/due-date-request", auth(http.HandlerFunc(dueDateHandler.Open)))
	mux.Handle("POST /api/v1/channel/due-date-request/{id}/approve", auth(http.HandlerFunc(dueDateHandler.Approve)))
	mux.Handle("POST /api/v1/channel/due-date-request/{id}/reject", auth(http.HandlerFunc(dueDateHandler.Reject)))

	// Protected - Notifications
	mux.Handle("GET /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/v1/notifications/read", auth(http.HandlerFunc(notificationHandler.MarkRead)))
	mux.Handle("DELETE /api/v1/notifications/{id}", auth(http.HandlerFunc(notificationHandler.Delete)))

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("starting server")
	if err := http.ListenAndServe(addr, middleware.CORS(mux)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
