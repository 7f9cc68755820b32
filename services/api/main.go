package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatbubble/internal/config"
	"github.com/chatbubble/internal/fileserver"
	"github.com/chatbubble/internal/handler"
	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/push"
	"github.com/chatbubble/internal/repository"
	"github.com/chatbubble/internal/service"
	"github.com/chatbubble/internal/startup"
	"github.com/chatbubble/internal/storage"
	"github.com/chatbubble/internal/storage/memory"
	"github.com/chatbubble/internal/ws"
	"github.com/chatbubble/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory presence (no external services)")
	flag.Parse()
	defer logger.Flush()

	logger.Info("starting API service")
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var (
			dsn string
			err error
		)
		embeddedDB, dsn, err = startup.StartEmbeddedPostgres()
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			logger.Flush()
			os.Exit(1)
		}
		cfg.Database.URL = dsn
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		logger.Flush()
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MinConns = 2

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
	defer pool.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = startup.ApplyMigrations(migrateCtx, pool, migrations.Files)
	migrateCancel()
	if err != nil {
		logger.Errorf("migrations: %v", err)
		logger.Flush()
		os.Exit(1)
	}
	if *migrateOnly {
		return
	}

	userRepo := repository.NewUserRepository(pool)
	resetCtx, resetCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := userRepo.ResetPresence(resetCtx); err != nil {
		logger.Errorf("reset presence: %v", err)
	}
	resetCancel()
	logger.Info("database connected, migrations applied")

	var presence storage.PresenceStore
	if *dev {
		presence = memory.New()
	} else {
		presence = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second)
	}
	defer presence.Close()

	pushClient := push.NewClient(cfg.Push.ServiceURL, cfg.Push.InternalSecret)

	hub := ws.NewHub(ws.Options{
		MaxConnections:  cfg.MaxWSConnections,
		SendBufferSize:  cfg.WSSendBufferSize,
		WriteTimeout:    cfg.WSWriteTimeout,
		PongTimeout:     cfg.WSPongTimeout,
		MaxMessageSize:  cfg.WSMaxMessageSize,
		// отметка в Redis живёт PresenceTTL — обновляем вдвое чаще
		PresenceRefresh: cfg.PresenceTTL / 2,
	})
	svc := service.New(service.Deps{
		Users:       userRepo,
		Channels:    repository.NewChannelRepository(pool),
		Chats:       repository.NewChannelChatRepository(pool),
		Answers:     repository.NewAnswerRepository(pool),
		DMs:         repository.NewDMRepository(pool),
		DMMessages:  repository.NewDMMessageRepository(pool),
		Presence:    presence,
		PresenceTTL: cfg.PresenceTTL,
		Publisher:   hub,
		Notifier:    pushClient,
	})
	hub.Bind(svc, svc)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	handlers := &handler.Handlers{
		Users:    handler.NewUserHandler(svc, fileserver.New(filepath.Join(cfg.UploadDir, "avatars"), cfg.MaxUploadSize)),
		Channels: handler.NewChannelHandler(svc),
		Messages: handler.NewMessageHandler(svc),
		DMs:      handler.NewDMHandler(svc),
		Push:     handler.NewPushHandler(pushClient),
		Config:   handler.NewConfigHandler(cfg),
		WS:       handler.NewWSHandler(hub, cfg.AllowedOrigins()),
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		compressed := chimw.Compress(5)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			compressed.ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI(cfg.RateLimitPerMinute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-Id", "X-User-Name", "X-User-Email"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	auth := middleware.AuthServiceValidate(cfg.AuthServiceURL, nil)
	if *dev {
		logger.Info("dev mode: X-User-Id header is trusted without validation")
		auth = middleware.DevAuth
	}
	handlers.Mount(r, auth)

	webDist := "./web/dist"
	if info, err := os.Stat(webDist); err == nil && info.IsDir() {
		r.Get("/*", spaHandler(webDist))
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
}

func spaHandler(dir string) http.HandlerFunc {
	fs := http.Dir(dir)
	fileServer := http.FileServer(fs)
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := fs.Open(path); err != nil {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		} else {
			f.Close()
			fileServer.ServeHTTP(w, r)
		}
	}
}
