// Микросервис пуш-уведомлений (Web Push): подписки в Redis, отправка через VAPID.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/chatbubble/internal/config"
	"github.com/chatbubble/internal/logger"
	"github.com/chatbubble/internal/middleware"
	"github.com/chatbubble/internal/push"
	"github.com/chatbubble/internal/startup"
)

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	logger.SetPrefix("push")
	genVAPID := flag.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	flag.Parse()
	if *genVAPID {
		priv, pub, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			logger.Errorf("generate VAPID: %v", err)
			os.Exit(1)
		}
		logger.Infof("VAPID_PUBLIC_KEY=%s", pub)
		logger.Infof("VAPID_PRIVATE_KEY=%s", priv)
		logger.Flush()
		return
	}

	logger.Info("starting push service")
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	addr := getEnv("PUSH_SERVER_ADDR", ":8082")

	keys := &push.VAPIDKeys{PublicKey: os.Getenv("VAPID_PUBLIC_KEY"), PrivateKey: os.Getenv("VAPID_PRIVATE_KEY")}
	if keys.PublicKey == "" || keys.PrivateKey == "" {
		var err error
		if keys, err = push.EnsureVAPIDKeys(""); err != nil {
			logger.Errorf("VAPID: не удалось загрузить/сгенерировать ключи: %v — отправка отключена", err)
			keys = nil
		}
	}

	rdb := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second)
	defer rdb.Close()

	var sender push.Sender
	publicKey := ""
	if keys != nil {
		sender = push.NewWebPushSender(keys, getEnv("VAPID_SUBSCRIBER", "chatbubble-push"))
		publicKey = keys.PublicKey
	}
	srvPush := push.NewServer(push.NewSubscriptionStore(rdb.Raw()), sender, publicKey)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalOnly(cfg.Push.InternalSecret))
		srvPush.Routes(r)
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("push server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("push server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Info("push server stopped")
}
