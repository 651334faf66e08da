package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"retrocede/internal/auth"
	"retrocede/internal/config"
	"retrocede/internal/db"
	"retrocede/internal/health"
	"retrocede/internal/httpserver"
	"retrocede/internal/ledger"
	"retrocede/internal/orders"
	"retrocede/internal/quotes"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatal(err)
	}

	store := ledger.NewStore(pool)

	var provider quotes.Provider = quotes.NewClient(cfg.QuoteBaseURL, log)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		provider = quotes.NewRedisCache(provider, rdb, cfg.QuoteTTL, log)
	} else {
		provider = quotes.NewCache(provider, cfg.QuoteTTL)
	}

	authSvc := auth.NewService(pool, store, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL, cfg.StartingBalance)
	orderSvc := orders.NewService(pool, store, provider, log)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:   auth.NewHandler(authSvc),
		OrderHandler:  orders.NewHandler(orderSvc),
		QuoteHandler:  quotes.NewHandler(provider, quotes.NewQuoteWS(provider, cfg.WebSocketOrigin)),
		HealthHandler: health.NewHandler(pool, time.Now()),
		AuthService:   authSvc,
		AllowOrigin:   cfg.WebSocketOrigin,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.WithField("addr", cfg.HTTPAddr).Info("server listening")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
