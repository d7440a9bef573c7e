package main

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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"webshop/internal/config"
	"webshop/internal/db"
	"webshop/internal/httpserver"
	"webshop/internal/logging"
	"webshop/internal/mykafka"
	"webshop/internal/notify"
	"webshop/internal/repo"
	"webshop/internal/service/activity"
	"webshop/internal/service/cart"
	"webshop/internal/service/catalog"
	"webshop/internal/service/order"
	"webshop/internal/session"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)

	gormDB, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
	}

	var notifier notify.Sender = notify.LogSender{}
	if cfg.SMTPAddr != "" {
		notifier = &notify.SMTPSender{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}
	}

	repository := repo.New(gormDB)
	sessions := session.NewMemoryStore()

	catalogSvc := &catalog.Service{Repo: repository}
	cartSvc := &cart.Service{Store: sessions, Repo: repository}
	activitySvc := &activity.Service{Repo: repository, Producer: producer}
	orderSvc := &order.Service{
		Repo:     repository,
		Carts:    cartSvc,
		Activity: activitySvc,
		Notifier: notifier,
		Producer: producer,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(httpserver.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:     &httpserver.AuthHTTP{Repo: repository, Secret: cfg.JWTSecret},
		ProductHandler:  &httpserver.ProductHTTP{Catalog: catalogSvc, Activity: activitySvc, Producer: producer, Secret: cfg.JWTSecret},
		CartHandler:     &httpserver.CartHTTP{Carts: cartSvc},
		OrderHandler:    &httpserver.OrderHTTP{Orders: orderSvc},
		ActivityHandler: &httpserver.ActivityHTTP{Activity: activitySvc},
		JWTSecret:       cfg.JWTSecret,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
