package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bakery-storefront/config"
	"bakery-storefront/controllers"
	"bakery-storefront/models"
	"bakery-storefront/rabbitmq"
	"bakery-storefront/repository"

	"github.com/shopspring/decimal"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()
	decimal.MarshalJSONWithoutQuotes = true

	store := repository.NewMemoryStore()
	controllers.SeedProducts(store)

	srv := controllers.NewServer(store, controllers.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	})
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := srv.CreateUser(cfg.AdminEmail, cfg.AdminPassword, models.RoleAdmin); err != nil {
			log.Fatalf("Failed to seed admin user: %v", err)
		}
		log.Printf("Seeded admin %s", cfg.AdminEmail)
	}

	// 订单事件（可选）
	if cfg.RabbitMQURL != "" {
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			log.Fatalf("RabbitMQ initialization failed: %v", err)
		}
		defer rmq.Close()
		if err := rmq.SetupQueues(); err != nil {
			log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
		}
		srv.SetPublisher(rmq)
	}

	httpServer := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: srv.Engine(),
	}

	go func() {
		log.Printf("Bakery API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
