package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gemBekele/zeritu/internal/article"
	"github.com/gemBekele/zeritu/internal/cart"
	"github.com/gemBekele/zeritu/internal/config"
	"github.com/gemBekele/zeritu/internal/db"
	"github.com/gemBekele/zeritu/internal/event"
	"github.com/gemBekele/zeritu/internal/events"
	httpserver "github.com/gemBekele/zeritu/internal/http"
	"github.com/gemBekele/zeritu/internal/middleware"
	"github.com/gemBekele/zeritu/internal/order"
	"github.com/gemBekele/zeritu/internal/payment"
	"github.com/gemBekele/zeritu/internal/product"
	"github.com/gemBekele/zeritu/internal/session"
	"github.com/gemBekele/zeritu/internal/upload"
	"github.com/gemBekele/zeritu/internal/user"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	database, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	uploads, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("init upload store", zap.Error(err))
	}

	// Repositories
	userRepo := user.NewRepository(database)
	productRepo := product.NewRepository(database)
	articleRepo := article.NewRepository(database)
	eventRepo := event.NewRepository(database)
	cartRepo := cart.NewRepository(database)
	orderRepo := order.NewRepository(database)
	sessions := session.NewStore(database)

	reapCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go session.Reap(reapCtx, sessions, time.Hour, logger)

	// Payment gateway
	gateway := payment.NewChapaClient(cfg.ChapaSecretKey, cfg.ChapaBaseURL, logger)
	if cfg.ChapaSecretKey == "" {
		logger.Warn("CHAPA_SECRET_KEY not set; payment initialization will fail")
	}

	// Optional event publishing
	var publisher order.EventPublisher
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			logger.Fatal("connect rabbitmq", zap.Error(err))
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn, logger)
		if err != nil {
			logger.Fatal("create publisher", zap.Error(err))
		}
		defer pub.Close()
		publisher = pub
	}

	cartSvc := cart.NewService(cartRepo)
	orderSvc := order.NewService(orderRepo, cartSvc, gateway, publisher, order.URLs{
		Frontend: cfg.FrontendURL,
		Backend:  cfg.BackendURL,
	}, logger)

	auth := &middleware.Auth{Sessions: sessions, Users: userRepo}

	router := httpserver.NewRouter(httpserver.Deps{
		Logger:           logger,
		Auth:             auth,
		AuthHandler:      httpserver.NewAuthHandler(userRepo, sessions, logger),
		ProductHandler:   httpserver.NewProductHandler(productRepo, uploads, logger),
		ArticleHandler:   httpserver.NewArticleHandler(articleRepo, uploads, logger),
		EventHandler:     httpserver.NewEventHandler(eventRepo, uploads, logger),
		CartHandler:      httpserver.NewCartHandler(cartRepo, productRepo, logger),
		OrderHandler:     httpserver.NewOrderHandler(orderSvc, logger),
		UploadDir:        uploads.Dir(),
		CORSAllowOrigins: splitCSV(cfg.CORSAllowOrigins),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
