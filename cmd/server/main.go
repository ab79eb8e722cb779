package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"letter-order-service/internal/config"
	"letter-order-service/internal/controller"
	"letter-order-service/internal/middleware"
	"letter-order-service/internal/payment"
	"letter-order-service/internal/pdf"
	"letter-order-service/internal/rabbit"
	"letter-order-service/internal/repository"
	"letter-order-service/internal/service"
)

func main() {
	cfg := config.Load()

	// MongoDB connection. Transactions need a replica set.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.MongoDBName)
	store := repository.NewMongo(client, db)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("error ensuring indexes: %v", err)
	}

	// RabbitMQ connection for background jobs.
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("error connecting to RabbitMQ: %v", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("error opening RabbitMQ channel: %v", err)
	}
	publisher, err := rabbit.NewPublisher(ch)
	if err != nil {
		log.Fatalf("error setting up job publisher: %v", err)
	}

	// Collaborators and services.
	provider := payment.NewClient(payment.Config{
		Env:           cfg.ProviderEnv,
		APIKey:        cfg.ProviderAPIKey,
		SecretKey:     cfg.ProviderSecretKey,
		BaseURL:       cfg.ProviderBaseURL,
		WebhookSecret: cfg.ProviderWebhookSecret,
		CallbackURL:   cfg.PaymentCallbackURL,
	})
	renderer := pdf.NewRenderer(cfg.PDFStorageBase)
	verifier := service.NewAuthService(cfg.AuthURL)

	orderService := service.NewOrderService(store, cfg.PriceTRY)
	paymentService := service.NewPaymentService(store, provider, publisher)
	opsService := service.NewOpsService(store, renderer, 60*time.Second)

	orderCtl := controller.NewOrderController(orderService)
	paymentCtl := controller.NewPaymentController(paymentService)
	opsCtl := controller.NewOpsController(opsService)

	// Router.
	r := gin.Default()

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes, rate limited per client IP.
	orders := r.Group("/api/orders")
	orders.POST("/create", middleware.PerMinute(5).Middleware(), orderCtl.Create)
	orders.GET("/track/:trackingCode", middleware.PerMinute(20).Middleware(), orderCtl.Track)

	payments := r.Group("/api/payments")
	payments.POST("/create-intent", middleware.PerMinute(5).Middleware(), paymentCtl.CreateIntent)
	payments.POST("/webhook", middleware.PerMinute(100).Middleware(), paymentCtl.Webhook)
	payments.GET("/status", middleware.PerMinute(30).Middleware(), paymentCtl.Status)

	// Admin routes: bearer token plus admin claim.
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(verifier), middleware.AdminOnly())
	admin.GET("/orders", orderCtl.AdminList)
	admin.PATCH("/orders/:orderId/status", orderCtl.AdminUpdateStatus)

	// Ops routes: scheduler/queue service tokens.
	ops := r.Group("/api/ops")
	ops.Use(middleware.OpsAuth(cfg.OpsJWTSecret, cfg.OpsJWTIssuer))
	ops.POST("/pdf-generate", opsCtl.PDFGenerate)
	ops.POST("/pii-cleanup", opsCtl.PIICleanup)

	// Queue-driven job consumer.
	rabbit.SetupConsumers(ch, opsService)

	log.Printf("letter order service listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
