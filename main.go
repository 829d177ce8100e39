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

	"github.com/gamershop/gamershop/config"
	"github.com/gamershop/gamershop/controllers"
	"github.com/gamershop/gamershop/middleware"
	"github.com/gamershop/gamershop/routes"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gamershop/gamershop/workers"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(cfg.LogDir); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	if err := utils.RegisterValidators(); err != nil {
		utils.LogError("Failed to register validators: %v", err)
		log.Fatal("Failed to register validators:", err)
	}
	utils.ExposeErrorDetail = !cfg.Server.IsProduction()
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := config.InitDB(cfg.DB, !cfg.Server.IsProduction())
	if err != nil {
		utils.LogError("Failed to initialize database: %v", err)
		log.Fatal("Failed to initialize database:", err)
	}
	utils.LogInfo("Connected to PostgreSQL")

	redisClient, err := config.InitRedis(ctx, cfg.Redis)
	if err != nil {
		utils.LogError("Failed to connect to Redis: %v", err)
		log.Fatal("Failed to connect to Redis:", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		utils.LogInfo("Connected to Redis")
	}

	amqpConn, amqpCh, err := config.InitRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		utils.LogError("Failed to connect to RabbitMQ: %v", err)
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	if amqpConn != nil {
		defer amqpConn.Close()
		defer amqpCh.Close()
		utils.LogInfo("Connected to RabbitMQ")
	}

	mailer, err := newMailer(cfg.Email)
	if err != nil {
		utils.LogError("Failed to configure mailer: %v", err)
		log.Fatal("Failed to configure mailer:", err)
	}

	// Services
	catalog := services.NewCatalogService(db, redisClient)
	outbox := services.NewOutboxStore(db)
	orders := services.NewOrderService(db, outbox, nil, catalog)
	coupons := services.NewCouponService(db, nil)
	reviews := services.NewReviewService(db)
	users := services.NewUserService(db, cfg.JWT.Secret, cfg.JWT.Expiration)
	dashboard := services.NewDashboardService(db)

	if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		utils.LogError("Failed to create admin: %v", err)
		log.Fatal("Failed to create admin:", err)
	}

	// Notifications go straight to the mailer, or through RabbitMQ when a
	// broker and Redis (for consumer idempotency) are both configured
	relayCfg := workers.RelayConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BaseBackoff:  cfg.Outbox.BaseBackoff,
	}
	mailDispatcher := &workers.MailDispatcher{Orders: orders, Mailer: mailer}
	var dispatcher workers.Dispatcher = mailDispatcher
	var consumer *workers.MailConsumer
	if amqpCh != nil {
		if redisClient == nil {
			utils.LogError("RabbitMQ is configured without Redis, sending notifications directly")
		} else {
			if err := workers.SetupRabbitMQ(amqpCh); err != nil {
				utils.LogError("Failed to set up RabbitMQ: %v", err)
				log.Fatal("Failed to set up RabbitMQ:", err)
			}
			pubCh, err := amqpConn.Channel()
			if err != nil {
				utils.LogError("Failed to open publish channel: %v", err)
				log.Fatal("Failed to open publish channel:", err)
			}
			defer pubCh.Close()

			dispatcher = &workers.BrokerPublisher{Channel: pubCh}
			consumer = workers.NewMailConsumer(amqpCh, mailDispatcher, workers.RedisIdempotency{Client: redisClient}, outbox, relayCfg)
			if err := consumer.Start(ctx); err != nil {
				utils.LogError("Failed to start mail consumer: %v", err)
				log.Fatal("Failed to start mail consumer:", err)
			}
		}
	}

	relay := workers.NewNotificationRelay(outbox, dispatcher, relayCfg)
	orders.SetNotifier(relay)
	relay.Start(ctx)

	var rateCounter utils.RateCounter
	if redisClient != nil {
		rateCounter = utils.RedisRateCounter{Client: redisClient}
	}

	// Set up router
	router := routes.SetupRouter(routes.Handlers{
		Auth:      controllers.NewAuthController(users, config.NewGoogleOAuthConfig(cfg.Google), cfg.FrontendURL),
		Products:  controllers.NewProductController(catalog, cfg.UploadDir),
		Taxonomy:  controllers.NewTaxonomyController(catalog),
		Reviews:   controllers.NewReviewController(reviews),
		Orders:    controllers.NewOrderController(orders),
		Coupons:   controllers.NewCouponController(coupons),
		Dashboard: controllers.NewDashboardController(dashboard),
		Health:    controllers.NewHealthController(db, redisClient, amqpConn),
	}, routes.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: cfg.Server.IsProduction(),
		AllowedOrigin: cfg.FrontendURL,
		UploadDir:     cfg.UploadDir,
		RateCounter:   rateCounter,
		RateLimit:     cfg.RateLimit.Requests,
		RateWindow:    cfg.RateLimit.Window,
		Auth:          middleware.AuthMiddleware(cfg.JWT.Secret, users),
		Admin:         middleware.AdminMiddleware(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		utils.LogInfo("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError("Error starting server: %v", err)
			log.Fatal("Error starting server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.LogInfo("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError("Server forced to shutdown: %v", err)
	}

	relay.Stop()
	if consumer != nil {
		consumer.Stop()
	}
	cancel()
	utils.LogInfo("Server stopped")
}

// newMailer picks the outbound mail provider
func newMailer(cfg config.EmailConfig) (utils.Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST is required for the smtp provider")
		}
		return utils.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.From), nil
	case "postmark":
		if cfg.PostmarkToken == "" {
			return nil, errors.New("POSTMARK_SERVER_TOKEN is required for the postmark provider")
		}
		return utils.NewPostmarkMailer(cfg.PostmarkToken, cfg.From), nil
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is required for the sendgrid provider")
		}
		return utils.NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress), nil
	case "log", "":
		return utils.LogMailer{}, nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.Provider)
	}
}
