package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/trulyexpense/backend/internal/database"
	"github.com/trulyexpense/backend/internal/mailer"
	mW "github.com/trulyexpense/backend/internal/middleware"
	"github.com/trulyexpense/backend/internal/services"
)

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.BindEnv("app.base_url", "APP_BASE_URL")
	viper.BindEnv("amqp.url", "AMQP_URL")
	viper.BindEnv("smtp.host", "SMTP_HOST")
	viper.BindEnv("smtp.port", "SMTP_PORT")
	viper.BindEnv("smtp.username", "SMTP_USERNAME")
	viper.BindEnv("smtp.password", "SMTP_PASSWORD")
	viper.BindEnv("smtp.from", "SMTP_FROM")

	viper.SetDefault("app.base_url", "http://localhost:8080")
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "noreply@trulyexpense.com")
	viper.SetDefault("mailer.exchange", "mail")
	viper.SetDefault("mailer.queue", "mail.outbound")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	mail := buildMailer()
	defer mail.Close()

	authService := services.NewAuthService(db, redisClient, mail)
	expenseService := services.NewExpenseService(db)
	incomeService := services.NewIncomeService(db)
	lookupService := services.NewLookupService(db)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Get("/auth/activate/{token}", authService.Activate)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Post("/auth/validate-email", authService.ValidateEmail)
		r.Post("/auth/validate-username", authService.ValidateUsername)
		r.Post("/auth/password-reset", authService.RequestPasswordReset)
		r.Post("/auth/password-reset/confirm", authService.ConfirmPasswordReset)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/auth/account", authService.GetUserAccount)

			r.Get("/expenses", expenseService.ListExpenses)
			r.Post("/expenses", expenseService.CreateExpense)
			r.Post("/expenses/search", expenseService.SearchExpenses)
			r.Get("/expenses/category-summary", expenseService.CategorySummary)
			r.Get("/expenses/export-csv", expenseService.ExportCSV)
			r.Get("/expenses/export-excel", expenseService.ExportExcel)
			r.Get("/expenses/export-pdf", expenseService.ExportPDF)
			r.Get("/expenses/{id}", expenseService.GetExpense)
			r.Put("/expenses/{id}", expenseService.UpdateExpense)
			r.Delete("/expenses/{id}", expenseService.DeleteExpense)

			r.Get("/income", incomeService.ListIncome)
			r.Post("/income", incomeService.CreateIncome)
			r.Post("/income/search", incomeService.SearchIncome)
			r.Get("/income/{id}", incomeService.GetIncome)
			r.Put("/income/{id}", incomeService.UpdateIncome)
			r.Delete("/income/{id}", incomeService.DeleteIncome)

			r.Get("/categories", lookupService.ListCategories)
			r.Get("/sources", lookupService.ListSources)
			r.Get("/preferences", lookupService.GetPreferences)
			r.Put("/preferences", lookupService.UpdatePreferences)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

// buildMailer prefers the durable AMQP queue when a broker is configured and
// falls back to an in-process queue otherwise. Without an SMTP host the
// fallback logs messages instead of delivering them.
func buildMailer() mailer.Publisher {
	if url := viper.GetString("amqp.url"); url != "" {
		client, err := mailer.NewAMQPClient(url, viper.GetString("mailer.exchange"), viper.GetString("mailer.queue"))
		if err != nil {
			log.Fatalf("Failed to connect mail queue: %v", err)
		}
		log.Println("Mail queue connected (AMQP)")
		return client
	}

	var sender mailer.Sender
	if host := viper.GetString("smtp.host"); host != "" {
		sender = mailer.NewSMTPSender(host, viper.GetInt("smtp.port"),
			viper.GetString("smtp.username"), viper.GetString("smtp.password"), viper.GetString("smtp.from"))
	} else {
		log.Println("No SMTP host configured, outbound mail will be logged only")
		sender = mailer.LogSender{}
	}
	return mailer.NewQueue(sender, 64)
}
