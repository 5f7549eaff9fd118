package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/viper"

	"github.com/trulyexpense/backend/internal/database"
	"github.com/trulyexpense/backend/internal/services"
)

var demoCategories = []string{"Food", "Travel", "Housing", "Entertainment", "Health", "Other"}
var demoSources = []string{"Salary", "Business", "Side hustle", "Investments", "Gifts", "Other"}

// seed fills the database with demo users and records. Every generated user
// is active and has the password "password123".
func main() {
	users := flag.Int("users", 3, "number of demo users to create")
	records := flag.Int("records", 40, "expenses and incomes per user")
	flag.Parse()

	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.ReadInConfig()

	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	password, err := services.HashPassword("password123")
	if err != nil {
		log.Fatalf("Failed to hash demo password: %v", err)
	}

	for i := 0; i < *users; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), rand.Intn(1000))
		email := gofakeit.Email()

		var userID int
		err := db.QueryRow("INSERT INTO users (username, email, password, is_active) VALUES ($1, $2, $3, TRUE) RETURNING id",
			username, email, password).Scan(&userID)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", username, err)
		}

		for j := 0; j < *records; j++ {
			date := time.Now().AddDate(0, 0, -rand.Intn(300))
			_, err := db.Exec("INSERT INTO expenses (owner_id, amount, description, category, expense_date) VALUES ($1, $2, $3, $4, $5)",
				userID, gofakeit.Price(1, 500), gofakeit.Sentence(4), demoCategories[rand.Intn(len(demoCategories))], date)
			if err != nil {
				log.Fatalf("Failed to create expense: %v", err)
			}

			_, err = db.Exec("INSERT INTO incomes (owner_id, amount, description, source, income_date) VALUES ($1, $2, $3, $4, $5)",
				userID, gofakeit.Price(100, 5000), gofakeit.Sentence(4), demoSources[rand.Intn(len(demoSources))], date)
			if err != nil {
				log.Fatalf("Failed to create income: %v", err)
			}
		}

		log.Printf("Seeded user %s (%s) with %d expenses and %d incomes", username, email, *records, *records)
	}
}
