package main

import (
	"log"

	"claimtrace/internal/database"
	"claimtrace/internal/services"

	"github.com/joho/godotenv"
)

// Seeds the tracked account configuration. In a production system additions
// would go through the admin API instead.

func main() {
	log.Printf("🌱 ClaimTrace Database Seeder")
	log.Printf("=============================")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	seedService := services.NewSeedService(database.DB)
	inserted, err := seedService.SeedTrackedAccounts()
	if err != nil {
		log.Fatal("Seeding failed:", err)
	}

	log.Printf("✅ Seeding complete (%d new accounts)", inserted)
}
