package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/staynest/booking-backend/internal/config"
	"github.com/staynest/booking-backend/internal/database"
	"github.com/staynest/booking-backend/internal/services"
)

func main() {
	var minutes int
	var dbURLFlag string
	flag.IntVar(&minutes, "minutes", 30, "cancel pending bookings older than this many minutes")
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}
	if minutes <= 0 {
		log.Fatal("-minutes must be positive")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		log.Fatal("failed to cast database connection to PostgresDB")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	bookingRepo := database.NewBookingRepository(sqlxDB.DB)
	paymentRepo := database.NewPaymentRepository(sqlxDB.DB)
	reaper := services.NewReaperService(bookingRepo, paymentRepo, minutes, logger)

	result, err := reaper.Run()
	if err != nil {
		log.Fatalf("reaper sweep failed: %v", err)
	}

	if result.BookingsCancelled == 0 && result.PaymentsExpired == 0 {
		fmt.Println("No abandoned bookings found.")
		return
	}
	fmt.Printf("Cancelled %d abandoned bookings, expired %d orphaned payments.\n",
		result.BookingsCancelled, result.PaymentsExpired)
}
