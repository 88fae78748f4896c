// createtable runs the gorm migrations for the ledger and journal tables.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&ledger.Invoice{},
		&ledger.Transaction{},
		&ledger.NotificationRecord{},
	); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("tables created")
}
