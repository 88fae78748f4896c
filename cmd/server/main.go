package main

import (
	"context"
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/gateway/mercadopago"
	apphttp "github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/http"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/ledger"
	"github.com/Sage-BR/Gateway-Mercado-Pago-FossBilling/internal/storage"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	led := ledger.NewGormLedger(db)
	journal := ledger.NewGormJournal(db)
	journal.SetLogger(logger)

	adapter, err := mercadopago.New(mercadopago.Config{
		AccessToken:     os.Getenv("MP_ACCESS_TOKEN"),
		SecretKey:       os.Getenv("MP_SECRET_KEY"),
		TestMode:        os.Getenv("MP_TEST_MODE") == "1",
		BaseURL:         os.Getenv("MP_BASE_URL"),
		SiteURL:         os.Getenv("BASE_URL"),
		StrictSignature: os.Getenv("MP_STRICT_SIGNATURE") == "1",
	}, led)
	if err != nil {
		log.Fatalf("failed to configure gateway: %v", err)
	}
	adapter.SetLogger(logger)

	archive, err := storage.FromEnv(context.Background())
	if err != nil {
		log.Fatalf("failed to configure payload archive: %v", err)
	}
	logger.Info("payload archive configured", "driver", archive.Driver)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	r := apphttp.NewRouter(logger, adapter, led, journal, archive.Storage)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
