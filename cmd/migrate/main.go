package main

import (
	"context"
	"flag"
	"fmt"

	"ms-booking-finance/internal/config"
	"ms-booking-finance/internal/database"
	"ms-booking-finance/internal/database/migrations"
	"ms-booking-finance/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	direction := flag.String("direction", "up", "up, down or version")
	target := flag.Uint("to", 0, "migrate to this version instead of the latest")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, cfg.Migrations, log)
	defer runner.Close()

	switch {
	case *target > 0:
		err = runner.MigrateTo(*target)
	case *direction == "up":
		err = runner.MigrateUp()
	case *direction == "down":
		err = runner.MigrateDown()
	case *direction == "version":
	default:
		log.Fatal("MIGRATE", fmt.Sprintf("unknown direction %q", *direction))
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}

	version, dirty, err := runner.Version()
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", fmt.Sprintf("schema version %d (dirty=%t)", version, dirty))
}
