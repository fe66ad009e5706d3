package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	bookingdb "ms-booking-finance/internal/booking/db"
	"ms-booking-finance/internal/config"
	"ms-booking-finance/internal/database"
	"ms-booking-finance/internal/logger"
	"ms-booking-finance/internal/reconciliation"

	"github.com/joho/godotenv"
)

// reconcile runs the school-wide recalculation once, without the HTTP
// server, cache or kafka, and prints the batch summary as JSON.
func main() {
	schoolID := flag.Int64("school", 0, "school id to recalculate")
	bookingID := flag.Int64("booking", 0, "analyze a single booking instead")
	flag.Parse()

	if *schoolID <= 0 && *bookingID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: reconcile -school <id> | -booking <id>")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	service := reconciliation.NewService(bookingdb.New(bunDB), nil, nil, cfg.Reconciliation, log)

	var out any
	if *bookingID > 0 {
		out, err = service.AnalyzeBooking(ctx, *bookingID, true)
	} else {
		out, err = service.RecalculateSchool(ctx, *schoolID)
	}
	if err != nil {
		log.Fatal("RECALCULATE", err.Error())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal("RECALCULATE", err.Error())
	}
}
