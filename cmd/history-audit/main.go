package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/Apurer/storefront-orders/internal/app/audit"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	err := audit.Run(ctx, os.Stdout)
	switch {
	case errors.Is(err, audit.ErrViolations):
		cancel()
		os.Exit(2)
	case err != nil:
		log.Fatalf("history audit failed: %v", err)
	}
	log.Printf("history audit completed")
}
