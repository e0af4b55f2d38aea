package main

import (
	"context"
	"flag"
	"os"
	"time"

	"potatolearn/backend/smoke"
	"potatolearn/backend/utils"
)

// Прогон основных сценариев против запущенного сервера:
//
//	go run ./backend/scripts/smoke -url http://localhost:5000 -flow all
func main() {
	baseURL := flag.String("url", "http://localhost:5000", "API base URL")
	flow := flag.String("flow", "all", "rate, certificate or all")
	email := flag.String("email", "smoke.student@potatolearn.com", "student email")
	password := flag.String("password", "smoke123", "student password")
	value := flag.Int("rating", 5, "rating for the rate flow")
	flag.Parse()

	logger := utils.InitLogger(utils.LoggerConfig{EnableColors: true})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := smoke.New(*baseURL, logger)
	if err := client.EnsureStudent(ctx, "Smoke Student", *email, *password); err != nil {
		logger.Fatalf("auth: %v", err)
	}

	failed := false
	if *flow == "rate" || *flow == "all" {
		if _, err := client.RateFlow(ctx, *value); err != nil {
			logger.Printf("rate flow failed: %v", err)
			failed = true
		}
	}
	if *flow == "certificate" || *flow == "all" {
		if _, err := client.CertificateFlow(ctx); err != nil {
			logger.Printf("certificate flow failed: %v", err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
	logger.Println("smoke ok")
}
