package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwanyu/marketplace/internal/smoke"
)

func main() {
	var (
		baseURL string
		timeout time.Duration
	)
	flag.StringVar(&baseURL, "base-url", "http://localhost:8080", "API base url")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	if v := os.Getenv("SMOKE_BASE_URL"); v != "" && baseURL == "http://localhost:8080" {
		baseURL = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := smoke.Run(ctx, os.Stdout, smoke.NewClient(baseURL, timeout), smoke.DefaultChecks())
	code := smoke.ExitCode(results)
	stop()
	os.Exit(code)
}
