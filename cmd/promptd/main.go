package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slipway-sh/slipway/internal/gateway"
	"github.com/slipway-sh/slipway/internal/logging"
)

func main() {
	logging.Init(os.Getenv("PROMPTD_LOG_LEVEL"))

	model := os.Getenv("PROMPTD_MODEL")
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	// Cloud Run and friends tell the container which port to bind.
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	llm, err := gateway.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"), model)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := gateway.NewServer(":"+port, llm)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
