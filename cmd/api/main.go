// Package main starts an HTTP server that provides endpoints for health
// checks and infrastructure artifact normalization. It uses the internal
// handlers package to process incoming requests and return JSON responses.
package main

import (
	"net/http"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/terrascope/ingest/cmd/api/middleware"
	"github.com/terrascope/ingest/internal/handlers"
	"github.com/terrascope/ingest/internal/ingest"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "ingest-api",
		Level: hclog.LevelFromString(envOr("LOG_LEVEL", "info")),
	})

	svc := ingest.New(ingest.WithLogger(log.Named("ingest")))
	api := handlers.NewAPI(svc, log.Named("http"))

	addr := ":" + envOr("PORT", "8080")
	log.Info("server starting", "addr", addr)
	if err := http.ListenAndServe(addr, middleware.Cors(api.Routes())); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
