package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/lifesuit/companion/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// lifesuit-mcp exposes a remote LifeSuit companion to a local MCP client
// over stdio. Stdout carries the protocol, so logs go to stderr.
func main() {
	baseURL := flag.String("url", envOr("LIFESUIT_URL", "http://localhost:8080"), "LifeSuit companion base URL")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LifeSuit MCP bridge starting", "version", Version, "url", *baseURL)

	s := mcp.New(mcp.NewHTTPClient(*baseURL), Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp stdio server failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
