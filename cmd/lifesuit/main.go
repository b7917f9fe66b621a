package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lifesuit/companion/internal/achievements"
	"github.com/lifesuit/companion/internal/coach"
	"github.com/lifesuit/companion/internal/config"
	"github.com/lifesuit/companion/internal/device"
	"github.com/lifesuit/companion/internal/mcp"
	"github.com/lifesuit/companion/internal/server"
	"github.com/lifesuit/companion/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	log.Info("LifeSuit companion starting", "version", Version)

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx)
	if err != nil {
		log.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("session store ready")

	tracker := achievements.NewTracker()
	dev := device.New(device.Config{
		Speed:        cfg.Simulation.Speed,
		Schedule:     cfg.Schedule.Program(),
		Store:        db,
		Achievements: tracker,
		Logger:       log,
	})

	var gen coach.Generator
	if cfg.Coach.APIKey != "" {
		gen = coach.NewOpenAIGenerator(cfg.Coach.APIKey, cfg.Coach.Model)
		log.Info("coach enabled", "model", cfg.Coach.Model)
	} else {
		log.Info("coach disabled: no API key")
	}
	aiCoach := coach.New(gen, tracker, log)

	srv := server.New(dev, db, tracker, aiCoach, log)
	mcpSrv := mcp.New(&mcp.Local{Device: dev, DB: db, Tracker: tracker}, Version, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	go dev.Run(ctx, cfg.Simulation.TickInterval)

	httpSrv := &http.Server{Handler: srv}
	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if _, err := dev.EndSession(shutdownCtx); err != nil {
		log.Error("saving final session", "error", err)
	}
	log.Info("server stopped")
}
