package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kate8382/error-logger-viewer/capture"
	"github.com/kate8382/error-logger-viewer/cli"
	"github.com/kate8382/error-logger-viewer/config"
	"github.com/kate8382/error-logger-viewer/core"
	"github.com/kate8382/error-logger-viewer/database"
	"github.com/kate8382/error-logger-viewer/errorapi"
	"github.com/kate8382/error-logger-viewer/handlers"
	"github.com/kate8382/error-logger-viewer/hub"
	"github.com/kate8382/error-logger-viewer/service"
)

const defaultServerURL = "http://localhost:3000"

func main() {
	// Load environment variables and parse CLI flags
	config.ParseFlags()

	logFile, err := setupLogging(config.Settings.LogFilePath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	// Check if CLI mode is requested
	if config.Settings.CLIMode {
		mainCLI()
		return
	}

	log.Println("System starting up...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The local database holds captured errors that could not be stored yet
	if err := database.InitDB(); err != nil {
		log.Printf("Warning: local database unavailable, pending errors kept in memory: %v", err)
	}

	document := database.NewDocumentStore(config.Settings.DocumentPath)
	services, err := service.NewServices(ctx, document, database.DB, config.Settings)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	feed := hub.New(config.Settings.ChangeFeedBufferSize)
	reporter := capture.NewReporter(services.Records, services.Pending)
	if services.Pending.Len() > 0 {
		sent, err := reporter.Flush(ctx)
		if err != nil {
			log.Printf("Warning: %v (%d sent, %d left)", err, sent, services.Pending.Len())
		} else {
			log.Printf("Flushed %d pending errors", sent)
		}
	}

	h := handlers.New(services.Records,
		handlers.WithFeed(feed),
		handlers.WithMetrics(handlers.NewMetrics(feed)),
		handlers.WithHealthSources(document.Path(), database.DB),
		handlers.WithReporter(reporter),
	)

	// Set Gin mode
	if config.Settings.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Direct Gin logs to the configured log file
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.Writer()
	gin.DisableConsoleColor()

	r := handlers.NewRouter(h, config.Settings.AllowedOrigins())

	if config.Settings.WatchDocument {
		watcher, err := database.NewDocumentWatcher(document, func() {
			feed.Publish(hub.Event{Action: hub.ActionReloaded})
		})
		if err != nil {
			log.Printf("Warning: document watcher disabled: %v", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	srv := &http.Server{
		Addr:              config.Settings.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := core.Listen(srv.Addr)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	go func() {
		log.Printf("Server starting on http://%s (document %s)", srv.Addr, document.Path())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("System shutting down...")

	// Closing the feed ends open WebSocket streams, which Shutdown does not track
	feed.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := database.CloseDB(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server exited")
}

// mainCLI entrypoint for the operator console
func mainCLI() {
	ctx := context.Background()

	cfg, err := cli.LoadConfig(defaultServerURL)
	if err != nil {
		log.Printf("Warning: CLI config unavailable: %v", err)
	}

	serverURL := config.Settings.CLIServer
	if cfg != nil {
		if serverURL, err = cfg.ResolveURL(serverURL); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	remote := errorapi.NewRemoteClient(serverURL, &http.Client{
		Timeout: time.Duration(config.Settings.HTTPClientTimeoutSeconds) * time.Second,
	})

	if err := database.InitDB(); err != nil {
		log.Printf("Warning: local mode unavailable: %v", err)
	}
	defer database.CloseDB()

	services, err := service.NewServices(ctx, nil, database.DB, config.Settings)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var local errorapi.Backend
	if services.Local != nil {
		local = services.Local
	}

	mode, err := errorapi.ParseMode(config.Settings.Mode)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Error Logger CLI - %s mode, server %s\n", mode, serverURL)
	if mode == errorapi.ModeRemote {
		if _, err := remote.HealthCheck(ctx); err != nil {
			fmt.Printf("Warning: cannot reach server: %v\n", err)
			fmt.Println("  Start it with ./error-logger, pick another with --server <name|url>,")
			fmt.Println("  or switch to local storage with 'mode local'.")
		}
	}

	api, err := errorapi.New(mode, remote, local)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	console, err := cli.NewCLI(api, capture.NewReporter(api, services.Pending), cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Start CLI loop (readline handles Ctrl+C automatically)
	console.Start()
}
