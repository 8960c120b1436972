package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Kenkkila/grimoire-site/internal/config"
	"github.com/Kenkkila/grimoire-site/internal/controller"
	"github.com/Kenkkila/grimoire-site/internal/handler"
	"github.com/Kenkkila/grimoire-site/internal/mcpserver"
	"github.com/Kenkkila/grimoire-site/internal/service/graphdb"
	"github.com/Kenkkila/grimoire-site/internal/service/grimoire"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// parseLogLevel converts a string log level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel // default to info
	}
}

func main() {
	var appConfigPath = flag.String("app", "app.yaml", "Path to app configuration file")
	var port = flag.Int("port", 0, "Server port, overrides app.port")
	var mcpMode = flag.Bool("mcp", false, "Serve MCP tools on stdio instead of HTTP")
	flag.Parse()

	cfg, err := config.LoadConfig(*appConfigPath)
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	cfgZap := zap.NewProductionConfig()
	cfgZap.Level.SetLevel(parseLogLevel(cfg.App.LogLevel))
	if *mcpMode {
		// stdout carries the MCP protocol
		cfgZap.OutputPaths = []string{"stderr"}
	} else {
		cfgZap.OutputPaths = []string{"stdout"}
	}
	logger, err := cfgZap.Build()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	defer logger.Sync()

	if *port != 0 {
		cfg.App.Port = *port
	}

	logger.Info("Configuration loaded successfully",
		zap.Int("port", cfg.App.Port),
		zap.String("neo4j_uri", cfg.Neo4j.URI),
		zap.String("neo4j_database", cfg.Neo4j.Database),
		zap.Bool("uid_filter", cfg.UIDFilter.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := graphdb.NewGraphDatabase(ctx, cfg.Neo4j, logger)
	defer db.Close(context.Background())

	service := grimoire.NewGraphService(ctx, db, cfg, logger)

	if *mcpMode {
		server := mcpserver.NewServer(cfg.MCP, service, logger)
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("MCP server stopped", zap.Error(err))
		}
		return
	}

	graphController := controller.NewGraphController(service, logger)
	router := handler.SetupRouter(graphController, cfg, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting server", zap.Int("port", cfg.App.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
