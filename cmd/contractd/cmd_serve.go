package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/contracts-extractor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC and HTTP APIs with the processing worker pool",
	Long: `Opens the store, blob storage and worker pool, requeues documents left
pending by a previous run, then serves the gRPC API and the HTTP API until
SIGINT or SIGTERM. In-flight jobs get a grace period to finish on shutdown.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flush := initTracing(ctx, cfg, logger)
	defer flush()

	a, err := openApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.close()

	if n, err := a.intake.ResubmitPending(ctx); err != nil {
		logger.Warn("failed to requeue pending documents", "error", err)
	} else if n > 0 {
		logger.Info("requeued pending documents", "count", n)
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}
	grpcServer, healthServer := server.NewGRPCServer(server.NewContractServer(a.svc, logger), logger)

	gin.SetMode(gin.ReleaseMode)
	handler := server.NewContractHandler(a.svc, server.HTTPConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		MaxUploadSize: cfg.Processing.MaxUploadSize,
		Health: func(ctx context.Context) error {
			return a.db.HealthCheck(ctx, 3*time.Second, logger)
		},
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 2)
	go func() {
		logger.Info("gRPC listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(grpcLis); err != nil {
			errc <- err
		}
	}()
	go func() {
		logger.Info("HTTP listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errc:
		logger.Error("server stopped unexpectedly", "error", serveErr)
	}

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	a.shutdownQueue(30 * time.Second)
	logger.Info("stopped")
	return serveErr
}
