package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-rewards-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-rewards-ledger/pkg/config"
	"github.com/JoeShih716/go-rewards-ledger/pkg/logger"
	pb "github.com/JoeShih716/go-rewards-ledger/proto"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $LEDGER_CONFIG or config/config.yaml)")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// sequencer 的核心迴圈要比 gRPC server 活得久，另外給一個 context
	engineCtx, stopEngine := context.WithCancel(context.Background())
	defer stopEngine()

	// 2. 組裝儲存層與交易引擎
	l, err := buildLedger(engineCtx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Close(); err != nil {
			log.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	// 3. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_adapter.UnaryServerInterceptor(log)))
	pb.RegisterLedgerServiceServer(s, grpc_adapter.NewGrpcServer(l.engine))
	reflection.Register(s) // 方便 grpcurl 之類的工具探索服務

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting grpc server",
			slog.String("addr", cfg.Server.GRPCAddr),
			slog.String("engine", cfg.Engine.Mode),
			slog.String("storage", cfg.Storage.Driver),
		)
		if err := s.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// 4. Prometheus /metrics
	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("starting metrics server", slog.String("addr", cfg.Server.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// 等待中斷信號或伺服器錯誤
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case serveErr = <-errCh:
		log.Error("server failed, shutting down", slog.Any("error", serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful Shutdown: 先停止接收新請求，等進行中的請求跑完
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn("graceful stop timed out, forcing")
		s.Stop()
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown failed", slog.Any("error", err))
		}
	}

	// 最後才停止 sequencer，它會先處理完佇列中的請求
	stopEngine()
	return serveErr
}
