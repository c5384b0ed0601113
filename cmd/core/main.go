package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", true)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	// 2. 初始化儲存層 (Driven Adapter)
	store, closer, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open store")
	}
	defer closer.Close()
	log.Info().Str("driver", cfg.Storage.Driver).Msg("store ready")

	// 3. 初始化 UseCase
	engine := usecase.NewLedgerEngine(store,
		usecase.WithRetry(cfg.Engine.MaxRetries, cfg.Engine.RetryBackoff),
		usecase.WithLogger(log.With().Str("component", "engine").Logger()),
	)

	// 4. 初始化 gRPC Adapter (Driving Adapter) 並啟動
	srv := grpc.NewServer(cfg.Server.Addr, log.With().Str("component", "grpc").Logger())
	grpc_adapter.RegisterLedgerServiceServer(srv.Server, grpc_adapter.NewGrpcServer(engine))
	reflection.Register(srv.Server)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting gRPC server")
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to serve")
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	srv.Stop()
	log.Info().Msg("server exited")
}

// openStore 依設定建立 Store；回傳的 closer 負責釋放底層資源 (DB 連線或 WAL 檔案)
func openStore(cfg config.Config, log zerolog.Logger) (usecase.Store, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.DriverMySQL:
		client, err := mysql.NewClient(cfg.MySQL, log.With().Str("component", "mysql").Logger())
		if err != nil {
			return nil, nil, err
		}
		store := mysql_adapter.NewMySQLStore(client)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.Migrate(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client, nil
	default:
		walFile, err := wal.NewWAL(cfg.Storage.WALPath)
		if err != nil {
			return nil, nil, err
		}
		store, err := memory_adapter.NewStore(
			memory_adapter.WithWAL(walFile),
			memory_adapter.WithAcquireTimeout(cfg.Storage.AcquireTimeout),
		)
		if err != nil {
			_ = walFile.Close()
			return nil, nil, err
		}
		return store, walFile, nil
	}
}
