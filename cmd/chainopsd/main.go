package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/cubecore/chainops/internal/audit"
	"github.com/cubecore/chainops/internal/bridge"
	"github.com/cubecore/chainops/internal/chain"
	"github.com/cubecore/chainops/internal/chain/evm"
	"github.com/cubecore/chainops/internal/chain/solana"
	"github.com/cubecore/chainops/internal/compliance"
	"github.com/cubecore/chainops/internal/config"
	"github.com/cubecore/chainops/internal/contract"
	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/cubecore/chainops/internal/market"
	"github.com/cubecore/chainops/internal/metadata"
	"github.com/cubecore/chainops/internal/orchestrator"
	"github.com/cubecore/chainops/internal/portfolio"
	"github.com/cubecore/chainops/internal/queue"
	"github.com/cubecore/chainops/internal/server"
	"github.com/cubecore/chainops/internal/store/postgres"
	"github.com/cubecore/chainops/internal/tracing"
)

const migrationsDir = "migrations"

func main() {
	logLevel := slog.LevelInfo
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	registry, err := config.LoadRegistry(cfg.Networks.File)
	if err != nil {
		logger.Error("failed to load network registry", "error", err)
		os.Exit(1)
	}

	logger.Info("starting chainopsd",
		"networks", len(registry.Networks),
		"bridges", len(registry.Bridges),
		"workers_per_family", cfg.Workers.PerFamily,
		"ledger_only", cfg.Operator.Key == "",
	)

	shutdownTracing, err := tracing.Init(context.Background(), "chainopsd", cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := db.RunMigrations(migrationsDir); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	broker, err := queue.NewRedisBroker(cfg.Redis.URL)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err, "redis_url", cfg.Redis.URL)
		os.Exit(1)
	}
	defer broker.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	auditClient := redis.NewClient(redisOpts)
	defer auditClient.Close()
	auditor := audit.NewRedisEmitter(auditClient, logger)

	entries, backends, err := buildNetworks(registry.Networks, logger)
	if err != nil {
		logger.Error("failed to build network clients", "error", err)
		os.Exit(1)
	}
	networks, err := chain.NewRegistry(entries)
	if err != nil {
		logger.Error("failed to build network registry", "error", err)
		os.Exit(1)
	}
	gasOracle := chain.NewGasOracle(networks, chain.DefaultGasTTL)

	txRepo := postgres.NewTransactionRepo(db)
	tokenRepo := postgres.NewTokenRepo(db)
	walletRepo := postgres.NewWalletRepo(db)
	nftRepo := postgres.NewNftRepo(db)
	stakingRepo := postgres.NewStakingRepo(db)
	defiRepo := postgres.NewDefiRepo(db)
	contractRepo := postgres.NewContractRepo(db)
	bridgeRepo := postgres.NewBridgeRepo(db)
	snapshotRepo := postgres.NewSnapshotRepo(db)

	engine := contract.NewEngine(contract.NewCatalog(), backends, contractRepo, logger)

	var validator compliance.Validator = compliance.AllowAll{}
	if cfg.Compliance.URL != "" {
		validator = compliance.NewHTTPValidator(cfg.Compliance.URL)
		logger.Info("compliance screening enabled", "url", cfg.Compliance.URL)
	}

	var objects metadata.Store = metadata.NewMemoryStore()
	if cfg.Metadata.URL != "" {
		objects = metadata.NewHTTPStore(cfg.Metadata.URL)
		logger.Info("metadata object store enabled", "url", cfg.Metadata.URL)
	}

	orch := orchestrator.NewService(networks, txRepo, tokenRepo, broker, validator, logger)
	handlers := orchestrator.NewHandlers(orchestrator.HandlersConfig{
		Networks:    networks,
		Engine:      engine,
		OperatorKey: cfg.Operator.Key,
		Tokens:      tokenRepo,
		Nfts:        nftRepo,
		Staking:     stakingRepo,
		Defi:        defiRepo,
		Bridges:     bridgeRepo,
		Wallets:     walletRepo,
		Objects:     objects,
		Logger:      logger,
	})
	pool := orchestrator.NewPool(broker, txRepo, handlers, auditor, cfg.Workers.PerFamily, logger)

	coordinator := bridge.NewCoordinator(registry.BridgeRoutes(), orch, bridgeRepo, logger)

	var quotes market.Source = market.StaticSource{}
	if cfg.Market.URL != "" {
		quotes = market.NewHTTPSource(cfg.Market.URL, logger)
		logger.Info("market data enabled", "url", cfg.Market.URL)
	}

	dashboards := portfolio.NewEngine(portfolio.EngineConfig{
		Networks:  networks,
		Wallets:   walletRepo,
		Transacts: txRepo,
		Tokens:    tokenRepo,
		Nfts:      nftRepo,
		Staking:   stakingRepo,
		Defi:      defiRepo,
		Snapshots: snapshotRepo,
		Market:    quotes,
		Logger:    logger,
	})

	api := server.New(server.Config{
		Orchestrator: orch,
		Bridges:      coordinator,
		Portfolio:    dashboards,
		Networks:     networks,
		Gas:          gasOracle,
		Contracts:    engine,
		Wallets:      walletRepo,
		Transactions: txRepo,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runAPIServer(gCtx, cfg.Server.Port, api.Handler(), logger)
	})

	g.Go(func() error {
		pool.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("chainopsd exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("chainopsd shut down gracefully")
}

// buildNetworks constructs one client per registered descriptor. EVM
// clients double as contract-engine backends; the Solana client serves
// the network abstraction only.
func buildNetworks(descriptors []model.NetworkDescriptor, logger *slog.Logger) ([]chain.Entry, map[model.NetworkID]contract.Backend, error) {
	entries := make([]chain.Entry, 0, len(descriptors))
	backends := make(map[model.NetworkID]contract.Backend)

	for _, desc := range descriptors {
		switch desc.VM {
		case model.VMEVM:
			client, err := evm.New(desc, logger)
			if err != nil {
				return nil, nil, fmt.Errorf("build %s client: %w", desc.ID, err)
			}
			entries = append(entries, chain.Entry{Descriptor: desc, Client: client})
			backends[desc.ID] = client
		case model.VMSolana:
			entries = append(entries, chain.Entry{Descriptor: desc, Client: solana.New(desc, logger)})
		default:
			return nil, nil, fmt.Errorf("network %s: unsupported vm %q", desc.ID, desc.VM)
		}
	}
	return entries, backends, nil
}

func runAPIServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("api server shutdown error", "error", err)
		}
	}()

	logger.Info("api server started", "port", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
