package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/punchamoorthee/tenmo/internal/api"
	"github.com/punchamoorthee/tenmo/internal/config"
	"github.com/punchamoorthee/tenmo/internal/directory"
	"github.com/punchamoorthee/tenmo/internal/logging"
	"github.com/punchamoorthee/tenmo/internal/service"
	"github.com/punchamoorthee/tenmo/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Layers
	var (
		ledgerStore store.Store
		users       directory.Directory
	)
	switch cfg.Store {
	case config.StorePostgres:
		if cfg.Migrate {
			if err := store.Migrate(cfg.DBSource, logger); err != nil {
				return err
			}
		}
		pg, err := store.NewPostgresStore(ctx, cfg.DBSource)
		if err != nil {
			return err
		}
		defer pg.Close()
		ledgerStore, users = pg, directory.NewPostgres(pg.Db)

	default:
		mem := store.NewMemoryStore()
		memUsers := directory.NewMemory(mem.Accounts())
		if err := seed(ctx, memUsers, mem.Accounts(), cfg.SeedUsers, cfg.SeedBalance); err != nil {
			return err
		}
		logger.Info("memory store ready", zap.Int("seeded_users", cfg.SeedUsers))
		ledgerStore, users = mem, memUsers
	}

	ledger := service.NewTransferLedger(ledgerStore, logger)
	queries := service.NewQueryService(ledgerStore, users)
	handler := api.NewHandler(ledger, queries, users, logger)

	srv := api.NewServer(":"+cfg.Port, api.NewRouter(handler), logger)
	return srv.Run(ctx, cfg.ShutdownTimeout)
}

// seed registers user1..userN, each with an account holding balance.
func seed(ctx context.Context, users directory.Directory, accounts store.Accounts, n int, balance decimal.Decimal) error {
	for i := 1; i <= n; i++ {
		u, err := users.Register(ctx, fmt.Sprintf("user%d", i))
		if err != nil {
			return fmt.Errorf("seeding user %d: %w", i, err)
		}
		if _, err := accounts.Create(ctx, u.ID, balance); err != nil {
			return fmt.Errorf("seeding account for user %d: %w", u.ID, err)
		}
	}
	return nil
}
