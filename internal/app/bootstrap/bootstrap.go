package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	governanceengine "agora/contexts/protocol-governance/governance-engine"
	postgresadapter "agora/contexts/protocol-governance/governance-engine/adapters/postgres"
	workerapp "agora/contexts/protocol-governance/governance-engine/application/workers"
	"agora/contexts/protocol-governance/governance-engine/domain/entities"
	"agora/internal/platform/config"
	"agora/internal/platform/db"
	"agora/internal/platform/httpserver"
	"agora/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	staking      workerapp.StakingWeightConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if err := seedGovernanceState(context.Background(), repo, cfg); err != nil {
		_ = pg.Close()
		return nil, err
	}

	module := governanceengine.NewModule(governanceengine.Dependencies{
		Store:   repo,
		Weights: repo,
		Outbox:  repo,
		Clock:   postgresadapter.SystemClock{},
		IDGen:   postgresadapter.UUIDGenerator{},
		Logger:  logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		staking: workerapp.StakingWeightConsumer{
			Subscriber:    kafka,
			Dedup:         repo,
			Weights:       repo,
			Clock:         postgresadapter.SystemClock{},
			ConsumerGroup: cfg.StakingConsumerGroup,
			DedupTTL:      24 * time.Hour,
			Disabled:      !cfg.EnableStakingWeightConsumer,
			Logger:        logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

// seedGovernanceState installs the configured voting parameters and access
// policy on first boot. Existing rows are left untouched so runtime updates
// via governance commands survive restarts.
func seedGovernanceState(ctx context.Context, repo *postgresadapter.Repository, cfg config.Config) error {
	votingConfig, err := repo.GetVotingConfig(ctx)
	if err != nil {
		return err
	}
	if votingConfig.VoteDuration == 0 {
		if err := repo.SaveVotingConfig(ctx, entities.VotingConfig{
			VoteDelay:        cfg.VoteDelay,
			VoteDuration:     cfg.VoteDuration,
			TimelockDuration: cfg.TimelockDuration,
			MaxDelegators:    cfg.MaxDelegators,
		}); err != nil {
			return err
		}
	}

	policy, err := repo.GetAccessPolicy(ctx)
	if err != nil {
		return err
	}
	if policy.Owner == "" {
		if cfg.GovernanceOwner == "" || cfg.GovernanceMultisig == "" {
			return errors.New("GOVERNANCE_OWNER and GOVERNANCE_MULTISIG are required on first boot")
		}
		if err := repo.SaveAccessPolicy(ctx, entities.AccessPolicy{
			Owner:    cfg.GovernanceOwner,
			Multisig: cfg.GovernanceMultisig,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.staking.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
