package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const connectPingTimeout = 5 * time.Second

// Postgres owns the gorm handle backing the governance repository. Commands
// open their transactions through the repository; this type only manages the
// connection lifecycle.
type Postgres struct {
	DB *gorm.DB
}

// Connect opens the database and verifies liveness with a bounded ping, so a
// misconfigured DSN fails the process at bootstrap instead of on the first
// command.
func Connect(dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{DB: gormDB}, nil
}

// Close releases the underlying connection pool. Safe on a nil receiver so
// bootstrap teardown paths need no guards.
func (p *Postgres) Close() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
