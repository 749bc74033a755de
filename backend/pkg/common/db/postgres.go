package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"github.com/pkg/errors"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/logger"
)

const (
	pingAttempts = 5
	pingInterval = 2 * time.Second
)

// DSN renders cfg as a lib/pq connection string.
func DSN(cfg common.DBConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// Connect opens the audit database and waits for it to answer a ping.
func Connect(ctx context.Context, cfg common.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db connection")
	}

	if err := waitForPing(ctx, db, pingAttempts, pingInterval); err != nil {
		db.Close()
		return nil, err
	}

	logger.Named("db").Infow("connected to database", "host", cfg.Host, "name", cfg.Name)
	return db, nil
}

// waitForPing pings db up to attempts times, sleeping interval between tries.
func waitForPing(ctx context.Context, db *sql.DB, attempts int, interval time.Duration) error {
	log := logger.Named("db")
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		log.Warnf("Waiting for DB... (%d/%d): %v", i+1, attempts, err)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "failed to ping db")
		case <-time.After(interval):
		}
	}
	return errors.Wrap(err, "failed to ping db")
}
