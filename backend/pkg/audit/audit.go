// Package audit keeps a record of every ledger request the gateway relays.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// Entry is one relayed request. MPIN is never persisted in clear.
type Entry struct {
	Operation string
	DealerID  string
	Outcome   string
	ErrorText string
	// AssetStatus is the status the ledger reported or was asked to store.
	AssetStatus string
	MPIN        string
	Duration    time.Duration
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries. Used when no audit database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

type Postgres struct {
	db   *sql.DB
	cost int
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, cost: bcrypt.DefaultCost}
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	pinHash, err := hashPIN(e.MPIN, p.cost)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO gateway_request_audit (
			operation, dealer_id, outcome, error_text, asset_status, mpin_hash, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Operation, e.DealerID, e.Outcome, nullable(e.ErrorText), nullable(e.AssetStatus),
		pinHash, e.Duration.Milliseconds())
	return errors.Wrap(err, "failed to insert audit entry")
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// bcrypt rejects inputs longer than this.
const maxPINBytes = 72

func hashPIN(pin string, cost int) (sql.NullString, error) {
	if pin == "" {
		return sql.NullString{}, nil
	}
	secret := []byte(pin)
	if len(secret) > maxPINBytes {
		sum := sha256.Sum256(secret)
		secret = []byte(hex.EncodeToString(sum[:]))
	}
	hashed, err := bcrypt.GenerateFromPassword(secret, cost)
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "failed to hash mpin")
	}
	return sql.NullString{String: string(hashed), Valid: true}, nil
}
