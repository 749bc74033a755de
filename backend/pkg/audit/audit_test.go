package audit

import (
	"context"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPIN(t *testing.T) {
	h, err := hashPIN("1234", bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, h.Valid)
	assert.NotContains(t, h.String, "1234")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h.String), []byte("1234")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(h.String), []byte("4321")))
}

func TestHashPINEmpty(t *testing.T) {
	h, err := hashPIN("", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, h.Valid)
}

func TestHashPINLong(t *testing.T) {
	pin := strings.Repeat("7", 100)
	h, err := hashPIN(pin, bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, h.Valid)

	digest := func(s string) []byte {
		sum := sha256.Sum256([]byte(s))
		return []byte(hex.EncodeToString(sum[:]))
	}
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h.String), digest(pin)))
	// PINs sharing the first 72 bytes must not collide.
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(h.String), digest(strings.Repeat("7", 99)+"8")))
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Entry{Operation: "create", DealerID: "D1"}))
}

// pinHashOf matches a bcrypt hash of pin that does not contain pin itself.
type pinHashOf string

func (p pinHashOf) Match(v driver.Value) bool {
	h, ok := v.(string)
	if !ok || strings.Contains(h, string(p)) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h), []byte(string(p))) == nil
}

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := NewPostgres(db)
	p.cost = bcrypt.MinCost
	return p, mock
}

func TestPostgresRecordHashesPIN(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO gateway_request_audit").
		WithArgs("createAsset", "D1", "ok", nil, "ACTIVE", pinHashOf("4321"), int64(12)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.Record(context.Background(), Entry{
		Operation:   "createAsset",
		DealerID:    "D1",
		Outcome:     "ok",
		AssetStatus: "ACTIVE",
		MPIN:        "4321",
		Duration:    12 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordFailure(t *testing.T) {
	p, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO gateway_request_audit").
		WithArgs("queryAsset", "D1", "ledger_rejection", "evaluate QueryAsset: asset D1 does not exist", nil, nil, int64(3)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.Record(context.Background(), Entry{
		Operation: "queryAsset",
		DealerID:  "D1",
		Outcome:   "ledger_rejection",
		ErrorText: "evaluate QueryAsset: asset D1 does not exist",
		Duration:  3 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordLongValues(t *testing.T) {
	p, mock := newMockPostgres(t)
	longPIN := strings.Repeat("9", 100)
	longID := strings.Repeat("D", 300)

	mock.ExpectExec("INSERT INTO gateway_request_audit").
		WithArgs("updateAsset", longID, "ok", nil, nil, sqlmock.AnyArg(), int64(0)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := p.Record(context.Background(), Entry{
		Operation: "updateAsset",
		DealerID:  longID,
		Outcome:   "ok",
		MPIN:      longPIN,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordInsertError(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec("INSERT INTO gateway_request_audit").WillReturnError(errors.New("connection reset"))

	err := p.Record(context.Background(), Entry{Operation: "assetExists", DealerID: "D1", Outcome: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert audit entry")
}
