package chaincode

import (
	"testing"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T) (*contractapi.TransactionContext, *shimtest.MockStub) {
	t.Helper()
	stub := shimtest.NewMockStub("assetTransfer", nil)
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(stub)
	return ctx, stub
}

func inTx(stub *shimtest.MockStub, txID string, fn func() error) error {
	stub.MockTransactionStart(txID)
	defer stub.MockTransactionEnd(txID)
	return fn()
}

func TestCreateAndQueryAsset(t *testing.T) {
	sc := &SmartContract{}
	ctx, stub := newContext(t)

	err := inTx(stub, "tx1", func() error {
		return sc.CreateAsset(ctx, "D1", "9990001", "1234", 100, "active", 0, "init", "new")
	})
	require.NoError(t, err)

	asset, err := sc.QueryAsset(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, &Asset{
		DealerID: "D1", MSISDN: "9990001", MPIN: "1234", Balance: 100,
		Status: "active", TransAmount: 0, TransType: "init", Remarks: "new",
	}, asset)
}

func TestCreateAssetRejectsDuplicate(t *testing.T) {
	sc := &SmartContract{}
	ctx, stub := newContext(t)

	create := func() error {
		return sc.CreateAsset(ctx, "D1", "9990001", "1234", 100, "active", 0, "init", "new")
	}
	require.NoError(t, inTx(stub, "tx1", create))

	err := inTx(stub, "tx2", create)
	assert.EqualError(t, err, "asset D1 already exists")
}

func TestQueryAssetMissing(t *testing.T) {
	sc := &SmartContract{}
	ctx, _ := newContext(t)

	_, err := sc.QueryAsset(ctx, "nope")
	assert.EqualError(t, err, "asset nope does not exist")
}

func TestInitLedgerAndExists(t *testing.T) {
	sc := &SmartContract{}
	ctx, stub := newContext(t)

	require.NoError(t, inTx(stub, "init", func() error { return sc.InitLedger(ctx) }))

	for _, id := range []string{"D001", "D002"} {
		exists, err := sc.AssetExists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists, id)
	}
	exists, err := sc.AssetExists(ctx, "D003")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateAsset(t *testing.T) {
	sc := &SmartContract{}
	ctx, stub := newContext(t)
	require.NoError(t, inTx(stub, "init", func() error { return sc.InitLedger(ctx) }))

	require.NoError(t, inTx(stub, "tx1", func() error {
		return sc.UpdateAsset(ctx, "D002", 2500, "active")
	}))

	asset, err := sc.QueryAsset(ctx, "D002")
	require.NoError(t, err)
	assert.Equal(t, 2500, asset.Balance)
	assert.Equal(t, "active", asset.Status)
	assert.Equal(t, "8765432109", asset.MSISDN)

	err = inTx(stub, "tx2", func() error { return sc.UpdateAsset(ctx, "D404", 1, "active") })
	assert.EqualError(t, err, "asset D404 does not exist")
}

func TestCreateAssetOutsideTransaction(t *testing.T) {
	sc := &SmartContract{}
	ctx, _ := newContext(t)

	err := sc.CreateAsset(ctx, "D1", "9990001", "1234", 100, "active", 0, "init", "new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to put asset D1 in world state")
}
