package chaincode

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// SmartContract provides functions for managing dealer assets
type SmartContract struct {
	contractapi.Contract
}

// InitLedger seeds two sample dealers.
func (s *SmartContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	assets := []Asset{
		{DealerID: "D001", MSISDN: "9876543210", MPIN: "1234", Balance: 1000, Status: "active", TransAmount: 500, TransType: "credit", Remarks: "Initial deposit"},
		{DealerID: "D002", MSISDN: "8765432109", MPIN: "5678", Balance: 2000, Status: "inactive", TransAmount: 1000, TransType: "debit", Remarks: "Withdrawal"},
	}

	for _, asset := range assets {
		if err := putAsset(ctx, &asset); err != nil {
			return err
		}
	}
	return nil
}

// CreateAsset adds a new dealer. An existing DealerID is rejected.
func (s *SmartContract) CreateAsset(ctx contractapi.TransactionContextInterface, dealerID string, msisdn string, mpin string, balance int, status string, transAmount int, transType string, remarks string) error {
	exists, err := s.AssetExists(ctx, dealerID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("asset %s already exists", dealerID)
	}

	return putAsset(ctx, &Asset{
		DealerID:    dealerID,
		MSISDN:      msisdn,
		MPIN:        mpin,
		Balance:     balance,
		Status:      status,
		TransAmount: transAmount,
		TransType:   transType,
		Remarks:     remarks,
	})
}

// QueryAsset retrieves an asset by its DealerID
func (s *SmartContract) QueryAsset(ctx contractapi.TransactionContextInterface, dealerID string) (*Asset, error) {
	assetJSON, err := ctx.GetStub().GetState(dealerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %v", err)
	}
	if assetJSON == nil {
		return nil, fmt.Errorf("asset %s does not exist", dealerID)
	}

	var asset Asset
	if err := json.Unmarshal(assetJSON, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// UpdateAsset replaces the balance and status of an existing asset.
func (s *SmartContract) UpdateAsset(ctx contractapi.TransactionContextInterface, dealerID string, newBalance int, newStatus string) error {
	asset, err := s.QueryAsset(ctx, dealerID)
	if err != nil {
		return err
	}

	asset.Balance = newBalance
	asset.Status = newStatus

	return putAsset(ctx, asset)
}

func (s *SmartContract) AssetExists(ctx contractapi.TransactionContextInterface, dealerID string) (bool, error) {
	assetJSON, err := ctx.GetStub().GetState(dealerID)
	if err != nil {
		return false, fmt.Errorf("failed to read from world state: %v", err)
	}
	return assetJSON != nil, nil
}

// GetTransactionHistory returns every committed value of the asset, oldest first.
func (s *SmartContract) GetTransactionHistory(ctx contractapi.TransactionContextInterface, dealerID string) ([]string, error) {
	resultsIterator, err := ctx.GetStub().GetHistoryForKey(dealerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for key %s: %v", dealerID, err)
	}
	defer resultsIterator.Close()

	history := []string{}
	for resultsIterator.HasNext() {
		result, err := resultsIterator.Next()
		if err != nil {
			return nil, err
		}
		history = append(history, string(result.Value))
	}
	return history, nil
}

func putAsset(ctx contractapi.TransactionContextInterface, asset *Asset) error {
	assetJSON, err := json.Marshal(asset)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(asset.DealerID, assetJSON); err != nil {
		return fmt.Errorf("failed to put asset %s in world state: %v", asset.DealerID, err)
	}
	return nil
}
