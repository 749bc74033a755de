package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/pkg/errors"
	"github.com/smartfalcon/dealer-gateway/backend/chaincode/asset-transfer/chaincode"
)

// serverConfig describes how the chaincode is hosted. An empty Address means
// the peer launches the process and the chaincode dials back to it.
type serverConfig struct {
	CCID    string
	Address string
}

// loadServerConfig reads the chaincode-as-a-service settings from getenv.
func loadServerConfig(getenv func(string) string) (serverConfig, error) {
	cfg := serverConfig{
		CCID:    getenv("CHAINCODE_ID"),
		Address: getenv("CHAINCODE_SERVER_ADDRESS"),
	}
	if cfg.Address != "" && cfg.CCID == "" {
		return cfg, errors.New("CHAINCODE_ID must be set when CHAINCODE_SERVER_ADDRESS is")
	}
	return cfg, nil
}

func main() {
	assetChaincode, err := contractapi.NewChaincode(&chaincode.SmartContract{})
	if err != nil {
		log.Panicf("Error creating dealer asset chaincode: %v", err)
	}

	cfg, err := loadServerConfig(os.Getenv)
	if err != nil {
		log.Panicf("Invalid chaincode server config: %v", err)
	}

	if cfg.Address == "" {
		if err := assetChaincode.Start(); err != nil {
			log.Panicf("Error starting dealer asset chaincode: %v", err)
		}
		return
	}

	server := &shim.ChaincodeServer{
		CCID:     cfg.CCID,
		Address:  cfg.Address,
		CC:       assetChaincode,
		TLSProps: shim.TLSProperties{Disabled: true},
	}
	log.Printf("Serving dealer asset chaincode %s on %s", cfg.CCID, cfg.Address)
	if err := server.Start(); err != nil {
		log.Panicf("Error serving dealer asset chaincode: %v", err)
	}
}
