package fabricclient

import (
	"os"
	"path/filepath"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"
)

// ImportIdentity stores an X.509 identity read from certPath and keyPath under
// label in the file-system wallet at walletPath, replacing any existing entry.
func ImportIdentity(walletPath, label, mspID, certPath, keyPath string) error {
	wallet, err := gateway.NewFileSystemWallet(walletPath)
	if err != nil {
		return errors.Wrap(err, "failed to open wallet")
	}

	cert, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return errors.Wrap(err, "failed to read certificate")
	}

	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return errors.Wrap(err, "failed to read private key")
	}

	identity := gateway.NewX509Identity(mspID, string(cert), string(key))

	return errors.Wrapf(wallet.Put(label, identity), "failed to store identity %s", label)
}

// ListIdentities returns the labels held by the wallet at walletPath.
func ListIdentities(walletPath string) ([]string, error) {
	wallet, err := gateway.NewFileSystemWallet(walletPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open wallet")
	}
	return wallet.List()
}
