package fabricclient

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"
)

const discoveryAsLocalhostEnv = "DISCOVERY_AS_LOCALHOST"

// Config describes how to reach one contract on one channel.
type Config struct {
	ProfilePath string
	WalletPath  string
	Identity    string
	Channel     string
	Contract    string
	AsLocalhost bool
	// Timeout bounds each SDK call; zero keeps the SDK defaults.
	Timeout time.Duration
}

// Ledger is an open contract handle. Close releases the underlying gateway.
type Ledger interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
	Close()
}

type Client struct {
	gw       *gateway.Gateway
	network  *gateway.Network
	contract *gateway.Contract
}

// NewClient loads the connection profile and wallet identity and opens a gateway
// to cfg.Channel. All failures are reported as KindConnectivity.
func NewClient(cfg Config) (*Client, error) {
	profile := filepath.Clean(cfg.ProfilePath)
	if _, err := os.Stat(profile); err != nil {
		return nil, newError(KindConnectivity, "load connection profile", err)
	}

	wallet, err := gateway.NewFileSystemWallet(cfg.WalletPath)
	if err != nil {
		return nil, newError(KindConnectivity, "open wallet", err)
	}
	if !wallet.Exists(cfg.Identity) {
		return nil, newError(KindConnectivity, "open wallet",
			errors.Errorf("identity %q not found in wallet %s", cfg.Identity, cfg.WalletPath))
	}

	var opts []gateway.Option
	if cfg.Timeout > 0 {
		opts = append(opts, gateway.WithTimeout(cfg.Timeout))
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(profile)),
		gateway.WithIdentity(wallet, cfg.Identity),
		opts...,
	)
	if err != nil {
		return nil, newError(KindConnectivity, "connect gateway", err)
	}

	network, err := gw.GetNetwork(cfg.Channel)
	if err != nil {
		gw.Close()
		return nil, newError(KindConnectivity, "get network "+cfg.Channel, err)
	}

	return &Client{
		gw:       gw,
		network:  network,
		contract: network.GetContract(cfg.Contract),
	}, nil
}

func (c *Client) SubmitTransaction(name string, args ...string) ([]byte, error) {
	result, err := c.contract.SubmitTransaction(name, args...)
	if err != nil {
		return nil, classify("submit "+name, err)
	}
	return result, nil
}

func (c *Client) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	result, err := c.contract.EvaluateTransaction(name, args...)
	if err != nil {
		return nil, classify("evaluate "+name, err)
	}
	return result, nil
}

func (c *Client) Close() {
	c.gw.Close()
}

// applyDiscovery sets the SDK's process-wide discovery address rewrite.
func applyDiscovery(cfg Config) {
	os.Setenv(discoveryAsLocalhostEnv, strconv.FormatBool(cfg.AsLocalhost))
}
