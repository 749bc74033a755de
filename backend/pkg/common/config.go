package common

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port   string       `yaml:"port"`
	Fabric FabricConfig `yaml:"fabric"`
	Log    LogConfig    `yaml:"log"`
	Auth   AuthConfig   `yaml:"auth"`
	DB     DBConfig     `yaml:"db"`
}

type FabricConfig struct {
	ConnectionProfile string        `yaml:"connectionProfile"`
	WalletPath        string        `yaml:"walletPath"`
	Identity          string        `yaml:"identity"`
	Channel           string        `yaml:"channel"`
	Contract          string        `yaml:"contract"`
	AsLocalhost       bool          `yaml:"asLocalhost"`
	ReuseConnection   bool          `yaml:"reuseConnection"`
	Timeout           time.Duration `yaml:"timeout"`

	// Used only by `wallet import`.
	MSP      string `yaml:"mspID"`
	CertPath string `yaml:"certPath"`
	KeyPath  string `yaml:"keyPath"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Encoding    string `yaml:"encoding"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
}

func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

type DBConfig struct {
	Host          string `yaml:"host"`
	Port          string `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	Name          string `yaml:"name"`
	SSLMode       string `yaml:"sslMode"`
	MigrationsDir string `yaml:"migrationsDir"`
}

// Enabled reports whether the request audit database is configured.
func (d DBConfig) Enabled() bool { return d.Host != "" }

// DefaultConfig matches the fabric-samples test network layout.
func DefaultConfig() *Config {
	return &Config{
		Port: "4000",
		Fabric: FabricConfig{
			ConnectionProfile: "connection-org1.json",
			WalletPath:        "wallet",
			Identity:          "appUser",
			Channel:           "mychannel",
			Contract:          "assetTransfer",
			AsLocalhost:       true,
			MSP:               "Org1MSP",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		DB: DBConfig{
			Port:          "5432",
			User:          "postgres",
			Name:          "dealer_gateway",
			SSLMode:       "disable",
			MigrationsDir: filepath.Join("backend", "migrations", "gateway"),
		},
	}
}

// LoadConfig layers the YAML file at path (if any) and then the environment
// over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)

	f := &c.Fabric
	f.ConnectionProfile = getEnv("FABRIC_CONFIG", f.ConnectionProfile)
	f.WalletPath = getEnv("FABRIC_WALLET", f.WalletPath)
	f.Identity = getEnv("FABRIC_IDENTITY", f.Identity)
	f.Channel = getEnv("FABRIC_CHANNEL", f.Channel)
	f.Contract = getEnv("FABRIC_CONTRACT", f.Contract)
	f.MSP = getEnv("MSP_ID", f.MSP)
	f.CertPath = getEnv("CERT_PATH", f.CertPath)
	f.KeyPath = getEnv("KEY_PATH", f.KeyPath)

	var err error
	if f.AsLocalhost, err = getEnvBool("FABRIC_AS_LOCALHOST", f.AsLocalhost); err != nil {
		return err
	}
	if f.ReuseConnection, err = getEnvBool("FABRIC_REUSE_CONNECTION", f.ReuseConnection); err != nil {
		return err
	}
	if f.Timeout, err = getEnvDuration("FABRIC_TIMEOUT", f.Timeout); err != nil {
		return err
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Encoding = getEnv("LOG_ENCODING", c.Log.Encoding)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)

	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)

	c.DB.Host = getEnv("DB_HOST", c.DB.Host)
	c.DB.Port = getEnv("DB_PORT", c.DB.Port)
	c.DB.User = getEnv("DB_USER", c.DB.User)
	c.DB.Password = getEnv("DB_PASSWORD", c.DB.Password)
	c.DB.Name = getEnv("DB_NAME", c.DB.Name)
	c.DB.SSLMode = getEnv("DB_SSLMODE", c.DB.SSLMode)
	c.DB.MigrationsDir = getEnv("DB_MIGRATIONS_DIR", c.DB.MigrationsDir)
	return nil
}

func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("port must be set")
	case c.Fabric.Identity == "":
		return errors.New("fabric identity must be set")
	case c.Fabric.Channel == "":
		return errors.New("fabric channel must be set")
	case c.Fabric.Contract == "":
		return errors.New("fabric contract must be set")
	case c.Fabric.Timeout < 0:
		return errors.New("fabric timeout must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, errors.Wrapf(err, "invalid %s", key)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}
