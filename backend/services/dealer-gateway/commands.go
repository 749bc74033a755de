package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/audit"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/db"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/logger"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/metrics"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/common/migrations"
	"github.com/smartfalcon/dealer-gateway/backend/pkg/fabricclient"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 15 * time.Second

type configLoader func() (*common.Config, error)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:          "dealer-gateway",
		Short:        "HTTP gateway for the assetTransfer dealer contract",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	load := func() (*common.Config, error) { return common.LoadConfig(cfgFile) }
	root.AddCommand(newServeCmd(load), newWalletCmd(load), newConfigCmd(load))
	return root
}

func newServeCmd(load configLoader) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg *common.Config) error {
	log, err := logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSizeMB:   100,
		MaxBackups:  5,
		MaxAgeDays:  28,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	var recorder audit.Recorder = audit.Nop{}
	if cfg.DB.Enabled() {
		database, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := migrations.RunMigrations(database, cfg.DB.MigrationsDir); err != nil {
			return errors.Wrap(err, "failed to run migrations")
		}
		recorder = audit.NewPostgres(database)
	}

	connector := newConnector(cfg.Fabric)
	defer connector.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := NewService(connector, recorder, m, log.Named("handlers"))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(svc, m, cfg.Auth),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Infow(fmt.Sprintf("API server running on http://localhost:%s", cfg.Port),
		"channel", cfg.Fabric.Channel,
		"contract", cfg.Fabric.Contract,
		"identity", cfg.Fabric.Identity,
		"reuseConnection", cfg.Fabric.ReuseConnection,
		"auth", cfg.Auth.Enabled(),
		"audit", cfg.DB.Enabled(),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func fabricConfig(f common.FabricConfig) fabricclient.Config {
	return fabricclient.Config{
		ProfilePath: f.ConnectionProfile,
		WalletPath:  f.WalletPath,
		Identity:    f.Identity,
		Channel:     f.Channel,
		Contract:    f.Contract,
		AsLocalhost: f.AsLocalhost,
		Timeout:     f.Timeout,
	}
}

func newConnector(f common.FabricConfig) fabricclient.Connector {
	if f.ReuseConnection {
		return fabricclient.NewShared(fabricConfig(f))
	}
	return fabricclient.NewDialer(fabricConfig(f))
}

func newWalletCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage identities in the file-system wallet",
	}

	var label, mspID, certPath, keyPath string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Store an X.509 identity in the wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if label == "" {
				label = cfg.Fabric.Identity
			}
			if mspID == "" {
				mspID = cfg.Fabric.MSP
			}
			if certPath == "" {
				certPath = cfg.Fabric.CertPath
			}
			if keyPath == "" {
				keyPath = cfg.Fabric.KeyPath
			}
			if certPath == "" || keyPath == "" {
				return errors.New("both --cert and --key are required")
			}

			if err := fabricclient.ImportIdentity(cfg.Fabric.WalletPath, label, mspID, certPath, keyPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported identity %s (%s) into %s\n", label, mspID, cfg.Fabric.WalletPath)
			return nil
		},
	}
	importCmd.Flags().StringVar(&label, "label", "", "wallet label (defaults to the configured identity)")
	importCmd.Flags().StringVar(&mspID, "msp-id", "", "MSP ID of the identity")
	importCmd.Flags().StringVar(&certPath, "cert", "", "path to the signing certificate (PEM)")
	importCmd.Flags().StringVar(&keyPath, "key", "", "path to the private key (PEM)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List wallet identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			labels, err := fabricclient.ListIdentities(cfg.Fabric.WalletPath)
			if err != nil {
				return err
			}
			for _, l := range labels {
				fmt.Fprintln(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

func newConfigCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect gateway configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.Auth.JWTSecret != "" {
				redacted.Auth.JWTSecret = "****"
			}
			if redacted.DB.Password != "" {
				redacted.DB.Password = "****"
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&redacted); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}
