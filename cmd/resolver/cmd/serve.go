package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/FusionCross/resolver-lib/chainmanager"
	"github.com/FusionCross/resolver-lib/chains"
	"github.com/FusionCross/resolver-lib/config"
	"github.com/FusionCross/resolver-lib/dbstore"
	"github.com/FusionCross/resolver-lib/escrow"
	"github.com/FusionCross/resolver-lib/server"
	"github.com/FusionCross/resolver-lib/settlement"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the resolver HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := dbstore.NewStore(cfg.DatabaseURL)
	if err := store.EnsureSchema(ctx); err != nil {
		return errors.Wrap(err, "failed to prepare database schema")
	}

	codec, err := escrow.NewCodec()
	if err != nil {
		return errors.Wrap(err, "failed to build escrow codec")
	}

	registry := chainmanager.NewChainRegistry(chains.NewChainFactory(), logger)
	orchestrator := settlement.NewOrchestrator(
		registry,
		store,
		codec,
		escrow.NewEventReader(registry, codec, logger),
		settlement.Config{
			FinalityDelay:         cfg.FinalityDelay,
			WithdrawRetryAttempts: cfg.WithdrawRetryAttempts,
			WithdrawRetryBackoff:  cfg.WithdrawRetryBackoff,
		},
		logger,
	)

	for _, settings := range cfg.Chains {
		if err := registry.Add(ctx, cfg.ChainConfig(settings)); err != nil {
			return errors.Wrapf(err, "failed to register chain %q", settings.Name)
		}
		orchestrator.RegisterFactory(settings.ChainID, common.HexToAddress(settings.EscrowFactory))
	}

	logger.WithField("addr", cfg.ListenAddr).Info("Starting resolver service")

	srv := server.NewServer(cfg.ListenAddr, orchestrator, store, logger)
	return srv.Run(ctx)
}
