package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/identity-registry/api/registryhandler"
	"github.com/ruteri/identity-registry/api/relayhandler"
	"github.com/ruteri/identity-registry/cmd/flags"
	"github.com/ruteri/identity-registry/common"
	"github.com/ruteri/identity-registry/forwarder"
	"github.com/ruteri/identity-registry/httpserver"
	"github.com/ruteri/identity-registry/metrics"
	"github.com/ruteri/identity-registry/registry"
	"github.com/ruteri/identity-registry/token"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the identity registry with a gas-less relay on an in-memory ledger",
		Flags: append(append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.LogServiceFlagFn("identity-registry"),
		}, flags.CommonFlags...), DeployFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			l, d, relayer, err := SetupLedger(cCtx, logger)
			if err != nil {
				logger.Error("Failed to set up ledger", "err", err)
				return err
			}

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))

			metricsSrv, err := metrics.New(common.PackageName, cfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			fwd := forwarder.NewClient(l, d.ForwarderDomain(l.ChainID()), relayer)
			fwd.SetGasLimit(cCtx.Uint64(RelayGasLimitFlag.Name))

			server := httpserver.New(cfg, metricsSrv,
				relayhandler.NewHandler(fwd, token.NewClient(l, d.Token), metricsSrv.Relay(), logger),
				registryhandler.NewHandler(registry.NewClient(l, d.Registry), d.Registry, logger),
			)

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
