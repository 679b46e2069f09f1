package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gopatchy/artnode/config"
	"github.com/gopatchy/artnode/internal/obs"
	"github.com/gopatchy/artnode/node"
)

func newRunCmd() *cobra.Command {
	var configPath, metricsAddr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the Art-Net node and block until signaled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			level := logrus.InfoLevel
			if debug {
				level = logrus.DebugLevel
			}
			log := obs.NewLogger(level)

			handle, err := node.Start(cfg, node.Options{Logger: log, MetricsAddr: metricsAddr})
			if err != nil {
				return err
			}
			defer handle.Stop()

			log.WithField("addr", handle.LocalAddr()).Info("artnode listening")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			log.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.toml", "path to config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-listen", "", "metrics/snapshot HTTP listen address (empty disables)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	return cmd
}
