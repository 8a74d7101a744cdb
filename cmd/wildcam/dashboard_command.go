package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wildcam/internal/capturelog"
	"wildcam/internal/dashboard"
	"wildcam/internal/logging"
)

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the read-only capture viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Dashboard.Bind = bind
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			store, err := capturelog.OpenReadOnly(cfg.Paths.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := dashboard.New(cfg, store, logger)
			if err != nil {
				return err
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if err := srv.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard listening on http://%s\n", srv.Addr())
			<-signalCtx.Done()
			srv.Stop()
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override dashboard.bind (host:port)")
	return cmd
}
