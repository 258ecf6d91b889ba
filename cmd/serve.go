package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradepush/gradepush/api"
	"github.com/gradepush/gradepush/lib"
	"github.com/gradepush/gradepush/lib/run"
)

func (c *rootCommand) getServeCmd() *cobra.Command {
	var address string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST control surface",
		Long: `Serve the REST control surface so other tools can authenticate, trigger
grade-entry jobs and watch their progress over HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := getConsolidatedConfig(cmd.Flags())
			if err != nil {
				return ExitCode{Err: err, Code: 2}
			}
			if err := requireUpstream(opts); err != nil {
				return ExitCode{Err: err, Code: 2}
			}

			orc, err := run.New(opts, c.logger)
			if err != nil {
				return err
			}
			defer orc.Close()

			srv := api.GetServer(address, c.logger, orc)
			errCh := make(chan error, 1)
			go func() {
				c.logger.WithField("address", address).Info("Control surface listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-c.ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().StringVarP(&address, "address", "a", lib.DefaultListenAddress, "address to listen on")
	serveCmd.Flags().AddFlagSet(optionFlagSet())
	return serveCmd
}
