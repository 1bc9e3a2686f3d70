package main

import (
	deckgin "github.com/fwojciec/deck/gin"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(a, false, func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			st, err := a.studio(cmd.Context(), true)
			if err != nil {
				return err
			}
			gin.SetMode(gin.ReleaseMode)
			srv := deckgin.New(st, a.db, a.db,
				deckgin.WithLogger(a.logger),
				deckgin.WithRateLimit(rate.Limit(a.cfg.RateLimit), a.cfg.RateBurst),
			)
			defer srv.Close()
			a.logger.WithField("addr", a.cfg.Addr).Info("deck: listening")
			return srv.ListenAndServe(cmd.Context(), a.cfg.Addr)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	return cmd
}
