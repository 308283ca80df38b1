package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"todoweb/internal/result"
	"todoweb/internal/server"
	"todoweb/internal/todo"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and serve the todo list over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		// Schema creation failing is not fatal: the list view shows the banner
		// until the database becomes reachable.
		if err := a.st.Migrate(ctx); err != nil {
			a.log.Error().Err(err).Msg("migrate failed")
		}

		h := todo.New(a.st, a.publisher(), a.log)
		srv := server.New(h, result.NewExporter(a.st), a.log)
		return srv.ListenAndServe(ctx, a.cfg.HTTPAddr)
	},
}

func init() {
	serveCmd.Flags().String("http-addr", "", "http listen address (default :8080)")
	_ = v.BindPFlag("http.addr", serveCmd.Flags().Lookup("http-addr"))
}
