package cmd

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sw33tLie/partscope/internal/server"
	"github.com/sw33tLie/partscope/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		listen := a.cfg.Server.Listen
		if cmd.Flags().Changed("listen") {
			listen, _ = cmd.Flags().GetString("listen")
		}
		if a.cfg.Server.Username == "" {
			utils.Log.Warn("server.username is empty, the API is unauthenticated")
		}

		s := server.New(a.service, a.cfg.Server.Username, a.cfg.Server.Password)
		s.DefaultTop = a.cfg.Recommend.Top
		s.Metrics = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
		for _, c := range a.catalogs {
			utils.Log.Infof("catalog enabled: %s", c.Name())
		}
		return s.Start(listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address (overrides server.listen)")
}
