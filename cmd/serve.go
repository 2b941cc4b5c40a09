package cmd

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmallory/revu/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review API server",
	Long: `Start an HTTP server exposing the review API under /api/v1:
blocking reviews, SSE streaming reviews, and session history.
By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := viper.GetInt("port")

		s, err := getStore()
		if err != nil {
			return err
		}

		// The server runs without a provider; review endpoints answer 503
		// until a credential is configured.
		prov, err := getProvider()
		if err != nil {
			ui.Warning("LLM provider unavailable: %v", err)
			prov = nil
		}

		srv := api.NewServer(s, prov, viper.GetInt("stream.max_chars"), slog.Default())

		addr := fmt.Sprintf(":%d", port)
		ui.Info("Serving review API at http://localhost%s", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
