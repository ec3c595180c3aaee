package commands

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"thegrid/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the board HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		srv, err := server.Init(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return srv.Run()
	},
}
