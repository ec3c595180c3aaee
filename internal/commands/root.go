package commands

import (
	"github.com/spf13/cobra"

	"thegrid/internal/config"
	"thegrid/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "grid",
	Short: "The Grid task board",
	Long: `grid serves a task board organised into fixed context columns and mirrors
scheduled tasks into Google Calendar.`,
	SilenceUsage: true,
}

// loadConfig reads configuration and initialises logging for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.InitLogging(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// SetVersion sets the version information
func SetVersion(version, commit string) {
	rootCmd.Version = version + " (" + commit + ")"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./grid.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(tokenCmd)
}
