package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"thegrid/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token [operator]",
	Short: "Mint a bearer token for the board API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		issuer := auth.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
		token, err := issuer.Generate(args[0])
		if err != nil {
			return fmt.Errorf("set JWT_SECRET before minting tokens: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
