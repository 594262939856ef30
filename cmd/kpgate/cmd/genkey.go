package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpgate/kpgate/internal/util"
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a random secret for KPGATE_SECRET_KEY",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := util.RandomSecret(48)
		if err != nil {
			return fmt.Errorf("generating secret: %w", err)
		}
		fmt.Println(secret)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genkeyCmd)
}
