package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kpgate/kpgate/api"
)

var rootCmd = &cobra.Command{
	Use:     "kpgate",
	Version: api.Version,
	Short:   "kpgate is a REST gateway for KeePassXC databases",
	Long: `A web service exposing KeePassXC databases over a session-based REST API.
Clients log in with the database master password once; the password is held
encrypted in server memory and decrypted per request, never persisted.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
