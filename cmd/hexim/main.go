// Command hexim syncs the Plenty product catalog into Shopware.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var settingsPath string

var rootCmd = &cobra.Command{
	Use:           "hexim",
	Short:         "Sync Plenty variations into Shopware products",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to the sync settings file (overrides SYNC_SETTINGS_FILE)")

	rootCmd.AddCommand(serveCmd, runCmd, debugCmd, enqueueCmd, migrateCmd, mappingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
