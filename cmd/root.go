package cmd

import (
	"context"
	"errors"
	"io/fs"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/plode/nmpopup/cmd/hosts"
	"github.com/plode/nmpopup/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nmpopup",
	Short: "Talk to Chrome native messaging hosts from a popup",
	Long: `nmpopup opens a connection to a Chrome native messaging host, sends it
text and shows everything it replies with, the way an extension popup would.

The host is found through its manifest in the browser's NativeMessagingHosts
directories, started with the extension origin as its first argument, and
spoken to with length-prefixed JSON frames over stdin and stdout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			pterm.EnableDebugMessages()
		}
		return nil
	},
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(hosts.HostsCmd)
}

// Execute loads .env from the working directory and runs the CLI.
func Execute(ctx context.Context, version string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		pterm.Warning.Printf("Failed to load .env: %v\n", err)
	}
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}

// loadConfig resolves shared settings, letting a positional host argument
// override --host.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if len(args) > 0 {
		cfg = cfg.WithHost(args[0])
	}
	return cfg, nil
}
