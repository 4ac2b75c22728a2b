package hosts

import (
	"fmt"

	"github.com/plode/nmpopup/internal/config"
	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/spf13/cobra"
)

// ManifestService is the subset of nativemsg.Locator the hosts commands use.
type ManifestService interface {
	Dirs() []string
	List() ([]*nativemsg.Manifest, error)
	Find(name string) (*nativemsg.Manifest, error)
	Install(m *nativemsg.Manifest) (string, error)
	Uninstall(name string) (string, error)
}

// HostCmd handles manifest management with injectable dependencies.
type HostCmd struct {
	manifests ManifestService
}

type HostListInput struct {
	Output string
}

type HostShowInput struct {
	Name   string
	Output string
}

type HostInstallInput struct {
	Name        string
	Path        string
	Description string
	Origins     []string
	Output      string
}

type HostUninstallInput struct {
	Name string
}

// HostsCmd is the top-level command for native messaging host manifests.
var HostsCmd = &cobra.Command{
	Use:     "hosts",
	Aliases: []string{"host"},
	Short:   "Manage native messaging host manifests",
	Long: `List, inspect, install and remove native messaging host manifests.

Manifests are searched in --manifest-dir directories first, then the
browser's user-level directory, then its system-wide directory.`,
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed native messaging hosts",
	Args:  cobra.NoArgs,
	RunE:  runHostsList,
}

var hostsShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a host manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHostsShow,
}

var hostsInstallCmd = &cobra.Command{
	Use:   "install <name> <path>",
	Short: "Install a host manifest in the user-level directory",
	Example: `  # Register a host for an unpacked extension
  nmpopup hosts install com.plode_mass_storage.native ./plode-host \
    --allow-origin chrome-extension://knldjmfmopnpolahpmmgbagdohdnhkik/`,
	Args: cobra.ExactArgs(2),
	RunE: runHostsInstall,
}

var hostsUninstallCmd = &cobra.Command{
	Use:     "uninstall <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a host manifest from the user-level directory",
	Args:    cobra.ExactArgs(1),
	RunE:    runHostsUninstall,
}

func init() {
	HostsCmd.AddCommand(hostsListCmd)
	HostsCmd.AddCommand(hostsShowCmd)
	HostsCmd.AddCommand(hostsInstallCmd)
	HostsCmd.AddCommand(hostsUninstallCmd)

	hostsListCmd.Flags().StringP("output", "o", "", "Output format (json)")
	hostsShowCmd.Flags().StringP("output", "o", "", "Output format (json)")
	hostsInstallCmd.Flags().StringP("output", "o", "", "Output format (json)")
	hostsInstallCmd.Flags().StringSlice("allow-origin", nil, "Allowed extension origin (repeatable)")
	hostsInstallCmd.Flags().String("description", "", "Manifest description")
	_ = hostsInstallCmd.MarkFlagRequired("allow-origin")
}

func newHostCmd(cmd *cobra.Command) (HostCmd, config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return HostCmd{}, config.Config{}, err
	}
	return HostCmd{manifests: cfg.Locator()}, cfg, nil
}

func validateOutput(output string) error {
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	return nil
}

func runHostsList(cmd *cobra.Command, args []string) error {
	h, _, err := newHostCmd(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	return h.List(HostListInput{Output: output})
}

func runHostsShow(cmd *cobra.Command, args []string) error {
	h, cfg, err := newHostCmd(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	name := cfg.HostName
	if len(args) > 0 {
		name = args[0]
	}
	return h.Show(HostShowInput{Name: name, Output: output})
}

func runHostsInstall(cmd *cobra.Command, args []string) error {
	h, _, err := newHostCmd(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	origins, _ := cmd.Flags().GetStringSlice("allow-origin")
	description, _ := cmd.Flags().GetString("description")
	return h.Install(HostInstallInput{
		Name:        args[0],
		Path:        args[1],
		Description: description,
		Origins:     origins,
		Output:      output,
	})
}

func runHostsUninstall(cmd *cobra.Command, args []string) error {
	h, _, err := newHostCmd(cmd)
	if err != nil {
		return err
	}
	return h.Uninstall(HostUninstallInput{Name: args[0]})
}
