package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for nmpopup. Host names complete from
the installed manifests.

Bash:
  $ source <(nmpopup completion bash)

Zsh:
  $ nmpopup completion zsh > "${fpath[1]}/_nmpopup"

Fish:
  $ nmpopup completion fish > ~/.config/fish/completions/nmpopup.fish

PowerShell:
  PS> nmpopup completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)

	for _, c := range []*cobra.Command{connectCmd, sendCmd, serveCmd} {
		c.ValidArgsFunction = completeHostNames
	}
}

// completeHostNames completes the first argument from installed manifests.
func completeHostNames(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	manifests, err := cfg.Locator().List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []cobra.Completion
	for _, m := range manifests {
		names = append(names, cobra.CompletionWithDesc(m.Name, m.Description))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
