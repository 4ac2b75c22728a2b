package cmd

import (
	"context"
	"net"

	"github.com/pkg/browser"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/plode/nmpopup/internal/webpopup"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ServeCmd runs the web popup with injectable dependencies.
type ServeCmd struct {
	opener  popup.Opener
	openURL func(url string) error
	// listen defaults to webpopup.ListenLocal.
	listen func(port int) (net.Listener, string, error)
}

type ServeInput struct {
	HostName        string
	Port            int
	Open            bool
	ReplaceExisting bool
	AutoConnect     bool
}

var serveCmd = &cobra.Command{
	Use:   "serve [host]",
	Short: "Serve the popup as a local web page",
	Long: `Serve the popup on 127.0.0.1. Every open page gets its own connection
to the host; closing the page closes the connection.`,
	Example: `  # Serve on a fixed port and open it in the default browser
  nmpopup serve --port 8765 --open`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (0 picks a free port)")
	serveCmd.Flags().Bool("open", false, "Open the popup in the default browser")
	serveCmd.Flags().Bool("replace", false, "Close the current connection before connecting again")
	serveCmd.Flags().Bool("no-autoconnect", false, "Wait for an explicit connect instead of connecting on page load")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	port, _ := cmd.Flags().GetInt("port")
	open, _ := cmd.Flags().GetBool("open")
	replace, _ := cmd.Flags().GetBool("replace")
	noAuto, _ := cmd.Flags().GetBool("no-autoconnect")

	s := ServeCmd{opener: cfg.Launcher(hostStderr(cfg)), openURL: browser.OpenURL}
	return s.Run(cmd.Context(), ServeInput{
		HostName:        cfg.HostName,
		Port:            port,
		Open:            open,
		ReplaceExisting: replace,
		AutoConnect:     !noAuto,
	})
}

func (s ServeCmd) Run(ctx context.Context, in ServeInput) error {
	srv, err := webpopup.NewServer(webpopup.Options{
		HostName:        in.HostName,
		Opener:          s.opener,
		ReplaceExisting: in.ReplaceExisting,
		AutoConnect:     in.AutoConnect,
	})
	if err != nil {
		return err
	}

	listen := s.listen
	if listen == nil {
		listen = webpopup.ListenLocal
	}
	ln, baseURL, err := listen(in.Port)
	if err != nil {
		return err
	}

	pterm.Success.Printf("Popup for %s at %s\n", in.HostName, baseURL)
	pterm.Info.Println("Press Ctrl+C to stop.")
	if in.Open && s.openURL != nil {
		if err := s.openURL(baseURL); err != nil {
			pterm.Warning.Printf("Could not open browser: %v\n", err)
		}
	}

	return srv.Serve(ctx, ln)
}
