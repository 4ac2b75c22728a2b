package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/plode/nmpopup/internal/tui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// ConnectCmd runs an interactive popup with injectable dependencies.
type ConnectCmd struct {
	opener popup.Opener
	stdin  io.Reader
}

type ConnectInput struct {
	HostName        string
	NoTUI           bool
	ReplaceExisting bool
	AutoConnect     bool
}

var connectCmd = &cobra.Command{
	Use:   "connect [host]",
	Short: "Open an interactive popup for a native messaging host",
	Long: `Open an interactive popup connected to a native messaging host.

The popup connects as soon as it starts. Type a message and press enter to
send it; every reply and disconnect is appended to the log.

Line mode (--no-tui) commands:
  /connect      - Open a new connection
  /disconnect   - Close the current connection
  /status       - Show the connection status
  /help         - Show available commands
  /quit, /exit  - Exit the popup`,
	Example: `  # Connect to the default host
  nmpopup connect

  # Connect to a host registered for Chromium, line by line
  nmpopup connect com.example.echo --browser chromium --no-tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().Bool("no-tui", false, "Disable interactive mode (line-by-line I/O)")
	connectCmd.Flags().Bool("replace", false, "Close the current connection before connecting again")
	connectCmd.Flags().Bool("no-autoconnect", false, "Wait for an explicit connect instead of connecting on start")

	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	replace, _ := cmd.Flags().GetBool("replace")
	noAuto, _ := cmd.Flags().GetBool("no-autoconnect")

	c := ConnectCmd{opener: cfg.Launcher(hostStderr(cfg)), stdin: os.Stdin}
	return c.Run(cmd.Context(), ConnectInput{
		HostName:        cfg.HostName,
		NoTUI:           noTUI,
		ReplaceExisting: replace,
		AutoConnect:     !noAuto,
	})
}

func (c ConnectCmd) Run(ctx context.Context, in ConnectInput) error {
	if in.HostName == "" {
		in.HostName = nativemsg.DefaultHostName
	}
	if !in.NoTUI {
		return tui.Run(ctx, tui.Options{
			HostName:        in.HostName,
			Opener:          c.opener,
			ReplaceExisting: in.ReplaceExisting,
			AutoConnect:     in.AutoConnect,
		})
	}
	return c.runLines(ctx, in)
}

func (c ConnectCmd) runLines(ctx context.Context, in ConnectInput) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := popup.NewLoop(64)
	ctrl := popup.NewController(popup.Options{
		HostName:        in.HostName,
		Opener:          c.opener,
		Dispatcher:      loop,
		Observer:        ptermObserver{},
		ReplaceExisting: in.ReplaceExisting,
	})
	go func() { _ = loop.Run(ctx) }()
	defer func() {
		if !call(loop, ctrl.Close) {
			ctrl.Close()
		}
		loop.Stop()
	}()

	pterm.Println()
	pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgBlue)).
		WithTextStyle(pterm.NewStyle(pterm.FgWhite)).
		Println("Native Messaging")
	pterm.Println()
	pterm.Info.Printf("Host: %s\n", in.HostName)
	pterm.Info.Println("Type a message and press Enter. Use /help for commands, /quit to exit.")
	pterm.Println()

	if in.AutoConnect {
		call(loop, func() { ctrl.Connect(ctx) })
	}

	lines := make(chan string)
	// scanErr receives exactly one value before lines is closed.
	scanErr := make(chan error, 1)
	go func() {
		var err error
		defer func() {
			scanErr <- err
			close(lines)
		}()
		scanner := bufio.NewScanner(c.stdin)
		scanner.Buffer(make([]byte, 64*1024), nativemsg.MaxInboundMessageSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return inputError(<-scanErr)
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if strings.HasPrefix(input, "/") {
				handled, shouldExit := handleLineCommand(ctx, loop, ctrl, input)
				if shouldExit {
					pterm.Info.Println("Goodbye!")
					return nil
				}
				if handled {
					continue
				}
			}
			call(loop, func() { _ = ctrl.SendMessage(line) })
		}
	}
}

// inputError reports why reading stdin stopped, if it was not EOF.
func inputError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bufio.ErrTooLong) {
		pterm.Error.Printf("Input line exceeds %d bytes\n", nativemsg.MaxInboundMessageSize)
		return fmt.Errorf("failed to read input: line exceeds %d bytes: %w", nativemsg.MaxInboundMessageSize, err)
	}
	pterm.Error.Printf("Failed to read input: %v\n", err)
	return fmt.Errorf("failed to read input: %w", err)
}

// handleLineCommand runs a slash command. Unknown commands are reported as
// not handled so they are sent to the host as-is.
func handleLineCommand(ctx context.Context, loop *popup.Loop, ctrl *popup.Controller, input string) (handled, shouldExit bool) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return true, true
	case "/connect":
		call(loop, func() { ctrl.Connect(ctx) })
		return true, false
	case "/disconnect":
		call(loop, func() {
			if !ctrl.Connected() {
				pterm.Warning.Println("Not connected")
				return
			}
			ctrl.Disconnect()
		})
		return true, false
	case "/status":
		call(loop, func() { printConnectionStatus(ctrl) })
		return true, false
	case "/help":
		pterm.Info.Println("Available commands:")
		pterm.Println("  /connect      - Open a new connection")
		pterm.Println("  /disconnect   - Close the current connection")
		pterm.Println("  /status       - Show the connection status")
		pterm.Println("  /help         - Show this help")
		pterm.Println("  /quit, /exit  - Exit the popup")
		return true, false
	}
	return false, false
}

func printConnectionStatus(ctrl *popup.Controller) {
	state := "disconnected"
	if ctrl.Connected() {
		state = "connected"
	}
	pterm.Info.Printf("Host: %s (%s)\n", ctrl.HostName(), state)
	pterm.Info.Printf("Open channels: %d, log entries: %d\n", ctrl.OpenChannels(), ctrl.Log().Len())
	if last, ok := ctrl.Log().Last(); ok {
		pterm.Info.Printf("Last: %s\n", last.String())
	}
}
