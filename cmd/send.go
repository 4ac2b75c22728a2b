package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/plode/nmpopup/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// SendCmd sends one message and waits for one reply.
type SendCmd struct {
	opener popup.Opener
	stdin  io.Reader
}

type SendInput struct {
	HostName string
	Message  string
	// File is read instead of Message when set; "-" reads stdin.
	File    string
	Timeout time.Duration
	Output  string
	Raw     bool
}

// SendResult is the JSON output of send.
type SendResult struct {
	Host    string        `json:"host"`
	Sent    string        `json:"sent"`
	Reply   string        `json:"reply"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Log     []popup.Entry `json:"log"`
}

var sendCmd = &cobra.Command{
	Use:   "send <host> [message]",
	Short: "Send one message to a native messaging host and print its reply",
	Long: `Connect to a native messaging host, send a single message and print the
first message the host sends back.

The message is taken from the argument, from --file, or from stdin when
neither is given.`,
	Example: `  # Send a string
  nmpopup send com.example.echo "hello"

  # Send a JSON object as-is
  echo '{"cmd":"ping"}' | nmpopup send com.example.echo --encoding json -o json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringP("file", "f", "", "Read the message from a file (- for stdin)")
	sendCmd.Flags().Duration("timeout", 10*time.Second, "How long to wait for a reply")
	sendCmd.Flags().StringP("output", "o", "", "Output format (json)")
	sendCmd.Flags().Bool("raw", false, "Print only the reply")

	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	file, _ := cmd.Flags().GetString("file")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	output, _ := cmd.Flags().GetString("output")
	raw, _ := cmd.Flags().GetBool("raw")

	in := SendInput{
		HostName: cfg.HostName,
		File:     file,
		Timeout:  timeout,
		Output:   output,
		Raw:      raw,
	}
	if len(args) > 1 {
		in.Message = args[1]
	} else if file == "" {
		in.File = "-"
	}

	s := SendCmd{opener: cfg.Launcher(hostStderr(cfg)), stdin: os.Stdin}
	return s.Run(cmd.Context(), in)
}

// sendObserver forwards log entries to a channel without blocking the loop.
type sendObserver struct {
	entries chan popup.Entry
}

func (o sendObserver) EntryAppended(e popup.Entry) {
	select {
	case o.entries <- e:
	default:
	}
}

func (sendObserver) StateChanged(popup.UIState) {}

func (s SendCmd) readMessage(in SendInput) (string, error) {
	switch in.File {
	case "":
		return in.Message, nil
	case "-":
		data, err := io.ReadAll(s.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return trimNewline(string(data)), nil
	}
	data, err := os.ReadFile(in.File)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", in.File, err)
	}
	return trimNewline(string(data)), nil
}

// trimNewline drops the single trailing newline editors and echo add.
func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
		if n := len(s); n > 0 && s[n-1] == '\r' {
			s = s[:n-1]
		}
	}
	return s
}

func (s SendCmd) Run(ctx context.Context, in SendInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	if in.HostName == "" {
		in.HostName = nativemsg.DefaultHostName
	}
	if in.Timeout <= 0 {
		in.Timeout = 10 * time.Second
	}
	msg, err := s.readMessage(in)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs := sendObserver{entries: make(chan popup.Entry, 256)}
	loop := popup.NewLoop(64)
	ctrl := popup.NewController(popup.Options{
		HostName:   in.HostName,
		Opener:     s.opener,
		Dispatcher: loop,
		Observer:   obs,
	})
	go func() { _ = loop.Run(ctx) }()
	defer func() {
		if !call(loop, ctrl.Close) {
			ctrl.Close()
		}
		loop.Stop()
	}()

	start := time.Now()
	var (
		connected bool
		sendErr   error
	)
	call(loop, func() {
		ctrl.Connect(ctx)
		connected = ctrl.Connected()
		if connected {
			sendErr = ctrl.SendMessage(msg)
		}
	})
	if !connected {
		return fmt.Errorf("failed to connect to %s: %s", in.HostName, lastFailure(ctrl, loop))
	}
	if sendErr != nil {
		return fmt.Errorf("failed to send to %s: %w", in.HostName, sendErr)
	}
	if in.Output != "json" && !in.Raw {
		pterm.Debug.Printf("Sent %d bytes to %s\n", len(msg), in.HostName)
	}

	reply, err := waitForReply(ctx, obs.entries, in.Timeout)
	if err != nil {
		return fmt.Errorf("no reply from %s: %w", in.HostName, err)
	}

	switch {
	case in.Output == "json":
		var entries []popup.Entry
		call(loop, func() { entries = ctrl.Log().Entries() })
		return util.PrintPrettyJSON(SendResult{
			Host:    in.HostName,
			Sent:    msg,
			Reply:   reply,
			Elapsed: time.Since(start),
			Log:     entries,
		})
	case in.Raw:
		_, err := fmt.Fprintln(os.Stdout, reply)
		return err
	}
	pterm.Success.Printf("Reply from %s:\n", in.HostName)
	pterm.Println(reply)
	return nil
}

var errReplyTimeout = errors.New("timed out waiting for a reply")

// waitForReply returns the first received message. A failure entry means the
// host went away before replying.
func waitForReply(ctx context.Context, entries <-chan popup.Entry, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case e := <-entries:
			switch e.Kind {
			case popup.EntryReceived:
				return e.Value, nil
			case popup.EntryFailure:
				return "", errors.New(e.Value)
			}
		case <-timer.C:
			return "", errReplyTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func lastFailure(ctrl *popup.Controller, loop *popup.Loop) string {
	reason := "unknown error"
	call(loop, func() {
		if last, ok := ctrl.Log().Last(); ok && last.Kind == popup.EntryFailure {
			reason = last.Value
		}
	})
	return reason
}
