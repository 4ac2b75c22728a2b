package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/plode/nmpopup/pkg/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// HostResolver finds and validates a host manifest.
type HostResolver interface {
	Resolve(hostName string) (*nativemsg.Manifest, error)
}

// StatusCmd diagnoses why a host can or cannot be connected to.
type StatusCmd struct {
	resolver HostResolver
	opener   popup.Opener
}

type StatusInput struct {
	HostName string
	// Origin overrides the manifest's first allowed origin.
	Origin string
	// Probe starts the host and waits briefly for it to stay up.
	Probe  bool
	Output string
}

type statusCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type statusResponse struct {
	Host   string        `json:"host"`
	Status string        `json:"status"`
	Checks []statusCheck `json:"checks"`
}

const probeWait = 500 * time.Millisecond

var statusCmd = &cobra.Command{
	Use:   "status [host]",
	Short: "Check whether a native messaging host can be connected to",
	Long: `Check the pieces a connection depends on: the host name, its manifest,
the host binary and the extension origin. With --probe the host is also
started and stopped again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
	statusCmd.Flags().Bool("probe", false, "Start the host to check that it launches")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	probe, _ := cmd.Flags().GetBool("probe")

	launcher := cfg.Launcher(hostStderr(cfg))
	s := StatusCmd{resolver: launcher, opener: launcher}
	return s.Run(cmd.Context(), StatusInput{
		HostName: cfg.HostName,
		Origin:   cfg.Origin,
		Probe:    probe,
		Output:   output,
	})
}

func (s StatusCmd) Run(ctx context.Context, in StatusInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	resp := s.check(ctx, in)

	if in.Output == "json" {
		return util.PrintPrettyJSON(resp)
	}
	printStatus(resp)
	if resp.Status == "fail" {
		return fmt.Errorf("host %s cannot be connected to", in.HostName)
	}
	return nil
}

func (s StatusCmd) check(ctx context.Context, in StatusInput) statusResponse {
	resp := statusResponse{Host: in.HostName}
	add := func(name, status, detail string) {
		resp.Checks = append(resp.Checks, statusCheck{Name: name, Status: status, Detail: detail})
	}
	defer func() { resp.Status = worstStatus(resp.Checks) }()

	if !nativemsg.ValidHostName(in.HostName) {
		add("Host name", "fail", nativemsg.ErrInvalidHostName.Error())
		return resp
	}
	add("Host name", "ok", "")

	m, err := s.resolver.Resolve(in.HostName)
	if err != nil {
		add("Manifest", "fail", err.Error())
		return resp
	}
	add("Manifest", "ok", m.File)

	if util.IsExecutable(m.Path) {
		add("Host binary", "ok", m.Path)
	} else {
		add("Host binary", "fail", m.Path+" is missing or not executable")
	}

	origin := in.Origin
	if origin == "" {
		origin = m.DefaultOrigin()
	}
	switch {
	case origin == "":
		add("Origin", "fail", "manifest lists no allowed_origins")
	case !m.AllowsOrigin(origin):
		add("Origin", "fail", nativemsg.ErrForbidden.Error()+" ("+origin+")")
	case in.Origin == "" && len(m.AllowedOrigins) > 1:
		add("Origin", "warn", fmt.Sprintf("%s (first of %d allowed origins; set --origin)", origin, len(m.AllowedOrigins)))
	default:
		add("Origin", "ok", origin)
	}

	if in.Probe && worstStatus(resp.Checks) != "fail" {
		if err := s.probe(ctx, in.HostName); err != nil {
			add("Launch", "fail", err.Error())
		} else {
			add("Launch", "ok", "")
		}
	}
	return resp
}

// probe starts the host and reports an error if it fails to start or exits
// before probeWait.
func (s StatusCmd) probe(ctx context.Context, hostName string) error {
	disconnected := make(chan error, 1)
	ch, err := s.opener.Open(ctx, hostName, popup.Handlers{
		OnMessage: func(string) {},
		OnDisconnect: func(err error) {
			disconnected <- err
		},
	})
	if err != nil {
		return err
	}
	defer ch.Disconnect()

	select {
	case err := <-disconnected:
		if err == nil {
			err = errors.New("host exited")
		}
		return err
	case <-time.After(probeWait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var statusRank = map[string]int{"ok": 0, "warn": 1, "fail": 2}

func worstStatus(checks []statusCheck) string {
	worst := "ok"
	for _, c := range checks {
		if statusRank[c.Status] > statusRank[worst] {
			worst = c.Status
		}
	}
	return worst
}

var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	"ok":   {label: "OK", rgb: pterm.NewRGB(31, 163, 130)},
	"warn": {label: "Warning", rgb: pterm.NewRGB(245, 158, 11)},
	"fail": {label: "Failed", rgb: pterm.NewRGB(239, 68, 68)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[status]; ok {
		return d.label, d.rgb
	}
	return "Unknown", pterm.NewRGB(128, 128, 128)
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printStatus(resp statusResponse) {
	label, rgb := getStatusDisplay(resp.Status)
	pterm.Println()
	pterm.Printf("  %s: %s\n", pterm.Bold.Sprint(resp.Host), rgb.Sprint(label))
	pterm.Println()
	for _, c := range resp.Checks {
		checkLabel, checkColor := getStatusDisplay(c.Status)
		pterm.Printf("    %s %-12s %-8s %s\n", coloredDot(checkColor), c.Name, checkLabel, c.Detail)
	}
	pterm.Println()
}
