package cmd

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/plode/nmpopup/internal/config"
	"github.com/plode/nmpopup/internal/popup"
	"github.com/pterm/pterm"
)

// debugWriter prints each complete line written to it as a pterm debug
// message.
type debugWriter struct {
	mu      sync.Mutex
	pending bytes.Buffer
	prefix  string
}

func (w *debugWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending.Write(p)
	for {
		line, err := w.pending.ReadString('\n')
		if err != nil {
			// Incomplete line; keep it for the next write.
			w.pending.Reset()
			w.pending.WriteString(line)
			return len(p), nil
		}
		pterm.Debug.Println(w.prefix + strings.TrimRight(line, "\r\n"))
	}
}

// hostStderr returns where host stderr is forwarded. It is only shown with
// --debug.
func hostStderr(cfg config.Config) io.Writer {
	if !cfg.Debug {
		return nil
	}
	return &debugWriter{prefix: cfg.HostName + ": "}
}

// ptermObserver prints the popup log as it grows.
type ptermObserver struct{}

func (ptermObserver) EntryAppended(e popup.Entry) {
	switch e.Kind {
	case popup.EntryFailure:
		pterm.Error.Println(e.Prefix + e.Value)
	case popup.EntryReceived:
		pterm.Success.Println(e.Prefix + pterm.Bold.Sprint(e.Value))
	case popup.EntrySent:
		pterm.Println(pterm.Cyan(e.Prefix) + pterm.Bold.Sprint(e.Value))
	default:
		pterm.Info.Println(e.Prefix + e.Value)
	}
}

func (ptermObserver) StateChanged(s popup.UIState) {
	pterm.Debug.Printf("connect=%t input=%t send=%t\n", s.ConnectVisible, s.InputVisible, s.SendVisible)
}

// call runs fn on loop and waits for it. It returns false if the loop stopped
// first.
func call(loop *popup.Loop, fn func()) bool {
	done := make(chan struct{})
	loop.Dispatch(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
		return true
	case <-loop.Done():
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}
