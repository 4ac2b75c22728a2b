package cmd

import (
	"bytes"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/pterm/pterm"
)

// outBuf collects everything written to stdout and pterm while a test runs.
type outBuf struct {
	buf     bytes.Buffer
	done    chan struct{}
	w       *os.File
	restore func()
	once    sync.Once
}

// String stops capturing and returns the collected output.
func (o *outBuf) String() string {
	o.stop()
	return o.buf.String()
}

func (o *outBuf) stop() {
	o.once.Do(func() {
		_ = o.w.Close()
		<-o.done
		o.restore()
	})
}

func captureOutput(t *testing.T) *outBuf {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	orig := os.Stdout
	os.Stdout = w
	pterm.SetDefaultOutput(w)
	pterm.DisableStyling()

	o := &outBuf{done: make(chan struct{}), w: w}
	o.restore = func() {
		os.Stdout = orig
		pterm.SetDefaultOutput(orig)
		pterm.EnableStyling()
	}
	go func() {
		_, _ = io.Copy(&o.buf, r)
		_ = r.Close()
		close(o.done)
	}()
	t.Cleanup(o.stop)
	return o
}
