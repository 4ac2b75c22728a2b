package nativemsg

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/plode/nmpopup/internal/popup"
	"github.com/pterm/pterm"
)

// Port is an open connection to a running host process. It implements
// popup.Channel.
type Port struct {
	hostName string
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   io.ReadCloser
	encoding Encoding
	grace    time.Duration
	handlers popup.Handlers

	mu     sync.Mutex
	closed bool

	done chan struct{}
}

type portConfig struct {
	hostName string
	encoding Encoding
	grace    time.Duration
	handlers popup.Handlers
}

// startPort starts cmd and begins delivering its messages to the handlers.
func startPort(cmd *exec.Cmd, cfg portConfig) (*Port, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	if cfg.grace <= 0 {
		cfg.grace = DisconnectGracePeriod
	}
	p := &Port{
		hostName: cfg.hostName,
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		encoding: cfg.encoding,
		grace:    cfg.grace,
		handlers: cfg.handlers,
		done:     make(chan struct{}),
	}
	pterm.Debug.Printf("Started native messaging host %s (pid %d)\n", p.hostName, cmd.Process.Pid)

	go p.readLoop()
	return p, nil
}

// PostMessage encodes msg and writes it to the host's stdin.
func (p *Port) PostMessage(msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	body, err := EncodeMessage(msg, p.encoding)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := WriteFrame(p.stdin, body); err != nil {
		return fmt.Errorf("%w (%v)", ErrCommunication, err)
	}
	return nil
}

// Disconnect closes the host's stdin and kills the host if it has not exited
// after the grace period. The disconnect handler is not invoked.
func (p *Port) Disconnect() error {
	if !p.markClosed() {
		return nil
	}
	pterm.Debug.Printf("Disconnecting from native messaging host %s\n", p.hostName)

	err := p.stdin.Close()
	go p.reap()
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

// Done is closed once the host process has been waited for.
func (p *Port) Done() <-chan struct{} {
	return p.done
}

// Pid returns the host's process id.
func (p *Port) Pid() int {
	return p.cmd.Process.Pid
}

// markClosed reports whether this call transitioned the port to closed.
func (p *Port) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}

func (p *Port) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Port) reap() {
	select {
	case <-p.done:
	case <-time.After(p.grace):
		pterm.Debug.Printf("Native messaging host %s did not exit, killing it\n", p.hostName)
		_ = killProcessGroup(p.cmd)
	}
}

// readLoop delivers inbound messages and, once the stream ends, the single
// disconnect event.
func (p *Port) readLoop() {
	defer close(p.done)

	var reason error
	for {
		body, err := ReadFrame(p.stdout, MaxInboundMessageSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				reason = ErrHostExited
			} else {
				pterm.Debug.Printf("Read from native messaging host %s failed: %v\n", p.hostName, err)
				reason = ErrCommunication
			}
			break
		}

		text, err := DecodeMessage(body)
		if err != nil {
			pterm.Debug.Printf("Invalid message from native messaging host %s: %v\n", p.hostName, err)
			reason = ErrCommunication
			break
		}
		if p.isClosed() {
			continue
		}
		if p.handlers.OnMessage != nil {
			p.handlers.OnMessage(text)
		}
	}

	if reason != ErrHostExited {
		_ = killProcessGroup(p.cmd)
	}
	_ = p.stdin.Close()
	if err := p.cmd.Wait(); err != nil {
		pterm.Debug.Printf("Native messaging host %s exited: %v\n", p.hostName, err)
	}

	if p.markClosed() && p.handlers.OnDisconnect != nil {
		p.handlers.OnDisconnect(reason)
	}
}
