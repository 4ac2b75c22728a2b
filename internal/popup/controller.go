package popup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrNotConnected is returned by SendMessage when there is no current channel.
var ErrNotConnected = errors.New("not connected to a native messaging host")

// Observer is notified of log and UI state changes. Calls happen on the
// controller's loop.
type Observer interface {
	EntryAppended(e Entry)
	StateChanged(s UIState)
}

// Options configures a Controller.
type Options struct {
	// HostName is the native messaging host identifier to connect to.
	HostName string
	Opener   Opener
	// Dispatcher receives channel events; defaults to Inline.
	Dispatcher Dispatcher
	Observer   Observer
	// ReplaceExisting closes the current channel before Connect opens a new
	// one. When false a second Connect leaves the first channel open.
	ReplaceExisting bool
	// Now is used to timestamp log entries; defaults to time.Now.
	Now func() time.Time
}

// connection wraps a channel so that a disconnect event can be matched to the
// channel it came from.
type connection struct {
	ch     Channel
	closed bool
}

// Controller mediates between user actions and the channel lifecycle. It is
// not safe for concurrent use: every method must be called from the loop the
// Dispatcher feeds.
type Controller struct {
	opts    Options
	log     Log
	current *connection
	open    map[*connection]struct{}
	state   UIState
}

func NewController(opts Options) *Controller {
	if opts.Dispatcher == nil {
		opts.Dispatcher = Inline
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		opts:  opts,
		open:  make(map[*connection]struct{}),
		state: StateFor(false),
	}
}

// HostName returns the host identifier this controller connects to.
func (c *Controller) HostName() string { return c.opts.HostName }

// Log returns the display log.
func (c *Controller) Log() *Log { return &c.log }

// State returns the current UI state.
func (c *Controller) State() UIState { return c.state }

// Connected reports whether a current channel exists.
func (c *Controller) Connected() bool { return c.current != nil }

// OpenChannels returns how many channels opened by this controller have not
// yet disconnected.
func (c *Controller) OpenChannels() int { return len(c.open) }

// Connect requests a new channel to the host. Open failures are reported the
// same way as a disconnect event.
func (c *Controller) Connect(ctx context.Context) {
	if c.opts.ReplaceExisting && c.current != nil {
		c.closeConnection(c.current)
		c.current = nil
	}

	c.appendEntry(EntryStatus, "Connecting to native messaging host ", c.opts.HostName)

	conn := &connection{}
	dispatch := c.opts.Dispatcher
	ch, err := c.opts.Opener.Open(ctx, c.opts.HostName, Handlers{
		OnMessage: func(msg string) {
			dispatch.Dispatch(func() { c.onMessage(conn, msg) })
		},
		OnDisconnect: func(err error) {
			dispatch.Dispatch(func() { c.onDisconnect(conn, err) })
		},
	})
	if err != nil {
		c.appendEntry(EntryFailure, "Failed to connect: ", err.Error())
		c.UpdateUIState()
		return
	}

	conn.ch = ch
	if conn.closed {
		// The channel reported its disconnect before Open returned.
		c.UpdateUIState()
		return
	}
	c.open[conn] = struct{}{}
	c.current = conn
	c.UpdateUIState()
}

// SendMessage transmits text verbatim over the current channel.
func (c *Controller) SendMessage(text string) error {
	if c.current == nil {
		c.appendEntry(EntryFailure, "Not connected: ", "connect to a native messaging host first")
		return ErrNotConnected
	}
	if err := c.current.ch.PostMessage(text); err != nil {
		c.appendEntry(EntryFailure, "Failed to send: ", err.Error())
		return err
	}
	c.appendEntry(EntrySent, "Sent message: ", quote(text))
	return nil
}

// Disconnect closes the current channel from this side.
func (c *Controller) Disconnect() {
	if c.current == nil {
		return
	}
	c.closeConnection(c.current)
	c.current = nil
	c.appendEntry(EntryStatus, "Disconnected from native messaging host ", c.opts.HostName)
	c.UpdateUIState()
}

// Close disconnects every channel this controller opened, including ones
// superseded by a later Connect.
func (c *Controller) Close() {
	for conn := range c.open {
		c.closeConnection(conn)
	}
	c.current = nil
	c.state = StateFor(false)
}

// UpdateUIState recomputes visibility from whether a channel is present.
func (c *Controller) UpdateUIState() {
	c.state = StateFor(c.current != nil)
	if c.opts.Observer != nil {
		c.opts.Observer.StateChanged(c.state)
	}
}

func (c *Controller) onMessage(conn *connection, msg string) {
	if conn.closed {
		return
	}
	c.appendEntry(EntryReceived, "Received message: ", msg)
}

func (c *Controller) onDisconnect(conn *connection, err error) {
	if conn.closed {
		return
	}
	conn.closed = true
	delete(c.open, conn)

	text := "channel closed"
	if err != nil {
		text = err.Error()
	}
	c.appendEntry(EntryFailure, "Failed to connect: ", text)

	if c.current == conn {
		c.current = nil
	}
	c.UpdateUIState()
}

func (c *Controller) closeConnection(conn *connection) {
	if conn.closed {
		return
	}
	conn.closed = true
	delete(c.open, conn)
	if err := conn.ch.Disconnect(); err != nil {
		c.appendEntry(EntryFailure, "Failed to disconnect: ", err.Error())
	}
}

func (c *Controller) appendEntry(kind EntryKind, prefix, value string) {
	e := Entry{Kind: kind, Prefix: prefix, Value: value, Time: c.opts.Now()}
	c.log.Append(e)
	if c.opts.Observer != nil {
		c.opts.Observer.EntryAppended(e)
	}
}

// quote renders text the way the sent-message log line shows it.
func quote(text string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(text); err != nil {
		return text
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
