// Package popup implements the native-messaging popup controller: it owns the
// display log and at most one current channel to a native host, and maps user
// actions (connect, send, disconnect) onto channel operations.
package popup

import "context"

// Channel is an open bidirectional pipe to a native messaging host.
type Channel interface {
	// PostMessage transmits a single text payload.
	PostMessage(msg string) error
	// Disconnect closes the channel from this side. The OnDisconnect handler
	// registered at open time is not invoked for a local disconnect.
	Disconnect() error
}

// Handlers are the event callbacks registered when a channel is opened.
// Implementations must deliver all events of one channel from a single
// goroutine, in order, with OnDisconnect last.
type Handlers struct {
	OnMessage    func(msg string)
	OnDisconnect func(err error)
}

// Opener opens named channels to native messaging hosts.
type Opener interface {
	Open(ctx context.Context, hostName string, h Handlers) (Channel, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, hostName string, h Handlers) (Channel, error)

func (f OpenerFunc) Open(ctx context.Context, hostName string, h Handlers) (Channel, error) {
	return f(ctx, hostName, h)
}
