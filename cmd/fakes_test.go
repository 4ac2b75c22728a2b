package cmd

import (
	"context"
	"sync"

	"github.com/plode/nmpopup/internal/popup"
)

// FakeChannel records posts and, when Reply is set, answers each one.
type FakeChannel struct {
	mu           sync.Mutex
	handlers     popup.Handlers
	posted       []string
	disconnected bool

	PostFunc func(msg string, h popup.Handlers) error
}

func (f *FakeChannel) PostMessage(msg string) error {
	f.mu.Lock()
	f.posted = append(f.posted, msg)
	post := f.PostFunc
	f.mu.Unlock()
	if post != nil {
		return post(msg, f.handlers)
	}
	return nil
}

func (f *FakeChannel) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	return nil
}

func (f *FakeChannel) Posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posted...)
}

func (f *FakeChannel) Disconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

// FakeOpener hands out FakeChannels, or fails with OpenErr.
type FakeOpener struct {
	mu       sync.Mutex
	channels []*FakeChannel
	hosts    []string

	OpenErr  error
	PostFunc func(msg string, h popup.Handlers) error
}

func (f *FakeOpener) Open(ctx context.Context, hostName string, h popup.Handlers) (popup.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = append(f.hosts, hostName)
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	ch := &FakeChannel{handlers: h, PostFunc: f.PostFunc}
	f.channels = append(f.channels, ch)
	return ch, nil
}

func (f *FakeOpener) Channels() []*FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeChannel(nil), f.channels...)
}

func (f *FakeOpener) Hosts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hosts...)
}

// echoReply answers every post asynchronously, the way a host process does.
func echoReply(msg string, h popup.Handlers) error {
	go h.OnMessage("echo: " + msg)
	return nil
}
