package cmd

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectLines_SendsAndQuits(t *testing.T) {
	buf := captureOutput(t)
	opener := &FakeOpener{}

	c := ConnectCmd{opener: opener, stdin: strings.NewReader("hello\n\n/status\n/quit\nignored\n")}
	err := c.Run(context.Background(), ConnectInput{HostName: "com.example.echo", NoTUI: true, AutoConnect: true})
	require.NoError(t, err)

	channels := opener.Channels()
	require.Len(t, channels, 1)
	assert.Equal(t, []string{"hello"}, channels[0].Posted())
	assert.True(t, channels[0].Disconnected(), "channels are closed when the popup exits")

	out := buf.String()
	assert.Contains(t, out, "Connecting to native messaging host com.example.echo")
	assert.Contains(t, out, `Sent message: "hello"`)
	assert.Contains(t, out, "Host: com.example.echo (connected)")
	assert.Contains(t, out, "Goodbye!")
}

func TestConnectLines_ConnectAndDisconnectCommands(t *testing.T) {
	buf := captureOutput(t)
	opener := &FakeOpener{}

	c := ConnectCmd{opener: opener, stdin: strings.NewReader("/disconnect\n/connect\n/disconnect\n/status\n")}
	err := c.Run(context.Background(), ConnectInput{HostName: "com.example.echo", NoTUI: true})
	require.NoError(t, err)

	channels := opener.Channels()
	require.Len(t, channels, 1)
	assert.True(t, channels[0].Disconnected())

	out := buf.String()
	assert.Contains(t, out, "Not connected")
	assert.Contains(t, out, "Disconnected from native messaging host com.example.echo")
	assert.Contains(t, out, "Host: com.example.echo (disconnected)")
}

func TestConnectLines_SendWhileDisconnected(t *testing.T) {
	buf := captureOutput(t)
	opener := &FakeOpener{OpenErr: errors.New("Specified native messaging host not found.")}

	c := ConnectCmd{opener: opener, stdin: strings.NewReader("hello\n")}
	err := c.Run(context.Background(), ConnectInput{HostName: "com.example.echo", NoTUI: true, AutoConnect: true})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Failed to connect: Specified native messaging host not found.")
	assert.Contains(t, out, "Not connected: connect to a native messaging host first")
}

func TestConnectLines_UnknownSlashIsSent(t *testing.T) {
	captureOutput(t)
	opener := &FakeOpener{}

	c := ConnectCmd{opener: opener, stdin: strings.NewReader("/ping\n/help\n")}
	err := c.Run(context.Background(), ConnectInput{HostName: "com.example.echo", NoTUI: true, AutoConnect: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"/ping"}, opener.Channels()[0].Posted())
}

func TestConnectLines_DefaultHost(t *testing.T) {
	captureOutput(t)
	opener := &FakeOpener{}

	c := ConnectCmd{opener: opener, stdin: strings.NewReader("")}
	require.NoError(t, c.Run(context.Background(), ConnectInput{NoTUI: true, AutoConnect: true}))

	assert.Equal(t, []string{"com.plode_mass_storage.native"}, opener.Hosts())
}

func TestConnectLines_OverlongLineFails(t *testing.T) {
	buf := captureOutput(t)
	opener := &FakeOpener{}
	input := "hello\n" + strings.Repeat("a", nativemsg.MaxInboundMessageSize+1) + "\n"

	c := ConnectCmd{opener: opener, stdin: strings.NewReader(input)}
	err := c.Run(context.Background(), ConnectInput{HostName: "com.example.echo", NoTUI: true, AutoConnect: true})

	require.ErrorIs(t, err, bufio.ErrTooLong)
	assert.Equal(t, []string{"hello"}, opener.Channels()[0].Posted())
	assert.True(t, opener.Channels()[0].Disconnected())
	assert.Contains(t, buf.String(), "Input line exceeds")
}
