package nativemsg

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/plode/nmpopup/internal/popup"
)

// Launcher opens ports to native messaging hosts. It implements popup.Opener.
type Launcher struct {
	Locator Locator
	// ManifestPath, when set, is used instead of searching the Locator.
	ManifestPath string
	// Origin is passed to the host as its first argument. Defaults to the
	// manifest's first allowed origin.
	Origin   string
	Encoding Encoding
	// Stderr receives the host's stderr. Nil discards it.
	Stderr      io.Writer
	GracePeriod time.Duration
}

// Resolve finds and validates the manifest for hostName.
func (l *Launcher) Resolve(hostName string) (*Manifest, error) {
	if !ValidHostName(hostName) {
		return nil, ErrInvalidHostName
	}

	var (
		m   *Manifest
		err error
	)
	if l.ManifestPath != "" {
		m, err = LoadManifest(l.ManifestPath)
		if err != nil {
			return nil, fmt.Errorf("%w (%v)", ErrHostNotFound, err)
		}
	} else {
		m, err = l.Locator.Find(hostName)
		if err != nil {
			return nil, err
		}
	}

	if m.Name != hostName {
		return nil, fmt.Errorf("%w (manifest %s is for host %q)", ErrHostNotFound, m.File, m.Name)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrHostNotFound, err)
	}
	return m, nil
}

// origin returns the origin the host is launched for.
func (l *Launcher) origin(m *Manifest) (string, error) {
	origin := l.Origin
	if origin == "" {
		origin = m.DefaultOrigin()
	}
	if origin == "" || !m.AllowsOrigin(origin) {
		return "", ErrForbidden
	}
	return origin, nil
}

// Open starts the host and returns its port.
func (l *Launcher) Open(ctx context.Context, hostName string, h popup.Handlers) (popup.Channel, error) {
	port, err := l.OpenPort(ctx, hostName, h)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// OpenPort is Open with the concrete return type.
func (l *Launcher) OpenPort(ctx context.Context, hostName string, h popup.Handlers) (*Port, error) {
	m, err := l.Resolve(hostName)
	if err != nil {
		return nil, err
	}
	origin, err := l.origin(m)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(m.Path, hostArgs(origin)...)
	cmd.Dir = filepath.Dir(m.Path)
	cmd.Stderr = l.Stderr

	enc := l.Encoding
	if enc == "" {
		enc = EncodingQuote
	}
	port, err := startPort(cmd, portConfig{
		hostName: hostName,
		encoding: enc,
		grace:    l.GracePeriod,
		handlers: h,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrFailedToStart, err)
	}
	return port, nil
}
