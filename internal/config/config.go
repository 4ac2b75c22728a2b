// Package config resolves the settings shared by every command: flags first,
// then NMPOPUP_* environment variables, then defaults.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/spf13/pflag"
)

const (
	EnvHost        = "NMPOPUP_HOST"
	EnvBrowser     = "NMPOPUP_BROWSER"
	EnvManifest    = "NMPOPUP_MANIFEST"
	EnvOrigin      = "NMPOPUP_ORIGIN"
	EnvEncoding    = "NMPOPUP_ENCODING"
	EnvManifestDir = "NMPOPUP_MANIFEST_DIR"
)

// Config holds the resolved connection settings.
type Config struct {
	HostName     string
	Browser      nativemsg.Browser
	ManifestPath string
	ManifestDirs []string
	Origin       string
	Encoding     nativemsg.Encoding
	Debug        bool
}

// AddFlags registers the shared flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.Bool("debug", false, "Show debug output, including host stderr")
	fs.String("host", "", "Native messaging host name (env "+EnvHost+")")
	fs.String("browser", "", "Browser whose manifest directories are searched: chrome, chromium, edge, brave (env "+EnvBrowser+")")
	fs.String("manifest", "", "Path to a host manifest, bypassing the directory search (env "+EnvManifest+")")
	fs.StringSlice("manifest-dir", nil, "Extra directory searched for host manifests (env "+EnvManifestDir+")")
	fs.String("origin", "", "Extension origin passed to the host (env "+EnvOrigin+")")
	fs.String("encoding", "", "Outbound framing: quote sends text as a JSON string, json sends valid JSON as-is (env "+EnvEncoding+")")
}

// Load resolves the shared settings from fs and the environment.
func Load(fs *pflag.FlagSet) (Config, error) {
	var cfg Config

	cfg.Debug, _ = fs.GetBool("debug")
	cfg.HostName = lookup(fs, "host", EnvHost)
	if cfg.HostName == "" {
		cfg.HostName = nativemsg.DefaultHostName
	}

	browser, err := nativemsg.ParseBrowser(lookup(fs, "browser", EnvBrowser))
	if err != nil {
		return Config{}, err
	}
	cfg.Browser = browser

	enc, err := nativemsg.ParseEncoding(lookup(fs, "encoding", EnvEncoding))
	if err != nil {
		return Config{}, err
	}
	cfg.Encoding = enc

	cfg.ManifestPath = lookup(fs, "manifest", EnvManifest)
	cfg.Origin = lookup(fs, "origin", EnvOrigin)

	if dirs, _ := fs.GetStringSlice("manifest-dir"); len(dirs) > 0 {
		cfg.ManifestDirs = dirs
	} else if env := os.Getenv(EnvManifestDir); env != "" {
		cfg.ManifestDirs = filepath.SplitList(env)
	}
	return cfg, nil
}

// WithHost returns cfg targeting name, if name is set.
func (c Config) WithHost(name string) Config {
	if name = strings.TrimSpace(name); name != "" {
		c.HostName = name
	}
	return c
}

// Locator returns the manifest locator for the configured browser.
func (c Config) Locator() nativemsg.Locator {
	return nativemsg.Locator{Browser: c.Browser, ExtraDirs: c.ManifestDirs}
}

// Launcher returns a launcher that forwards host stderr to stderr.
func (c Config) Launcher(stderr io.Writer) *nativemsg.Launcher {
	return &nativemsg.Launcher{
		Locator:      c.Locator(),
		ManifestPath: c.ManifestPath,
		Origin:       c.Origin,
		Encoding:     c.Encoding,
		Stderr:       stderr,
	}
}

// lookup returns the flag value if it was set, otherwise the environment.
func lookup(fs *pflag.FlagSet, name, env string) string {
	if f := fs.Lookup(name); f != nil && f.Changed {
		return strings.TrimSpace(f.Value.String())
	}
	return strings.TrimSpace(os.Getenv(env))
}
