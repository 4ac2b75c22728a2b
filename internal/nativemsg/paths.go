package nativemsg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/plode/nmpopup/pkg/util"
	"github.com/samber/lo"
)

// Browser identifies whose manifest directories are searched.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserBrave    Browser = "brave"
)

// Browsers lists the supported browsers.
var Browsers = []Browser{BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave}

// ParseBrowser converts a flag value to a Browser.
func ParseBrowser(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BrowserChrome, nil
	}
	if !lo.Contains(Browsers, b) {
		return "", fmt.Errorf("unsupported browser %q (use one of: %s)", s, strings.Join(lo.Map(Browsers, func(b Browser, _ int) string { return string(b) }), ", "))
	}
	return b, nil
}

// Locator finds host manifests for one browser on one OS.
type Locator struct {
	Browser Browser
	// GOOS defaults to runtime.GOOS.
	GOOS string
	// HomeDir defaults to the current user's home directory.
	HomeDir string
	// ExtraDirs are searched before the browser's own directories.
	ExtraDirs []string
}

func (l Locator) goos() string {
	if l.GOOS != "" {
		return l.GOOS
	}
	return runtime.GOOS
}

func (l Locator) homeDir() (string, error) {
	if l.HomeDir != "" {
		return l.HomeDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return home, nil
}

// UserDir returns the user-level manifest directory.
func (l Locator) UserDir() (string, error) {
	home, err := l.homeDir()
	if err != nil {
		return "", err
	}

	var parts []string
	switch l.goos() {
	case "darwin":
		base := []string{home, "Library", "Application Support"}
		switch l.Browser {
		case BrowserChromium:
			parts = append(base, "Chromium")
		case BrowserEdge:
			parts = append(base, "Microsoft Edge")
		case BrowserBrave:
			parts = append(base, "BraveSoftware", "Brave-Browser")
		default:
			parts = append(base, "Google", "Chrome")
		}
	case "linux":
		base := []string{home, ".config"}
		switch l.Browser {
		case BrowserChromium:
			parts = append(base, "chromium")
		case BrowserEdge:
			parts = append(base, "microsoft-edge")
		case BrowserBrave:
			parts = append(base, "BraveSoftware", "Brave-Browser")
		default:
			parts = append(base, "google-chrome")
		}
	default:
		return "", fmt.Errorf("manifest directories are not supported on %s (hosts are registered in the registry); use --manifest", l.goos())
	}

	return filepath.Join(append(parts, ManifestDirName)...), nil
}

// SystemDir returns the system-wide manifest directory, if the browser has one.
func (l Locator) SystemDir() string {
	switch l.goos() {
	case "darwin":
		switch l.Browser {
		case BrowserChromium:
			return "/Library/Application Support/Chromium/NativeMessagingHosts"
		case BrowserEdge:
			return "/Library/Microsoft/Edge/NativeMessagingHosts"
		case BrowserBrave:
			return "/Library/Application Support/BraveSoftware/Brave-Browser/NativeMessagingHosts"
		default:
			return "/Library/Google/Chrome/NativeMessagingHosts"
		}
	case "linux":
		switch l.Browser {
		case BrowserChromium:
			return "/etc/chromium/native-messaging-hosts"
		case BrowserEdge:
			return "/etc/opt/edge/native-messaging-hosts"
		case BrowserBrave:
			return "/etc/opt/brave.com/brave/native-messaging-hosts"
		default:
			return "/etc/opt/chrome/native-messaging-hosts"
		}
	}
	return ""
}

// Dirs returns the search order: extra dirs, user-level, then system-level.
func (l Locator) Dirs() []string {
	dirs := append([]string{}, l.ExtraDirs...)
	if user, err := l.UserDir(); err == nil {
		dirs = append(dirs, user)
	}
	if sys := l.SystemDir(); sys != "" {
		dirs = append(dirs, sys)
	}
	return lo.Uniq(lo.Compact(dirs))
}

// Find returns the first manifest for name in the search order.
func (l Locator) Find(name string) (*Manifest, error) {
	if !ValidHostName(name) {
		return nil, ErrInvalidHostName
	}
	for _, dir := range l.Dirs() {
		path := filepath.Join(dir, name+".json")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := LoadManifest(path)
		if err != nil {
			return nil, fmt.Errorf("%w (%v)", ErrHostNotFound, err)
		}
		return m, nil
	}
	return nil, ErrHostNotFound
}

// List returns every manifest found in the search directories. A name found
// in several directories is reported once, from the directory that wins the
// lookup. Unreadable manifests are skipped.
func (l Locator) List() ([]*Manifest, error) {
	seen := make(map[string]bool)
	var manifests []*Manifest
	for _, dir := range l.Dirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name, ok := strings.CutSuffix(entry.Name(), ".json")
			if entry.IsDir() || !ok || !ValidHostName(name) || seen[name] {
				continue
			}
			m, err := LoadManifest(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			seen[name] = true
			manifests = append(manifests, m)
		}
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, nil
}

// Install writes m into the user-level manifest directory and returns the
// written path.
func (l Locator) Install(m *Manifest) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	if !filepath.IsAbs(m.Path) {
		return "", fmt.Errorf("host path must be absolute: %s", m.Path)
	}

	dir, err := l.UserDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := m.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(dir, m.Name+".json")
	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Uninstall removes name's manifest from the user-level directory.
func (l Locator) Uninstall(name string) (string, error) {
	if !ValidHostName(name) {
		return "", ErrInvalidHostName
	}
	dir, err := l.UserDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".json")
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrHostNotFound
		}
		return "", err
	}
	return path, nil
}
