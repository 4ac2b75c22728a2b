package nativemsg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Manifest is a native messaging host manifest.
type Manifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	// File is where the manifest was loaded from. It is not serialized.
	File string `json:"-"`
}

// LoadManifest reads and parses the manifest at path. A relative host path is
// resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	m.File = path
	if m.Path != "" && !filepath.IsAbs(m.Path) {
		m.Path = filepath.Join(filepath.Dir(path), m.Path)
	}
	return &m, nil
}

// Validate checks the manifest describes a launchable stdio host.
func (m *Manifest) Validate() error {
	if !ValidHostName(m.Name) {
		return fmt.Errorf("invalid host name %q", m.Name)
	}
	if m.Type != ManifestType {
		return fmt.Errorf("unsupported host type %q (must be %q)", m.Type, ManifestType)
	}
	if strings.TrimSpace(m.Path) == "" {
		return fmt.Errorf("manifest for %s has no path", m.Name)
	}
	for _, origin := range m.AllowedOrigins {
		if strings.Contains(origin, "*") {
			return fmt.Errorf("wildcard origin %q is not allowed", origin)
		}
	}
	return nil
}

// AllowsOrigin reports whether origin is listed in allowed_origins. Origins
// are compared without their trailing slash.
func (m *Manifest) AllowsOrigin(origin string) bool {
	want := strings.TrimSuffix(origin, "/")
	return lo.ContainsBy(m.AllowedOrigins, func(o string) bool {
		return strings.TrimSuffix(o, "/") == want
	})
}

// DefaultOrigin returns the origin passed to the host when none is configured.
func (m *Manifest) DefaultOrigin() string {
	if len(m.AllowedOrigins) > 0 {
		return m.AllowedOrigins[0]
	}
	return ""
}

// Marshal returns the manifest as indented JSON.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
