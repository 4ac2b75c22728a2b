package nativemsg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name+".json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "com.example.echo", `{
		"name": "com.example.echo",
		"description": "Echo host",
		"path": "bin/echo-host",
		"type": "stdio",
		"allowed_origins": ["chrome-extension://abcdefghijklmnop/"]
	}`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "com.example.echo", m.Name)
	assert.Equal(t, "Echo host", m.Description)
	assert.Equal(t, filepath.Join(dir, "bin", "echo-host"), m.Path)
	assert.Equal(t, path, m.File)
	assert.NoError(t, m.Validate())
	assert.Equal(t, "chrome-extension://abcdefghijklmnop/", m.DefaultOrigin())
}

func TestLoadManifestInvalidJSON(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "com.example.bad", `{"name":`)
	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest")
}

func TestManifestValidate(t *testing.T) {
	valid := Manifest{Name: "com.example.echo", Path: "/usr/bin/echo-host", Type: "stdio"}

	tests := []struct {
		name    string
		mutate  func(m *Manifest)
		wantErr string
	}{
		{"valid", func(m *Manifest) {}, ""},
		{"bad name", func(m *Manifest) { m.Name = "Com.Example" }, "invalid host name"},
		{"bad type", func(m *Manifest) { m.Type = "socket" }, "unsupported host type"},
		{"no path", func(m *Manifest) { m.Path = " " }, "has no path"},
		{"wildcard origin", func(m *Manifest) { m.AllowedOrigins = []string{"chrome-extension://*/"} }, "wildcard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManifestAllowsOrigin(t *testing.T) {
	m := Manifest{AllowedOrigins: []string{"chrome-extension://abc/", "chrome-extension://def"}}

	assert.True(t, m.AllowsOrigin("chrome-extension://abc/"))
	assert.True(t, m.AllowsOrigin("chrome-extension://abc"))
	assert.True(t, m.AllowsOrigin("chrome-extension://def/"))
	assert.False(t, m.AllowsOrigin("chrome-extension://xyz/"))
	assert.False(t, m.AllowsOrigin(""))
}

func TestManifestMarshal(t *testing.T) {
	m := Manifest{Name: "com.example.echo", Path: "/opt/echo", Type: "stdio", File: "/tmp/ignored.json"}
	data, err := m.Marshal()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"name": "com.example.echo"`)
	assert.NotContains(t, out, "ignored")
	assert.NotContains(t, out, "allowed_origins")
}
