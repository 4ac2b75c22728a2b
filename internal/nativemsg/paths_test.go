package nativemsg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorUserDir(t *testing.T) {
	home := "/home/alice"
	tests := []struct {
		goos     string
		browser  Browser
		expected string
	}{
		{"linux", BrowserChrome, filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts")},
		{"linux", BrowserChromium, filepath.Join(home, ".config", "chromium", "NativeMessagingHosts")},
		{"linux", BrowserEdge, filepath.Join(home, ".config", "microsoft-edge", "NativeMessagingHosts")},
		{"linux", BrowserBrave, filepath.Join(home, ".config", "BraveSoftware", "Brave-Browser", "NativeMessagingHosts")},
		{"darwin", BrowserChrome, filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "NativeMessagingHosts")},
		{"darwin", BrowserEdge, filepath.Join(home, "Library", "Application Support", "Microsoft Edge", "NativeMessagingHosts")},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+string(tt.browser), func(t *testing.T) {
			l := Locator{Browser: tt.browser, GOOS: tt.goos, HomeDir: home}
			dir, err := l.UserDir()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dir)
		})
	}
}

func TestLocatorUserDirWindows(t *testing.T) {
	l := Locator{Browser: BrowserChrome, GOOS: "windows", HomeDir: "C:\\Users\\alice"}
	_, err := l.UserDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry")
	assert.Empty(t, l.SystemDir())
}

func TestLocatorSystemDir(t *testing.T) {
	assert.Equal(t, "/etc/opt/chrome/native-messaging-hosts", Locator{Browser: BrowserChrome, GOOS: "linux"}.SystemDir())
	assert.Equal(t, "/etc/chromium/native-messaging-hosts", Locator{Browser: BrowserChromium, GOOS: "linux"}.SystemDir())
	assert.Equal(t, "/Library/Google/Chrome/NativeMessagingHosts", Locator{Browser: BrowserChrome, GOOS: "darwin"}.SystemDir())
}

func TestLocatorDirsOrder(t *testing.T) {
	l := Locator{Browser: BrowserChrome, GOOS: "linux", HomeDir: "/home/alice", ExtraDirs: []string{"/tmp/hosts", "", "/tmp/hosts"}}
	assert.Equal(t, []string{
		"/tmp/hosts",
		"/home/alice/.config/google-chrome/NativeMessagingHosts",
		"/etc/opt/chrome/native-messaging-hosts",
	}, l.Dirs())
}

func TestLocatorFind(t *testing.T) {
	home := t.TempDir()
	extra := t.TempDir()
	l := Locator{Browser: BrowserChrome, GOOS: "linux", HomeDir: home, ExtraDirs: []string{extra}}
	userDir, err := l.UserDir()
	require.NoError(t, err)

	writeManifest(t, userDir, "com.example.echo", `{"name":"com.example.echo","path":"/user/echo","type":"stdio"}`)

	m, err := l.Find("com.example.echo")
	require.NoError(t, err)
	assert.Equal(t, "/user/echo", m.Path)

	// Extra directories win over the user-level directory.
	writeManifest(t, extra, "com.example.echo", `{"name":"com.example.echo","path":"/extra/echo","type":"stdio"}`)
	m, err = l.Find("com.example.echo")
	require.NoError(t, err)
	assert.Equal(t, "/extra/echo", m.Path)

	_, err = l.Find("com.example.missing")
	assert.ErrorIs(t, err, ErrHostNotFound)

	_, err = l.Find("../escape")
	assert.ErrorIs(t, err, ErrInvalidHostName)
}

func TestLocatorFindMalformedManifest(t *testing.T) {
	extra := t.TempDir()
	l := Locator{Browser: BrowserChrome, GOOS: "linux", HomeDir: t.TempDir(), ExtraDirs: []string{extra}}
	writeManifest(t, extra, "com.example.broken", `{"name":`)

	_, err := l.Find("com.example.broken")
	require.ErrorIs(t, err, ErrHostNotFound)
	assert.True(t, strings.HasPrefix(err.Error(), ErrHostNotFound.Error()))
	assert.Contains(t, err.Error(), "com.example.broken.json")
}

func TestLocatorList(t *testing.T) {
	home := t.TempDir()
	extra := t.TempDir()
	l := Locator{Browser: BrowserChrome, GOOS: "linux", HomeDir: home, ExtraDirs: []string{extra}}
	userDir, err := l.UserDir()
	require.NoError(t, err)

	writeManifest(t, userDir, "com.example.b", `{"name":"com.example.b","path":"/b","type":"stdio"}`)
	writeManifest(t, userDir, "com.example.a", `{"name":"com.example.a","path":"/user/a","type":"stdio"}`)
	writeManifest(t, extra, "com.example.a", `{"name":"com.example.a","path":"/extra/a","type":"stdio"}`)
	writeManifest(t, userDir, "com.example.broken", `{`)
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "README.txt"), []byte("x"), 0644))

	manifests, err := l.List()
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, "com.example.a", manifests[0].Name)
	assert.Equal(t, "/extra/a", manifests[0].Path)
	assert.Equal(t, "com.example.b", manifests[1].Name)
}

func TestLocatorInstallUninstall(t *testing.T) {
	home := t.TempDir()
	l := Locator{Browser: BrowserChromium, GOOS: "linux", HomeDir: home}

	m := &Manifest{
		Name:           "com.example.echo",
		Path:           "/opt/echo/host",
		Type:           "stdio",
		AllowedOrigins: []string{"chrome-extension://abc/"},
	}
	path, err := l.Install(m)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "chromium", "NativeMessagingHosts", "com.example.echo.json"), path)

	loaded, err := l.Find("com.example.echo")
	require.NoError(t, err)
	assert.Equal(t, m.Path, loaded.Path)
	assert.Equal(t, m.AllowedOrigins, loaded.AllowedOrigins)

	removed, err := l.Uninstall("com.example.echo")
	require.NoError(t, err)
	assert.Equal(t, path, removed)

	_, err = l.Uninstall("com.example.echo")
	assert.ErrorIs(t, err, ErrHostNotFound)
}

func TestLocatorInstallRejectsRelativePath(t *testing.T) {
	l := Locator{Browser: BrowserChrome, GOOS: "linux", HomeDir: t.TempDir()}
	_, err := l.Install(&Manifest{Name: "com.example.echo", Path: "host", Type: "stdio"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
}

func TestParseBrowser(t *testing.T) {
	b, err := ParseBrowser("")
	require.NoError(t, err)
	assert.Equal(t, BrowserChrome, b)

	b, err = ParseBrowser("Edge")
	require.NoError(t, err)
	assert.Equal(t, BrowserEdge, b)

	_, err = ParseBrowser("netscape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome, chromium, edge, brave")
}
