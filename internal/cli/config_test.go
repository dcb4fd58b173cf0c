package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/zelaser/hoapi-go/internal/common/apperrors"
	"github.com/zelaser/hoapi-go/pkg/hoapi"
)

func TestLoadProfileYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", fmt.Sprintf(testProfileYAML, "https://server.example.com")+"timeout: 30s\nenvelope: true\n")

	p, err := LoadProfile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "app-id-1", p.AppID)
	assert.Equal(t, "https://server.example.com", p.BaseURL)
	assert.Equal(t, "/server/common/api", p.Content)
	assert.Equal(t, 30*time.Second, p.Timeout)
	assert.True(t, p.Envelope)
	assert.Same(t, p, GetProfile())

	c, err := p.NewClient()
	require.NoError(t, err)
	assert.Equal(t, p.Config, c.Config())
}

func TestLoadProfileTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `version = "0.1.2"
app_id = "app-id-1"
app_secret = "0123456789abcdef0123456789abcdef"
iv = "abcdef9876543210"
base_url = "https://server.example.com"
content = "/server/common/api"
timeout = "5s"
canonical_json = true
`)

	p, err := LoadProfile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "app-id-1", p.AppID)
	assert.Equal(t, "abcdef9876543210", p.IV)
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.True(t, p.CanonicalJSON)
	assert.False(t, p.Envelope)
}

func TestLoadProfileExpandsEnvironment(t *testing.T) {
	t.Setenv("HOCTL_TEST_SECRET", "secret-from-env")
	path := writeFile(t, "config.yaml", `app_id: app-id-1
app_secret: "{{ .ENV.HOCTL_TEST_SECRET }}"
iv: abcdef9876543210
base_url: https://server.example.com
content: /api
`)

	p, err := LoadProfile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "secret-from-env", p.AppSecret)
	assert.Equal(t, ConfigFormatVersion, p.Version)
}

func TestLoadProfileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errIs   error
		msg     string
	}{
		{
			name:    "missing app id",
			content: "app_secret: s\niv: i\nbase_url: https://a.example.com\ncontent: /c\n",
			errIs:   hoapi.ErrConfig,
			msg:     "app_id",
		},
		{
			name:    "bad base url",
			content: "app_id: a\napp_secret: s\niv: i\nbase_url: not a url\ncontent: /c\n",
			errIs:   hoapi.ErrConfig,
			msg:     "base_url",
		},
		{
			name:    "incompatible version",
			content: "version: 1.0.0\napp_id: a\napp_secret: s\niv: i\nbase_url: https://a.example.com\ncontent: /c\n",
			msg:     "unsupported config file format version",
		},
		{
			name:    "negative timeout",
			content: fmt.Sprintf(testProfileYAML, "https://a.example.com") + "timeout: -1s\n",
			msg:     "timeout must not be negative",
		},
		{
			name:    "malformed yaml",
			content: "app_id: [unterminated\n",
			msg:     "unable to parse config file",
		},
		{
			name:    "missing placeholder",
			content: "app_id: {{ .ENV.HOCTL_UNSET_FOR_TEST }}\n",
			msg:     "missing environment variable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeFile(t, "config.yaml", tt.content), nil)
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyOverrides(t *testing.T) {
	p := &Profile{Config: hoapi.Config{AppID: "before"}}
	err := ApplyOverrides(p, []string{"app_id=after", "timeout=2s", "envelope=true", "content=/v2"})
	require.NoError(t, err)
	assert.Equal(t, "after", p.AppID)
	assert.Equal(t, 2*time.Second, p.Timeout)
	assert.True(t, p.Envelope)
	assert.Equal(t, "/v2", p.Content)

	assert.Error(t, ApplyOverrides(p, []string{"no_such_key=1"}))
	assert.Error(t, ApplyOverrides(p, []string{"missing-equals"}))
	assert.Error(t, ApplyOverrides(p, []string{"=value"}))
	assert.Error(t, ApplyOverrides(p, []string{"timeout=soon"}))
}

func TestLoadProfileWithOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", fmt.Sprintf(testProfileYAML, "https://server.example.com"))

	p, err := LoadProfile(path, []string{"base_url=https://staging.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com", p.BaseURL)

	_, err = LoadProfile(path, []string{"base_url="})
	assert.ErrorIs(t, err, hoapi.ErrConfig)
}

func TestConfigVersionCompatibility(t *testing.T) {
	assert.True(t, IsConfigVersionCompatible("0.1.0"))
	assert.True(t, IsConfigVersionCompatible("0.1.9"))
	assert.False(t, IsConfigVersionCompatible("0.2.0"))
	assert.False(t, IsConfigVersionCompatible("1.0.0"))
	assert.False(t, IsConfigVersionCompatible("latest"))
}

func TestMasked(t *testing.T) {
	p := Profile{Config: hoapi.Config{AppID: "app", AppSecret: "0123456789abcdef", IV: "abc"}}
	m := p.Masked()
	assert.Equal(t, "01************ef", m.AppSecret)
	assert.Equal(t, "***", m.IV)
	assert.Equal(t, "app", m.AppID)
	assert.Equal(t, "0123456789abcdef", p.AppSecret)
}

func TestWriteProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	p := &Profile{
		Version: ConfigFormatVersion,
		Config: hoapi.Config{
			AppID:     "app-id-1",
			AppSecret: "0123456789abcdef0123456789abcdef",
			IV:        "abcdef9876543210",
			BaseURL:   "https://server.example.com",
			Content:   "/api",
		},
		Timeout: 10 * time.Second,
	}
	require.NoError(t, p.WriteProfile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadProfile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, *p, *loaded)

	assert.Error(t, p.WriteProfile(""))
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := runCLI(t, "--config", path, "config", "init",
		"--app-id", "app-id-1",
		"--app-secret", "0123456789abcdef0123456789abcdef",
		"--iv", "abcdef9876543210",
		"--base-url", "https://server.example.com",
		"--content", "/server/common/api",
		"--timeout", "15s")
	require.NoError(t, err)
	assert.Contains(t, out, "Config written to "+path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &written))
	assert.Equal(t, ConfigFormatVersion, written["version"])
	assert.Equal(t, "15s", written["timeout"])

	_, err = runCLI(t, "--config", path, "config", "init", "--app-id", "x")
	require.Error(t, err)
	assert.Equal(t, ExitConfig, apperrors.ExitCodeOf(err))

	out, err = runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "app_id: app-id-1")
	assert.Contains(t, out, "app_secret: 01****************************ef")
	assert.NotContains(t, out, "0123456789abcdef0123456789abcdef")

	out, err = runCLI(t, "--config", path, "--json", "config", "show", "--set", "content=/v2")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))
	assert.Equal(t, "/v2", gjson.Get(out, "content").String())
	assert.Equal(t, "ab************10", gjson.Get(out, "iv").String())
}
