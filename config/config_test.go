package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"curtsddns/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const cloudflareINI = `
[settings]
DNS_PROVIDER = cloudflare
CHECK_INTERVAL = 60
AUTO_UPDATE = False

[cloudflare]
CLOUDFLARE_API_TOKEN = T
CLOUDFLARE_ZONE_ID = Z
CLOUDFLARE_RECORD_NAME = home.example.com
`

func TestLoadCloudflareINI(t *testing.T) {
	c, err := Load(writeConfig(t, "config.ini", cloudflareINI))
	require.NoError(t, err)

	assert.Equal(t, common.ProviderCloudflare, c.Settings.DNSProvider)
	assert.Equal(t, 60*time.Second, c.Interval())
	assert.Equal(t, "T", c.Cloudflare.APIToken)
	assert.Equal(t, "Z", c.Cloudflare.ZoneID)
	assert.Equal(t, "home.example.com", c.Cloudflare.RecordName)
	assert.Equal(t, DefaultTTL, *c.Cloudflare.TTL)
	assert.False(t, c.Cloudflare.Proxied)
	assert.Contains(t, c.Unused, "settings.AUTO_UPDATE")

	// defaults
	assert.Equal(t, DefaultSources, c.Resolver.Sources)
	assert.Equal(t, common.IPv4, c.Resolver.Family)
	assert.Equal(t, 10*time.Second, time.Duration(*c.Resolver.Timeout))
	assert.True(t, *c.Resolver.ExcludeCloudflare)
	assert.Equal(t, zapcore.InfoLevel, c.Logging.Level.Level())
	assert.Equal(t, int64(DefaultLogMaxBytes), *c.Logging.MaxBytes)
	assert.Equal(t, DefaultLogBackups, *c.Logging.BackupCount)
	assert.Equal(t, "json", c.Logging.Encoding)
}

func TestLoadDynuINI(t *testing.T) {
	c, err := Load(writeConfig(t, "curtsddns.conf", `
[settings]
DNS_PROVIDER = Dynu
CHECK_INTERVAL = 5m

[logging]
LOG_FILE = /var/log/curtsddns.log
LOG_LEVEL = WARNING
LOG_MAX_BYTES = 2048
LOG_BACKUP_COUNT = 2

[resolver]
SOURCES = https://api.ipify.org, dns://resolver1.opendns.com/myip.opendns.com
FAMILY = ipv4
TIMEOUT = 3
EXCLUDE_CLOUDFLARE = no

[dynu]
DYNU_API_KEY = user
DYNU_API_SECRET = secret
DYNU_HOSTNAME = home.dynu.net
`))
	require.NoError(t, err)

	assert.Equal(t, common.ProviderDynu, c.Settings.DNSProvider)
	assert.Equal(t, 5*time.Minute, c.Interval())
	assert.Equal(t, "/var/log/curtsddns.log", c.Logging.File)
	assert.Equal(t, zapcore.WarnLevel, c.Logging.Level.Level())
	assert.Equal(t, int64(2048), *c.Logging.MaxBytes)
	assert.Equal(t, 2, *c.Logging.BackupCount)
	assert.Equal(t, []string{"https://api.ipify.org", "dns://resolver1.opendns.com/myip.opendns.com"}, c.Resolver.Sources)
	assert.Equal(t, 3*time.Second, time.Duration(*c.Resolver.Timeout))
	assert.False(t, *c.Resolver.ExcludeCloudflare)
	assert.Equal(t, "home.dynu.net", c.Dynu.Hostname)
	assert.Equal(t, DefaultDynuEndpoint, c.Dynu.Endpoint)
	assert.Equal(t, DefaultDynuNS, c.Dynu.Nameserver)
	assert.Empty(t, c.Unused)
}

func TestLoadOtherFormats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"config.toml", `
[settings]
DNS_PROVIDER = "cloudflare"
CHECK_INTERVAL = 60

[cloudflare]
CLOUDFLARE_API_TOKEN = "T"
CLOUDFLARE_ZONE_ID = "Z"
CLOUDFLARE_RECORD_NAME = "home.example.com"
CLOUDFLARE_TTL = 300
`},
		{"config.yaml", `
settings:
  dns_provider: cloudflare
  check_interval: 60
cloudflare:
  cloudflare_api_token: T
  cloudflare_zone_id: Z
  cloudflare_record_name: home.example.com
  cloudflare_ttl: 300
`},
		{"config.json", `{
  "settings": {"DNS_PROVIDER": "cloudflare", "CHECK_INTERVAL": 60},
  "cloudflare": {
    "CLOUDFLARE_API_TOKEN": "T",
    "CLOUDFLARE_ZONE_ID": "Z",
    "CLOUDFLARE_RECORD_NAME": "home.example.com",
    "CLOUDFLARE_TTL": 300
  }
}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, tt.name, tt.content))
			require.NoError(t, err)
			assert.Equal(t, common.ProviderCloudflare, c.Settings.DNSProvider)
			assert.Equal(t, time.Minute, c.Interval())
			assert.Equal(t, "home.example.com", c.Cloudflare.RecordName)
			assert.Equal(t, 300, *c.Cloudflare.TTL)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"missing provider", `
[settings]
CHECK_INTERVAL = 60
`, "DNS_PROVIDER is required"},
		{"unsupported provider", `
[settings]
DNS_PROVIDER = route53
`, "unsupported DNS provider"},
		{"zero interval", `
[settings]
DNS_PROVIDER = cloudflare
CHECK_INTERVAL = 0

[cloudflare]
CLOUDFLARE_API_TOKEN = T
CLOUDFLARE_ZONE_ID = Z
CLOUDFLARE_RECORD_NAME = home.example.com
`, "CHECK_INTERVAL must be positive"},
		{"negative interval", `
[settings]
DNS_PROVIDER = cloudflare
CHECK_INTERVAL = -5

[cloudflare]
CLOUDFLARE_API_TOKEN = T
CLOUDFLARE_ZONE_ID = Z
CLOUDFLARE_RECORD_NAME = home.example.com
`, "CHECK_INTERVAL must be positive"},
		{"malformed interval", `
[settings]
DNS_PROVIDER = cloudflare
CHECK_INTERVAL = often
`, "CHECK_INTERVAL"},
		{"missing token", `
[settings]
DNS_PROVIDER = cloudflare

[cloudflare]
CLOUDFLARE_ZONE_ID = Z
CLOUDFLARE_RECORD_NAME = home.example.com
`, "CLOUDFLARE_API_TOKEN is required"},
		{"missing dynu hostname", `
[settings]
DNS_PROVIDER = dynu

[dynu]
DYNU_API_KEY = user
DYNU_API_SECRET = secret
`, "DYNU_HOSTNAME is required"},
		{"both bundles", cloudflareINI + `
[dynu]
DYNU_API_KEY = user
`, "dynu credentials are set"},
		{"bad ttl", cloudflareINI + "CLOUDFLARE_TTL = 5\n", "CLOUDFLARE_TTL"},
		{"bad level", cloudflareINI + "\n[logging]\nLOG_LEVEL = loud\n", "LOG_LEVEL"},
		{"bad source", cloudflareINI + "\n[resolver]\nSOURCES = api.ipify.org\n", "not a URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(writeConfig(t, "config.ini", tt.content))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, common.ErrConfig), "%v", err)
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	assert.Nil(t, c)
	assert.ErrorIs(t, err, common.ErrConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedFile(t *testing.T) {
	c, err := Load(writeConfig(t, "config.json", `{"settings": `))
	assert.Nil(t, c)
	assert.ErrorIs(t, err, common.ErrConfig)
}
