package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"curtsddns/common"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

type Format int

const (
	FormatINI Format = iota
	FormatTOML
	FormatYAML
	FormatJSON
)

// FormatOf picks the file syntax from the path suffix. Anything unknown is INI.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatINI
	}
}

// Load reads, decodes and validates the configuration file at path. Every failure wraps
// common.ErrConfig and no partial Config is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfig, err)
	}

	c, err := Parse(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

func Parse(data []byte, format Format) (*Config, error) {
	raw, err := sections(data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed file: %w", common.ErrConfig, err)
	}

	c := &Config{}
	unused, err := common.WeakDecodeMapUnused(raw, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfig, err)
	}
	c.Unused = unused

	c.setDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func sections(data []byte, format Format) (map[string]any, error) {
	raw := map[string]any{}

	switch format {
	case FormatTOML:
		err := toml.Unmarshal(data, &raw)
		return raw, err
	case FormatYAML:
		err := yaml.Unmarshal(data, &raw)
		return raw, err
	case FormatJSON:
		err := json.Unmarshal(data, &raw)
		return raw, err
	}

	f, err := ini.LoadSources(ini.LoadOptions{SpaceBeforeInlineComment: true}, data)
	if err != nil {
		return nil, err
	}

	for _, sec := range f.Sections() {
		keys := sec.KeysHash()
		if sec.Name() == ini.DefaultSection && len(keys) == 0 {
			continue
		}

		section := make(map[string]any, len(keys))
		for k, v := range keys {
			section[k] = v
		}
		raw[sec.Name()] = section
	}

	return raw, nil
}

func (c *Config) setDefaults() {
	if c.Settings.CheckInterval == nil {
		d := common.Duration(DefaultCheckInterval * time.Second)
		c.Settings.CheckInterval = &d
	}

	if c.Logging.Level == nil {
		lvl := common.LogLevel(zapcore.InfoLevel)
		c.Logging.Level = &lvl
	}
	if c.Logging.MaxBytes == nil {
		n := int64(DefaultLogMaxBytes)
		c.Logging.MaxBytes = &n
	}
	if c.Logging.BackupCount == nil {
		n := DefaultLogBackups
		c.Logging.BackupCount = &n
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = "json"
	}

	c.Resolver.Sources = common.SplitList(c.Resolver.Sources)
	if len(c.Resolver.Sources) == 0 {
		c.Resolver.Sources = append([]string(nil), DefaultSources...)
	}
	if c.Resolver.Timeout == nil {
		d := common.Duration(DefaultTimeout * time.Second)
		c.Resolver.Timeout = &d
	}
	if c.Resolver.ExcludeCloudflare == nil {
		v := true
		c.Resolver.ExcludeCloudflare = &v
	}

	if c.Cloudflare.TTL == nil {
		n := DefaultTTL
		c.Cloudflare.TTL = &n
	}

	if c.Dynu.Endpoint == "" {
		c.Dynu.Endpoint = DefaultDynuEndpoint
	}
	if c.Dynu.Nameserver == "" {
		c.Dynu.Nameserver = DefaultDynuNS
	}
}

// Validate reports every problem found, joined, wrapping common.ErrConfig.
func (c *Config) Validate() error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if c.Settings.CheckInterval == nil || *c.Settings.CheckInterval <= 0 {
		fail("settings.CHECK_INTERVAL must be positive")
	}

	switch c.Settings.DNSProvider {
	case common.ProviderUnset:
		fail("settings.DNS_PROVIDER is required")
	case common.ProviderCloudflare:
		cf := c.Cloudflare
		if cf.APIToken == "" {
			fail("cloudflare.CLOUDFLARE_API_TOKEN is required")
		}
		if cf.ZoneID == "" {
			fail("cloudflare.CLOUDFLARE_ZONE_ID is required")
		}
		if cf.RecordName == "" {
			fail("cloudflare.CLOUDFLARE_RECORD_NAME is required")
		}
		if cf.TTL != nil && *cf.TTL != 1 && (*cf.TTL < 30 || *cf.TTL > 86400) {
			fail("cloudflare.CLOUDFLARE_TTL must be 1 (automatic) or between 30 and 86400")
		}
		if c.Dynu.populated() {
			fail("dynu credentials are set but DNS_PROVIDER is cloudflare")
		}
	case common.ProviderDynu:
		d := c.Dynu
		if d.APIKey == "" {
			fail("dynu.DYNU_API_KEY is required")
		}
		if d.APISecret == "" {
			fail("dynu.DYNU_API_SECRET is required")
		}
		if d.Hostname == "" {
			fail("dynu.DYNU_HOSTNAME is required")
		}
		if _, err := url.Parse(d.Endpoint); err != nil {
			fail("dynu.DYNU_ENDPOINT: %w", err)
		}
		if c.Cloudflare.populated() {
			fail("cloudflare credentials are set but DNS_PROVIDER is dynu")
		}
	}

	if c.Logging.MaxBytes != nil && *c.Logging.MaxBytes < 0 {
		fail("logging.LOG_MAX_BYTES must not be negative")
	}
	if c.Logging.BackupCount != nil && *c.Logging.BackupCount < 0 {
		fail("logging.LOG_BACKUP_COUNT must not be negative")
	}
	if c.Logging.Encoding != "json" && c.Logging.Encoding != "console" {
		fail("logging.LOG_ENCODING must be json or console")
	}

	if c.Resolver.Timeout != nil && *c.Resolver.Timeout <= 0 {
		fail("resolver.TIMEOUT must be positive")
	}
	for _, s := range c.Resolver.Sources {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			fail("resolver.SOURCES: %q is not a URL", s)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", common.ErrConfig, errors.Join(problems...))
	}

	return nil
}

// Interval is the validated poll interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(*c.Settings.CheckInterval)
}
