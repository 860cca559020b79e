package config

import (
	"curtsddns/common"
)

const (
	DefaultCheckInterval = 60
	DefaultTTL           = 120
	DefaultLogMaxBytes   = 1048576
	DefaultLogBackups    = 5
	DefaultTimeout       = 10
	DefaultDynuEndpoint  = "https://api.dynu.com/nic/update"
	DefaultDynuNS        = "ns1.dynu.com:53"
)

var DefaultSources = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
	"https://checkmyip.app",
}

type Config struct {
	Settings   Settings   `mapstructure:"settings"`
	Logging    Logging    `mapstructure:"logging"`
	Resolver   Resolver   `mapstructure:"resolver"`
	Cloudflare Cloudflare `mapstructure:"cloudflare"`
	Dynu       Dynu       `mapstructure:"dynu"`

	// Unused lists keys found in the file that nothing reads, as "section.KEY".
	Unused []string `mapstructure:"-"`
}

type Settings struct {
	DNSProvider   common.Provider  `mapstructure:"DNS_PROVIDER"`
	CheckInterval *common.Duration `mapstructure:"CHECK_INTERVAL"`
	Name          string           `mapstructure:"NAME"`
}

type Logging struct {
	File        string           `mapstructure:"LOG_FILE"`
	Level       *common.LogLevel `mapstructure:"LOG_LEVEL"`
	MaxBytes    *int64           `mapstructure:"LOG_MAX_BYTES"`
	BackupCount *int             `mapstructure:"LOG_BACKUP_COUNT"`
	Encoding    string           `mapstructure:"LOG_ENCODING"`
}

type Resolver struct {
	Sources           []string         `mapstructure:"SOURCES"`
	Family            common.Family    `mapstructure:"FAMILY"`
	Timeout           *common.Duration `mapstructure:"TIMEOUT"`
	AllowPrivate      bool             `mapstructure:"ALLOW_PRIVATE"`
	ExcludeCloudflare *bool            `mapstructure:"EXCLUDE_CLOUDFLARE"`
}

type Cloudflare struct {
	APIToken   string `mapstructure:"CLOUDFLARE_API_TOKEN"`
	ZoneID     string `mapstructure:"CLOUDFLARE_ZONE_ID"`
	RecordName string `mapstructure:"CLOUDFLARE_RECORD_NAME"`
	RecordID   string `mapstructure:"CLOUDFLARE_RECORD_ID"`
	TTL        *int   `mapstructure:"CLOUDFLARE_TTL"`
	Proxied    bool   `mapstructure:"CLOUDFLARE_PROXIED"`
	BaseURL    string `mapstructure:"CLOUDFLARE_API_BASE"`
}

func (c Cloudflare) populated() bool {
	return c.APIToken != "" || c.ZoneID != "" || c.RecordName != "" || c.RecordID != ""
}

type Dynu struct {
	APIKey     string `mapstructure:"DYNU_API_KEY"`
	APISecret  string `mapstructure:"DYNU_API_SECRET"`
	Hostname   string `mapstructure:"DYNU_HOSTNAME"`
	Endpoint   string `mapstructure:"DYNU_ENDPOINT"`
	Nameserver string `mapstructure:"DYNU_NAMESERVER"`
}

func (d Dynu) populated() bool {
	return d.APIKey != "" || d.APISecret != "" || d.Hostname != ""
}
