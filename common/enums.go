package common

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f *Family) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "4", "v4", "ipv4":
		*f = IPv4
	case "6", "v6", "ipv6":
		*f = IPv6
	default:
		return errors.New("invalid IP family")
	}
	return nil
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("unknown<%d>", int(f))
	}
}

// RecordType is the DNS record type holding an address of this family.
func (f Family) RecordType() string {
	if f == IPv6 {
		return "AAAA"
	}
	return "A"
}

// Provider selects the DNS provider. The zero value means not configured.
type Provider int

const (
	ProviderUnset Provider = iota
	ProviderCloudflare
	ProviderDynu
)

func (p *Provider) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "cloudflare":
		*p = ProviderCloudflare
	case "dynu":
		*p = ProviderDynu
	default:
		return fmt.Errorf("unsupported DNS provider %q", string(b))
	}
	return nil
}

func (p Provider) String() string {
	switch p {
	case ProviderUnset:
		return "unset"
	case ProviderCloudflare:
		return "cloudflare"
	case ProviderDynu:
		return "dynu"
	default:
		return fmt.Sprintf("unknown<%d>", int(p))
	}
}

// LogLevel accepts zap level names plus the WARNING and CRITICAL spellings.
type LogLevel zapcore.Level

func (l *LogLevel) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	switch s {
	case "warning":
		s = "warn"
	case "critical":
		s = "error"
	}

	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return err
	}

	*l = LogLevel(lvl)
	return nil
}

func (l LogLevel) Level() zapcore.Level {
	return zapcore.Level(l)
}

func (l LogLevel) String() string {
	return zapcore.Level(l).String()
}
