package ddns

import (
	"context"
	"fmt"
	"net/netip"

	"curtsddns/common"
	"curtsddns/config"
	"curtsddns/log"

	"go.uber.org/zap"
)

// Interface manages the single record this process is configured for.
type Interface interface {
	// CurrentRecord reads the address the provider serves now.
	CurrentRecord(ctx context.Context) (netip.Addr, error)
	// SetRecord points the record at addr. Errors wrap common.ErrAuth, common.ErrRateLimit or
	// common.ErrNetwork.
	SetRecord(ctx context.Context, addr netip.Addr) error
	Typename() string
}

var Providers = map[common.Provider]func(ctx context.Context, c *config.Config) (Interface, error){
	common.ProviderCloudflare: newCloudflare,
	common.ProviderDynu:       newDynu,
}

// New builds the provider selected by DNS_PROVIDER.
func New(ctx context.Context, c *config.Config) (Interface, error) {
	ctx = log.SWith(ctx, log.Stage("init:provider"), "provider", c.Settings.DNSProvider)

	create, ok := Providers[c.Settings.DNSProvider]
	if !ok {
		log.S(ctx).Errorw("unknown provider")
		return nil, fmt.Errorf("%w: unknown provider %s", common.ErrConfig, c.Settings.DNSProvider)
	}

	p, err := create(ctx, c)
	if err != nil {
		log.S(ctx).Errorw("failed loading provider", zap.Error(err))
		return nil, fmt.Errorf("failed loading provider: %w", err)
	}

	return p, nil
}
