package filters

import (
	"context"
	"fmt"
	"net/netip"

	"curtsddns/common"
	"curtsddns/log"
)

// Special purpose blocks that IsGlobalUnicast still accepts.
var nonGlobal = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
}

type public struct {
	allowPrivate bool
}

func (f *public) Typename() string {
	return "public"
}

func (f *public) Check(ctx context.Context, addr netip.Addr) error {
	reason := ""

	switch {
	case !addr.IsGlobalUnicast():
		reason = "not global unicast"
	case addr.IsPrivate() && !f.allowPrivate:
		reason = "private"
	default:
		for _, p := range nonGlobal {
			if p.Contains(addr) {
				reason = "special purpose range " + p.String()
				break
			}
		}
	}

	if reason != "" {
		log.S(ctx).Warnw("discard IP", log.Addr(addr), "reason", reason)
		return fmt.Errorf("%w: %s is %s", common.ErrParse, addr, reason)
	}

	return nil
}
