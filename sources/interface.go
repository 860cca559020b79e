package sources

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"curtsddns/common"
	"curtsddns/log"

	"go.uber.org/zap"
)

// networkInterface reads the address straight off a local interface, for hosts that hold
// their public address themselves (iface://eth0).
type networkInterface struct {
	iface  string
	family common.Family
}

func (s *networkInterface) Typename() string {
	return "interface"
}

func (s *networkInterface) Lookup(ctx context.Context) (netip.Addr, error) {
	ctx = log.SWith(ctx, "interface", s.iface, "family", s.family)

	iface, err := net.InterfaceByName(s.iface)
	if err != nil {
		log.S(ctx).Warnw("find interface failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("%w: find interface failed: %w", common.ErrNetwork, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		log.S(ctx).Warnw("get address failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("%w: get address failed: %w", common.ErrNetwork, err)
	}

	return pickInterfaceAddr(ctx, addrs, s.family)
}

// pickInterfaceAddr returns the first global unicast address of the family.
func pickInterfaceAddr(ctx context.Context, addrs []net.Addr, family common.Family) (netip.Addr, error) {
	for _, a := range addrs {
		var ip net.IP
		switch a := a.(type) {
		case *net.IPAddr:
			ip = a.IP
		case *net.IPNet:
			ip = a.IP
		default:
			continue
		}

		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		addr = addr.Unmap()

		if (family == common.IPv4) != addr.Is4() {
			log.S(ctx).Debugw("discard IP", log.Addr(addr), "reason", "family mismatch")
			continue
		}

		if !addr.IsGlobalUnicast() {
			log.S(ctx).Debugw("discard IP", log.Addr(addr), "reason", "ignore non Global Unicast IP")
			continue
		}

		log.S(ctx).Debugw("got ip", log.Addr(addr))
		return addr, nil
	}

	log.S(ctx).Warnw("no eligible IP found")
	return netip.Addr{}, fmt.Errorf("%w: no eligible IP found", common.ErrParse)
}

func newInterface(ctx context.Context, spec Spec) (Interface, error) {
	return &networkInterface{iface: spec.URL.Host, family: spec.Family}, nil
}
