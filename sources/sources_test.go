package sources

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"curtsddns/common"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSource(t *testing.T, source string) Interface {
	t.Helper()
	s, err := New(context.Background(), source, common.IPv4, 2*time.Second)
	require.NoError(t, err)
	return s
}

func TestSimpleLookup(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", "203.0.113.7\n", "203.0.113.7"},
		{"first token", "  198.51.100.1 extra words", "198.51.100.1"},
		{"json", `{"ip":"203.0.113.9"}`, "203.0.113.9"},
		{"json query key", `{"status":"success","query":"203.0.113.10"}`, "203.0.113.10"},
		{"mapped", "::ffff:203.0.113.11", "203.0.113.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := echoServer(t, http.StatusOK, tt.body)
			s := newSource(t, srv.URL)
			assert.Equal(t, "simple", s.Typename())

			addr, err := s.Lookup(context.Background())
			require.NoError(t, err)
			assert.Equal(t, netip.MustParseAddr(tt.want), addr)
		})
	}
}

func TestSimpleLookupErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, "203.0.113.7", common.ErrNetwork},
		{"not found", http.StatusNotFound, "", common.ErrNetwork},
		{"html", http.StatusOK, "<html>hello</html>", common.ErrParse},
		{"empty", http.StatusOK, "  \n", common.ErrParse},
		{"bad json", http.StatusOK, `{"ip":`, common.ErrParse},
		{"json without ip", http.StatusOK, `{"addr":"x"}`, common.ErrParse},
		{"wrong family", http.StatusOK, "2001:db8::1", common.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := echoServer(t, tt.status, tt.body)
			_, err := newSource(t, srv.URL).Lookup(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSimpleLookupUnreachable(t *testing.T) {
	srv := echoServer(t, http.StatusOK, "203.0.113.7")
	url := srv.URL
	srv.Close()

	_, err := newSource(t, url).Lookup(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)
}

func TestSimpleLookupUsesContextClient(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "curtsddns", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("203.0.113.7"))
	}))
	defer srv.Close()

	ctx := context.WithValue(context.Background(), common.HttpClientKey, &http.Client{Timeout: time.Second})
	_, err := newSource(t, srv.URL).Lookup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestParseTrace(t *testing.T) {
	body := "fl=1f1\nh=www.cloudflare.com\nip=203.0.113.7\nts=1700000000.1\n"
	assert.Equal(t, "203.0.113.7", parseTrace([]byte(body)))
	assert.Equal(t, "", parseTrace([]byte("fl=1f1\n")))
}

func TestCloudflareTraceLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cdn-cgi/trace", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Host, defaultCloudflareDomain), r.Host)
		_, _ = w.Write([]byte("h=www.cloudflare.com\nip=198.51.100.4\n"))
	}))
	defer srv.Close()

	// An IP literal pins the connection while the request still names www.cloudflare.com.
	port := srv.Listener.Addr().(*net.TCPAddr).Port
	s := newSource(t, "cftrace://127.0.0.1:"+strconv.Itoa(port)+"?scheme=http")
	assert.Equal(t, "cf-trace", s.Typename())

	addr, err := s.Lookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("198.51.100.4"), addr)
}

func dnsServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() {
		_ = srv.ActivateAndServe()
	}()
	<-started
	t.Cleanup(func() {
		_ = srv.Shutdown()
	})

	return pc.LocalAddr().String()
}

func TestDNSLookup(t *testing.T) {
	addr := dnsServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)

		q := r.Question[0]
		switch {
		case q.Name == "myip.opendns.com." && q.Qtype == dns.TypeA:
			rr, _ := dns.NewRR("myip.opendns.com. 0 IN A 203.0.113.50")
			m.Answer = append(m.Answer, rr)
		case q.Name == "o-o.myaddr.l.google.com." && q.Qtype == dns.TypeTXT:
			rr, _ := dns.NewRR(`o-o.myaddr.l.google.com. 60 IN TXT "203.0.113.51"`)
			m.Answer = append(m.Answer, rr)
		default:
			m.Rcode = dns.RcodeNameError
		}

		_ = w.WriteMsg(m)
	})

	t.Run("default name", func(t *testing.T) {
		s := newSource(t, "dns://"+addr)
		assert.Equal(t, "dns", s.Typename())

		got, err := s.Lookup(context.Background())
		require.NoError(t, err)
		assert.Equal(t, netip.MustParseAddr("203.0.113.50"), got)
	})

	t.Run("txt", func(t *testing.T) {
		got, err := newSource(t, "dns://"+addr+"/o-o.myaddr.l.google.com?type=txt").Lookup(context.Background())
		require.NoError(t, err)
		assert.Equal(t, netip.MustParseAddr("203.0.113.51"), got)
	})

	t.Run("nxdomain", func(t *testing.T) {
		_, err := newSource(t, "dns://"+addr+"/unknown.example").Lookup(context.Background())
		assert.ErrorIs(t, err, common.ErrNetwork)
	})
}

func TestDNSLookupEmptyAnswer(t *testing.T) {
	addr := dnsServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		_ = w.WriteMsg(m)
	})

	_, err := newSource(t, "dns://"+addr).Lookup(context.Background())
	assert.ErrorIs(t, err, common.ErrParse)
}

func TestNewSourceErrors(t *testing.T) {
	for _, source := range []string{"ftp://example.com", "dns://resolver1.opendns.com?type=MX", "://"} {
		_, err := New(context.Background(), source, common.IPv4, time.Second)
		assert.ErrorIs(t, err, common.ErrConfig, source)
	}
}

func TestPickInterfaceAddr(t *testing.T) {
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("2001:db8::5"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("203.0.113.8"), Mask: net.CIDRMask(24, 32)},
	}

	got, err := pickInterfaceAddr(context.Background(), addrs, common.IPv4)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("203.0.113.8"), got)

	got, err = pickInterfaceAddr(context.Background(), addrs, common.IPv6)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("2001:db8::5"), got)

	_, err = pickInterfaceAddr(context.Background(), addrs[:2], common.IPv4)
	assert.ErrorIs(t, err, common.ErrParse)
}

func TestInterfaceLookupMissing(t *testing.T) {
	_, err := newSource(t, "iface://does-not-exist0").Lookup(context.Background())
	assert.ErrorIs(t, err, common.ErrNetwork)
}
