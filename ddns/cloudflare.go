package ddns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"curtsddns/common"
	"curtsddns/config"
	"curtsddns/log"

	cfapi "github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

const DefaultMark = "managed by curtsddns"

type cloudflare struct {
	token      string
	zoneID     string
	name       string
	recordType string
	ttl        int
	proxied    bool
	baseURL    string

	// recordID is looked up once unless configured; it is cleared when the record disappears.
	recordID string
	pinnedID bool
}

type logger struct {
	ctx context.Context
}

func (l *logger) Printf(format string, v ...interface{}) {
	log.S(l.ctx).Debugf(format, v...)
}

func (d *cloudflare) Typename() string {
	return "cloudflare"
}

func (d *cloudflare) getAPI(ctx context.Context) (*cfapi.API, *statusRecorder, error) {
	client, rec := recordStatus(common.HttpClient(ctx))

	opts := []cfapi.Option{
		cfapi.HTTPClient(client),
		cfapi.UsingLogger(&logger{ctx: ctx}),
		// a failed cycle is retried by the next one
		cfapi.UsingRetryPolicy(0, 0, 0),
	}
	if d.baseURL != "" {
		opts = append(opts, cfapi.BaseURL(d.baseURL))
	}

	api, err := cfapi.NewWithAPIToken(d.token, opts...)
	if err != nil {
		log.S(ctx).Errorw("failed create cloudflare API", zap.Error(err))
		return nil, nil, fmt.Errorf("failed create cloudflare API: %w", err)
	}

	return api, rec, nil
}

// classify maps a cloudflare-go failure onto the error taxonomy.
func classify(err error, status int) error {
	var authn *cfapi.AuthenticationError
	var authz *cfapi.AuthorizationError
	var limited *cfapi.RatelimitError
	var missing *cfapi.NotFoundError

	switch {
	case errors.As(err, &authn), errors.As(err, &authz),
		status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", common.ErrAuth, err)
	case errors.As(err, &limited), status == http.StatusTooManyRequests,
		strings.Contains(strings.ToLower(err.Error()), "rate limit"):
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case errors.As(err, &missing), status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", common.ErrNoRecord, err)
	default:
		return fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
}

func (d *cloudflare) findRecord(ctx context.Context, api *cfapi.API, rec *statusRecorder) (cfapi.DNSRecord, error) {
	rc := cfapi.ZoneIdentifier(d.zoneID)

	if d.recordID != "" {
		record, err := api.GetDNSRecord(ctx, rc, d.recordID)
		if err != nil {
			log.S(ctx).Warnw("failed get record", "record_id", d.recordID, zap.Error(err))
			return cfapi.DNSRecord{}, classify(err, rec.status())
		}
		return record, nil
	}

	records, _, err := api.ListDNSRecords(ctx, rc, cfapi.ListDNSRecordsParams{
		Type: d.recordType,
		Name: d.name,
	})
	if err != nil {
		log.S(ctx).Warnw("failed list records", zap.Error(err))
		return cfapi.DNSRecord{}, classify(err, rec.status())
	}

	if len(records) == 0 {
		log.S(ctx).Infow("no record found")
		return cfapi.DNSRecord{}, fmt.Errorf("%w: no %s record for %s", common.ErrNoRecord, d.recordType, d.name)
	}

	if len(records) > 1 {
		log.S(ctx).Warnw("found multiple records, using the first", "count", len(records))
	}

	return records[0], nil
}

func (d *cloudflare) CurrentRecord(ctx context.Context) (netip.Addr, error) {
	ctx = log.SWith(ctx, "action", "find", "ns_type", d.recordType, "domain", d.name)

	api, rec, err := d.getAPI(ctx)
	if err != nil {
		return netip.Addr{}, err
	}

	record, err := d.findRecord(ctx, api, rec)
	if err != nil {
		return netip.Addr{}, err
	}

	if !d.pinnedID {
		d.recordID = record.ID
	}

	addr, err := netip.ParseAddr(record.Content)
	if err != nil {
		log.S(ctx).Warnw("record holds a non-address value", "content", record.Content)
		return netip.Addr{}, fmt.Errorf("%w: record content %q: %w", common.ErrParse, record.Content, err)
	}

	log.S(ctx).Debugw("found record", "record_id", record.ID, log.Addr(addr))
	return addr, nil
}

func (d *cloudflare) SetRecord(ctx context.Context, addr netip.Addr) error {
	ctx = log.SWith(ctx,
		"action", "write",
		"ns_type", d.recordType,
		"domain", d.name,
		"address", addr)

	api, rec, err := d.getAPI(ctx)
	if err != nil {
		return err
	}

	if d.recordID == "" {
		record, err := d.findRecord(ctx, api, rec)
		switch {
		case errors.Is(err, common.ErrNoRecord):
			return d.create(ctx, api, rec, addr)
		case err != nil:
			return err
		}
		d.recordID = record.ID
	}

	log.S(ctx).Debugw("updating record", "record_id", d.recordID)

	_, err = api.UpdateDNSRecord(ctx, cfapi.ZoneIdentifier(d.zoneID), cfapi.UpdateDNSRecordParams{
		ID:      d.recordID,
		Type:    d.recordType,
		Name:    d.name,
		Content: addr.String(),
		TTL:     d.ttl,
		Proxied: cfapi.BoolPtr(d.proxied),
	})
	if err != nil {
		log.S(ctx).Warnw("failed update record", zap.Error(err))
		err = classify(err, rec.status())
		if errors.Is(err, common.ErrNoRecord) && !d.pinnedID {
			d.recordID = ""
		}
		return fmt.Errorf("failed update record: %w", err)
	}

	return nil
}

func (d *cloudflare) create(ctx context.Context, api *cfapi.API, rec *statusRecorder, addr netip.Addr) error {
	log.S(ctx).Infow("creating record")

	record, err := api.CreateDNSRecord(ctx, cfapi.ZoneIdentifier(d.zoneID), cfapi.CreateDNSRecordParams{
		Type:    d.recordType,
		Name:    d.name,
		Content: addr.String(),
		TTL:     d.ttl,
		Proxied: cfapi.BoolPtr(d.proxied),
		Comment: DefaultMark,
	})
	if err != nil {
		log.S(ctx).Warnw("failed create record", zap.Error(err))
		return fmt.Errorf("failed create record: %w", classify(err, rec.status()))
	}

	d.recordID = record.ID
	return nil
}

func newCloudflare(ctx context.Context, c *config.Config) (Interface, error) {
	cf := c.Cloudflare

	d := &cloudflare{
		token:      cf.APIToken,
		zoneID:     cf.ZoneID,
		name:       cf.RecordName,
		recordType: c.Resolver.Family.RecordType(),
		ttl:        config.DefaultTTL,
		proxied:    cf.Proxied,
		baseURL:    cf.BaseURL,
		recordID:   cf.RecordID,
		pinnedID:   cf.RecordID != "",
	}
	if cf.TTL != nil {
		d.ttl = *cf.TTL
	}

	// validates the token is well formed
	if _, _, err := d.getAPI(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfig, err)
	}

	return d, nil
}
