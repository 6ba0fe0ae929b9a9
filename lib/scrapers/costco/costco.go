package costco

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mycar-backend/internal/resolve"
	"mycar-backend/internal/vehicle"
	"mycar-backend/lib/restyutil"
	"mycar-backend/lib/telemetry"
	"mycar-backend/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("mycar.lib.scrapers.costco")

const (
	report_battery_part_type = "battery.part-type"
	report_locations_feed    = "locations.feed"
	report_locations_count   = "locations.count"
)

const (
	DefaultBatteryBaseUrl = "https://costco.interstatebatteries.com"
	DefaultTiresBaseUrl   = "https://tires.costco.com"
	// BatteryCategory is the part catalog category battery parts are filed
	// under.
	BatteryCategory = "Battery"
	Brand           = "Costco"
)

// PartTypes is the slice of the part catalog the battery lookup needs.
type PartTypes interface {
	PartTypeByCategory(ctx context.Context, category string) (*vehicle.PartType, error)
}

type Options struct {
	BatteryBaseUrl string
	TiresBaseUrl   string
	Timeout        time.Duration
	// MaxDistance defaults to resolve.MaxLocationDistance.
	MaxDistance float64
	// RequestsPerSecond throttles each session, zero or less disables it.
	RequestsPerSecond float64
	Output            restyutil.InstrumentOutput
	Tel               telemetry.API
	// PartTypes may be nil, battery parts are then returned without a type.
	PartTypes PartTypes
}

// Client opens sessions against the battery and tire sites, it holds no
// per-lookup state.
type Client struct {
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options) *Client {
	if opts.BatteryBaseUrl == "" {
		opts.BatteryBaseUrl = DefaultBatteryBaseUrl
	}
	opts.BatteryBaseUrl = strings.TrimSuffix(opts.BatteryBaseUrl, "/")
	if opts.TiresBaseUrl == "" {
		opts.TiresBaseUrl = DefaultTiresBaseUrl
	}
	opts.TiresBaseUrl = strings.TrimSuffix(opts.TiresBaseUrl, "/")
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MaxDistance == 0 {
		opts.MaxDistance = resolve.MaxLocationDistance
	}
	if opts.Tel == nil {
		opts.Tel = telemetry.SlogAPI{}
	}

	return &Client{
		opts: opts,
		tel:  telemetry.NewScopedAPI("costco", opts.Tel),
	}
}

// Session holds the connections, cookies and limiter of a single lookup.
type Session struct {
	http        *resty.Client
	pool        *http.Transport
	batteryBase string
	tiresBase   string
	maxDistance float64
	partTypes   PartTypes
	tel         telemetry.API
}

func (c *Client) Session() (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	pool := http.DefaultTransport.(*http.Transport).Clone()
	client := resty.NewWithClient(&http.Client{
		Transport: cloudflarebp.AddCloudFlareByPass(pool),
		Jar:       jar,
	})
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(c.opts.Timeout)
	client.SetRetryCount(0)

	restyutil.InstrumentClient(client, tracer, c.opts.Output)
	restyutil.RateLimit(client, restyutil.NewLimiter(c.opts.RequestsPerSecond))

	return &Session{
		http:        client,
		pool:        pool,
		batteryBase: c.opts.BatteryBaseUrl,
		tiresBase:   c.opts.TiresBaseUrl,
		maxDistance: c.opts.MaxDistance,
		partTypes:   c.opts.PartTypes,
		tel:         c.tel,
	}, nil
}

// Close drops the session's idle connections.
func (s *Session) Close() {
	s.pool.CloseIdleConnections()
}

func (s *Session) batteryType(ctx context.Context) (*vehicle.PartType, error) {
	if s.partTypes == nil {
		return nil, nil
	}
	return s.partTypes.PartTypeByCategory(ctx, BatteryCategory)
}

// GetBatteryPart finds the battery that fits a vin and its warehouse price
// at the stores around zip.
func (s *Session) GetBatteryPart(ctx context.Context, vin, zip string) (*vehicle.PartInfo, error) {
	ctx, span := tracer.Start(ctx, "GetBatteryPart")
	defer span.End()

	options, err := restyutil.Fetch(ctx, s.http, restyutil.Request{
		Method: http.MethodPost,
		Url:    s.batteryBase + "/api/battery/GetVehicleOptionsByVin",
		Form:   map[string]string{"vin": vin},
		Kind:   restyutil.KindJson,
	})
	if err != nil {
		return nil, err
	}
	applicationId := textutil.JsonField(options, "ApplicationId")
	if applicationId == "" {
		return nil, resolve.Unavailable("ApplicationId")
	}
	span.SetAttributes(attribute.String("application_id", applicationId))

	query := fmt.Sprintf(
		"key=auto&Program=100500&ZipCode=%s&l=%s&Country=United%%20States&option=%s",
		url.QueryEscape(zip), url.QueryEscape(zip), url.QueryEscape(applicationId),
	)
	results, err := restyutil.Fetch(ctx, s.http, restyutil.Request{
		Method: http.MethodGet,
		Url:    s.batteryBase + "/results?" + query,
		Kind:   restyutil.KindHtml,
	})
	if err != nil {
		return nil, err
	}
	section := resolve.BatterySection(results)
	if section == "" {
		return nil, resolve.Unavailable("battery results")
	}

	partType, err := s.batteryType(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, err
	}
	if err != nil {
		s.tel.ReportWarning(report_battery_part_type, err)
	}

	part := resolve.ParseBatteryPart(section, partType)
	return &part, nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// GetClosestLocations lists the warehouses around a point, closest first,
// up to the configured distance.
func (s *Session) GetClosestLocations(ctx context.Context, zip string, at vehicle.Coordinates) ([]vehicle.ProviderLocation, error) {
	ctx, span := tracer.Start(ctx, "GetClosestLocations")
	defer span.End()

	feed, err := restyutil.Fetch(ctx, s.http, restyutil.Request{
		Method: http.MethodPost,
		Url:    s.tiresBase + "/SearchWarehouseAsync/GetWarehouseDataByLatLong?lang=en-us",
		Form: map[string]string{
			"latitude":    formatCoordinate(at.Latitude),
			"longitude":   formatCoordinate(at.Longitude),
			"datacount":   "0",
			"mtext":       zip,
			"IsSingleton": "0",
		},
		Kind: restyutil.KindJson,
	})
	if err != nil {
		return nil, err
	}

	entries := resolve.ParseLocationFeed(ctx, feed)
	if len(entries) == 0 {
		s.tel.ReportWarning(report_locations_feed, "no warehouses in feed", zip)
		return nil, nil
	}

	locations := resolve.FilterLocations(entries, s.maxDistance)
	for i := range locations {
		locations[i].Brand = Brand
	}
	s.tel.ReportCount(report_locations_count, int64(len(locations)))
	span.SetAttributes(
		attribute.Int("entries", len(entries)),
		attribute.Int("locations", len(locations)),
	)
	return locations, nil
}
