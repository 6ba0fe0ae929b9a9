package honda

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"mycar-backend/internal/vehicle"
	"mycar-backend/lib/restyutil"
	"mycar-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("mycar.lib.scrapers.honda")

const (
	report_aura_call         = "aura.call"
	report_aura_action_error = "aura.action-error"
)

const DefaultBaseUrl = "https://mygarage.honda.com"

// ErrActionState is returned when the aura endpoint answers 200 but marks
// the action itself as failed.
var ErrActionState = errors.New("aura action returned an error state")

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout bounds a single request, the caller's context still applies.
	Timeout time.Duration
	// RequestsPerSecond throttles each session, zero or less disables it.
	RequestsPerSecond float64
	// Output receives full request/response dumps when set.
	Output restyutil.InstrumentOutput
	Tel    telemetry.API
}

// Client opens sessions against the garage site. It only holds
// configuration, everything stateful belongs to a Session.
type Client struct {
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options) *Client {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	opts.BaseUrl = strings.TrimSuffix(opts.BaseUrl, "/")
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.Tel == nil {
		opts.Tel = telemetry.SlogAPI{}
	}

	return &Client{
		opts: opts,
		tel:  telemetry.NewScopedAPI("honda", opts.Tel),
	}
}

// Session is the connection state of a single lookup, it is safe for the
// concurrent calls of that lookup.
type Session struct {
	http *resty.Client
	pool *http.Transport
	tel  telemetry.API
}

// Session starts a session with its own connections, an empty cookie jar
// and its own limiter. Close it once the lookup is done.
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
	client.SetBaseURL(c.opts.BaseUrl)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(c.opts.Timeout)
	client.SetRetryCount(0)

	restyutil.InstrumentClient(client, tracer, c.opts.Output)
	restyutil.RateLimit(client, restyutil.NewLimiter(c.opts.RequestsPerSecond))

	return &Session{http: client, pool: pool, tel: c.tel}, nil
}

// Close drops the session's idle connections, requests still in flight
// close theirs when they finish.
func (s *Session) Close() {
	s.pool.CloseIdleConnections()
}

func (s *Session) call(ctx context.Context, a action, source vehicle.Source, params any) (vehicle.Payload, error) {
	ctx, span := tracer.Start(ctx, "call:"+a.method)
	defer span.End()
	span.SetAttributes(attribute.String("page", a.page))

	form, err := a.form(params)
	if err != nil {
		return vehicle.Payload{}, err
	}

	s.tel.ReportDebug(report_aura_call, a.controller, a.method)
	body, err := restyutil.Fetch(ctx, s.http, restyutil.Request{
		Method: http.MethodPost,
		Url:    a.path(),
		Form:   form,
		Kind:   restyutil.KindJson,
	})
	if err != nil {
		return vehicle.Payload{}, err
	}

	if strings.Contains(body, `"state":"ERROR"`) {
		s.tel.ReportWarning(report_aura_action_error, a.method)
		return vehicle.Payload{}, &restyutil.RequestError{
			Method: http.MethodPost,
			Url:    a.path(),
			Status: http.StatusOK,
			Err:    ErrActionState,
		}
	}

	return vehicle.Payload{Source: source, Body: body}, nil
}

// GetProduct fetches the garage record of a vin.
func (s *Session) GetProduct(ctx context.Context, vin string) (vehicle.Payload, error) {
	return s.call(ctx, actionProduct, vehicle.SourcePrimary, productParams{
		DivisionId:   "A",
		Vin:          strings.ToLower(vin),
		DivisionName: "Honda",
	})
}

// GetSpecifications fetches the specification sheet of a model.
func (s *Session) GetSpecifications(ctx context.Context, modelId string) (vehicle.Payload, error) {
	return s.call(ctx, actionSpecifications, vehicle.SourceSpecifications, specificationsParams{
		ModelId:    modelId,
		DivisionId: "A",
	})
}

// GetManuals fetches the manuals published for a vin.
func (s *Session) GetManuals(ctx context.Context, vin string) (vehicle.Payload, error) {
	return s.call(ctx, actionManuals, vehicle.SourceManuals, manualsParams{
		ProductIdentifier: vin,
		DivisionId:        "A",
		Division:          "Honda",
	})
}
