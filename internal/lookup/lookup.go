package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mycar-backend/internal/resolve"
	"mycar-backend/internal/vehicle"
	"mycar-backend/lib/restyutil"
	"mycar-backend/lib/telemetry"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("mycar.internal.lookup")
var meter = otel.Meter("mycar.internal.lookup")

var lookupCounter, _ = meter.Int64Counter(
	"lookups",
	metric.WithDescription("vehicle lookups by outcome"),
)

const (
	report_lookup_start      = "lookup started"
	report_lookup_failed     = "failed"
	report_lookup_panic      = "panic"
	report_optional_step     = "optional-step"
	report_provider_session  = "provider-session"
	report_field_unavailable = "field-unavailable"
)

const (
	DefaultDeadline = time.Second * 10
	DefaultMake     = "Honda"
)

// VendorAPI is the manufacturer's vehicle data source.
type VendorAPI interface {
	GetProduct(ctx context.Context, vin string) (vehicle.Payload, error)
	GetSpecifications(ctx context.Context, modelId string) (vehicle.Payload, error)
	GetManuals(ctx context.Context, vin string) (vehicle.Payload, error)
	Close()
}

// ProviderAPI is a parts and service provider, every call to it is best
// effort.
type ProviderAPI interface {
	GetBatteryPart(ctx context.Context, vin, zip string) (*vehicle.PartInfo, error)
	GetClosestLocations(ctx context.Context, zip string, at vehicle.Coordinates) ([]vehicle.ProviderLocation, error)
	Close()
}

// VendorSessions opens the vendor connection of a single lookup. Sessions
// are never reused, connections, cookies and rate limits stay with the
// lookup that opened them and are closed when it ends.
type VendorSessions func() (VendorAPI, error)

// ProviderSessions is VendorSessions for the provider.
type ProviderSessions func() (ProviderAPI, error)

type Config struct {
	// Deadline bounds a whole lookup, every remote call included.
	Deadline time.Duration
	Make     string
}

type Service struct {
	vendor   VendorSessions
	provider ProviderSessions
	cfg      Config
	tel      telemetry.API
}

// NewService creates a lookup service, provider may be nil in which case
// battery and location lookups are skipped.
func NewService(vendor VendorSessions, provider ProviderSessions, cfg Config, tel telemetry.API) Service {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.Make == "" {
		cfg.Make = DefaultMake
	}
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return Service{
		vendor:   vendor,
		provider: provider,
		cfg:      cfg,
		tel:      telemetry.NewScopedAPI("lookup", tel),
	}
}

// FailureNote renders a lookup error the way it is reported to operators.
func FailureNote(err error) string {
	switch {
	case errors.Is(err, restyutil.ErrRequestTimedOut):
		return fmt.Sprintf("Request timed out: %v", err)
	case errors.Is(err, restyutil.ErrRequestFailed):
		return fmt.Sprintf("Request failed: %v", err)
	case errors.Is(err, resolve.ErrMalformedData):
		return fmt.Sprintf("Malformed data: %v", err)
	default:
		return fmt.Sprintf("Lookup failed: %v", err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, restyutil.ErrRequestTimedOut):
		return "timeout"
	case errors.Is(err, restyutil.ErrRequestFailed):
		return "request_failed"
	case errors.Is(err, resolve.ErrMalformedData):
		return "malformed"
	case errors.Is(err, errStepPanicked):
		return "panic"
	default:
		return "error"
	}
}

func (s Service) merge(st *state) *vehicle.Record {
	record := &vehicle.Record{
		VIN:             st.vin,
		Make:            s.cfg.Make,
		Model:           st.primary.Model,
		Trim:            st.primary.Trim,
		Year:            st.primary.Year,
		BodyStyle:       st.primary.BodyStyle,
		ModelId:         st.primary.ModelId,
		ColorName:       st.primary.ColorName,
		ColorCode:       st.primary.ColorCode,
		Wheels:          st.specs.Wheels,
		TireSize:        st.specs.TireSize,
		SpareTireSize:   st.specs.SpareTireSize,
		FuelTank:        st.specs.FuelTank,
		FuelType:        st.specs.FuelType,
		MileageCity:     st.specs.Mileage.City,
		MileageHighway:  st.specs.Mileage.Highway,
		MileageCombined: st.specs.Mileage.Combined,
		OwnersManualUrl: st.manualUrl,
		Battery:         st.battery,
		Locations:       st.locations,
	}
	record.Name = record.DisplayName()
	return record
}

// openSessions gives the lookup its own vendor session and, when a
// provider step will run, its own provider session. A provider that cannot
// open a session only costs the optional steps.
func (s Service) openSessions(st *state) error {
	vendor, err := s.vendor()
	if err != nil {
		return fmt.Errorf("open vendor session: %w", err)
	}
	st.vendor = vendor

	if s.provider == nil || (st.zip == "" && st.hint == nil) {
		return nil
	}
	provider, err := s.provider()
	if err != nil {
		s.tel.ReportWarning(report_provider_session, err)
		return nil
	}
	st.provider = provider
	return nil
}

func (s Service) lookup(ctx context.Context, st *state) (*vehicle.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Deadline)
	defer cancel()

	err := s.openSessions(st)
	if err != nil {
		return nil, err
	}
	defer st.closeSessions()

	err = s.execute(ctx, st, s.newPlan(st))
	if err != nil {
		return nil, err
	}
	// an optional step may have been the one to run out the clock
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", restyutil.ErrRequestTimedOut, ctx.Err())
	}
	return s.merge(st), nil
}

// LookupVehicle resolves everything known about a vin. zip and hint scope
// the provider lookups, hint may be nil. The record is only returned when
// every required call succeeded, a failure is reported through telemetry
// and yields false.
func (s Service) LookupVehicle(ctx context.Context, vin, zip string, hint *vehicle.Coordinates) (record *vehicle.Record, ok bool) {
	ctx, span := tracer.Start(ctx, "LookupVehicle")
	defer span.End()

	id, err := random.String(8)
	if err != nil {
		id = "unknown"
	}
	span.SetAttributes(
		attribute.String("lookup_id", id),
		attribute.String("vin", vin),
	)

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err := fmt.Errorf("%v", r)
		s.tel.ReportBroken(report_lookup_panic, err, id, vin)
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup panicked")
		lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "panic")))
		record, ok = nil, false
	}()

	vin = strings.TrimSpace(vin)
	s.tel.ReportDebug(report_lookup_start, id, vin, zip)

	record, err = s.lookup(ctx, &state{
		vin:  vin,
		zip:  strings.TrimSpace(zip),
		hint: hint,
	})
	lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	if err != nil {
		s.tel.ReportBroken(report_lookup_failed, errors.New(FailureNote(err)), id, vin)
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, false
	}
	return record, true
}

// UpdateVehicle accepts an edited record. Records are not persisted yet,
// it always reports success.
func (s Service) UpdateVehicle(ctx context.Context, record *vehicle.Record) bool {
	_, span := tracer.Start(ctx, "UpdateVehicle")
	defer span.End()

	if record != nil {
		s.tel.ReportDebug("update vehicle", record.VIN)
	}
	return true
}
