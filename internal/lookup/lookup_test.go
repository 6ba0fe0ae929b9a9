package lookup

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mycar-backend/internal/vehicle"
	"mycar-backend/lib/restyutil"
	"mycar-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const productBody = `{"actions":[{"state":"SUCCESS","returnValue":{"returnValue":"{"modelId":"FE2F5NJW","modelGroupName":"Civic Sedan","year":"2022","trim":"EX w/Leather","color":{"name":"Platinum White Pearl","mfg_color_cd":"NH-883P"}}"}}]}`

const specsBody = `<div><span class="Wheels">17-Inch Alloy Wheels</span>` +
	`<span class="All-Season Tires">235/40 R18 95W</span>` +
	`<span class="Compact Spare Tire">T125/70 D17</span>` +
	`<span class="Fuel Tank Capacity">12.4 gal.</span>` +
	`<span class="Required Fuel">Regular Unleaded</span>` +
	`<span class="(City/Highway/Combined)">31 / 38 / 34</span></div>`

const manualsBody = `{"isMultiple":false,"url":"https://example.com/civic-sedan.pdf"}`

type payloadFunc func(ctx context.Context, arg string) (vehicle.Payload, error)

func respond(source vehicle.Source, body string) payloadFunc {
	return func(context.Context, string) (vehicle.Payload, error) {
		return vehicle.Payload{Source: source, Body: body}, nil
	}
}

func fail(status int) payloadFunc {
	return func(context.Context, string) (vehicle.Payload, error) {
		return vehicle.Payload{}, &restyutil.RequestError{Method: http.MethodPost, Url: "/fake", Status: status}
	}
}

func block(ctx context.Context, _ string) (vehicle.Payload, error) {
	<-ctx.Done()
	return vehicle.Payload{}, &restyutil.TimeoutError{Method: http.MethodPost, Url: "/fake", Err: ctx.Err()}
}

type fakeVendor struct {
	product        payloadFunc
	specifications payloadFunc
	manuals        payloadFunc

	productCalls        atomic.Int32
	specificationsCalls atomic.Int32
	manualsCalls        atomic.Int32
	sessions            atomic.Int32
	closed              atomic.Int32

	mutex    sync.Mutex
	received map[string][]string
}

func newFakeVendor() *fakeVendor {
	return &fakeVendor{
		product:        respond(vehicle.SourcePrimary, productBody),
		specifications: respond(vehicle.SourceSpecifications, specsBody),
		manuals:        respond(vehicle.SourceManuals, manualsBody),
		received:       map[string][]string{},
	}
}

func (f *fakeVendor) session() (VendorAPI, error) {
	f.sessions.Add(1)
	return f, nil
}

func (f *fakeVendor) Close() {
	f.closed.Add(1)
}

func (f *fakeVendor) record(method, arg string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.received[method] = append(f.received[method], arg)
}

func (f *fakeVendor) args(method string) []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.received[method]...)
}

func (f *fakeVendor) GetProduct(ctx context.Context, vin string) (vehicle.Payload, error) {
	f.productCalls.Add(1)
	f.record("GetProduct", vin)
	return f.product(ctx, vin)
}

func (f *fakeVendor) GetSpecifications(ctx context.Context, modelId string) (vehicle.Payload, error) {
	f.specificationsCalls.Add(1)
	f.record("GetSpecifications", modelId)
	return f.specifications(ctx, modelId)
}

func (f *fakeVendor) GetManuals(ctx context.Context, vin string) (vehicle.Payload, error) {
	f.manualsCalls.Add(1)
	f.record("GetManuals", vin)
	return f.manuals(ctx, vin)
}

type fakeProvider struct {
	battery   func(ctx context.Context) (*vehicle.PartInfo, error)
	locations func(ctx context.Context) ([]vehicle.ProviderLocation, error)

	batteryCalls   atomic.Int32
	locationsCalls atomic.Int32
	sessions       atomic.Int32
	closed         atomic.Int32

	mutex        sync.Mutex
	batteryZip   string
	locationsZip string
	locationsAt  vehicle.Coordinates
}

var testBattery = &vehicle.PartInfo{
	Name:      "Battery",
	SpecValue: "48",
	Cost:      149.99,
	TypeId:    1,
	Type:      &vehicle.PartType{Id: 1, Name: "Battery", Category: "Battery"},
}

var testLocations = []vehicle.ProviderLocation{
	{
		Name:     "Mountain View",
		Brand:    "Costco",
		Category: vehicle.CategoryServiceCenter,
		Address:  "1000 N Rengstorff Ave\nMountain View, CA 94043",
		Distance: 1.2,
		StoreId:  "143",
	},
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		battery: func(context.Context) (*vehicle.PartInfo, error) {
			return testBattery, nil
		},
		locations: func(context.Context) ([]vehicle.ProviderLocation, error) {
			return testLocations, nil
		},
	}
}

func (f *fakeProvider) session() (ProviderAPI, error) {
	f.sessions.Add(1)
	return f, nil
}

func (f *fakeProvider) Close() {
	f.closed.Add(1)
}

func (f *fakeProvider) GetBatteryPart(ctx context.Context, vin, zip string) (*vehicle.PartInfo, error) {
	f.batteryCalls.Add(1)
	f.mutex.Lock()
	f.batteryZip = zip
	f.mutex.Unlock()
	return f.battery(ctx)
}

func (f *fakeProvider) GetClosestLocations(ctx context.Context, zip string, at vehicle.Coordinates) ([]vehicle.ProviderLocation, error) {
	f.locationsCalls.Add(1)
	f.mutex.Lock()
	f.locationsZip = zip
	f.locationsAt = at
	f.mutex.Unlock()
	return f.locations(ctx)
}

const testVin = "1HGFE2F5XNA000000"

var testHint = &vehicle.Coordinates{Latitude: 37.422, Longitude: -122.084}

func failures(tel *telemetry.RecordingAPI) []string {
	var notes []string
	for _, r := range tel.Reports("broken") {
		if len(r.Params) > 0 {
			if err, ok := r.Params[0].(error); ok {
				notes = append(notes, r.Id+": "+err.Error())
			}
		}
	}
	return notes
}

func TestLookupVehicle(t *testing.T) {
	vendor := newFakeVendor()
	provider := newFakeProvider()
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, provider.session, Config{}, tel)

	record, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.True(t, ok)

	expected := &vehicle.Record{
		VIN:             testVin,
		Name:            "2022 Honda Civic EX-L",
		Make:            "Honda",
		Model:           "Civic",
		Trim:            "EX-L",
		Year:            "2022",
		BodyStyle:       "Sedan",
		ModelId:         "FE2F5NJW",
		ColorName:       "Platinum White Pearl",
		ColorCode:       "NH-883P",
		Wheels:          "17-Inch Alloy Wheels",
		TireSize:        "235/40 R18 95W",
		SpareTireSize:   "T125/70 D17",
		FuelTank:        "12.4 gal.",
		FuelType:        "Regular Unleaded",
		MileageCity:     "31",
		MileageHighway:  "38",
		MileageCombined: "34",
		OwnersManualUrl: "https://example.com/civic-sedan.pdf",
		Battery:         testBattery,
		Locations:       testLocations,
	}
	if diff := cmp.Diff(expected, record); diff != "" {
		t.Fatal(diff)
	}

	require.Empty(t, tel.Reports("broken"))
	require.Empty(t, tel.Reports("warning"))
	require.EqualValues(t, 1, vendor.specificationsCalls.Load())
	require.EqualValues(t, 1, provider.batteryCalls.Load())
	require.EqualValues(t, 1, provider.locationsCalls.Load())

	// dependent calls are fed from the primary record
	require.Equal(t, []string{testVin}, vendor.args("GetProduct"))
	require.Equal(t, []string{"FE2F5NJW"}, vendor.args("GetSpecifications"))
	require.Equal(t, []string{testVin}, vendor.args("GetManuals"))
	require.Equal(t, "94043", provider.batteryZip)
	require.Equal(t, "94043", provider.locationsZip)
	require.Equal(t, *testHint, provider.locationsAt)
}

func TestModelIdFeedsSpecifications(t *testing.T) {
	vendor := newFakeVendor()
	vendor.product = respond(vehicle.SourcePrimary, `{"modelId":"RW1H9MKW","modelGroupName":"CR-V Sport Utility","year":"2021","trim":"EX"}`)
	var requested string
	vendor.specifications = func(_ context.Context, modelId string) (vehicle.Payload, error) {
		requested = modelId
		return vehicle.Payload{Source: vehicle.SourceSpecifications, Body: specsBody}, nil
	}
	service := NewService(vendor.session, nil, Config{}, &telemetry.RecordingAPI{})

	record, ok := service.LookupVehicle(context.Background(), " "+testVin+" ", "", nil)
	require.True(t, ok)
	require.Equal(t, "RW1H9MKW", requested)
	require.Equal(t, "RW1H9MKW", record.ModelId)
	require.Equal(t, []string{testVin}, vendor.args("GetManuals"))
}

func TestEveryLookupOpensItsOwnSessions(t *testing.T) {
	vendor := newFakeVendor()
	provider := newFakeProvider()
	service := NewService(vendor.session, provider.session, Config{}, &telemetry.RecordingAPI{})

	results := make([]bool, 4)
	var group sync.WaitGroup
	for i := range results {
		group.Add(1)
		go func(i int) {
			defer group.Done()
			_, results[i] = service.LookupVehicle(context.Background(), testVin, "94043", testHint)
		}(i)
	}
	group.Wait()
	require.Equal(t, []bool{true, true, true, true}, results)

	require.EqualValues(t, 4, vendor.sessions.Load())
	require.EqualValues(t, 4, provider.sessions.Load())

	// no provider step, no provider session
	_, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
	require.True(t, ok)
	require.EqualValues(t, 5, vendor.sessions.Load())
	require.EqualValues(t, 4, provider.sessions.Load())

	require.EqualValues(t, 5, vendor.closed.Load())
	require.EqualValues(t, 4, provider.closed.Load())
}

func TestFailedLookupClosesSessions(t *testing.T) {
	vendor := newFakeVendor()
	vendor.manuals = fail(http.StatusInternalServerError)
	provider := newFakeProvider()
	service := NewService(vendor.session, provider.session, Config{}, &telemetry.RecordingAPI{})

	_, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.False(t, ok)
	require.EqualValues(t, 1, vendor.closed.Load())
	require.EqualValues(t, 1, provider.closed.Load())
}

func TestVendorSessionFailureFails(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	service := NewService(func() (VendorAPI, error) {
		return nil, errors.New("no cookie jar")
	}, nil, Config{}, tel)

	_, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
	require.False(t, ok)
	require.Contains(t, failures(tel)[0], "open vendor session")
}

func TestProviderSessionFailureIsWarning(t *testing.T) {
	tel := &telemetry.RecordingAPI{}
	service := NewService(newFakeVendor().session, func() (ProviderAPI, error) {
		return nil, errors.New("no cookie jar")
	}, Config{}, tel)

	record, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.True(t, ok)
	require.Nil(t, record.Battery)
	require.Nil(t, record.Locations)

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "lookup."+report_provider_session, warnings[0].Id)
}

func TestPrimaryFailureSkipsDependentCalls(t *testing.T) {
	vendor := newFakeVendor()
	vendor.product = fail(http.StatusInternalServerError)
	provider := newFakeProvider()
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, provider.session, Config{}, tel)

	record, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.False(t, ok)
	require.Nil(t, record)

	require.Zero(t, vendor.specificationsCalls.Load())
	require.Zero(t, vendor.manualsCalls.Load())
	require.Zero(t, provider.batteryCalls.Load())

	notes := failures(tel)
	require.Len(t, notes, 1)
	require.True(t, strings.HasPrefix(notes[0], "lookup.failed: Request failed:"), notes[0])
}

func TestMissingModelIdFails(t *testing.T) {
	vendor := newFakeVendor()
	vendor.product = respond(vehicle.SourcePrimary, `{"actions":[{"state":"SUCCESS","returnValue":null}]}`)
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, nil, Config{}, tel)

	_, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
	require.False(t, ok)
	require.Zero(t, vendor.specificationsCalls.Load())
	require.Contains(t, failures(tel)[0], "Malformed data")
}

func TestOptionalFailureKeepsSuccess(t *testing.T) {
	vendor := newFakeVendor()
	provider := newFakeProvider()
	provider.battery = func(context.Context) (*vehicle.PartInfo, error) {
		return nil, &restyutil.RequestError{Method: http.MethodGet, Url: "/results", Status: http.StatusBadGateway}
	}
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, provider.session, Config{}, tel)

	record, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.True(t, ok)
	require.Nil(t, record.Battery)
	require.Equal(t, testLocations, record.Locations)
	require.Equal(t, "31", record.MileageCity)

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, "lookup."+report_optional_step, warnings[0].Id)
	require.Empty(t, tel.Reports("broken"))
}

func TestRequiredParallelFailureCancelsGroup(t *testing.T) {
	vendor := newFakeVendor()
	vendor.manuals = fail(http.StatusNotFound)

	var cancelled atomic.Bool
	provider := newFakeProvider()
	provider.battery = func(ctx context.Context) (*vehicle.PartInfo, error) {
		<-ctx.Done()
		cancelled.Store(true)
		return nil, ctx.Err()
	}
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, provider.session, Config{Deadline: time.Second * 5}, tel)

	start := time.Now()
	record, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.False(t, ok)
	require.Nil(t, record)
	require.Less(t, time.Since(start), time.Second*2)
	require.True(t, cancelled.Load())

	notes := failures(tel)
	require.Len(t, notes, 1)
	require.Contains(t, notes[0], "manuals")
}

func TestDeadlineExpiryFails(t *testing.T) {
	vendor := newFakeVendor()
	vendor.specifications = block
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, newFakeProvider().session, Config{Deadline: time.Millisecond * 50}, tel)

	start := time.Now()
	_, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.False(t, ok)
	require.Less(t, time.Since(start), time.Second*2)

	notes := failures(tel)
	require.Len(t, notes, 1)
	require.Contains(t, notes[0], "Request timed out")
}

func TestOptionalStepPastDeadlineFails(t *testing.T) {
	provider := newFakeProvider()
	provider.locations = func(ctx context.Context) ([]vehicle.ProviderLocation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	tel := &telemetry.RecordingAPI{}
	service := NewService(newFakeVendor().session, provider.session, Config{Deadline: time.Millisecond * 50}, tel)

	_, ok := service.LookupVehicle(context.Background(), testVin, "94043", testHint)
	require.False(t, ok)
	require.Contains(t, failures(tel)[0], "Request timed out")
}

func TestMalformedMileageFails(t *testing.T) {
	vendor := newFakeVendor()
	vendor.specifications = respond(
		vehicle.SourceSpecifications,
		`<span class="(City/Highway/Combined)">31 / 38</span>`,
	)
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, nil, Config{}, tel)

	_, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
	require.False(t, ok)
	require.Contains(t, failures(tel)[0], "Malformed data")
}

func TestProviderStepsNeedZipAndHint(t *testing.T) {
	provider := newFakeProvider()
	service := NewService(newFakeVendor().session, provider.session, Config{}, &telemetry.RecordingAPI{})

	record, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
	require.True(t, ok)
	require.Nil(t, record.Battery)
	require.Nil(t, record.Locations)
	require.Zero(t, provider.batteryCalls.Load())
	require.Zero(t, provider.locationsCalls.Load())

	record, ok = service.LookupVehicle(context.Background(), testVin, "94043", nil)
	require.True(t, ok)
	require.NotNil(t, record.Battery)
	require.Zero(t, provider.locationsCalls.Load())
}

func TestUnavailableFieldsAreWarnings(t *testing.T) {
	vendor := newFakeVendor()
	vendor.product = respond(vehicle.SourcePrimary, `{"modelId":"FE2F5NJW","modelGroupName":"Pilot","year":"2021","trim":"Touring"}`)
	vendor.manuals = respond(vehicle.SourceManuals, `{"isMultiple":true,"manualsList":[]}`)
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, nil, Config{}, tel)

	record, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
	require.True(t, ok)
	require.Equal(t, "Pilot", record.Model)
	require.Equal(t, "", record.BodyStyle)
	require.Equal(t, "", record.OwnersManualUrl)
	require.Equal(t, "2021 Honda Pilot Touring", record.Name)

	var unavailable []string
	for _, w := range tel.Reports("warning") {
		require.Equal(t, "lookup."+report_field_unavailable, w.Id)
		unavailable = append(unavailable, w.Params[0].(error).Error())
	}
	require.ElementsMatch(t, []string{
		"field unavailable: primary.colorName",
		"field unavailable: primary.colorCode",
		"field unavailable: manuals.ownersManualUrl",
	}, unavailable)
	require.Empty(t, tel.Reports("broken"))
}

func TestPanicInStepIsContained(t *testing.T) {
	vendor := newFakeVendor()
	vendor.manuals = func(context.Context, string) (vehicle.Payload, error) {
		panic("unexpected payload")
	}
	tel := &telemetry.RecordingAPI{}
	service := NewService(vendor.session, nil, Config{}, tel)

	require.NotPanics(t, func() {
		_, ok := service.LookupVehicle(context.Background(), testVin, "", nil)
		require.False(t, ok)
	})
	require.Contains(t, failures(tel)[0], "unexpected payload")
}

func TestFailureNote(t *testing.T) {
	require.True(t, strings.HasPrefix(FailureNote(errors.New("boom")), "Lookup failed"))
	require.True(t, strings.HasPrefix(
		FailureNote(&restyutil.TimeoutError{Method: "GET", Url: "/", Err: context.DeadlineExceeded}),
		"Request timed out",
	))
}

func TestUpdateVehicle(t *testing.T) {
	service := NewService(newFakeVendor().session, nil, Config{}, &telemetry.RecordingAPI{})
	require.True(t, service.UpdateVehicle(context.Background(), &vehicle.Record{VIN: testVin}))
}
