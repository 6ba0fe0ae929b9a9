package lookup

import (
	"context"
	"fmt"

	"mycar-backend/internal/resolve"
)

func (s Service) reportMissing(source string, fields []string) {
	for _, field := range fields {
		s.tel.ReportWarning(report_field_unavailable, resolve.Unavailable(source+"."+field))
	}
}

func (s Service) fetchPrimary(ctx context.Context, st *state) error {
	payload, err := st.vendor.GetProduct(ctx, st.vin)
	if err != nil {
		return err
	}
	primary := resolve.ResolvePrimary(payload.Body)
	if primary.ModelId == "" {
		return fmt.Errorf("%w: vendor record has no model id", resolve.ErrMalformedData)
	}
	s.reportMissing(string(payload.Source), primary.Missing())
	st.primary = primary
	return nil
}

func (s Service) fetchSpecifications(ctx context.Context, st *state) error {
	payload, err := st.vendor.GetSpecifications(ctx, st.primary.ModelId)
	if err != nil {
		return err
	}
	specs, err := resolve.ResolveSpecifications(payload.Body)
	if err != nil {
		return err
	}
	s.reportMissing(string(payload.Source), specs.Missing())
	st.specs = specs
	return nil
}

func (s Service) fetchManuals(ctx context.Context, st *state) error {
	payload, err := st.vendor.GetManuals(ctx, st.vin)
	if err != nil {
		return err
	}
	url := resolve.ResolveOwnersManualUrl(payload.Body, st.primary.Model, st.primary.BodyStyle)
	if url == "" {
		s.reportMissing(string(payload.Source), []string{"ownersManualUrl"})
	}
	st.manualUrl = url
	return nil
}

func (s Service) fetchBattery(ctx context.Context, st *state) error {
	part, err := st.provider.GetBatteryPart(ctx, st.vin, st.zip)
	if err != nil {
		return err
	}
	st.battery = part
	return nil
}

func (s Service) fetchLocations(ctx context.Context, st *state) error {
	locations, err := st.provider.GetClosestLocations(ctx, st.zip, *st.hint)
	if err != nil {
		return err
	}
	st.locations = locations
	return nil
}
