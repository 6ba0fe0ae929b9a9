package lookup

import (
	"context"
	"errors"
	"fmt"

	"mycar-backend/internal/resolve"
	"mycar-backend/internal/vehicle"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// state is what a lookup has gathered so far. Every parallel step owns a
// distinct field and only writes it on success.
type state struct {
	vin  string
	zip  string
	hint *vehicle.Coordinates

	// provider is nil when no provider step runs.
	vendor   VendorAPI
	provider ProviderAPI

	primary   resolve.Primary
	specs     resolve.Specifications
	manualUrl string
	battery   *vehicle.PartInfo
	locations []vehicle.ProviderLocation
}

func (st *state) closeSessions() {
	if st.vendor != nil {
		st.vendor.Close()
	}
	if st.provider != nil {
		st.provider.Close()
	}
}

type step struct {
	name     string
	required bool
	run      func(ctx context.Context, st *state) error
}

// plan runs sequential steps in order, then every parallel step at once.
// Sequential steps are always required.
type plan struct {
	sequential []step
	parallel   []step
}

func (s Service) newPlan(st *state) plan {
	p := plan{
		sequential: []step{
			{name: "primary", required: true, run: s.fetchPrimary},
		},
		parallel: []step{
			{name: "specifications", required: true, run: s.fetchSpecifications},
			{name: "manuals", required: true, run: s.fetchManuals},
		},
	}
	if st.provider == nil {
		return p
	}
	if st.zip != "" {
		p.parallel = append(p.parallel, step{name: "battery", run: s.fetchBattery})
	}
	if st.hint != nil {
		p.parallel = append(p.parallel, step{name: "locations", run: s.fetchLocations})
	}
	return p
}

// errStepPanicked wraps a panic recovered from a step, parallel steps run
// on their own goroutines so the caller's recover never sees them.
var errStepPanicked = errors.New("step panicked")

func (s Service) runStep(ctx context.Context, st *state, current step) (err error) {
	ctx, span := tracer.Start(ctx, "step:"+current.name)
	defer span.End()
	span.SetAttributes(attribute.Bool("required", current.required))

	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("%s: %w: %v", current.name, errStepPanicked, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	err = current.run(ctx, st)
	if err != nil {
		return fmt.Errorf("%s: %w", current.name, err)
	}
	return nil
}

// execute runs the plan, it returns the first required step failure. An
// optional step failure is reported and its slot stays empty.
func (s Service) execute(ctx context.Context, st *state, p plan) error {
	for _, current := range p.sequential {
		err := s.runStep(ctx, st, current)
		if err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, current := range p.parallel {
		current := current
		group.Go(func() error {
			err := s.runStep(groupCtx, st, current)
			if err == nil || current.required {
				return err
			}
			s.tel.ReportWarning(report_optional_step, err)
			return nil
		})
	}
	return group.Wait()
}
