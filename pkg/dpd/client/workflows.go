package client

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/service"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds CreateLabelsBatch when no limit is given.
const DefaultBatchConcurrency = 4

// CreateLabel registers one package and renders its label.
func (c *Client) CreateLabel(ctx context.Context, pkg dpd.Package, opts dpd.LabelOptions) (*dpd.ShipmentLabel, error) {
	ctx, span := c.tracer.Start(ctx, "dpd.CreateLabel")
	defer span.End()

	generated, err := c.Domestic.GeneratePackageNumbers(ctx, []dpd.Package{pkg})
	if err != nil {
		return nil, spanError(span, err)
	}
	if len(generated.Packages) == 0 {
		return nil, spanError(span, dpd.NewServiceError(dpd.CodeInvalidResponse, "no package was generated").
			WithProcedure(service.GeneratePackagesNumbersV9.Name))
	}
	p := generated.Packages[0]
	span.SetAttributes(attribute.String("dpd.waybill", p.Waybill))

	label, err := c.Domestic.GenerateLabels(ctx, []string{p.Waybill}, opts)
	if err != nil {
		return nil, spanError(span, err)
	}

	c.logger.Info("DPD label created",
		zap.String("waybill", p.Waybill),
		zap.String("package_id", p.PackageID),
		zap.Int("parcel_count", len(p.ParcelIDs)),
	)
	return &dpd.ShipmentLabel{
		Waybill:     p.Waybill,
		PackageID:   p.PackageID,
		ParcelIDs:   p.ParcelIDs,
		Label:       *label,
		TrackingURL: dpd.TrackingURL(p.Waybill),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// BatchResult is the outcome of one package of a batch.
type BatchResult struct {
	Index int
	Label *dpd.ShipmentLabel
	Err   error
}

// CreateLabelsBatch runs CreateLabel for every package with at most
// concurrency calls in flight. A failed package never stops the others;
// results are in input order.
func (c *Client) CreateLabelsBatch(ctx context.Context, pkgs []dpd.Package, opts dpd.LabelOptions, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	c.logger.Info("Creating DPD labels in batch",
		zap.Int("package_count", len(pkgs)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]BatchResult, len(pkgs))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, pkg := range pkgs {
		g.Go(func() error {
			label, err := c.CreateLabel(ctx, pkg, opts)
			results[i] = BatchResult{Index: i, Label: label, Err: err}
			if err != nil {
				c.logger.Warn("DPD batch item failed", zap.Int("index", i), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Track returns the tracking state and public tracking page of a waybill.
func (c *Client) Track(ctx context.Context, waybill string) (*dpd.ParcelStatus, string, error) {
	status, err := c.Tracking.GetParcelStatus(ctx, waybill)
	if err != nil {
		return nil, "", err
	}
	return status, dpd.TrackingURL(waybill), nil
}

// CreatePickup orders a courier on day between from and to (HH:MM).
func (c *Client) CreatePickup(ctx context.Context, day time.Time, from, to string, waybills []string) (*dpd.Pickup, error) {
	return c.Domestic.PickupCall(ctx, dpd.PickupRequest{
		PickupDate:     day.Format(time.DateOnly),
		PickupTimeFrom: from,
		PickupTimeTo:   to,
		Waybills:       waybills,
	})
}

// ProcedureCheck tells whether the session exposes a procedure the
// services rely on.
type ProcedureCheck struct {
	Name      string
	Service   dpd.ServiceKind
	Available bool
}

// Procedures checks every catalogued procedure against the open session.
func (c *Client) Procedures() ([]ProcedureCheck, error) {
	checks := make([]ProcedureCheck, 0, len(service.Catalog()))
	for _, p := range service.Catalog() {
		h, err := c.sessions.Handle(p.Service)
		if err != nil {
			return nil, err
		}
		checks = append(checks, ProcedureCheck{Name: p.Name, Service: p.Service, Available: h.HasProcedure(p.Name)})
	}
	return checks, nil
}

// Missing returns the names of unavailable procedures.
func Missing(checks []ProcedureCheck) []string {
	var out []string
	for _, c := range checks {
		if !c.Available {
			out = append(out, fmt.Sprintf("%s/%s", c.Service, c.Name))
		}
	}
	return out
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
