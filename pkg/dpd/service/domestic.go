package service

import (
	"context"

	"github.com/tournevent/dpd/pkg/dpd"
	"go.uber.org/zap"
)

// Domestic covers shipments within Poland.
type Domestic struct {
	*caller
}

// GeneratePackageNumbers registers packages and returns their waybills and
// parcel ids.
func (s *Domestic) GeneratePackageNumbers(ctx context.Context, pkgs []dpd.Package) (*dpd.PackageGenerationResult, error) {
	s.logger.Info("Generating DPD package numbers", zap.Int("package_count", len(pkgs)))

	if err := checkInput("packages", packagesInput, map[string]any{"packages": pkgs}); err != nil {
		return nil, err
	}
	packages, err := packagesArgs(pkgs, s.creds)
	if err != nil {
		return nil, err
	}

	resp, err := invokeAs[wirePackages](ctx, s.caller, GeneratePackagesNumbersV9, map[string]any{
		"authDataV1":                s.creds.AuthData(),
		"openUMLFeV11":              map[string]any{"packages": packages},
		"pkgNumsGenerationPolicyV1": "STOP_ON_FIRST_ERROR",
		"langCode":                  "PL",
	})
	if err != nil {
		return nil, err
	}
	return generationResult(resp), nil
}

// GenerateLabels renders labels for existing waybills.
func (s *Domestic) GenerateLabels(ctx context.Context, waybills []string, opts dpd.LabelOptions) (*dpd.Label, error) {
	s.logger.Info("Generating DPD labels",
		zap.Strings("waybills", waybills),
		zap.String("format", string(opts.Format)),
	)

	if err := checkInput("waybills", waybillsInput, map[string]any{"waybills": waybills}); err != nil {
		return nil, err
	}
	if err := checkInput("label options", labelOptionsInput, opts); err != nil {
		return nil, err
	}
	opts = labelDefaults(opts)
	variant := opts.Variant
	if variant == "" {
		variant = "BIC3"
	}

	resp, err := invokeAs[wireDocument](ctx, s.caller, GenerateSpedLabelsV4, map[string]any{
		"authDataV1":            s.creds.AuthData(),
		"dpdServicesParamsV1":   map[string]any{"waybills": stringsToAny(waybills)},
		"outputDocFormatV1":     string(opts.Format),
		"outputDocPageFormatV1": string(opts.PageFormat),
		"outputLabelType":       "LABEL",
		"labelVariant":          variant,
	})
	if err != nil {
		return nil, err
	}
	return &dpd.Label{Data: resp.DocumentData, Format: opts.Format, PageFormat: opts.PageFormat}, nil
}

// GenerateProtocol produces the handover protocol for waybills.
func (s *Domestic) GenerateProtocol(ctx context.Context, waybills []string) (*dpd.Protocol, error) {
	s.logger.Info("Generating DPD protocol", zap.Int("waybill_count", len(waybills)))

	if err := checkInput("waybills", waybillsInput, map[string]any{"waybills": waybills}); err != nil {
		return nil, err
	}

	resp, err := invokeAs[wireDocument](ctx, s.caller, GenerateProtocolV2, map[string]any{
		"authDataV1":          s.creds.AuthData(),
		"dpdServicesParamsV1": map[string]any{"waybills": stringsToAny(waybills)},
	})
	if err != nil {
		return nil, err
	}
	return &dpd.Protocol{Data: resp.DocumentData, SessionID: resp.SessionID}, nil
}

// PickupCall orders a courier pickup.
func (s *Domestic) PickupCall(ctx context.Context, req dpd.PickupRequest) (*dpd.Pickup, error) {
	s.logger.Info("Requesting DPD courier pickup",
		zap.String("date", req.PickupDate),
		zap.String("from", req.PickupTimeFrom),
		zap.String("to", req.PickupTimeTo),
	)

	if err := checkInput("pickup request", pickupInput, req); err != nil {
		return nil, err
	}
	args := map[string]any{
		"authDataV1":     s.creds.AuthData(),
		"pickupDate":     req.PickupDate,
		"pickupTimeFrom": req.PickupTimeFrom,
		"pickupTimeTo":   req.PickupTimeTo,
	}
	if len(req.Waybills) > 0 {
		args["waybills"] = stringsToAny(req.Waybills)
	}

	resp, err := invokeAs[wirePickup](ctx, s.caller, PackagesPickupCallV4, args)
	if err != nil {
		return nil, err
	}
	return &dpd.Pickup{PickupID: resp.PickupCallID, Status: resp.State, PickupDate: req.PickupDate}, nil
}

// packagesArgs builds the wire form of packages. Every package and parcel
// is sent; absent optional fields stay absent.
func packagesArgs(pkgs []dpd.Package, creds dpd.Credentials) ([]any, error) {
	out := make([]any, 0, len(pkgs))
	for _, pkg := range pkgs {
		t, err := tree(pkg)
		if err != nil {
			return nil, err
		}

		payer := pkg.PayerType
		if payer == "" {
			payer = dpd.PayerSender
		}
		t["payerType"] = string(payer)

		delete(t, "thirdPartyFid")
		if payer == dpd.PayerThirdParty {
			fid := pkg.ThirdPartyFID
			if fid == "" {
				fid = creds.MasterFID
			}
			t["thirdPartyFID"] = fid
		} else if pkg.ThirdPartyFID != "" {
			t["thirdPartyFID"] = pkg.ThirdPartyFID
		}

		if services, ok := t["services"].(map[string]any); ok {
			defaultCurrency(services, "cod")
			defaultCurrency(services, "declaredValue")
		}
		out = append(out, t)
	}
	return out, nil
}

func defaultCurrency(services map[string]any, key string) {
	m, ok := services[key].(map[string]any)
	if !ok {
		return
	}
	if _, ok := m["currency"]; !ok {
		m["currency"] = "PLN"
	}
}

func generationResult(resp wirePackages) *dpd.PackageGenerationResult {
	out := &dpd.PackageGenerationResult{Packages: make([]dpd.GeneratedPackage, 0, len(resp.Packages))}
	for _, p := range resp.Packages {
		g := dpd.GeneratedPackage{
			PackageID: p.PackageID,
			ParcelIDs: make([]string, len(p.Parcels)),
			Waybill:   p.Waybill,
		}
		for i, parcel := range p.Parcels {
			g.ParcelIDs[i] = parcel.ParcelID
		}
		if p.Status != "" {
			g.Status = &dpd.PackageStatus{Status: p.Status}
		}
		out.Packages = append(out.Packages, g)
	}
	return out
}
