package service

import (
	"context"
	"strings"

	"github.com/tournevent/dpd/pkg/dpd"
	"go.uber.org/zap"
)

// Tracking reads parcel state and postcode data.
type Tracking struct {
	*caller
}

// GetParcelStatus returns the tracking state of a waybill.
func (s *Tracking) GetParcelStatus(ctx context.Context, waybill string) (*dpd.ParcelStatus, error) {
	s.logger.Info("Getting DPD parcel status", zap.String("waybill", waybill))

	if err := checkInput("waybill", waybillInput, map[string]any{"waybill": waybill}); err != nil {
		return nil, err
	}

	resp, err := invokeAs[wireParcelStatus](ctx, s.caller, GetParcelStatus, map[string]any{
		"authDataV1": s.creds.AuthData(),
		"waybill":    waybill,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Parcel, nil
}

// GetPostcodeInfo looks up a postcode. An empty country means PL.
func (s *Tracking) GetPostcodeInfo(ctx context.Context, postcode, countryCode string) (*dpd.PostcodeInfo, error) {
	if countryCode == "" {
		countryCode = "PL"
	}
	countryCode = strings.ToUpper(countryCode)
	s.logger.Info("Getting DPD postcode info",
		zap.String("postcode", postcode),
		zap.String("country", countryCode),
	)

	input := map[string]any{"postcode": postcode, "countryCode": countryCode}
	if err := checkInput("postcode", postcodeInput, input); err != nil {
		return nil, err
	}

	resp, err := invokeAs[dpd.PostcodeInfo](ctx, s.caller, GetPostcodeInfo, map[string]any{
		"authDataV1":  s.creds.AuthData(),
		"postcode":    postcode,
		"countryCode": countryCode,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
