package service

import (
	"context"
	"errors"

	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/rest"
	"go.uber.org/zap"
)

// PUDO searches DPD pickup points.
type PUDO struct {
	*caller
}

// FindParcelShops returns the parcel shops matching q.
func (s *PUDO) FindParcelShops(ctx context.Context, q dpd.ParcelShopQuery) ([]dpd.ParcelShop, error) {
	s.logger.Info("Finding DPD parcel shops",
		zap.String("country", q.CountryCode),
		zap.String("city", q.City),
		zap.String("postal_code", q.PostalCode),
	)

	args, err := tree(q)
	if err != nil {
		return nil, err
	}
	if err := checkInput("parcel shop query", parcelShopQueryInput, args); err != nil {
		return nil, err
	}

	resp, err := invokeAs[wireParcelShops](ctx, s.caller, FindParcelShops, args)
	if err != nil {
		return nil, err
	}
	return resp.ParcelShops, nil
}

// GetParcelShop returns one parcel shop, or nil when DPD does not know the
// id.
func (s *PUDO) GetParcelShop(ctx context.Context, pudoID string) (*dpd.ParcelShop, error) {
	s.logger.Info("Getting DPD parcel shop", zap.String("pudo_id", pudoID))

	args := map[string]any{"pudoId": pudoID}
	if err := checkInput("parcel shop id", pudoIDInput, args); err != nil {
		return nil, err
	}

	shop, err := invokeAs[dpd.ParcelShop](ctx, s.caller, GetParcelShop, args)
	if err != nil {
		var status *rest.StatusError
		if errors.As(err, &status) && status.NotFound() {
			s.logger.Info("DPD parcel shop not found", zap.String("pudo_id", pudoID))
			return nil, nil
		}
		return nil, err
	}
	return &shop, nil
}
