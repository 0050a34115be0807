package service

import (
	"context"

	"github.com/tournevent/dpd/pkg/dpd"
	"go.uber.org/zap"
)

// Returns issues return labels for delivered shipments.
type Returns struct {
	*caller
}

// GenerateDomesticReturnLabel issues a return label for domestic waybills.
func (s *Returns) GenerateDomesticReturnLabel(ctx context.Context, waybills []string, receiver dpd.Address, opts dpd.LabelOptions) (*dpd.Label, error) {
	return s.returnLabel(ctx, GenerateDomesticReturnLabelV1, waybills, receiver, opts)
}

// GenerateInternationalReturnLabel issues a return label for cross-border
// waybills.
func (s *Returns) GenerateInternationalReturnLabel(ctx context.Context, waybills []string, receiver dpd.Address, opts dpd.LabelOptions) (*dpd.Label, error) {
	return s.returnLabel(ctx, GenerateReturnLabelV1, waybills, receiver, opts)
}

func (s *Returns) returnLabel(ctx context.Context, proc Procedure, waybills []string, receiver dpd.Address, opts dpd.LabelOptions) (*dpd.Label, error) {
	s.logger.Info("Generating DPD return label",
		zap.String("procedure", proc.Name),
		zap.Strings("waybills", waybills),
	)

	input := map[string]any{"waybills": waybills, "receiver": receiver, "options": opts}
	if err := checkInput("return label request", returnInput, input); err != nil {
		return nil, err
	}
	opts = labelDefaults(opts)
	receiverArgs, err := tree(receiver)
	if err != nil {
		return nil, err
	}

	args := map[string]any{
		"authDataV1":            s.creds.AuthData(),
		"returnedWaybillsV1":    map[string]any{"waybill": stringsToAny(waybills)},
		"receiver":              receiverArgs,
		"outputDocFormatV1":     string(opts.Format),
		"outputDocPageFormatV1": string(opts.PageFormat),
		"outputLabelType":       "RETURN",
	}
	if opts.Variant != "" {
		args["labelVariant"] = opts.Variant
	}

	resp, err := invokeAs[wireDocument](ctx, s.caller, proc, args)
	if err != nil {
		return nil, err
	}
	return &dpd.Label{Data: resp.DocumentData, Format: opts.Format, PageFormat: opts.PageFormat}, nil
}
