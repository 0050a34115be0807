package service

import (
	"context"

	"github.com/tournevent/dpd/pkg/dpd"
	"go.uber.org/zap"
)

// International covers shipments leaving Poland.
type International struct {
	*caller
}

// GeneratePackageNumbers registers cross-border packages.
func (s *International) GeneratePackageNumbers(ctx context.Context, pkgs []dpd.Package) (*dpd.PackageGenerationResult, error) {
	s.logger.Info("Generating DPD international package numbers", zap.Int("package_count", len(pkgs)))

	if err := checkInput("packages", packagesInput, map[string]any{"packages": pkgs}); err != nil {
		return nil, err
	}
	packages, err := packagesArgs(pkgs, s.creds)
	if err != nil {
		return nil, err
	}

	resp, err := invokeAs[wirePackages](ctx, s.caller, GenerateInternationalPackageNumbersV1, map[string]any{
		"authDataV1":               s.creds.AuthData(),
		"internationalOpenUMLFeV1": map[string]any{"packages": packages},
	})
	if err != nil {
		return nil, err
	}
	return generationResult(resp), nil
}
