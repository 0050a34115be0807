package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/invoke"
	"github.com/tournevent/dpd/pkg/dpd/mock"
	"github.com/tournevent/dpd/pkg/dpd/schema"
	"github.com/tournevent/dpd/pkg/dpd/service"
	"github.com/tournevent/dpd/pkg/dpd/session"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var testCreds = dpd.Credentials{Login: "test", Password: "thetu4Ee", MasterFID: "1495"}

func newTestServices(t *testing.T, open bool) (*service.Services, *mock.Set) {
	t.Helper()
	logger := otelzap.New(zap.NewNop())
	set := mock.NewSet()

	m := session.New(session.Config{Environment: dpd.Demo, Credentials: testCreds}, logger, set.Options()...)
	if open {
		require.NoError(t, m.Open(context.Background()))
	}

	inv := invoke.New(logger, nil, invoke.WithSleep(func(context.Context, time.Duration) error { return nil }))
	policy := invoke.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Timeout: time.Second}
	return service.New(service.Config{Credentials: testCreds, Policy: policy}, m, inv, logger), set
}

func testAddress(name string) dpd.Address {
	return dpd.Address{
		Name:        name,
		Address:     "ul. Mineralna 15",
		City:        "Warszawa",
		PostalCode:  "02-274",
		CountryCode: "PL",
		Phone:       "022 577 55 00",
	}
}

func testPackage() dpd.Package {
	return dpd.Package{
		Sender:   testAddress("Sender"),
		Receiver: testAddress("Receiver"),
		Parcels:  []dpd.Parcel{{Weight: 2.5, Content: "books"}},
	}
}

func lastArgs(t *testing.T, h *mock.Handle) map[string]any {
	t.Helper()
	calls := h.Calls()
	require.NotEmpty(t, calls)
	return calls[len(calls)-1].Args
}

func TestDomestic_GeneratePackageNumbers_Success(t *testing.T) {
	svc, set := newTestServices(t, true)
	set.ObjServices.Set("generatePackagesNumbersV9", func(map[string]any) (any, error) {
		return map[string]any{"packages": []any{map[string]any{
			"packageId": "P1",
			"parcels":   []any{map[string]any{"parcelId": "PC1"}},
			"waybill":   "W1",
			"status":    "OK",
		}}}, nil
	})

	res, err := svc.Domestic.GeneratePackageNumbers(context.Background(), []dpd.Package{testPackage()})

	require.NoError(t, err)
	require.Len(t, res.Packages, 1)
	assert.Equal(t, "P1", res.Packages[0].PackageID)
	assert.Equal(t, []string{"PC1"}, res.Packages[0].ParcelIDs)
	assert.Equal(t, "W1", res.Packages[0].Waybill)
	assert.Equal(t, "OK", res.Packages[0].Status.Status)

	args := lastArgs(t, set.ObjServices)
	assert.Equal(t, "STOP_ON_FIRST_ERROR", args["pkgNumsGenerationPolicyV1"])
	assert.Equal(t, "PL", args["langCode"])
	assert.Equal(t, testCreds.AuthData(), args["authDataV1"])

	pkg := args["openUMLFeV11"].(map[string]any)["packages"].([]any)[0].(map[string]any)
	assert.Equal(t, "SENDER", pkg["payerType"])
	assert.NotContains(t, pkg, "thirdPartyFID")
	assert.NotContains(t, pkg, "ref1")
	parcel := pkg["parcels"].([]any)[0].(map[string]any)
	assert.NotContains(t, parcel, "sizeX")
	assert.Equal(t, 2.5, parcel["weight"])
}

func TestDomestic_GeneratePackageNumbers_AllPackagesSent(t *testing.T) {
	svc, set := newTestServices(t, true)
	second := testPackage()
	second.Parcels = append(second.Parcels, dpd.Parcel{Weight: 1})

	res, err := svc.Domestic.GeneratePackageNumbers(context.Background(), []dpd.Package{testPackage(), second})

	require.NoError(t, err)
	require.Len(t, res.Packages, 2)
	assert.Len(t, res.Packages[0].ParcelIDs, 1)
	assert.Len(t, res.Packages[1].ParcelIDs, 2)
	assert.NotEqual(t, res.Packages[0].Waybill, res.Packages[1].Waybill)
	assert.Equal(t, 1, set.ObjServices.CallCount("generatePackagesNumbersV9"))
}

func TestDomestic_GeneratePackageNumbers_ThirdPartyPayer(t *testing.T) {
	svc, set := newTestServices(t, true)
	pkg := testPackage()
	pkg.PayerType = dpd.PayerThirdParty
	pkg.Services = &dpd.PackageServices{COD: &dpd.Money{Amount: 120}}

	_, err := svc.Domestic.GeneratePackageNumbers(context.Background(), []dpd.Package{pkg})
	require.NoError(t, err)

	sent := lastArgs(t, set.ObjServices)["openUMLFeV11"].(map[string]any)["packages"].([]any)[0].(map[string]any)
	assert.Equal(t, "THIRD_PARTY", sent["payerType"])
	assert.Equal(t, "1495", sent["thirdPartyFID"])
	assert.NotContains(t, sent, "thirdPartyFid")
	cod := sent["services"].(map[string]any)["cod"].(map[string]any)
	assert.Equal(t, "PLN", cod["currency"])
	assert.Equal(t, float64(120), cod["amount"])
}

func TestDomestic_GeneratePackageNumbers_APIError(t *testing.T) {
	svc, set := newTestServices(t, true)
	body := map[string]any{"Status": "ERROR", "StatusInfo": "LIMIT_EXCEEDED"}
	set.ObjServices.Set("generatePackagesNumbersV9", func(map[string]any) (any, error) {
		return map[string]any{"return": body}, nil
	})

	res, err := svc.Domestic.GeneratePackageNumbers(context.Background(), []dpd.Package{testPackage()})

	assert.Nil(t, res)
	require.ErrorIs(t, err, dpd.ErrAPI)
	assert.ErrorContains(t, err, "LIMIT_EXCEEDED")

	var de *dpd.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, body, de.Details)
	assert.Equal(t, "generatePackagesNumbersV9", de.Procedure)
}

func TestDomestic_GeneratePackageNumbers_InvalidInput(t *testing.T) {
	svc, set := newTestServices(t, true)
	pkg := testPackage()
	pkg.Receiver.CountryCode = "POL"
	pkg.Parcels[0].Weight = 0

	_, err := svc.Domestic.GeneratePackageNumbers(context.Background(), []dpd.Package{pkg})

	require.ErrorIs(t, err, dpd.ErrValidation)
	var de *dpd.Error
	require.True(t, errors.As(err, &de))
	paths := make([]string, len(de.Violations))
	for i, v := range de.Violations {
		paths[i] = v.Path
	}
	assert.Contains(t, paths, "packages[0].receiver.countryCode")
	assert.Contains(t, paths, "packages[0].parcels[0].weight")
	assert.Empty(t, set.ObjServices.Calls())
}

func TestDomestic_GeneratePackageNumbers_NoPackages(t *testing.T) {
	svc, set := newTestServices(t, true)

	_, err := svc.Domestic.GeneratePackageNumbers(context.Background(), nil)

	assert.ErrorIs(t, err, dpd.ErrValidation)
	assert.Empty(t, set.ObjServices.Calls())
}

func TestDomestic_NotInitialized(t *testing.T) {
	svc, set := newTestServices(t, false)

	_, err := svc.Domestic.GenerateProtocol(context.Background(), []string{"0000000000001U"})

	assert.ErrorIs(t, err, dpd.ErrNotInitialized)
	assert.Empty(t, set.ObjServices.Calls())
}

func TestDomestic_GeneratePackageNumbers_InvalidResponse(t *testing.T) {
	svc, set := newTestServices(t, true)
	set.ObjServices.Set("generatePackagesNumbersV9", func(map[string]any) (any, error) {
		return map[string]any{"return": map[string]any{
			"Status": "OK",
			"packages": []any{map[string]any{
				"packageId": "P1",
				"parcels":   []any{map[string]any{"parcelId": float64(7)}},
			}},
		}}, nil
	})

	_, err := svc.Domestic.GeneratePackageNumbers(context.Background(), []dpd.Package{testPackage()})

	require.ErrorIs(t, err, dpd.ErrInvalidResponse)
	var de *dpd.Error
	require.True(t, errors.As(err, &de))
	require.Len(t, de.Violations, 2)
	assert.Equal(t, "packages[0].parcels[0].parcelId", de.Violations[0].Path)
	assert.Equal(t, schema.ReasonWrongType, de.Violations[0].Reason)
	assert.Equal(t, "packages[0].waybill", de.Violations[1].Path)
	assert.Equal(t, schema.ReasonMissing, de.Violations[1].Reason)
}

func TestDomestic_GenerateLabels_Defaults(t *testing.T) {
	svc, set := newTestServices(t, true)

	label, err := svc.Domestic.GenerateLabels(context.Background(), []string{"0000000000001U"}, dpd.LabelOptions{})

	require.NoError(t, err)
	assert.NotEmpty(t, label.Data)
	assert.Equal(t, dpd.FormatPDF, label.Format)
	assert.Equal(t, dpd.PageA4, label.PageFormat)

	args := lastArgs(t, set.ObjServices)
	assert.Equal(t, "PDF", args["outputDocFormatV1"])
	assert.Equal(t, "A4", args["outputDocPageFormatV1"])
	assert.Equal(t, "LABEL", args["outputLabelType"])
	assert.Equal(t, "BIC3", args["labelVariant"])
	assert.Equal(t, []any{"0000000000001U"}, args["dpdServicesParamsV1"].(map[string]any)["waybills"])
}

func TestDomestic_GenerateLabels_InvalidFormat(t *testing.T) {
	svc, set := newTestServices(t, true)

	_, err := svc.Domestic.GenerateLabels(context.Background(), []string{"W1"}, dpd.LabelOptions{Format: "PNG"})

	require.ErrorIs(t, err, dpd.ErrValidation)
	var de *dpd.Error
	require.True(t, errors.As(err, &de))
	require.Len(t, de.Violations, 1)
	assert.Equal(t, "format", de.Violations[0].Path)
	assert.Equal(t, schema.ReasonOutOfEnum, de.Violations[0].Reason)
	assert.Empty(t, set.ObjServices.Calls())
}

func TestDomestic_GenerateProtocol(t *testing.T) {
	svc, _ := newTestServices(t, true)

	p, err := svc.Domestic.GenerateProtocol(context.Background(), []string{"W1", "W2"})

	require.NoError(t, err)
	assert.NotEmpty(t, p.Data)
	assert.NotEmpty(t, p.SessionID)
}

func TestDomestic_PickupCall(t *testing.T) {
	svc, set := newTestServices(t, true)

	pickup, err := svc.Domestic.PickupCall(context.Background(), dpd.PickupRequest{
		PickupDate:     "2026-10-20",
		PickupTimeFrom: "10:00",
		PickupTimeTo:   "16:00",
	})

	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", pickup.PickupDate)
	assert.Equal(t, "CONFIRMED", pickup.Status)
	assert.NotEmpty(t, pickup.PickupID)
	assert.NotContains(t, lastArgs(t, set.ObjServices), "waybills")
}

func TestDomestic_PickupCall_InvalidTime(t *testing.T) {
	svc, set := newTestServices(t, true)

	_, err := svc.Domestic.PickupCall(context.Background(), dpd.PickupRequest{
		PickupDate:     "20.10.2026",
		PickupTimeFrom: "25:00",
		PickupTimeTo:   "16:00",
	})

	require.ErrorIs(t, err, dpd.ErrValidation)
	var de *dpd.Error
	require.True(t, errors.As(err, &de))
	assert.Len(t, de.Violations, 2)
	assert.Empty(t, set.ObjServices.Calls())
}

func TestDomestic_RetriesExhausted(t *testing.T) {
	svc, set := newTestServices(t, true)
	set.ObjServices.SimulateErrors = mock.ErrUnavailable

	_, err := svc.Domestic.GenerateProtocol(context.Background(), []string{"W1"})

	require.ErrorIs(t, err, dpd.ErrRetriesExhausted)
	assert.ErrorContains(t, err, "failed after 3 attempts")
	assert.Equal(t, 3, set.ObjServices.CallCount("generateProtocolV2"))
}

func TestInternational_GeneratePackageNumbers(t *testing.T) {
	svc, set := newTestServices(t, true)
	pkg := testPackage()
	pkg.Receiver.CountryCode = "DE"
	pkg.Receiver.City = "Berlin"

	res, err := svc.International.GeneratePackageNumbers(context.Background(), []dpd.Package{pkg})

	require.NoError(t, err)
	require.Len(t, res.Packages, 1)
	assert.NotEmpty(t, res.Packages[0].Waybill)
	assert.Equal(t, 1, set.ObjServices.CallCount("generateInternationalPackageNumbersV1"))
	assert.Contains(t, lastArgs(t, set.ObjServices), "internationalOpenUMLFeV1")
}

func TestReturns_GenerateDomesticReturnLabel(t *testing.T) {
	svc, set := newTestServices(t, true)

	label, err := svc.Returns.GenerateDomesticReturnLabel(context.Background(),
		[]string{"W1"}, testAddress("Warehouse"), dpd.LabelOptions{Format: dpd.FormatZPL, PageFormat: dpd.PageLBL})

	require.NoError(t, err)
	assert.Equal(t, dpd.FormatZPL, label.Format)

	args := lastArgs(t, set.ObjServices)
	assert.Equal(t, "RETURN", args["outputLabelType"])
	assert.Equal(t, "LBL", args["outputDocPageFormatV1"])
	assert.NotContains(t, args, "labelVariant")
	assert.Equal(t, "Warehouse", args["receiver"].(map[string]any)["name"])
	assert.Equal(t, 1, set.ObjServices.CallCount("generateDomesticReturnLabelV1"))
}

func TestReturns_GenerateInternationalReturnLabel_InvalidReceiver(t *testing.T) {
	svc, set := newTestServices(t, true)
	receiver := testAddress("")

	_, err := svc.Returns.GenerateInternationalReturnLabel(context.Background(), []string{"W1"}, receiver, dpd.LabelOptions{})

	require.ErrorIs(t, err, dpd.ErrValidation)
	assert.Empty(t, set.ObjServices.Calls())
}

func TestTracking_GetParcelStatus(t *testing.T) {
	svc, _ := newTestServices(t, true)

	status, err := svc.Tracking.GetParcelStatus(context.Background(), "0000000000001U")

	require.NoError(t, err)
	assert.Equal(t, "0000000000001U", status.Waybill)
	assert.Equal(t, "IN_TRANSIT", status.Status)
	assert.Len(t, status.Events, 2)
}

func TestTracking_GetParcelStatus_Fault(t *testing.T) {
	svc, set := newTestServices(t, true)
	set.ObjServices.Set("getParcelStatus", func(map[string]any) (any, error) {
		return nil, dpd.NewServiceError("DisallowedFidException", "fid not allowed")
	})

	_, err := svc.Tracking.GetParcelStatus(context.Background(), "W1")

	require.ErrorIs(t, err, dpd.ErrService)
	var de *dpd.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "DisallowedFidException", de.Code)
	assert.Equal(t, 1, set.ObjServices.CallCount("getParcelStatus"))
}

func TestTracking_GetPostcodeInfo_DefaultCountry(t *testing.T) {
	svc, set := newTestServices(t, true)

	info, err := svc.Tracking.GetPostcodeInfo(context.Background(), "02-274", "")

	require.NoError(t, err)
	assert.Equal(t, "PL", info.CountryCode)
	assert.Equal(t, "02-274", info.Postcode)
	assert.Equal(t, "PL", lastArgs(t, set.ObjServices)["countryCode"])
}

func TestPUDO_FindParcelShops(t *testing.T) {
	svc, set := newTestServices(t, true)

	shops, err := svc.PUDO.FindParcelShops(context.Background(), dpd.ParcelShopQuery{CountryCode: "PL", City: "Warszawa", Limit: 1})

	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, int64(101), shops[0].ParcelShopID)
	assert.Equal(t, "PL11033", shops[0].PudoID)
	require.NotNil(t, shops[0].Latitude)
	assert.InDelta(t, 52.2226, *shops[0].Latitude, 1e-6)
	assert.Equal(t, []string{"PUDO", "COD"}, shops[0].Services)

	args := lastArgs(t, set.PUDO)
	assert.Equal(t, "Warszawa", args["city"])
	assert.NotContains(t, args, "hideClosed")
}

func TestPUDO_FindParcelShops_MissingCountry(t *testing.T) {
	svc, set := newTestServices(t, true)

	_, err := svc.PUDO.FindParcelShops(context.Background(), dpd.ParcelShopQuery{City: "Warszawa"})

	assert.ErrorIs(t, err, dpd.ErrValidation)
	assert.Empty(t, set.PUDO.Calls())
}

func TestPUDO_GetParcelShop(t *testing.T) {
	svc, _ := newTestServices(t, true)

	shop, err := svc.PUDO.GetParcelShop(context.Background(), "PL14120")

	require.NoError(t, err)
	require.NotNil(t, shop)
	assert.Equal(t, "Kiosk Ruch", shop.Name)
	assert.NotNil(t, shop.Distance)
}

func TestPUDO_GetParcelShop_NotFound(t *testing.T) {
	svc, set := newTestServices(t, true)

	shop, err := svc.PUDO.GetParcelShop(context.Background(), "PL99999")

	assert.NoError(t, err)
	assert.Nil(t, shop)
	assert.Equal(t, 1, set.PUDO.CallCount("getParcelShop"))
}

func TestCatalog(t *testing.T) {
	procs := service.Catalog()

	names := map[string]bool{}
	for _, p := range procs {
		assert.False(t, names[p.Name], "duplicate procedure %s", p.Name)
		names[p.Name] = true
		assert.NotNil(t, p.Request, p.Name)
		assert.NotNil(t, p.Response, p.Name)
	}
	assert.Len(t, procs, 11)
	assert.Equal(t, dpd.PUDO, service.GetParcelShop.Service)
}
