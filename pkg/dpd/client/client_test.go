package client_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/client"
	"github.com/tournevent/dpd/pkg/dpd/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var testCreds = dpd.Credentials{Login: "test", Password: "thetu4Ee", MasterFID: "1495"}

func newTestClient(t *testing.T, opts ...client.Option) (*client.Client, *mock.Set) {
	t.Helper()
	set := mock.NewSet()
	opts = append(opts, client.WithMocks(set))

	c, err := client.New(client.DefaultConfig(testCreds), otelzap.New(zap.NewNop()), nil, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background()))
	return c, set
}

func testPackage(receiver string) dpd.Package {
	addr := func(name string) dpd.Address {
		return dpd.Address{
			Name:        name,
			Address:     "ul. Mineralna 15",
			City:        "Warszawa",
			PostalCode:  "02-274",
			CountryCode: "PL",
		}
	}
	return dpd.Package{
		Sender:   addr("Sender"),
		Receiver: addr(receiver),
		Parcels:  []dpd.Parcel{{Weight: 1.5}},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*client.Config)
		wantErr string
	}{
		{name: "defaults", modify: func(*client.Config) {}},
		{name: "timeout too short", modify: func(c *client.Config) { c.Timeout = 500 * time.Millisecond }, wantErr: "timeout"},
		{name: "timeout too long", modify: func(c *client.Config) { c.Timeout = 61 * time.Second }, wantErr: "timeout"},
		{name: "timeout upper bound", modify: func(c *client.Config) { c.Timeout = 60 * time.Second }},
		{name: "negative retries", modify: func(c *client.Config) { c.MaxRetries = -1 }, wantErr: "max retries"},
		{name: "too many retries", modify: func(c *client.Config) { c.MaxRetries = 6 }, wantErr: "max retries"},
		{name: "no retries", modify: func(c *client.Config) { c.MaxRetries = 0 }},
		{name: "unknown environment", modify: func(c *client.Config) { c.Environment = "staging" }, wantErr: "environment"},
		{name: "missing login", modify: func(c *client.Config) { c.Credentials.Login = "" }, wantErr: "required"},
		{name: "mock without credentials", modify: func(c *client.Config) {
			c.Credentials = dpd.Credentials{}
			c.UseMock = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := client.DefaultConfig(testCreds)
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, dpd.ErrConfiguration)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := client.DefaultConfig(testCreds)
	cfg.MaxRetries = 10

	c, err := client.New(cfg, otelzap.New(zap.NewNop()), nil)

	assert.Nil(t, c)
	assert.ErrorIs(t, err, dpd.ErrConfiguration)
}

func TestNew_MockCredentials(t *testing.T) {
	cfg := client.DefaultConfig(dpd.Credentials{})
	cfg.UseMock = true

	c, err := client.New(cfg, otelzap.New(zap.NewNop()), nil)

	require.NoError(t, err)
	assert.Equal(t, mock.Credentials, c.Config().Credentials)
	assert.NotNil(t, c.Mocks())
}

func TestClient_ServicesBeforeInitialize(t *testing.T) {
	c, err := client.New(client.DefaultConfig(testCreds), otelzap.New(zap.NewNop()), nil, client.WithMocks(mock.NewSet()))
	require.NoError(t, err)

	_, err = c.Tracking.GetParcelStatus(context.Background(), "W1")

	assert.False(t, c.Initialized())
	assert.ErrorIs(t, err, dpd.ErrNotInitialized)
}

func TestClient_InitializeTwice(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.Initialize(context.Background())

	assert.ErrorIs(t, err, dpd.ErrConfiguration)
	assert.True(t, c.Initialized())
}

func TestClient_CreateLabel(t *testing.T) {
	c, set := newTestClient(t)

	label, err := c.CreateLabel(context.Background(), testPackage("Receiver"), dpd.LabelOptions{})

	require.NoError(t, err)
	assert.NotEmpty(t, label.Waybill)
	assert.NotEmpty(t, label.PackageID)
	assert.Len(t, label.ParcelIDs, 1)
	assert.NotEmpty(t, label.Label.Data)
	assert.Equal(t, dpd.FormatPDF, label.Label.Format)
	assert.Equal(t, "https://tracktrace.dpd.com.pl/findPackage?q="+label.Waybill, label.TrackingURL)
	assert.False(t, label.CreatedAt.IsZero())

	calls := set.ObjServices.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "generatePackagesNumbersV9", calls[0].Procedure)
	assert.Equal(t, "generateSpedLabelsV4", calls[1].Procedure)
}

func TestClient_CreateLabel_InvalidPackage(t *testing.T) {
	c, set := newTestClient(t)
	pkg := testPackage("Receiver")
	pkg.Parcels = nil

	_, err := c.CreateLabel(context.Background(), pkg, dpd.LabelOptions{})

	assert.ErrorIs(t, err, dpd.ErrValidation)
	assert.Empty(t, set.ObjServices.Calls())
}

func TestClient_CreateLabelsBatch_PartialFailure(t *testing.T) {
	c, set := newTestClient(t)
	set.ObjServices.OnCall = func(_ context.Context, procedure string, args map[string]any) (any, error) {
		if procedure != "generatePackagesNumbersV9" {
			return nil, nil
		}
		pkg := args["openUMLFeV11"].(map[string]any)["packages"].([]any)[0].(map[string]any)
		if pkg["receiver"].(map[string]any)["name"] == "fail" {
			return map[string]any{"return": map[string]any{"Status": "ERROR", "StatusInfo": "INCORRECT_RECEIVER"}}, nil
		}
		return nil, nil
	}

	results := c.CreateLabelsBatch(context.Background(),
		[]dpd.Package{testPackage("first"), testPackage("fail"), testPackage("third")},
		dpd.LabelOptions{Format: dpd.FormatZPL, PageFormat: dpd.PageLBL}, 2)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, dpd.FormatZPL, results[0].Label.Label.Format)
	assert.ErrorIs(t, results[1].Err, dpd.ErrAPI)
	assert.ErrorContains(t, results[1].Err, "INCORRECT_RECEIVER")
	assert.Nil(t, results[1].Label)
	assert.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Label.Waybill, results[2].Label.Waybill)
}

func TestClient_Track(t *testing.T) {
	c, _ := newTestClient(t)

	status, url, err := c.Track(context.Background(), "0000000000001U")

	require.NoError(t, err)
	assert.Equal(t, "0000000000001U", status.Waybill)
	assert.True(t, strings.HasSuffix(url, "q=0000000000001U"))
}

func TestClient_CreatePickup(t *testing.T) {
	c, set := newTestClient(t)
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	pickup, err := c.CreatePickup(context.Background(), day, "09:00", "15:00", []string{"W1"})

	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", pickup.PickupDate)
	calls := set.ObjServices.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "2026-10-20", calls[0].Args["pickupDate"])
	assert.Equal(t, []any{"W1"}, calls[0].Args["waybills"])
}

func TestClient_Procedures(t *testing.T) {
	c, set := newTestClient(t)
	set.ObjServices.Remove("generateReturnLabelV1")

	checks, err := c.Procedures()

	require.NoError(t, err)
	assert.Len(t, checks, 11)
	assert.Equal(t, []string{"objServices/generateReturnLabelV1"}, client.Missing(checks))
}

func TestClient_RetryBackoff(t *testing.T) {
	var mu sync.Mutex
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		delays = append(delays, d)
		return nil
	}
	set := mock.NewSet()
	set.ObjServices.SimulateErrors = mock.ErrUnavailable
	cfg := client.DefaultConfig(testCreds)
	cfg.MaxRetries = 2
	cfg.RetryDelay = 100 * time.Millisecond

	c, err := client.New(cfg, otelzap.New(zap.NewNop()), nil, client.WithMocks(set), client.WithSleep(sleep))
	require.NoError(t, err)
	require.NoError(t, c.Initialize(context.Background()))

	_, err = c.Tracking.GetParcelStatus(context.Background(), "W1")

	assert.ErrorIs(t, err, dpd.ErrRetriesExhausted)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 300 * time.Millisecond}, delays)
	assert.Equal(t, 3, set.ObjServices.CallCount("getParcelStatus"))
}
