package mock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/dpd/pkg/dpd"
	"github.com/tournevent/dpd/pkg/dpd/mock"
	"github.com/tournevent/dpd/pkg/dpd/session"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func TestSet_OptionsDialEachKind(t *testing.T) {
	set := mock.NewSet()
	m := session.New(session.Config{
		Environment: dpd.Demo,
		Credentials: mock.Credentials,
		Kinds:       []dpd.ServiceKind{dpd.ObjServices, dpd.XMLServices, dpd.PUDO},
	}, otelzap.New(zap.NewNop()), set.Options()...)
	require.NoError(t, m.Open(context.Background()))

	want := map[dpd.ServiceKind]*mock.Handle{
		dpd.ObjServices: set.ObjServices,
		dpd.XMLServices: set.XMLServices,
		dpd.PUDO:        set.PUDO,
	}
	for kind, handle := range want {
		h, err := m.Handle(kind)
		require.NoError(t, err)
		assert.Same(t, handle, h, kind)
		assert.Equal(t, kind, handle.Kind())
	}
}

func TestHandle_CallRecordsAndFallsThrough(t *testing.T) {
	h := mock.New(dpd.ObjServices)
	h.OnCall = func(context.Context, string, map[string]any) (any, error) { return nil, nil }

	resp, err := h.Call(context.Background(), "getPostcodeInfo", map[string]any{"postcode": "02274"})

	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 1, h.CallCount("getPostcodeInfo"))
	assert.False(t, h.HasProcedure("generateDocument"))
}
