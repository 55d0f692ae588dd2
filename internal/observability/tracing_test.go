package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "galaxydistance-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "requests", "submit")
	assert.NotNil(t, ctx)
	EndSpan(span, errors.New("ignored by the noop tracer"))
}

func TestObserveCounters(t *testing.T) {
	before := testutil.ToFloat64(RequestTransitions.WithLabelValues("submit"))
	ObserveTransition("submit")
	assert.Equal(t, before+1, testutil.ToFloat64(RequestTransitions.WithLabelValues("submit")))

	before = testutil.ToFloat64(SessionResolutions.WithLabelValues(FlavorGuest, ResultMinted))
	ObserveSession(FlavorGuest, ResultMinted)
	assert.Equal(t, before+1, testutil.ToFloat64(SessionResolutions.WithLabelValues(FlavorGuest, ResultMinted)))
}
