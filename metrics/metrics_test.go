package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("Add"))
	flight := testutil.ToFloat64(inFlight)

	ObserveSubmission("Add")
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsTotal.WithLabelValues("Add")))
	assert.Equal(t, flight+1, testutil.ToFloat64(inFlight))

	transitions := testutil.ToFloat64(statusTransitions.WithLabelValues("InBlock"))
	ObserveTransition("InBlock")
	assert.Equal(t, transitions+1, testutil.ToFloat64(statusTransitions.WithLabelValues("InBlock")))
	assert.Equal(t, flight+1, testutil.ToFloat64(inFlight))
	SubmissionDone()
	assert.Equal(t, flight, testutil.ToFloat64(inFlight))

	failed := testutil.ToFloat64(nodeCalls.WithLabelValues("state_getStorage", "error"))
	ObserveNodeCall("state_getStorage", nil)
	ObserveNodeCall("state_getStorage", errors.New("boom"))
	assert.Equal(t, failed+1, testutil.ToFloat64(nodeCalls.WithLabelValues("state_getStorage", "error")))
}

func TestHandler(t *testing.T) {
	ObserveNodeCall("chain_getBlockHash", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "calc_node_calls_total")
}
