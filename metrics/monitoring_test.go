package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("cart_load", "error"))
	RecordOperation("cart_load", errors.New("boom"))
	RecordOperation("cart_load", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(operations.WithLabelValues("cart_load", "error")))
}

func TestInstrumentRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	before := testutil.ToFloat64(apiRequestsTotal.WithLabelValues("418", "get"))
	c := &http.Client{Transport: InstrumentRoundTripper(nil)}
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, before+1, testutil.ToFloat64(apiRequestsTotal.WithLabelValues("418", "get")))
}
