package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/service"
)

func TestRegistry_OnOperation(t *testing.T) {
	r := New()

	r.OnOperation(service.OpSave, types.StatusOK, 2, 3*time.Millisecond)
	r.OnOperation(service.OpSave, types.StatusOK, 0, time.Millisecond)
	r.OnOperation(service.OpDump, types.StatusInvalidPath, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.OperationsTotal.WithLabelValues("save", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.OperationsTotal.WithLabelValues("dump", "INVALID_PATH")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.WarningsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(r.OperationDuration))
}

func TestRegistry_OnState(t *testing.T) {
	r := New()
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Records.WithLabelValues("person")))

	r.OnState(map[entity.Kind]int{entity.KindLocation: 3, entity.KindPerson: 1})

	assert.Equal(t, 3.0, testutil.ToFloat64(r.Records.WithLabelValues("location")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Records.WithLabelValues("person")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Records.WithLabelValues("object")))
}

func TestRegistry_AdminRequests(t *testing.T) {
	r := New()
	r.ObserveAdminRequest("POST", "/save", 200)
	r.ObserveAdminRequest("POST", "/save", 200)
	r.ObserveAdminRequest("POST", "/dump", 400)

	expected := `
# HELP kbase_admin_requests_total Total number of HTTP API requests.
# TYPE kbase_admin_requests_total counter
kbase_admin_requests_total{method="POST",path="/dump",status="400"} 1
kbase_admin_requests_total{method="POST",path="/save",status="200"} 2
`
	require.NoError(t, testutil.CollectAndCompare(r.AdminRequestsTotal, strings.NewReader(expected)))
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.OnOperation(service.OpDelete, types.StatusOK, 0, time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `kbase_operations_total{operation="delete",status="OK"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegistry_ServiceIntegration(t *testing.T) {
	r := New()
	svc := service.New(nil, service.WithObserver(r))

	svc.Save(t.Context(), entity.Batch{Locations: []entity.Location{{Name: "kitchen"}}})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.OperationsTotal.WithLabelValues("save", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Records.WithLabelValues("location")))
}
