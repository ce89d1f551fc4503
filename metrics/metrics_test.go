package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandler(t *testing.T) {
	TradesTotal.WithLabelValues("BTC-ETH").Add(3)
	BucketsTotal.WithLabelValues("insert").Inc()

	if got := testutil.ToFloat64(TradesTotal.WithLabelValues("BTC-ETH")); got < 3 {
		t.Errorf("vpa_trades_total = %f, want >= 3", got)
	}

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", recorder.Code)
	}

	body := recorder.Body.String()
	for _, name := range []string{"vpa_trades_total", "vpa_buckets_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics body missing %s", name)
		}
	}
}
