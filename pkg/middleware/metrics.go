package middleware

import (
	"net/http"
	"strconv"
	"time"

	"charger-booking/pkg/metrics"
)

// Metrics records request count and latency per chi route pattern, so
// /api/bookings/ABCD2345 and /api/bookings/WXYZ6789 share one series.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		metrics.RecordHTTPRequest(r.Method, routePattern(r), strconv.Itoa(rw.status), time.Since(start).Seconds())
	})
}
