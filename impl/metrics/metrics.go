package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// InitMetrics initializes metrics. If the passed port is zero, no action is taken. Otherwise,
// the function creates all the image manager metrics and registers them for availability
// at the passed port number under the '/metrics' path. Then it starts an HTTP server to
// serve the metrics. The Go runtime and process metrics come along with the default
// prometheus registry.
func InitMetrics(port int) {
	if port == 0 {
		return
	}
	addImgmgrMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
