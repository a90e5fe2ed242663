package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tubedl",
			Name:      "downloads_total",
			Help:      "Total download requests by result (success, invalid_format, failed)",
		},
		[]string{"result"},
	)

	filesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tubedl",
			Name:      "files_swept_total",
			Help:      "Total files deleted by the retention sweeper",
		},
	)

	streamRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tubedl",
			Name:      "stream_retries_total",
			Help:      "Total retried stream copy attempts after transient I/O errors",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(downloads, filesSwept, streamRetries)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncDownload(result string) { downloads.WithLabelValues(result).Inc() }

func AddFilesSwept(n int) { filesSwept.Add(float64(n)) }

func IncStreamRetry() { streamRetries.Inc() }
