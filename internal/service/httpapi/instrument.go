package httpapi

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrument оборачивает API метриками promhttp: длительность и число запросов
// по коду ответа и методу.
func Instrument(next http.Handler, registerer prometheus.Registerer) http.Handler {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	duration := registerCollector(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of storefront HTTP API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"code", "method"}))
	requests := registerCollector(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total number of storefront HTTP API requests",
	}, []string{"code", "method"}))
	inFlight := registerCollector(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_http_requests_in_flight",
		Help: "Number of storefront HTTP API requests being served",
	}))

	return promhttp.InstrumentHandlerInFlight(inFlight,
		promhttp.InstrumentHandlerDuration(duration,
			promhttp.InstrumentHandlerCounter(requests, next),
		),
	)
}

func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
