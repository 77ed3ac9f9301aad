package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{5, 10, 25, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})
	HTTPDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_http_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"route"})

	AMapRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_amap_requests_total",
		Help: "Total amap REST requests by endpoint",
	}, []string{"endpoint"})
	AMapFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_amap_fail_total",
		Help: "Total amap REST failures by endpoint",
	}, []string{"endpoint"})
	AMapDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_amap_duration_ms",
		Help:    "AMap REST call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"endpoint"})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_cache_hits_total",
		Help: "Lookup cache hits by kind",
	}, []string{"kind"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_cache_misses_total",
		Help: "Lookup cache misses by kind",
	}, []string{"kind"})

	ItinerariesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_itineraries_total",
		Help: "Itinerary requests by outcome",
	}, []string{"outcome"})
	PlanDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_plan_duration_ms",
		Help:    "End-to-end itinerary planning duration in milliseconds",
		Buckets: durationBuckets,
	})
	PlacesFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_places_failed_total",
		Help: "Destinations that could not be resolved, by reason",
	}, []string{"reason"})
	LegsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_legs_total",
		Help: "Resolved legs by travel mode",
	}, []string{"mode"})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPDurationMs)
	prometheus.MustRegister(AMapRequestsTotal)
	prometheus.MustRegister(AMapFailTotal)
	prometheus.MustRegister(AMapDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ItinerariesTotal)
	prometheus.MustRegister(PlanDurationMs)
	prometheus.MustRegister(PlacesFailedTotal)
	prometheus.MustRegister(LegsTotal)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
