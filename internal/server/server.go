package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"travel-planner/internal/amap"
	"travel-planner/internal/cache"
	"travel-planner/internal/config"
	"travel-planner/internal/geocoding"
	"travel-planner/internal/handlers"
	"travel-planner/internal/iplocate"
	"travel-planner/internal/itinerary"
	"travel-planner/internal/metrics"
	"travel-planner/internal/places"
	"travel-planner/internal/transit"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	handler    *handlers.Handler
	store      cache.Store
	geoip      *iplocate.GeoIPLocator
	listener   net.Listener
	addr       string
}

// New creates and initializes a new server (does not start it)
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Printf("Initializing lookup cache...")
	store, err := cache.New(ctx, cfg.CacheStoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	var locator iplocate.Locator = iplocate.NopLocator{}
	var geoip *iplocate.GeoIPLocator
	if cfg.GeoIP.DBPath != "" {
		geoip, err = iplocate.Open(cfg.GeoIP.DBPath)
		if err != nil {
			log.Printf("[GEOIP] Disabled: %v", err)
		} else {
			locator = geoip
		}
	}

	client := amap.NewClient(cfg.AMapClientConfig())
	geocoder := geocoding.NewCachedGeocoder(geocoding.NewAMapGeocoder(client), store, cfg.Cache.TTL)
	resolver := places.NewResolver(geocoder, places.Options{
		AllowUnfilteredFallback: cfg.Planner.AllowUnfilteredFallback,
	})
	legs := transit.NewLegResolver(transit.NewAMapPlanner(client), geocoder)
	planner := itinerary.NewPlanner(resolver, legs, geocoder, itinerary.Options{
		Timeout: cfg.Planner.Timeout,
	})

	handler := &handlers.Handler{
		Planner:  planner,
		Places:   resolver,
		Legs:     legs,
		Geocoder: geocoder,
		Locator:  locator,
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Planner.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		store:      store,
		geoip:      geoip,
		addr:       cfg.Server.Addr,
	}, nil
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	log.Printf("Starting server on %s", actualAddr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.geoip != nil {
		err = errors.Join(err, s.geoip.Close())
	}
	return errors.Join(err, s.store.Close())
}

// NewRouter configures all HTTP routes
func NewRouter(handler *handlers.Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/health", handler.HandleHealth)

		apiV1.POST("/itinerary", handler.HandlePlanItinerary)
		apiV1.POST("/geocode", handler.HandleGeocode)
		apiV1.POST("/transit", handler.HandleTransit)
		apiV1.POST("/city-adcode", handler.HandleCityAdcode)
		apiV1.POST("/inputtips", handler.HandleInputTips)
		apiV1.POST("/nearby", handler.HandleNearby)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}

// loggingMiddleware logs each request and records its latency by route
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPDurationMs.WithLabelValues(route).Observe(float64(duration.Milliseconds()))
		log.Printf("%s %s %d %v", c.Request.Method, c.Request.URL.Path, status, duration)
	}
}
