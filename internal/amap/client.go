// Package amap is a thin client for the AMap web service REST API.
package amap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"travel-planner/internal/metrics"
)

// DefaultBaseURL is the public AMap REST endpoint
const DefaultBaseURL = "https://restapi.amap.com"

// Endpoint paths
const (
	PathGeocode     = "/v3/geocode/geo"
	PathRegeo       = "/v3/geocode/regeo"
	PathPlaceText   = "/v3/place/text"
	PathPlaceAround = "/v3/place/around"
	PathInputTips   = "/v3/assistant/inputtips"
	PathDistrict    = "/v3/config/district"
	PathTransitV5   = "/v5/direction/transit/integrated"
	PathTransitV3   = "/v3/direction/transit/integrated"
)

// ErrUpstream is returned when a call fails at the transport, HTTP, decode
// or API-status level.
type ErrUpstream struct {
	Endpoint   string
	StatusCode int
	Info       string
	Reason     string
}

func (e *ErrUpstream) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("amap %s failed: %s (%s)", e.Endpoint, e.Reason, e.Info)
	}
	return fmt.Sprintf("amap %s failed: %s", e.Endpoint, e.Reason)
}

// Status is the envelope every AMap response carries
type Status struct {
	Status   FlexString `json:"status"`
	Info     FlexString `json:"info"`
	Infocode FlexString `json:"infocode"`
}

// OK reports whether the API accepted the request
func (s Status) OK() bool {
	return s.Status == "1"
}

// Config configures a Client
type Config struct {
	BaseURL    string
	Key        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs keyed GET requests against the REST API
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// NewClient creates a client; empty fields fall back to defaults
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		key:        cfg.Key,
		httpClient: httpClient,
	}
}

// Get calls path with params and decodes the JSON body into out. A response
// whose status is not "1" is an error.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := strings.TrimPrefix(path, "/")
	if c.key == "" {
		return &ErrUpstream{Endpoint: endpoint, Reason: "missing api key"}
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	log.Printf("[AMAP] Request: endpoint=%s params=%s", endpoint, q.Encode())
	q.Set("key", c.key)
	q.Set("output", "JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return &ErrUpstream{Endpoint: endpoint, Reason: err.Error()}
	}

	start := time.Now()
	metrics.AMapRequestsTotal.WithLabelValues(endpoint).Inc()
	fail := func(e *ErrUpstream) error {
		metrics.AMapFailTotal.WithLabelValues(endpoint).Inc()
		log.Printf("[ERROR] AMap call failed: endpoint=%s err=%v", endpoint, e)
		return e
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(&ErrUpstream{Endpoint: endpoint, Reason: err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(&ErrUpstream{Endpoint: endpoint, StatusCode: resp.StatusCode, Reason: err.Error()})
	}
	metrics.AMapDurationMs.WithLabelValues(endpoint).Observe(float64(time.Since(start).Milliseconds()))

	if resp.StatusCode != http.StatusOK {
		return fail(&ErrUpstream{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Reason:     fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)),
		})
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return fail(&ErrUpstream{Endpoint: endpoint, StatusCode: resp.StatusCode, Reason: "decode: " + err.Error()})
	}
	if !status.OK() {
		return fail(&ErrUpstream{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Info:       string(status.Info),
			Reason:     "status " + string(status.Status) + " infocode " + string(status.Infocode),
		})
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fail(&ErrUpstream{Endpoint: endpoint, StatusCode: resp.StatusCode, Reason: "decode: " + err.Error()})
		}
	}

	log.Printf("[AMAP] Response: endpoint=%s duration=%v", endpoint, time.Since(start))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
