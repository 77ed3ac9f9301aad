// Package iplocate guesses a city hint from the client address using a
// local GeoLite2-City database.
package iplocate

import (
	"fmt"
	"log"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Locator maps a client IP to a city name; "" when unknown
type Locator interface {
	CityHint(ip string) string
}

// GeoIPLocator reads a MaxMind city database
type GeoIPLocator struct {
	reader *geoip2.Reader
}

// Open opens the database at path
func Open(path string) (*GeoIPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	log.Printf("[GEOIP] Opened database: path=%s", path)
	return &GeoIPLocator{reader: reader}, nil
}

// CityHint returns the Chinese city name for ip, falling back to English
func (l *GeoIPLocator) CityHint(ip string) string {
	addr := lookupable(ip)
	if addr == nil {
		return ""
	}
	record, err := l.reader.City(addr)
	if err != nil {
		log.Printf("[GEOIP] Lookup failed: ip=%s err=%v", ip, err)
		return ""
	}
	if name := record.City.Names["zh-CN"]; name != "" {
		return name
	}
	return record.City.Names["en"]
}

// Close releases the database
func (l *GeoIPLocator) Close() error {
	return l.reader.Close()
}

// NopLocator never knows the city
type NopLocator struct{}

func (NopLocator) CityHint(string) string { return "" }

// lookupable parses ip and drops addresses no database can place
func lookupable(ip string) net.IP {
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return nil
	}
	return addr
}
