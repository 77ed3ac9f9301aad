// Package places turns free-text destinations into points inside one city.
package places

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"travel-planner/internal/geocoding"
	"travel-planner/internal/models"
)

// ErrNotFoundInCity is returned when no lookup produced a candidate inside
// the constrained city. Upstream failures are folded in as Cause.
type ErrNotFoundInCity struct {
	Query string
	City  string
	Cause error
}

func (e *ErrNotFoundInCity) Error() string {
	city := e.City
	if city == "" {
		city = "the target city"
	}
	return fmt.Sprintf("%q not found in %s", e.Query, city)
}

func (e *ErrNotFoundInCity) Unwrap() error {
	return e.Cause
}

// Options tunes resolution
type Options struct {
	// AllowUnfilteredFallback lets keyword search fall back to the best
	// unfiltered result when no candidate passes the city check.
	AllowUnfilteredFallback bool
}

// Resolver resolves destination names. It holds no per-request state and is
// safe for concurrent use.
type Resolver struct {
	geocoder geocoding.Geocoder
	opts     Options
}

// NewResolver creates a resolver backed by geocoder
func NewResolver(geocoder geocoding.Geocoder, opts Options) *Resolver {
	return &Resolver{geocoder: geocoder, opts: opts}
}

// resolveStep returns (nil, nil) when it ran fine but found nothing usable
type resolveStep struct {
	name string
	run  func(ctx context.Context, constraint models.CityConstraint, query string) (*models.ResolvedPlace, error)
}

func (r *Resolver) steps() []resolveStep {
	return []resolveStep{
		{name: "address", run: r.byAddress},
		{name: "keyword", run: r.byKeyword},
	}
}

// Resolve returns the first in-city match for query, trying an address
// lookup before a keyword search. It never searches outside the city.
func (r *Resolver) Resolve(ctx context.Context, constraint models.CityConstraint, query string) (*models.ResolvedPlace, error) {
	query = strings.TrimSpace(query)

	var causes []error
	for _, step := range r.steps() {
		place, err := step.run(ctx, constraint, query)
		if err != nil {
			log.Printf("[PLACES] Step failed: step=%s query=%s err=%v", step.name, query, err)
			causes = append(causes, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		if place != nil {
			place.Name = query
			log.Printf("[PLACES] Resolved: step=%s query=%s location=%s adcode=%s", step.name, query, place.Location(), place.Adcode)
			return place, nil
		}
	}

	city := constraint.CityName
	if city == "" {
		city = constraint.QueryCity
	}
	log.Printf("[PLACES] Not found in city: query=%s city=%s", query, city)
	return nil, &ErrNotFoundInCity{Query: query, City: city, Cause: errors.Join(causes...)}
}

func (r *Resolver) byAddress(ctx context.Context, constraint models.CityConstraint, query string) (*models.ResolvedPlace, error) {
	candidates, err := r.geocoder.Geocode(ctx, query, constraint.QueryCity)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if !c.HasLocation {
			continue
		}
		if InCity(c, constraint) {
			place := c.ToPlace(query)
			return &place, nil
		}
	}
	return nil, nil
}

func (r *Resolver) byKeyword(ctx context.Context, constraint models.CityConstraint, query string) (*models.ResolvedPlace, error) {
	candidates, err := r.geocoder.SearchPOI(ctx, query, constraint.QueryCity)
	if err != nil {
		return nil, err
	}

	located := make([]geocoding.Candidate, 0, len(candidates))
	inCity := make([]geocoding.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasLocation {
			continue
		}
		located = append(located, c)
		if InCity(c, constraint) {
			inCity = append(inCity, c)
		}
	}

	pool := inCity
	if len(pool) == 0 && r.opts.AllowUnfilteredFallback {
		pool = located
	}
	if len(pool) == 0 {
		return nil, nil
	}

	best := RankPOIs(query, pool)[0]
	place := best.ToPlace(query)
	return &place, nil
}
