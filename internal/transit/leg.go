package transit

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"

	"travel-planner/internal/geo"
	"travel-planner/internal/geocoding"
	"travel-planner/internal/metrics"
	"travel-planner/internal/models"
)

// LegResolver builds legs. It never fails: anything that goes wrong with the
// transit provider ends in a walking estimate.
type LegResolver struct {
	planner Planner
	regeo   geocoding.ReverseGeocoder
}

// NewLegResolver creates a resolver; regeo may be nil to skip enrichment
func NewLegResolver(planner Planner, regeo geocoding.ReverseGeocoder) *LegResolver {
	return &LegResolver{planner: planner, regeo: regeo}
}

// ResolveLeg plans the hop from -> to. cityFallback is the district code
// used when an endpoint has none. The returned leg carries copies of the
// endpoints, enriched with whatever metadata reverse geocoding found; the
// arguments are not modified.
func (r *LegResolver) ResolveLeg(ctx context.Context, cityFallback string, from, to models.ResolvedPlace) models.Leg {
	from = r.enrich(ctx, from)
	to = r.enrich(ctx, to)

	req := PlanRequest{
		From:  from,
		To:    to,
		City1: from.CityCode,
		City2: to.CityCode,
		Ad1:   firstNonEmpty(from.Adcode, cityFallback),
		Ad2:   firstNonEmpty(to.Adcode, cityFallback),
	}

	plan, err := r.planner.PlanTransit(ctx, req)
	if err != nil {
		log.Printf("[TRANSIT] Falling back to walk: from=%s to=%s err=%v", from.Name, to.Name, err)
		return r.finish(WalkingLeg(from, to))
	}
	if plan == nil {
		return r.finish(WalkingLeg(from, to))
	}

	leg := models.Leg{
		From:            from,
		To:              to,
		Mode:            models.ModeTransit,
		DistanceMeters:  plan.DistanceMeters,
		DurationSeconds: plan.DurationSeconds,
		CostYuan:        plan.CostYuan,
		Segments:        plan.RawSegments,
	}
	if leg.DistanceMeters == nil {
		leg.DistanceMeters = sumSegments(plan.Segments, func(p Part) *float64 { return p.DistanceMeters })
	}
	if leg.DurationSeconds == nil {
		leg.DurationSeconds = sumSegments(plan.Segments, func(p Part) *float64 { return p.DurationSeconds })
	}
	if leg.DurationSeconds == nil {
		d, err := r.planner.TransitDuration(ctx, from, to)
		if err != nil {
			log.Printf("[TRANSIT] Legacy duration lookup failed: from=%s to=%s err=%v", from.Name, to.Name, err)
		}
		leg.DurationSeconds = d
	}

	return r.finish(leg)
}

// Fallback returns the walking leg used when a hop could not be planned in time
func (r *LegResolver) Fallback(from, to models.ResolvedPlace) models.Leg {
	return r.finish(WalkingLeg(from, to))
}

func (r *LegResolver) finish(leg models.Leg) models.Leg {
	nav := NavigationFor(leg.From, leg.To)
	leg.Navigation = &nav
	metrics.LegsTotal.WithLabelValues(string(leg.Mode)).Inc()
	return leg
}

// enrich fills missing city/district codes on a copy of p. Errors are
// ignored.
func (r *LegResolver) enrich(ctx context.Context, p models.ResolvedPlace) models.ResolvedPlace {
	if r.regeo == nil || !p.NeedsAdminInfo() {
		return p
	}
	info, err := r.regeo.ReverseGeocode(ctx, p.GetCoords())
	if err != nil {
		log.Printf("[TRANSIT] Enrichment skipped: place=%s err=%v", p.Name, err)
		return p
	}
	p.FillAdminInfo(*info)
	return p
}

// sumSegments adds field over every walking, bus line, railway and taxi
// part. It returns nil when no part carried the field.
func sumSegments(segments []Segment, field func(Part) *float64) *float64 {
	var total float64
	found := false
	add := func(p *Part) {
		if p == nil {
			return
		}
		if v := field(*p); v != nil {
			total += *v
			found = true
		}
	}

	for _, s := range segments {
		add(s.Walking)
		for i := range s.BusLines {
			add(&s.BusLines[i])
		}
		add(s.Railway)
		add(s.Taxi)
	}
	if !found {
		return nil
	}
	return &total
}

// WalkingLeg estimates a walk between two places from straight-line distance
func WalkingLeg(from, to models.ResolvedPlace) models.Leg {
	dm := math.Round(geo.Haversine(from.GetCoords(), to.GetCoords()))
	ds := math.Round(geo.WalkingSeconds(dm))
	return models.Leg{
		From:            from,
		To:              to,
		Mode:            models.ModeWalk,
		DistanceMeters:  models.Float(dm),
		DurationSeconds: models.Float(ds),
		Note:            models.WalkFallbackNote,
	}
}

// NavigationFor builds deep links that open the hop in the map app or on
// the web.
func NavigationFor(from, to models.ResolvedPlace) models.NavigationLinks {
	appURI := fmt.Sprintf("amapuri://route/plan/?t=1&slat=%s&slon=%s&sname=%s&dlat=%s&dlon=%s&dname=%s",
		coord(from.Lat), coord(from.Lng), escape(from.Name),
		coord(to.Lat), coord(to.Lng), escape(to.Name))
	webURL := fmt.Sprintf("https://uri.amap.com/navigation?from=%s,%s,%s&to=%s,%s,%s&mode=bus&policy=1&src=travel-planner",
		coord(from.Lng), coord(from.Lat), escape(from.Name),
		coord(to.Lng), coord(to.Lat), escape(to.Name))
	return models.NavigationLinks{AppURI: appURI, WebURL: webURL}
}

// escape percent-encodes a name for a query value, spaces as %20
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func coord(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
