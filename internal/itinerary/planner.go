// Package itinerary plans a multi-stop visit: it resolves the origin and
// every destination inside one city, orders them, and resolves each hop.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"travel-planner/internal/geo"
	"travel-planner/internal/geocoding"
	"travel-planner/internal/metrics"
	"travel-planner/internal/models"
	"travel-planner/internal/routing"
)

// DefaultTimeout bounds a whole planning request
const DefaultTimeout = 25 * time.Second

// DefaultOriginName labels coordinate origins given without a name
const DefaultOriginName = "起点"

// PlanRequest is the input of PlanItinerary
type PlanRequest struct {
	Origin   models.OriginInput
	Places   []string
	CityHint string
	CityCode string
}

// ErrInvalidOrigin is returned when the origin is malformed or cannot be found
type ErrInvalidOrigin struct {
	Reason string
	Err    error
}

func (e *ErrInvalidOrigin) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid origin: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid origin: %s", e.Reason)
}

func (e *ErrInvalidOrigin) Unwrap() error {
	return e.Err
}

// ErrNoPlacesResolved is returned when not a single destination resolved
type ErrNoPlacesResolved struct {
	Failed []models.FailedPlace
}

func (e *ErrNoPlacesResolved) Error() string {
	return fmt.Sprintf("no places resolved in target city (%d failed)", len(e.Failed))
}

// PlaceResolver resolves one destination inside a city
type PlaceResolver interface {
	Resolve(ctx context.Context, constraint models.CityConstraint, query string) (*models.ResolvedPlace, error)
}

// LegResolver resolves one hop. Neither method fails.
type LegResolver interface {
	ResolveLeg(ctx context.Context, cityFallback string, from, to models.ResolvedPlace) models.Leg
	Fallback(from, to models.ResolvedPlace) models.Leg
}

// Options tunes the planner
type Options struct {
	// Timeout bounds the whole request; zero means DefaultTimeout
	Timeout time.Duration
}

// Planner composes place resolution, sequencing and leg resolution. It holds
// no per-request state.
type Planner struct {
	places   PlaceResolver
	legs     LegResolver
	geocoder geocoding.Geocoder
	opts     Options
}

// NewPlanner creates a planner. geocoder is used to look up the city code
// from a city hint and may be nil to skip that lookup.
func NewPlanner(places PlaceResolver, legs LegResolver, geocoder geocoding.Geocoder, opts Options) *Planner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Planner{places: places, legs: legs, geocoder: geocoder, opts: opts}
}

// PlanItinerary resolves, orders and connects the requested places. It
// fails only with *ErrInvalidOrigin or *ErrNoPlacesResolved; everything else
// degrades into Failed entries or walking legs.
func (p *Planner) PlanItinerary(ctx context.Context, req PlanRequest) (*models.ItineraryResult, error) {
	totalStart := time.Now()
	requestID := uuid.NewString()
	log.Printf("[PLANNER] Starting: request_id=%s places=%d city_hint=%s city_code=%s",
		requestID, len(req.Places), req.CityHint, req.CityCode)

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	// Phase 1: origin and city code
	phaseStart := time.Now()
	origin, cityCode, err := p.resolveOrigin(ctx, req)
	if err != nil {
		log.Printf("[ERROR] Invalid origin: request_id=%s err=%v", requestID, err)
		metrics.ItinerariesTotal.WithLabelValues("invalid_origin").Inc()
		return nil, err
	}
	constraint := models.NewCityConstraint(req.CityHint, cityCode)
	log.Printf("[TIMING] Origin: %v (request_id=%s city_code=%s)", time.Since(phaseStart), requestID, cityCode)

	// Phase 2: places
	phaseStart = time.Now()
	resolved, failed := p.resolvePlaces(ctx, constraint, req.Places)
	log.Printf("[TIMING] Places: %v (request_id=%s resolved=%d failed=%d)",
		time.Since(phaseStart), requestID, len(resolved), len(failed))
	if len(resolved) == 0 {
		log.Printf("[ERROR] No places resolved: request_id=%s", requestID)
		metrics.ItinerariesTotal.WithLabelValues("no_places").Inc()
		return nil, &ErrNoPlacesResolved{Failed: failed}
	}

	// Phase 3: order
	ordered := routing.Sequence(origin.GetCoords(), resolved)

	// Phase 4: legs
	phaseStart = time.Now()
	legs := p.resolveLegs(ctx, cityCode, origin, ordered)
	reconcile(&origin, ordered, legs)
	log.Printf("[TIMING] Legs: %v (request_id=%s legs=%d)", time.Since(phaseStart), requestID, len(legs))

	metrics.ItinerariesTotal.WithLabelValues("ok").Inc()
	metrics.PlanDurationMs.Observe(float64(time.Since(totalStart).Milliseconds()))
	log.Printf("[TIMING] Total: %v (request_id=%s)", time.Since(totalStart), requestID)

	return &models.ItineraryResult{
		RequestID:     requestID,
		CityAdcode:    cityCode,
		Origin:        origin,
		OrderedPlaces: ordered,
		Legs:          legs,
		Failed:        failed,
	}, nil
}

// resolveOrigin validates the origin, derives the city code and resolves a
// text origin inside the city. The city lookup runs while a coordinate
// origin is prepared; a text origin waits for it so it gets the prefix test.
func (p *Planner) resolveOrigin(ctx context.Context, req PlanRequest) (models.ResolvedPlace, string, error) {
	in := req.Origin
	kind := in.Type
	if kind == "" {
		kind = models.OriginText
		if in.Lng != nil || in.Lat != nil {
			kind = models.OriginCoord
		}
	}

	switch kind {
	case models.OriginCoord:
		if in.Lng == nil || in.Lat == nil {
			return models.ResolvedPlace{}, "", &ErrInvalidOrigin{Reason: "lng and lat are required"}
		}
		if !geo.ValidCoordinates(models.Coordinates{Lat: *in.Lat, Lng: *in.Lng}) {
			return models.ResolvedPlace{}, "", &ErrInvalidOrigin{Reason: fmt.Sprintf("coordinates out of range: %v,%v", *in.Lng, *in.Lat)}
		}
	case models.OriginText:
		if strings.TrimSpace(in.Text) == "" {
			return models.ResolvedPlace{}, "", &ErrInvalidOrigin{Reason: "origin text is empty"}
		}
	default:
		return models.ResolvedPlace{}, "", &ErrInvalidOrigin{Reason: fmt.Sprintf("unknown origin type %q", in.Type)}
	}

	codeCh := make(chan string, 1)
	go func() {
		codeCh <- p.cityCode(ctx, req.CityHint, req.CityCode)
	}()

	if kind == models.OriginCoord {
		c := models.Coordinates{Lat: *in.Lat, Lng: *in.Lng}
		if strings.EqualFold(in.CoordSys, "wgs84") {
			c = geo.WGS84ToGCJ02(c)
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = DefaultOriginName
		}
		origin := models.ResolvedPlace{Name: name, Lng: c.Lng, Lat: c.Lat}
		return origin, <-codeCh, nil
	}

	cityCode := <-codeCh
	text := strings.TrimSpace(in.Text)
	place, err := p.places.Resolve(ctx, models.NewCityConstraint(req.CityHint, cityCode), text)
	if err != nil {
		return models.ResolvedPlace{}, "", &ErrInvalidOrigin{Reason: fmt.Sprintf("origin %q not found", text), Err: err}
	}
	return *place, cityCode, nil
}

// cityCode returns the explicit code, or looks one up from the hint.
// A failed lookup yields "" and the constraint falls back to name matching.
func (p *Planner) cityCode(ctx context.Context, hint, code string) string {
	code = strings.TrimSpace(code)
	hint = strings.TrimSpace(hint)
	if code != "" || hint == "" || p.geocoder == nil {
		return code
	}

	candidates, err := p.geocoder.Geocode(ctx, hint, "")
	if err != nil {
		log.Printf("[PLANNER] City code lookup failed: hint=%s err=%v", hint, err)
		return ""
	}
	for _, c := range candidates {
		if c.Adcode != "" {
			log.Printf("[PLANNER] City code from hint: hint=%s adcode=%s", hint, c.Adcode)
			return c.Adcode
		}
	}
	log.Printf("[PLANNER] City code lookup found nothing: hint=%s", hint)
	return ""
}

type placeOutcome struct {
	place *models.ResolvedPlace
	err   error
}

// resolvePlaces resolves every name concurrently. Resolved places keep input
// order, as do failures.
func (p *Planner) resolvePlaces(ctx context.Context, constraint models.CityConstraint, names []string) ([]models.ResolvedPlace, []models.FailedPlace) {
	slots := make([]chan placeOutcome, len(names))
	for i, name := range names {
		slots[i] = make(chan placeOutcome, 1)
		go func(slot chan<- placeOutcome, name string) {
			place, err := p.places.Resolve(ctx, constraint, name)
			slot <- placeOutcome{place: place, err: err}
		}(slots[i], name)
	}

	outcomes, done := gather(ctx, slots)

	resolved := make([]models.ResolvedPlace, 0, len(names))
	failed := make([]models.FailedPlace, 0)
	for i, name := range names {
		var f *models.FailedPlace
		switch {
		case !done[i]:
			f = &models.FailedPlace{Name: name, Reason: models.ReasonDeadlineExceeded, Message: "resolution did not finish before the deadline"}
		case outcomes[i].err != nil:
			f = &models.FailedPlace{Name: name, Reason: failureReason(outcomes[i].err), Message: outcomes[i].err.Error()}
		case outcomes[i].place == nil:
			f = &models.FailedPlace{Name: name, Reason: models.ReasonNotFoundInCity, Message: "not found"}
		default:
			resolved = append(resolved, *outcomes[i].place)
			continue
		}
		metrics.PlacesFailedTotal.WithLabelValues(f.Reason).Inc()
		failed = append(failed, *f)
	}
	return resolved, failed
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ReasonDeadlineExceeded
	}
	return models.ReasonNotFoundInCity
}

// resolveLegs resolves origin -> ordered[0] -> ordered[1] ... concurrently.
// Legs still pending at the deadline become walking estimates.
func (p *Planner) resolveLegs(ctx context.Context, cityCode string, origin models.ResolvedPlace, ordered []models.ResolvedPlace) []models.Leg {
	froms := make([]models.ResolvedPlace, len(ordered))
	slots := make([]chan models.Leg, len(ordered))
	for i, to := range ordered {
		from := origin
		if i > 0 {
			from = ordered[i-1]
		}
		froms[i] = from
		slots[i] = make(chan models.Leg, 1)
		go func(slot chan<- models.Leg, from, to models.ResolvedPlace) {
			slot <- p.legs.ResolveLeg(ctx, cityCode, from, to)
		}(slots[i], from, to)
	}

	legs, done := gather(ctx, slots)
	for i := range legs {
		if !done[i] {
			log.Printf("[PLANNER] Leg timed out, walking: from=%s to=%s", froms[i].Name, ordered[i].Name)
			legs[i] = p.legs.Fallback(froms[i], ordered[i])
		}
	}
	return legs
}

// gather collects one value per slot, in slot order. Once ctx is done it
// takes only values already delivered; done[i] is false for the rest.
func gather[T any](ctx context.Context, slots []chan T) ([]T, []bool) {
	out := make([]T, len(slots))
	done := make([]bool, len(slots))
	for i, slot := range slots {
		select {
		case v := <-slot:
			out[i], done[i] = v, true
		case <-ctx.Done():
			for j := i; j < len(slots); j++ {
				select {
				case v := <-slots[j]:
					out[j], done[j] = v, true
				default:
				}
			}
			return out, done
		}
	}
	return out, done
}

// reconcile copies metadata found while resolving legs back onto the origin
// and ordered places, then points every leg at the reconciled places so
// legs[i].To == ordered[i] and legs[i].From is its predecessor.
func reconcile(origin *models.ResolvedPlace, ordered []models.ResolvedPlace, legs []models.Leg) {
	at := func(i int) *models.ResolvedPlace {
		if i < 0 {
			return origin
		}
		return &ordered[i]
	}

	for i, leg := range legs {
		at(i - 1).FillAdminInfo(adminInfo(leg.From))
		at(i).FillAdminInfo(adminInfo(leg.To))
	}
	for i := range legs {
		legs[i].From = *at(i - 1)
		legs[i].To = *at(i)
	}
}

func adminInfo(p models.ResolvedPlace) models.AdminInfo {
	return models.AdminInfo{CityName: p.CityName, CityCode: p.CityCode, Adcode: p.Adcode}
}
