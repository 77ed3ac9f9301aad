// Package transit decides how to travel between two resolved places: public
// transit when the provider has a plan, walking otherwise.
package transit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"travel-planner/internal/amap"
	"travel-planner/internal/models"
)

// Part is the distance/duration of one piece of a segment
type Part struct {
	DistanceMeters  *float64
	DurationSeconds *float64
}

// Segment is one step of a transit plan
type Segment struct {
	Walking  *Part
	BusLines []Part
	Railway  *Part
	Taxi     *Part
}

// Plan is the first itinerary offered by the provider. Totals are nil when
// the provider omitted them.
type Plan struct {
	DistanceMeters  *float64
	DurationSeconds *float64
	CostYuan        *float64
	Segments        []Segment
	RawSegments     json.RawMessage
}

// PlanRequest identifies both endpoints of a leg
type PlanRequest struct {
	From  models.ResolvedPlace
	To    models.ResolvedPlace
	City1 string
	City2 string
	Ad1   string
	Ad2   string
}

// Planner is the transit routing provider
type Planner interface {
	// PlanTransit returns the first itinerary or nil when there is none
	PlanTransit(ctx context.Context, req PlanRequest) (*Plan, error)
	// TransitDuration asks the legacy endpoint for a duration only; nil when unknown
	TransitDuration(ctx context.Context, from, to models.ResolvedPlace) (*float64, error)
}

// ErrPlanningFailed wraps provider failures
type ErrPlanningFailed struct {
	From   string
	To     string
	Reason string
	Err    error
}

func (e *ErrPlanningFailed) Error() string {
	return fmt.Sprintf("transit planning failed: %s -> %s: %s", e.From, e.To, e.Reason)
}

func (e *ErrPlanningFailed) Unwrap() error {
	return e.Err
}

type amapPlanner struct {
	client *amap.Client
}

// NewAMapPlanner creates a provider-backed Planner
func NewAMapPlanner(client *amap.Client) Planner {
	return &amapPlanner{client: client}
}

// cost is a number on the legacy endpoint and an object on v5
type cost struct {
	Duration   amap.FlexFloat
	TransitFee amap.FlexFloat
}

func (c *cost) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var raw struct {
			Duration   amap.FlexFloat `json:"duration"`
			TransitFee amap.FlexFloat `json:"transit_fee"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		c.Duration = raw.Duration
		c.TransitFee = raw.TransitFee
		return nil
	}
	*c = cost{}
	return c.TransitFee.UnmarshalJSON(data)
}

type part struct {
	Distance amap.FlexFloat `json:"distance"`
	Duration amap.FlexFloat `json:"duration"`
	Time     amap.FlexFloat `json:"time"`
	Drive    amap.FlexFloat `json:"drivetime"`
	Cost     cost           `json:"cost"`
}

func (p *part) toPart() *Part {
	if p == nil {
		return nil
	}
	duration := p.Duration
	for _, alt := range []amap.FlexFloat{p.Cost.Duration, p.Time, p.Drive} {
		if duration.Valid {
			break
		}
		duration = alt
	}
	return &Part{DistanceMeters: p.Distance.Ptr(), DurationSeconds: duration.Ptr()}
}

// objectPart tolerates [] where an object is expected
type objectPart struct {
	*part
}

func (o *objectPart) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		o.part = nil
		return nil
	}
	o.part = &part{}
	return json.Unmarshal(data, o.part)
}

type segment struct {
	Walking objectPart `json:"walking"`
	Bus     struct {
		BusLines []part `json:"buslines"`
	} `json:"bus"`
	Railway objectPart `json:"railway"`
	Taxi    objectPart `json:"taxi"`
}

func (s *segment) UnmarshalJSON(data []byte) error {
	type plain segment
	var raw struct {
		plain
		Bus json.RawMessage `json:"bus"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = segment(raw.plain)
	if b := bytes.TrimSpace(raw.Bus); len(b) > 0 && b[0] == '{' {
		if err := json.Unmarshal(b, &s.Bus); err != nil {
			return err
		}
	}
	return nil
}

type transitResponse struct {
	Route struct {
		Transits []struct {
			Distance amap.FlexFloat  `json:"distance"`
			Duration amap.FlexFloat  `json:"duration"`
			Cost     cost            `json:"cost"`
			Segments json.RawMessage `json:"segments"`
		} `json:"transits"`
	} `json:"route"`
}

func (p *amapPlanner) PlanTransit(ctx context.Context, req PlanRequest) (*Plan, error) {
	params := url.Values{}
	params.Set("origin", req.From.Location())
	params.Set("destination", req.To.Location())
	setIf(params, "city1", req.City1)
	setIf(params, "city2", req.City2)
	setIf(params, "ad1", req.Ad1)
	setIf(params, "ad2", req.Ad2)
	params.Set("show_fields", "cost")

	var resp transitResponse
	if err := p.client.Get(ctx, amap.PathTransitV5, params, &resp); err != nil {
		return nil, &ErrPlanningFailed{From: req.From.Name, To: req.To.Name, Reason: "transit request failed", Err: err}
	}

	if len(resp.Route.Transits) == 0 {
		log.Printf("[TRANSIT] No plans: from=%s to=%s", req.From.Name, req.To.Name)
		return nil, nil
	}

	best := resp.Route.Transits[0]
	duration := best.Duration
	if !duration.Valid {
		duration = best.Cost.Duration
	}
	plan := &Plan{
		DistanceMeters:  best.Distance.Ptr(),
		DurationSeconds: duration.Ptr(),
		CostYuan:        best.Cost.TransitFee.Ptr(),
	}

	if seg := bytes.TrimSpace(best.Segments); len(seg) > 0 && seg[0] == '[' {
		var segments []segment
		if err := json.Unmarshal(seg, &segments); err != nil {
			return nil, &ErrPlanningFailed{From: req.From.Name, To: req.To.Name, Reason: "decode segments", Err: err}
		}
		for _, s := range segments {
			out := Segment{
				Walking: s.Walking.toPart(),
				Railway: s.Railway.toPart(),
				Taxi:    s.Taxi.toPart(),
			}
			for i := range s.Bus.BusLines {
				out.BusLines = append(out.BusLines, *s.Bus.BusLines[i].toPart())
			}
			plan.Segments = append(plan.Segments, out)
		}
		plan.RawSegments = seg
	}

	log.Printf("[TRANSIT] Plan: from=%s to=%s segments=%d", req.From.Name, req.To.Name, len(plan.Segments))
	return plan, nil
}

func (p *amapPlanner) TransitDuration(ctx context.Context, from, to models.ResolvedPlace) (*float64, error) {
	params := url.Values{}
	params.Set("origin", from.Location())
	params.Set("destination", to.Location())
	city := firstNonEmpty(from.CityCode, from.CityName, to.CityCode, to.CityName)
	setIf(params, "city", city)
	params.Set("strategy", "0")

	var resp transitResponse
	if err := p.client.Get(ctx, amap.PathTransitV3, params, &resp); err != nil {
		return nil, &ErrPlanningFailed{From: from.Name, To: to.Name, Reason: "legacy transit request failed", Err: err}
	}
	if len(resp.Route.Transits) == 0 {
		return nil, nil
	}
	return resp.Route.Transits[0].Duration.Ptr(), nil
}

func setIf(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
