package transit_test

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-planner/internal/geo"
	"travel-planner/internal/models"
	"travel-planner/internal/testutil"
	"travel-planner/internal/transit"
)

func TestResolveLegTransit(t *testing.T) {
	planner := testutil.NewStubPlanner()
	planner.Plans[testutil.LegKey("A", "B")] = &transit.Plan{
		DistanceMeters:  models.Float(5000),
		DurationSeconds: models.Float(1200),
		CostYuan:        models.Float(3),
	}
	resolver := transit.NewLegResolver(planner, nil)

	a := models.ResolvedPlace{Name: "A", Lng: 104.0, Lat: 30.6, CityCode: "028", Adcode: "510104"}
	b := models.ResolvedPlace{Name: "B", Lng: 104.1, Lat: 30.7, CityCode: "028", Adcode: "510107"}
	leg := resolver.ResolveLeg(context.Background(), "510100", a, b)

	assert.Equal(t, models.ModeTransit, leg.Mode)
	assert.Equal(t, 5000.0, *leg.DistanceMeters)
	assert.Equal(t, 1200.0, *leg.DurationSeconds)
	assert.Equal(t, 3.0, *leg.CostYuan)
	assert.Empty(t, leg.Note)
	require.NotNil(t, leg.Navigation)

	req, ok := planner.RequestFor("A", "B")
	require.True(t, ok)
	assert.Equal(t, "510104", req.Ad1)
	assert.Equal(t, "510107", req.Ad2)
	assert.Equal(t, "028", req.City1)
}

func TestResolveLegUsesCityFallbackForMissingAdcode(t *testing.T) {
	planner := testutil.NewStubPlanner()
	resolver := transit.NewLegResolver(planner, nil)

	a := models.ResolvedPlace{Name: "A", Lng: 104.0, Lat: 30.6}
	b := models.ResolvedPlace{Name: "B", Lng: 104.1, Lat: 30.7, Adcode: "510107"}
	resolver.ResolveLeg(context.Background(), "510100", a, b)

	req, ok := planner.RequestFor("A", "B")
	require.True(t, ok)
	assert.Equal(t, "510100", req.Ad1)
	assert.Equal(t, "510107", req.Ad2)
}

func TestResolveLegWalkingFallback(t *testing.T) {
	// 1300 m along the equator
	dLng := 1300.0 / geo.EarthRadiusMeters * 180 / math.Pi
	a := models.ResolvedPlace{Name: "A", Lng: 0, Lat: 0}
	b := models.ResolvedPlace{Name: "B", Lng: dLng, Lat: 0}

	tests := []struct {
		name    string
		prepare func(p *testutil.StubPlanner)
	}{
		{"no plans", func(p *testutil.StubPlanner) {}},
		{"provider error", func(p *testutil.StubPlanner) {
			p.Errors[testutil.LegKey("A", "B")] = errors.New("connection reset")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := testutil.NewStubPlanner()
			tt.prepare(planner)
			resolver := transit.NewLegResolver(planner, nil)

			leg := resolver.ResolveLeg(context.Background(), "", a, b)

			assert.Equal(t, models.ModeWalk, leg.Mode)
			assert.Equal(t, models.WalkFallbackNote, leg.Note)
			require.NotNil(t, leg.DistanceMeters)
			assert.InDelta(t, 1300, *leg.DistanceMeters, 1)
			require.NotNil(t, leg.DurationSeconds)
			assert.InDelta(t, 1000, *leg.DurationSeconds, 1)
			assert.Nil(t, leg.CostYuan)
			require.NotNil(t, leg.Navigation)
		})
	}
}

func TestResolveLegSumsSegmentsWhenTotalsMissing(t *testing.T) {
	planner := testutil.NewStubPlanner()
	planner.Plans[testutil.LegKey("A", "B")] = &transit.Plan{
		Segments: []transit.Segment{
			{Walking: &transit.Part{DistanceMeters: models.Float(200), DurationSeconds: models.Float(150)}},
			{BusLines: []transit.Part{{DistanceMeters: models.Float(3000), DurationSeconds: models.Float(600)}}},
			{Railway: &transit.Part{DistanceMeters: models.Float(8000)}},
		},
	}
	resolver := transit.NewLegResolver(planner, nil)

	leg := resolver.ResolveLeg(context.Background(), "",
		models.ResolvedPlace{Name: "A", Lng: 104.0, Lat: 30.6},
		models.ResolvedPlace{Name: "B", Lng: 104.2, Lat: 30.7})

	assert.Equal(t, models.ModeTransit, leg.Mode)
	assert.Equal(t, 11200.0, *leg.DistanceMeters)
	assert.Equal(t, 750.0, *leg.DurationSeconds)
	assert.Nil(t, leg.CostYuan)
}

func TestResolveLegLegacyDurationFallback(t *testing.T) {
	planner := testutil.NewStubPlanner()
	planner.Plans[testutil.LegKey("A", "B")] = &transit.Plan{
		DistanceMeters: models.Float(4000),
		Segments:       []transit.Segment{{Walking: &transit.Part{DistanceMeters: models.Float(4000)}}},
	}
	planner.Durations[testutil.LegKey("A", "B")] = 1740
	resolver := transit.NewLegResolver(planner, nil)

	leg := resolver.ResolveLeg(context.Background(), "",
		models.ResolvedPlace{Name: "A", Lng: 104.0, Lat: 30.6},
		models.ResolvedPlace{Name: "B", Lng: 104.2, Lat: 30.7})

	assert.Equal(t, models.ModeTransit, leg.Mode)
	require.NotNil(t, leg.DurationSeconds)
	assert.Equal(t, 1740.0, *leg.DurationSeconds)
}

func TestResolveLegDurationStaysNilWhenUnknown(t *testing.T) {
	planner := testutil.NewStubPlanner()
	planner.Plans[testutil.LegKey("A", "B")] = &transit.Plan{DistanceMeters: models.Float(4000)}
	resolver := transit.NewLegResolver(planner, nil)

	leg := resolver.ResolveLeg(context.Background(), "",
		models.ResolvedPlace{Name: "A", Lng: 104.0, Lat: 30.6},
		models.ResolvedPlace{Name: "B", Lng: 104.2, Lat: 30.7})

	assert.Equal(t, models.ModeTransit, leg.Mode)
	assert.Nil(t, leg.DurationSeconds)
}

func TestResolveLegEnrichesCopies(t *testing.T) {
	geocoder := testutil.NewStubGeocoder()
	a := models.ResolvedPlace{Name: "A", Lng: 104.06, Lat: 30.67}
	b := models.ResolvedPlace{Name: "B", Lng: 104.08, Lat: 30.655, CityCode: "028", Adcode: "510104"}
	geocoder.Regeo[testutil.RegeoKey(a.GetCoords())] = models.AdminInfo{CityName: "成都市", CityCode: "028", Adcode: "510105"}

	planner := testutil.NewStubPlanner()
	resolver := transit.NewLegResolver(planner, geocoder)

	leg := resolver.ResolveLeg(context.Background(), "510100", a, b)

	assert.Equal(t, "510105", leg.From.Adcode)
	assert.Equal(t, "成都市", leg.From.CityName)
	assert.Empty(t, a.Adcode, "caller's place must not change")

	req, ok := planner.RequestFor("A", "B")
	require.True(t, ok)
	assert.Equal(t, "510105", req.Ad1)
	assert.Equal(t, "028", req.City1)

	// b already had codes
	assert.Equal(t, 1, geocoder.CallCount("ReverseGeocode"))
}

func TestResolveLegEnrichmentFailureIgnored(t *testing.T) {
	geocoder := testutil.NewStubGeocoder()
	resolver := transit.NewLegResolver(testutil.NewStubPlanner(), geocoder)

	leg := resolver.ResolveLeg(context.Background(), "510100",
		models.ResolvedPlace{Name: "A", Lng: 104.06, Lat: 30.67},
		models.ResolvedPlace{Name: "B", Lng: 104.07, Lat: 30.67})

	assert.Equal(t, models.ModeWalk, leg.Mode)
	assert.Empty(t, leg.From.Adcode)
}

func TestNavigationFor(t *testing.T) {
	from := models.ResolvedPlace{Name: "天府 广场", Lng: 104.065735, Lat: 30.657425}
	to := models.ResolvedPlace{Name: "武侯祠", Lng: 104.048, Lat: 30.646}

	nav := transit.NavigationFor(from, to)

	assert.True(t, strings.HasPrefix(nav.AppURI, "amapuri://route/plan/?"))
	assert.Contains(t, nav.AppURI, "slat=30.657425&slon=104.065735")
	assert.Contains(t, nav.AppURI, "dname="+url.QueryEscape("武侯祠"))
	assert.Contains(t, nav.AppURI, "sname=%E5%A4%A9%E5%BA%9C%20%E5%B9%BF%E5%9C%BA")
	assert.NotContains(t, nav.AppURI, "+")

	assert.True(t, strings.HasPrefix(nav.WebURL, "https://uri.amap.com/navigation?"))
	assert.Contains(t, nav.WebURL, "from=104.065735,30.657425,")
	assert.Contains(t, nav.WebURL, "to=104.048000,30.646000,")
	assert.Contains(t, nav.WebURL, "mode=bus")
}

func TestFallbackIsWalking(t *testing.T) {
	resolver := transit.NewLegResolver(testutil.NewStubPlanner(), nil)
	a := models.ResolvedPlace{Name: "A", Lng: 104.0, Lat: 30.6}

	leg := resolver.Fallback(a, a)

	assert.Equal(t, models.ModeWalk, leg.Mode)
	assert.Equal(t, 0.0, *leg.DistanceMeters)
	assert.Equal(t, 0.0, *leg.DurationSeconds)
}
