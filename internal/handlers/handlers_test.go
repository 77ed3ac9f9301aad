package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-planner/internal/geocoding"
	"travel-planner/internal/itinerary"
	"travel-planner/internal/models"
	"travel-planner/internal/places"
	"travel-planner/internal/testutil"
	"travel-planner/internal/transit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLocator struct {
	hint string
}

func (f fakeLocator) CityHint(string) string { return f.hint }

func setupTestHandler(t *testing.T) (*Handler, *testutil.StubGeocoder) {
	t.Helper()
	geocoder := testutil.NewStubGeocoder()
	geocoder.Geocodes["宽窄巷子"] = []geocoding.Candidate{testutil.Candidate("宽窄巷子", 104.053, 30.669, "成都市", "510105")}
	geocoder.Geocodes["春熙路"] = []geocoding.Candidate{testutil.Candidate("春熙路", 104.08, 30.655, "成都市", "510104")}
	geocoder.Geocodes["故宫"] = []geocoding.Candidate{testutil.Candidate("故宫", 116.397, 39.918, "北京市", "110101")}

	resolver := places.NewResolver(geocoder, places.Options{})
	legs := transit.NewLegResolver(testutil.NewStubPlanner(), geocoder)

	return &Handler{
		Planner:  itinerary.NewPlanner(resolver, legs, geocoder, itinerary.Options{Timeout: 5 * time.Second}),
		Places:   resolver,
		Legs:     legs,
		Geocoder: geocoder,
	}, geocoder
}

func perform(handler gin.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	var buf []byte
	switch b := body.(type) {
	case string:
		buf = []byte(b)
	default:
		buf, _ = json.Marshal(b)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(buf))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "203.0.113.7:5555"
	handler(c)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandlePlanItinerary(t *testing.T) {
	h, _ := setupTestHandler(t)

	w := perform(h.HandlePlanItinerary, map[string]interface{}{
		"origin":      map[string]interface{}{"type": "coord", "lng": 104.06, "lat": 30.67, "name": "酒店"},
		"places":      []string{"春熙路", " ", "宽窄巷子", "故宫"},
		"city_hint":   "成都",
		"city_adcode": "510100",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.ItineraryResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "酒店", result.Origin.Name)
	assert.Len(t, result.OrderedPlaces, 2)
	require.Len(t, result.Legs, 2)
	require.NotNil(t, result.Legs[0].Navigation)
	assert.Contains(t, result.Legs[0].Navigation.WebURL, "uri.amap.com")
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "故宫", result.Failed[0].Name)
	assert.Equal(t, models.ReasonNotFoundInCity, result.Failed[0].Reason)
}

func TestHandlePlanItineraryValidation(t *testing.T) {
	h, _ := setupTestHandler(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", `{"places": [`},
		{"no places", map[string]interface{}{"origin": map[string]interface{}{"type": "text", "text": "春熙路"}}},
		{"blank places", map[string]interface{}{"places": []string{" ", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(h.HandlePlanItinerary, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Error.Code)
		})
	}
}

func TestHandlePlanItineraryInvalidOrigin(t *testing.T) {
	h, _ := setupTestHandler(t)

	w := perform(h.HandlePlanItinerary, map[string]interface{}{
		"origin":      map[string]interface{}{"type": "coord", "lng": 200, "lat": 30.67},
		"places":      []string{"春熙路"},
		"city_adcode": "510100",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ORIGIN", decodeError(t, w).Error.Code)
}

func TestHandlePlanItineraryNoPlacesResolved(t *testing.T) {
	h, _ := setupTestHandler(t)

	w := perform(h.HandlePlanItinerary, map[string]interface{}{
		"origin":      map[string]interface{}{"type": "coord", "lng": 104.06, "lat": 30.67},
		"places":      []string{"故宫", "不存在的地方"},
		"city_adcode": "510100",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "NO_PLACES_RESOLVED", resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	failed, ok := details["failed"].([]interface{})
	require.True(t, ok)
	assert.Len(t, failed, 2)
}

func TestHandleGeocode(t *testing.T) {
	h, _ := setupTestHandler(t)

	w := perform(h.HandleGeocode, GeocodeRequest{Address: "宽窄巷子", CityAdcode: "510100"})

	require.Equal(t, http.StatusOK, w.Code)
	var place models.ResolvedPlace
	require.NoError(t, json.NewDecoder(w.Body).Decode(&place))
	assert.Equal(t, "宽窄巷子", place.Name)
	assert.Equal(t, "510105", place.Adcode)

	w = perform(h.HandleGeocode, GeocodeRequest{Address: "故宫", CityAdcode: "510100"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Error.Code)

	w = perform(h.HandleGeocode, GeocodeRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCityAdcode(t *testing.T) {
	h, geocoder := setupTestHandler(t)
	geocoder.Districts["成都"] = []geocoding.District{
		{Name: "四川省", Level: "province", Adcode: "510000"},
		{Name: "成都市", Level: "city", Adcode: "510100", CityCode: "028"},
	}
	geocoder.Errors["坏城市"] = errors.New("provider down")

	w := perform(h.HandleCityAdcode, CityAdcodeRequest{CityName: "成都"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp CityAdcodeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "510100", resp.Adcode)
	require.NotNil(t, resp.CityCode)
	assert.Equal(t, "028", *resp.CityCode)

	w = perform(h.HandleCityAdcode, CityAdcodeRequest{CityName: "无名"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(h.HandleCityAdcode, CityAdcodeRequest{CityName: "坏城市"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", decodeError(t, w).Error.Code)
}

func TestHandleInputTips(t *testing.T) {
	h, geocoder := setupTestHandler(t)
	geocoder.Tips["春熙"] = []geocoding.Tip{
		{Name: "春熙路地铁站"},
		{Name: "春熙", Location: &models.Coordinates{Lat: 30.65, Lng: 104.08}},
		{Name: "IFS", Address: "春熙路"},
	}

	w := perform(h.HandleInputTips, InputTipsRequest{Keywords: " 春熙 ", CityAdcode: "510100"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp InputTipsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Tips, 3)
	assert.Equal(t, "春熙", resp.Tips[0].Name)
	assert.Equal(t, "IFS", resp.Tips[2].Name)

	calls := geocoder.Calls
	assert.Equal(t, "510100", calls[len(calls)-1].City)
}

func TestHandleInputTipsDegradesToEmpty(t *testing.T) {
	h, geocoder := setupTestHandler(t)
	geocoder.Errors["锦里"] = errors.New("timeout")

	for _, keywords := range []string{"", "锦里"} {
		w := perform(h.HandleInputTips, InputTipsRequest{Keywords: keywords})

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tips":[]}`, w.Body.String())
	}
}

func TestCityHintFromClientAddress(t *testing.T) {
	h, geocoder := setupTestHandler(t)
	h.Locator = fakeLocator{hint: "成都"}

	perform(h.HandleInputTips, InputTipsRequest{Keywords: "太古里"})
	perform(h.HandleInputTips, InputTipsRequest{Keywords: "锦里", CityAdcode: "510100"})

	require.Len(t, geocoder.Calls, 2)
	assert.Equal(t, "成都", geocoder.Calls[0].City)
	assert.Equal(t, "510100", geocoder.Calls[1].City)
}

func TestHandleTransit(t *testing.T) {
	h, _ := setupTestHandler(t)

	w := perform(h.HandleTransit, TransitRequest{Origin: "104.06,30.67", Destination: "104.07,30.67"})

	require.Equal(t, http.StatusOK, w.Code)
	var leg models.Leg
	require.NoError(t, json.NewDecoder(w.Body).Decode(&leg))
	assert.Equal(t, models.ModeWalk, leg.Mode)
	assert.Equal(t, "起点", leg.From.Name)
	assert.Equal(t, "终点", leg.To.Name)
	require.NotNil(t, leg.DistanceMeters)
	assert.InDelta(t, 958, *leg.DistanceMeters, 5)

	w = perform(h.HandleTransit, TransitRequest{Origin: "104.06", Destination: "104.07,30.67"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleNearby(t *testing.T) {
	h, geocoder := setupTestHandler(t)
	c := testutil.Candidate("小龙坎", 104.061, 30.671, "成都市", "510104")
	c.Rating = 4.6
	geocoder.Around["美食 餐厅 小吃"] = []geocoding.Candidate{c}

	w := perform(h.HandleNearby, map[string]interface{}{
		"center": map[string]interface{}{"lng": 104.06, "lat": 30.67},
		"limit":  5,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp NearbyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, places.DefaultNearbyRadius, resp.RadiusMeters)
	require.Len(t, resp.Sections, 6)
	assert.Equal(t, "food", resp.Sections[0].Key)
	require.Len(t, resp.Sections[0].Items, 1)
	assert.Equal(t, "小龙坎", resp.Sections[0].Items[0].Name)

	w = perform(h.HandleNearby, map[string]interface{}{"limit": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealth(t *testing.T) {
	h := &Handler{}

	w := perform(h.HandleHealth, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestToProvider(t *testing.T) {
	c := models.Coordinates{Lat: 30.67, Lng: 104.06}

	assert.Equal(t, c, toProvider(c, ""))
	assert.Equal(t, c, toProvider(c, "gcj02"))
	assert.NotEqual(t, c, toProvider(c, "WGS84"))
}
