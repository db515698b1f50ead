package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/app"
	"github.com/yourorg/homely-api/internal/dataset"
	"github.com/yourorg/homely-api/internal/geo"
	"github.com/yourorg/homely-api/internal/metrics"
	"github.com/yourorg/homely-api/internal/property"
	"github.com/yourorg/homely-api/internal/session"
	"github.com/yourorg/homely-api/internal/valuation"
)

var home = property.Property{
	Address:       "123 Main St",
	Latitude:      34.05,
	Longitude:     -118.25,
	Bedrooms:      property.Float(3),
	Bathrooms:     property.Float(2),
	YearBuilt:     property.Float(1990),
	SquareFootage: property.Float(1500),
	Units:         property.Float(1),
}

func north(name string, miles float64) amenity.Amenity {
	return amenity.Amenity{
		Name: name,
		Lat:  home.Latitude + miles/(geo.EarthRadiusMiles*math.Pi/180),
		Lon:  home.Longitude,
	}
}

type harness struct {
	handler http.Handler
	catalog *dataset.Catalog
	calls   *atomic.Int32
}

func newHarness(t *testing.T, modelStatus int) *harness {
	t.Helper()
	var calls atomic.Int32
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if modelStatus != http.StatusOK {
			w.WriteHeader(modelStatus)
			_, _ = w.Write([]byte(`{"error":"model exploded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"what_if_value": 812345.5, "shap_summary": [
			{"feature": "num__Square Footage", "shap_value": 1200.4},
			{"feature": "cat__Zip Code.1", "shap_value": -310.6}]}`))
	}))
	t.Cleanup(model.Close)

	cat := dataset.NewCatalog()
	m := metrics.New()
	svc := &app.Service{
		Catalog:   cat,
		Sessions:  session.NewMemoryStore(time.Hour),
		Sequencer: session.NewSequencer(),
		Predictor: valuation.NewClient(valuation.Config{BaseURL: model.URL, Timeout: 5 * time.Second}),
		Metrics:   m,
	}
	h := BuildRouter(RouterDeps{Service: svc, Catalog: cat, Metrics: m, RateLimitPerMin: 1000})
	return &harness{handler: h, catalog: cat, calls: &calls}
}

func (h *harness) publish() {
	ix := amenity.NewIndex(amenity.DefaultSources(""))
	for _, c := range amenity.Categories {
		ix.Set(c, nil)
	}
	ix.Set(amenity.Hospitals, []amenity.Amenity{north("Near General", 5), north("Far General", 25)})
	h.catalog.Publish(property.NewLocator([]property.Property{home}), ix)
}

func (h *harness) do(method, path, sid, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if sid != "" {
		req.Header.Set("X-Session-ID", sid)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_HealthAndReady(t *testing.T) {
	h := newHarness(t, http.StatusOK)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/ready", "", "").Code)

	h.publish()
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/ready", "", "").Code)
}

func TestRouter_DataRoutesGatedUntilReady(t *testing.T) {
	h := newHarness(t, http.StatusOK)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/v1/addresses?prefix=1", ""},
		{http.MethodPost, "/v1/search", `{"address":"123 Main St"}`},
		{http.MethodGet, "/v1/amenities", ""},
		{http.MethodPost, "/v1/scenario", `{}`},
	} {
		rec := h.do(tc.method, tc.path, "s", tc.body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
		assert.Equal(t, "not_ready", decode(t, rec)["error"], tc.path)
	}
	assert.Zero(t, h.calls.Load())
}

func TestRouter_SearchSelectsAndListsNearbyHospitals(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()

	rec := h.do(http.MethodPost, "/v1/search", "s1", `{"address":"  123 main st"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sel app.Selection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	assert.Equal(t, "123 Main St", sel.Property.Address)
	require.Len(t, sel.Amenities, len(amenity.Categories))
	require.Len(t, sel.Amenities[0].Amenities, 1)
	assert.Equal(t, "Near General", sel.Amenities[0].Amenities[0].Name)

	rec = h.do(http.MethodGet, "/v1/amenities", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Near General")
	assert.NotContains(t, rec.Body.String(), "Far General")
}

func TestRouter_SearchNotFound(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()

	rec := h.do(http.MethodGet, "/v1/search?address=999+Nowhere+Rd", "s1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"Address not found."}`, rec.Body.String())
}

func TestRouter_ScenarioRequiresSelection(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()

	rec := h.do(http.MethodPost, "/v1/scenario", "fresh", `{"bedrooms":"4"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"no_selection","message":"Please select a house first."}`, rec.Body.String())
	assert.Zero(t, h.calls.Load())
}

func TestRouter_ScenarioRendersResult(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/search", "s1", `{"address":"123 Main St"}`).Code)

	rec := h.do(http.MethodPost, "/v1/scenario", "s1", `{"bedrooms":"4","square_footage":""}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ev app.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "812,346", ev.Result.DisplayText)
	require.Len(t, ev.Result.Entries, 2)
	assert.Equal(t, "Square Footage", ev.Result.Entries[0].Label)
	assert.Equal(t, valuation.Positive, ev.Result.Entries[0].Polarity)
	assert.Equal(t, "Zip Code.1", ev.Result.Entries[1].Label)
	assert.Equal(t, valuation.Negative, ev.Result.Entries[1].Polarity)
	assert.Equal(t, 4.0, *ev.Request.Bedrooms)
	assert.Equal(t, 1500.0, *ev.Request.SquareFootage)
	assert.EqualValues(t, 1, h.calls.Load())
}

func TestRouter_ScenarioAcceptsNumericOverrides(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/search", "s1", `{"address":"123 main st"}`).Code)

	rec := h.do(http.MethodPost, "/v1/scenario", "s1", `{"bedrooms":4,"bathrooms":2.5,"units":null,"year_built":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ev app.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, 4.0, *ev.Request.Bedrooms)
	assert.Equal(t, 2.0, *ev.Request.Bathrooms)
	assert.Equal(t, 1.0, *ev.Request.Units)
	assert.Equal(t, 1990.0, *ev.Request.YearBuilt)
}

func TestRouter_ScenarioPredictionFailed(t *testing.T) {
	h := newHarness(t, http.StatusInternalServerError)
	h.publish()
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/search", "s1", `{"address":"123 Main St"}`).Code)

	rec := h.do(http.MethodPost, "/v1/scenario", "s1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"prediction_failed","message":"Prediction failed."}`, rec.Body.String())
	assert.EqualValues(t, 1, h.calls.Load(), "no retry")
}

func TestRouter_HistoryWithoutStore(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/search", "s1", `{"address":"123 Main St"}`).Code)

	rec := h.do(http.MethodGet, "/v1/scenario/history", "s1", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRouter_SessionCookieIssued(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()

	rec := h.do(http.MethodPost, "/v1/search", "", `{"address":"123 Main St"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sid := rec.Header().Get("X-Session-ID")
	require.NotEmpty(t, sid)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "homely_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, sid, cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/v1/amenities", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "cookie carries the selection")
}

func TestRouter_AddressesAndSources(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()

	rec := h.do(http.MethodGet, "/v1/addresses?prefix=123&limit=5", "s", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"addresses":["123 Main St"]}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/v1/amenities/sources", "s", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"Fire Stations"`)
}

func TestRouter_Metrics(t *testing.T) {
	h := newHarness(t, http.StatusOK)
	h.publish()
	h.do(http.MethodPost, "/v1/search", "s", `{"address":"123 Main St"}`)

	rec := h.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `homely_address_searches_total{outcome="found"} 1`)
}
