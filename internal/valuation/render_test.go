package valuation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_ExampleResponse(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{
		"what_if_value": 512345.6,
		"shap_summary": [
			{"feature": "num__sqft", "shap_value": 1234.5},
			{"feature": "cat__zip", "shap_value": -98.7}
		]
	}`), &resp))

	got := Render(resp, RenderOptions{})

	assert.Equal(t, int64(512346), got.DisplayValue)
	assert.Equal(t, "512,346", got.DisplayText)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, Entry{Label: "sqft", SignedText: "+1234.50", Polarity: Positive, Value: 1234.5}, got.Entries[0])
	assert.Equal(t, Entry{Label: "zip", SignedText: "-98.70", Polarity: Negative, Value: -98.7}, got.Entries[1])
}

func TestRender_EmptyAttribution(t *testing.T) {
	got := Render(Response{WhatIfValue: 0, Summary: []Attribution{}}, RenderOptions{})

	assert.Equal(t, int64(0), got.DisplayValue)
	assert.Equal(t, "0", got.DisplayText)
	require.Len(t, got.Entries, 1)
	assert.True(t, got.Entries[0].Placeholder)
	assert.Equal(t, NoAttributionText, got.Entries[0].Label)
	assert.Equal(t, Neutral, got.Entries[0].Polarity)

	nilSummary := Render(Response{WhatIfValue: 10}, RenderOptions{})
	require.Len(t, nilSummary.Entries, 1)
	assert.True(t, nilSummary.Entries[0].Placeholder)
}

func TestRender_KeepsReceivedOrder(t *testing.T) {
	resp := Response{Summary: []Attribution{
		{Feature: "num__a", Value: 1},
		{Feature: "num__b", Value: -50},
		{Feature: "num__c", Value: 10},
	}}
	got := Render(resp, RenderOptions{})
	assert.Equal(t, []string{"a", "b", "c"}, labels(got))

	sorted := Render(resp, RenderOptions{SortByMagnitude: true})
	assert.Equal(t, []string{"b", "c", "a"}, labels(sorted))
}

func TestRender_ZeroIsPositive(t *testing.T) {
	got := Render(Response{Summary: []Attribution{{Feature: "x", Value: 0}}}, RenderOptions{})
	assert.Equal(t, "+0.00", got.Entries[0].SignedText)
	assert.Equal(t, Positive, got.Entries[0].Polarity)
}

func TestRender_Rounding(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
		text string
	}{
		{512345.4, 512345, "512,345"},
		{512345.5, 512346, "512,346"},
		{1234567.89, 1234568, "1,234,568"},
		{-2.5, -2, "-2"},
		{999.49, 999, "999"},
	}
	for _, tt := range tests {
		got := Render(Response{WhatIfValue: tt.in}, RenderOptions{})
		assert.Equal(t, tt.want, got.DisplayValue, "value %v", tt.in)
		assert.Equal(t, tt.text, got.DisplayText, "value %v", tt.in)
	}
}

func TestRender_OutOfRangeValuesSaturate(t *testing.T) {
	assert.Equal(t, int64(math.MaxInt64), Render(Response{WhatIfValue: 1e300}, RenderOptions{}).DisplayValue)
	assert.Equal(t, int64(math.MaxInt64), Render(Response{WhatIfValue: math.Inf(1)}, RenderOptions{}).DisplayValue)
	assert.Equal(t, int64(math.MinInt64), Render(Response{WhatIfValue: -1e300}, RenderOptions{}).DisplayValue)
	assert.Equal(t, int64(0), Render(Response{WhatIfValue: math.NaN()}, RenderOptions{}).DisplayValue)
}

func TestFeatureLabel(t *testing.T) {
	tests := map[string]string{
		"num__Square Footage":      "Square Footage",
		"cat__Zip Code.1_90012":    "Zip Code.1_90012",
		"geo__num__nested":         "nested",
		"Number of Bedrooms":       "Number of Bedrooms",
		"trailing__":               "",
		"single_underscore_prefix": "single_underscore_prefix",
	}
	for in, want := range tests {
		assert.Equal(t, want, FeatureLabel(in), in)
	}
}

func labels(r Result) []string {
	out := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Label)
	}
	return out
}
