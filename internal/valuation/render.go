package valuation

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	// Neutral marks the placeholder row shown when there is no attribution.
	Neutral Polarity = "none"
)

// NoAttributionText is the placeholder shown for an empty attribution list.
const NoAttributionText = "No attribution data available."

// namespaceSeparator splits a preprocessor prefix from the feature name,
// as in "num__Square Footage".
const namespaceSeparator = "__"

type Entry struct {
	Label       string   `json:"label"`
	SignedText  string   `json:"signed_text"`
	Polarity    Polarity `json:"polarity"`
	Value       float64  `json:"value"`
	Placeholder bool     `json:"placeholder,omitempty"`
}

type Result struct {
	DisplayValue int64   `json:"display_value"`
	DisplayText  string  `json:"display_text"`
	Entries      []Entry `json:"entries"`
}

type RenderOptions struct {
	// SortByMagnitude orders entries by |value|, largest first. Off by
	// default: entries keep the order the service sent.
	SortByMagnitude bool
}

// Render formats a prediction for display. It does no math beyond
// rounding and formatting.
func Render(resp Response, opts RenderOptions) Result {
	v := roundHalfUp(resp.WhatIfValue)
	res := Result{
		DisplayValue: v,
		DisplayText:  message.NewPrinter(language.AmericanEnglish).Sprintf("%d", v),
	}
	if len(resp.Summary) == 0 {
		res.Entries = []Entry{{Label: NoAttributionText, Polarity: Neutral, Placeholder: true}}
		return res
	}

	res.Entries = make([]Entry, 0, len(resp.Summary))
	for _, a := range resp.Summary {
		res.Entries = append(res.Entries, entryFor(a))
	}
	if opts.SortByMagnitude {
		sort.SliceStable(res.Entries, func(i, j int) bool {
			return math.Abs(res.Entries[i].Value) > math.Abs(res.Entries[j].Value)
		})
	}
	return res
}

func entryFor(a Attribution) Entry {
	v := a.Value
	if v == 0 {
		v = 0 // fold -0 into +0
	}
	e := Entry{Label: FeatureLabel(a.Feature), Value: v}
	text := strconv.FormatFloat(v, 'f', 2, 64)
	if v >= 0 {
		e.SignedText = "+" + text
		e.Polarity = Positive
	} else {
		e.SignedText = text
		e.Polarity = Negative
	}
	return e
}

// FeatureLabel strips everything up to and including the last "__".
func FeatureLabel(feature string) string {
	if i := strings.LastIndex(feature, namespaceSeparator); i >= 0 {
		return feature[i+len(namespaceSeparator):]
	}
	return feature
}

// roundHalfUp rounds .5 toward positive infinity, the way browsers round.
// Values beyond the int64 range saturate; NaN becomes 0.
func roundHalfUp(v float64) int64 {
	r := math.Floor(v + 0.5)
	switch {
	case math.IsNaN(r):
		return 0
	case r >= math.MaxInt64: // 2^63 as a float64
		return math.MaxInt64
	case r <= math.MinInt64:
		return math.MinInt64
	}
	return int64(r)
}
